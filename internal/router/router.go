package router

import (
	"log"
	"net/http"
	"time"

	"friendchat/internal/chat"
	"friendchat/internal/friend"
	"friendchat/internal/middleware"
	"friendchat/internal/presence"
	"friendchat/internal/server"
	"friendchat/internal/session"
	"friendchat/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Deps 路由依赖的服务集合
type Deps struct {
	AccountService *user.AccountService
	FriendService  *friend.Service
	MessageService *chat.MessageService
	Sessions       *session.Manager
	Presence       *presence.Manager
}

// SetupRouter 配置所有路由
func SetupRouter(deps Deps) *gin.Engine {
	r := gin.Default()

	// CORS 配置
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// API请求日志中间件
	r.Use(func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Set("requestID", requestID)

		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)

		log.Printf("[%s] 请求: %s %s, 状态: %d, 延迟: %s",
			requestID, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), latency)
	})

	// API 路由
	api := r.Group("/api")
	{
		// ----- 无需认证的路由 -----
		api.POST("/register", user.RegisterHandler(deps.AccountService))
		api.POST("/login", user.LoginHandler(deps.AccountService, deps.Sessions))

		// 心跳预检
		api.OPTIONS("/heartbeat", func(c *gin.Context) {
			c.Status(http.StatusNoContent)
		})

		// WebSocket路由 - token 经查询参数校验，不经过JWT中间件
		api.GET("/ws/friends", server.FriendListWSHandler(deps.FriendService))
		api.GET("/ws/channels/:id", server.MessagesWSHandler(deps.Sessions))

		// ----- 需要认证的路由 -----
		auth := api.Group("/")
		auth.Use(middleware.JWT())
		{
			// ----- 用户相关 -----
			auth.GET("/user/info", user.GetUserInfoHandler(deps.AccountService))
			auth.GET("/users/search", user.SearchHandler(deps.AccountService))
			auth.POST("/logout", user.LogoutHandler(deps.Sessions))

			// ----- 好友请求相关 -----
			auth.POST("/friend/requests", friend.SendRequestHandler(deps.FriendService))
			auth.GET("/friend/requests", friend.ListRequestsHandler(deps.FriendService))
			auth.POST("/friend/requests/:id/accept", friend.AcceptHandler(deps.FriendService))
			auth.POST("/friend/requests/:id/reject", friend.RejectHandler(deps.FriendService))

			// ----- 好友列表 -----
			auth.GET("/friends", friend.ListFriendsHandler(deps.FriendService))

			// ----- 消息相关 -----
			auth.GET("/channels/:id/messages", chat.GetMessagesHandler(deps.MessageService))
			auth.POST("/channels/:id/messages", chat.PostMessageHandler(deps.MessageService))

			// 心跳检测
			auth.GET("/heartbeat", user.HeartbeatHandler(deps.Presence))
		}
	}

	return r
}
