package user

import (
	"log"
	"net/http"

	"friendchat/internal/errs"
	"friendchat/internal/presence"
	"friendchat/internal/session"

	"github.com/gin-gonic/gin"
)

// RegisterHandler 处理用户注册
func RegisterHandler(svc *AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID, err := svc.Register(c.Request.Context(), &req)
		if err != nil {
			log.Printf("注册错误: %v", err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "用户注册成功",
			"user_id": userID,
		})
	}
}

// LoginHandler 处理用户登录，登录成功即建立会话
func LoginHandler(svc *AccountService, sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			log.Printf("登录请求绑定错误: %v", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		response, err := svc.Login(c.Request.Context(), &req)
		if err != nil {
			log.Printf("%s 登录失败: %v", req.Username, err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}

		// 登录即调用会话开始钩子
		if _, err := sessions.Start(c.Request.Context(), response.UserID); err != nil {
			log.Printf("建立会话失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "建立会话失败"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"token": response.Token, "user_id": response.UserID})
	}
}

// LogoutHandler 处理用户登出，拆除会话和全部订阅
func LogoutHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.JSON(errs.HTTPStatus(errs.ErrUnauthorized), gin.H{"error": errs.ErrUnauthorized.Error()})
			return
		}

		sessions.End(c.Request.Context(), userID)
		c.JSON(http.StatusOK, gin.H{"message": "已登出"})
	}
}

// GetUserInfoHandler 获取当前用户信息
func GetUserInfoHandler(svc *AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.JSON(errs.HTTPStatus(errs.ErrUnauthorized), gin.H{"error": errs.ErrUnauthorized.Error()})
			return
		}

		info, err := svc.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": "获取用户信息失败"})
			return
		}

		c.JSON(http.StatusOK, info)
	}
}

// SearchHandler 按用户名搜索用户
func SearchHandler(svc *AccountService) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := c.Query("username")
		if query == "" {
			query = c.Query("q")
		}
		if query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "搜索查询不能为空"})
			return
		}

		result, err := svc.SearchByHandle(c.Request.Context(), query)
		if err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

// HeartbeatHandler 处理心跳请求，刷新在线状态
func HeartbeatHandler(pres *presence.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		if userID == "" {
			c.JSON(errs.HTTPStatus(errs.ErrUnauthorized), gin.H{"error": errs.ErrUnauthorized.Error()})
			return
		}

		if err := pres.Heartbeat(c.Request.Context(), userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "更新状态失败"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "online",
			"user_id": userID,
		})
	}
}
