package server

import (
	"encoding/json"
	"log"
	"net/http"

	"friendchat/internal/connection"
	"friendchat/internal/errs"
	"friendchat/internal/friend"
	"friendchat/internal/middleware"
	"friendchat/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// FriendListWSHandler 好友列表的 WebSocket 实时订阅。
// 每次好友关系变化推送完整列表快照。token 通过查询参数传递。
func FriendListWSHandler(svc *friend.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.ValidateToken(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的token"})
			return
		}

		wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket升级失败: %v", err)
			return
		}

		conn := connection.NewWSConn(wsConn, userID)
		sub := svc.Hub().Subscribe(userID)

		go conn.StartWriting()
		go func() {
			defer sub.Cancel()
			conn.StartReading()
		}()

		go func() {
			defer conn.Close()
			for list := range sub.C {
				payload, err := json.Marshal(list)
				if err != nil {
					log.Printf("序列化好友列表失败: %v", err)
					continue
				}
				if err := conn.Send(payload); err != nil {
					log.Printf("推送好友列表到用户 %s 失败: %v", userID, err)
					return
				}
			}
		}()
	}
}

// MessagesWSHandler 会话消息的 WebSocket 实时订阅。
// 连接建立后立即收到一次完整快照，此后每次有新消息写入
// 都推送最新的完整快照，由客户端整体替换本地状态。
func MessagesWSHandler(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, err := middleware.ValidateToken(c.Query("token"))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的token"})
			return
		}

		channelID := c.Param("id")
		sub, err := sessions.OpenMessages(c.Request.Context(), userID, channelID)
		if err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		wsConn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Printf("WebSocket升级失败: %v", err)
			sessions.CloseMessages(userID, channelID)
			return
		}

		conn := connection.NewWSConn(wsConn, userID)

		go conn.StartWriting()
		go func() {
			defer sessions.CloseMessages(userID, channelID)
			conn.StartReading()
		}()

		go func() {
			defer conn.Close()
			for snapshot := range sub.C {
				payload, err := json.Marshal(snapshot)
				if err != nil {
					log.Printf("序列化消息快照失败: %v", err)
					continue
				}
				if err := conn.Send(payload); err != nil {
					log.Printf("推送消息快照到用户 %s 失败: %v", userID, err)
					return
				}
			}
		}()
	}
}
