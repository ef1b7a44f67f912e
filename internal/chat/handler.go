package chat

import (
	"log"
	"net/http"

	"friendchat/internal/errs"

	"github.com/gin-gonic/gin"
)

// PostMessageBody 发送消息的请求体
type PostMessageBody struct {
	Text string `json:"text" binding:"required"`
}

// PostMessageHandler 向会话发送一条消息
func PostMessageHandler(svc *MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body PostMessageBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID := c.GetString("userID")
		channelID := c.Param("id")

		// 发送方必须是会话成员
		if _, err := svc.GetChannel(c.Request.Context(), channelID, userID); err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		message, err := svc.PostByUID(c.Request.Context(), channelID, userID, body.Text)
		if err != nil {
			log.Printf("用户 %s 向会话 %s 发送消息失败: %v", userID, channelID, err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, message)
	}
}

// GetMessagesHandler 获取会话的完整消息快照
func GetMessagesHandler(svc *MessageService) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		channelID := c.Param("id")

		if _, err := svc.GetChannel(c.Request.Context(), channelID, userID); err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		snapshot, err := svc.Snapshot(c.Request.Context(), channelID)
		if err != nil {
			log.Printf("获取会话 %s 的消息失败: %v", channelID, err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": "获取消息失败"})
			return
		}

		c.JSON(http.StatusOK, snapshot)
	}
}
