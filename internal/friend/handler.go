package friend

import (
	"log"
	"net/http"

	"friendchat/internal/errs"

	"github.com/gin-gonic/gin"
)

// SendRequestBody 发送好友请求的请求体
type SendRequestBody struct {
	ToUsername string `json:"to_username" binding:"required"`
}

// SendRequestHandler 发送好友请求
func SendRequestHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body SendRequestBody
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		userID := c.GetString("userID")
		request, err := svc.SendRequest(c.Request.Context(), userID, body.ToUsername)
		if err != nil {
			log.Printf("用户 %s 发送好友请求失败: %v", userID, err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, request)
	}
}

// ListRequestsHandler 获取待处理的入站好友请求
func ListRequestsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		requests, err := svc.ListIncomingRequests(c.Request.Context(), userID)
		if err != nil {
			c.JSON(errs.HTTPStatus(err), gin.H{"error": "获取好友请求失败"})
			return
		}
		c.JSON(http.StatusOK, requests)
	}
}

// AcceptHandler 接受好友请求
func AcceptHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		requestID := c.Param("id")

		if err := svc.Accept(c.Request.Context(), requestID, userID); err != nil {
			log.Printf("接受好友请求 %s 失败: %v", requestID, err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "好友请求已接受"})
	}
}

// RejectHandler 拒绝好友请求
func RejectHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		requestID := c.Param("id")

		if err := svc.Reject(c.Request.Context(), requestID, userID); err != nil {
			log.Printf("拒绝好友请求 %s 失败: %v", requestID, err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "好友请求已拒绝"})
	}
}

// ListFriendsHandler 获取好友列表
func ListFriendsHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString("userID")
		friends, err := svc.ListFriends(c.Request.Context(), userID)
		if err != nil {
			log.Printf("获取用户 %s 的好友列表失败: %v", userID, err)
			c.JSON(errs.HTTPStatus(err), gin.H{"error": "获取好友列表失败"})
			return
		}
		c.JSON(http.StatusOK, friends)
	}
}
