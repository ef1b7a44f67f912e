package connection

import (
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"
)

// 连接超时和心跳常量
const (
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 10000
)

// WSConn 包装一个向客户端推送快照的 WebSocket 连接。
// 推送内容是序列化好的 JSON 负载，连接层不关心其结构。
type WSConn struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	done   chan struct{}
}

// NewWSConn 创建新的 WebSocket 连接包装
func NewWSConn(conn *websocket.Conn, userID string) *WSConn {
	return &WSConn{
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 256),
		done:   make(chan struct{}),
	}
}

// Send 将负载放入发送队列
func (c *WSConn) Send(payload []byte) error {
	select {
	case <-c.done:
		return fmt.Errorf("连接已关闭")
	default:
	}

	select {
	case c.send <- payload:
		return nil
	case <-c.done:
		return fmt.Errorf("连接已关闭")
	default:
		return fmt.Errorf("发送缓冲区已满")
	}
}

// Close 关闭连接
func (c *WSConn) Close() error {
	select {
	case <-c.done:
		return nil
	default:
		close(c.done)
	}
	return c.conn.Close()
}

// Done 返回连接的关闭通道
func (c *WSConn) Done() <-chan struct{} {
	return c.done
}

// StartReading 读取循环。订阅连接不处理入站业务消息，
// 读取只用于响应 pong 和感知客户端断开。
func (c *WSConn) StartReading() {
	defer c.Close()

	c.conn.SetReadLimit(MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("用户 %s 的 WebSocket 读取错误: %v", c.userID, err)
			} else {
				log.Printf("用户 %s 的 WebSocket 连接关闭: %v", c.userID, err)
			}
			return
		}
	}
}

// StartWriting 写入循环，推送快照并定期发送 ping
func (c *WSConn) StartWriting() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.CloseMessage, []byte{}); err != nil {
				log.Printf("用户 %s 发送关闭消息失败: %v", c.userID, err)
			}
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Printf("用户 %s 的 WebSocket 写入失败: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Printf("用户 %s 发送ping失败: %v", c.userID, err)
				return
			}
		}
	}
}
