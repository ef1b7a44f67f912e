package chat

import (
	"context"
	"log"
	"time"
)

// Subscription 会话消息的实时订阅。每次底层数据变化时
// 收到该会话完整的有序快照（非增量），调用方整体替换本地状态。
type Subscription struct {
	ChannelID string
	C         chan []MessageView

	hub  *Hub
	done chan struct{}
}

// Cancel 取消订阅。取消后不再收到任何推送，
// 正在途中的推送被静默丢弃。
func (sub *Subscription) Cancel() {
	select {
	case sub.hub.unregister <- sub:
	case <-sub.done:
	}
}

// Done 返回订阅的关闭通道
func (sub *Subscription) Done() <-chan struct{} {
	return sub.done
}

// Hub 负责管理会话订阅和消息快照推送
type Hub struct {
	// 已注册的订阅，按会话ID索引
	subs map[string]map[*Subscription]bool

	// 订阅注册请求
	register chan *Subscription

	// 取消订阅请求
	unregister chan *Subscription

	// 有新消息写入的会话ID
	changed chan string

	// 加载会话当前的完整消息快照
	load func(ctx context.Context, channelID string) ([]MessageView, error)
}

func newHub(load func(ctx context.Context, channelID string) ([]MessageView, error)) *Hub {
	return &Hub{
		subs:       make(map[string]map[*Subscription]bool),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		changed:    make(chan string, 256),
		load:       load,
	}
}

// Subscribe 订阅某个会话的消息变化
func (h *Hub) Subscribe(channelID string) *Subscription {
	sub := &Subscription{
		ChannelID: channelID,
		C:         make(chan []MessageView, 8),
		hub:       h,
		done:      make(chan struct{}),
	}
	h.register <- sub
	return sub
}

// Notify 通知某个会话有新消息写入
func (h *Hub) Notify(channelID string) {
	select {
	case h.changed <- channelID:
	default:
		log.Printf("会话变更通知队列已满，丢弃会话 %s 的通知", channelID)
	}
}

// Run 开始订阅管理和推送循环
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for _, set := range h.subs {
				for sub := range set {
					close(sub.done)
					close(sub.C)
				}
			}
			return

		case sub := <-h.register:
			if h.subs[sub.ChannelID] == nil {
				h.subs[sub.ChannelID] = make(map[*Subscription]bool)
			}
			h.subs[sub.ChannelID][sub] = true
			// 注册后立即推送一次当前快照
			h.push(ctx, sub)

		case sub := <-h.unregister:
			if set, ok := h.subs[sub.ChannelID]; ok && set[sub] {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, sub.ChannelID)
				}
				close(sub.done)
				close(sub.C)
			}

		case channelID := <-h.changed:
			for sub := range h.subs[channelID] {
				h.push(ctx, sub)
			}
		}
	}
}

// push 向单个订阅推送完整快照
func (h *Hub) push(ctx context.Context, sub *Subscription) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	snapshot, err := h.load(loadCtx, sub.ChannelID)
	cancel()
	if err != nil {
		log.Printf("加载会话 %s 的消息快照失败: %v", sub.ChannelID, err)
		return
	}

	select {
	case sub.C <- snapshot:
	case <-sub.done:
		// 订阅已取消，丢弃推送
	default:
		// 缓冲区已满。推送的是全量快照，旧快照会被新快照整体取代，
		// 因此丢弃最旧的一份，保证最新状态总能送达
		select {
		case <-sub.C:
		default:
		}
		select {
		case sub.C <- snapshot:
		case <-sub.done:
		default:
			log.Printf("会话 %s 的订阅缓冲区已满，丢弃快照", sub.ChannelID)
		}
	}
}
