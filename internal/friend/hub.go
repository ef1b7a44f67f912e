package friend

import (
	"context"
	"log"
	"time"

	"friendchat/internal/model"
)

// Subscription 好友列表的实时订阅。每次好友关系变化时
// 收到完整的最新列表快照（非增量）。
type Subscription struct {
	UID string
	C   chan []model.Friendship

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

// Hub 负责管理好友列表订阅和快照推送
type Hub struct {
	// 已注册的订阅，按用户ID索引
	subs map[string]map[*Subscription]bool

	// 订阅注册请求
	register chan *Subscription

	// 取消订阅请求
	unregister chan *Subscription

	// 好友列表发生变化的用户ID
	changed chan string

	// 加载用户当前好友列表
	load func(ctx context.Context, uid string) ([]model.Friendship, error)
}

func newHub(load func(ctx context.Context, uid string) ([]model.Friendship, error)) *Hub {
	return &Hub{
		subs:       make(map[string]map[*Subscription]bool),
		register:   make(chan *Subscription),
		unregister: make(chan *Subscription),
		changed:    make(chan string, 64),
		load:       load,
	}
}

// Subscribe 订阅某个用户的好友列表变化
func (h *Hub) Subscribe(uid string) *Subscription {
	sub := &Subscription{
		UID:  uid,
		C:    make(chan []model.Friendship, 8),
		hub:  h,
		done: make(chan struct{}),
	}
	h.register <- sub
	return sub
}

// Notify 通知某个用户的好友列表已变化
func (h *Hub) Notify(uid string) {
	select {
	case h.changed <- uid:
	default:
		log.Printf("好友列表变更通知队列已满，丢弃用户 %s 的通知", uid)
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
			if h.subs[sub.UID] == nil {
				h.subs[sub.UID] = make(map[*Subscription]bool)
			}
			h.subs[sub.UID][sub] = true
			// 注册后立即推送一次当前快照
			h.push(ctx, sub)

		case sub := <-h.unregister:
			if set, ok := h.subs[sub.UID]; ok && set[sub] {
				delete(set, sub)
				if len(set) == 0 {
					delete(h.subs, sub.UID)
				}
				close(sub.done)
				close(sub.C)
			}

		case uid := <-h.changed:
			for sub := range h.subs[uid] {
				h.push(ctx, sub)
			}
		}
	}
}

// push 向单个订阅推送完整快照
func (h *Hub) push(ctx context.Context, sub *Subscription) {
	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	friends, err := h.load(loadCtx, sub.UID)
	cancel()
	if err != nil {
		log.Printf("加载用户 %s 的好友列表失败: %v", sub.UID, err)
		return
	}

	select {
	case sub.C <- friends:
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
		case sub.C <- friends:
		case <-sub.done:
		default:
			log.Printf("用户 %s 的好友列表订阅缓冲区已满，丢弃快照", sub.UID)
		}
	}
}
