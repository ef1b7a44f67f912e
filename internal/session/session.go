package session

import (
	"context"
	"errors"
	"log"
	"sync"

	"friendchat/internal/chat"
	"friendchat/internal/errs"
	"friendchat/internal/friend"
	"friendchat/internal/model"
	"friendchat/internal/presence"

	"gorm.io/gorm"
)

// Session 单个已登录用户的会话状态：资料、好友列表的实时视图、
// 当前选中的好友，以及需要随登出一起清理的消息订阅。
type Session struct {
	UID    string
	Handle string

	mu           sync.RWMutex
	friends      []model.Friendship
	activeFriend string

	friendSub *friend.Subscription
	msgSubs   map[string]*chat.Subscription
}

// Friends 返回好友列表的当前快照
func (s *Session) Friends() []model.Friendship {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Friendship, len(s.friends))
	copy(out, s.friends)
	return out
}

// ActiveFriend 返回当前选中好友的用户ID，未选中时为空
func (s *Session) ActiveFriend() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeFriend
}

// SelectFriend 选中一个好友，必须在当前好友列表内
func (s *Session) SelectFriend(friendUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.friends {
		if f.FriendID == friendUID {
			s.activeFriend = friendUID
			return nil
		}
	}
	return errs.ErrHandleNotFound
}

// applyFriendList 应用一次好友列表快照。若当前选中的好友
// 已不在列表中，回退到新列表的第一项；列表为空则清空选中。
func (s *Session) applyFriendList(list []model.Friendship) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.friends = list

	if s.activeFriend != "" {
		for _, f := range list {
			if f.FriendID == s.activeFriend {
				return
			}
		}
	}
	if len(list) > 0 {
		s.activeFriend = list[0].FriendID
	} else {
		s.activeFriend = ""
	}
}

// consume 消费好友列表推送，订阅取消后自动退出
func (s *Session) consume() {
	for list := range s.friendSub.C {
		s.applyFriendList(list)
	}
}

// Manager 会话生命周期管理。登录时建立会话并打开好友列表订阅，
// 登出时取消全部订阅并清空本地状态。
type Manager struct {
	db        *gorm.DB
	friendSvc *friend.Service
	chatSvc   *chat.MessageService
	presence  *presence.Manager

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager 创建会话管理器
func NewManager(db *gorm.DB, friendSvc *friend.Service, chatSvc *chat.MessageService, pres *presence.Manager) *Manager {
	return &Manager{
		db:        db,
		friendSvc: friendSvc,
		chatSvc:   chatSvc,
		presence:  pres,
		sessions:  make(map[string]*Session),
	}
}

// Start 登录钩子：加载资料，建立好友列表订阅，标记在线。
// 重复调用返回已有会话。
func (m *Manager) Start(ctx context.Context, uid string) (*Session, error) {
	m.mu.Lock()
	if existing, ok := m.sessions[uid]; ok {
		m.mu.Unlock()
		return existing, nil
	}
	m.mu.Unlock()

	var user model.User
	if err := m.db.WithContext(ctx).Where("id = ?", uid).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrHandleNotFound
		}
		return nil, err
	}

	sess := &Session{
		UID:     uid,
		Handle:  user.Username,
		msgSubs: make(map[string]*chat.Subscription),
	}
	sess.friendSub = m.friendSvc.Hub().Subscribe(uid)

	// 加锁后再次检查：并发登录的竞争失败方取消刚建立的订阅，
	// 复用已存入的会话，避免订阅泄漏
	m.mu.Lock()
	if existing, ok := m.sessions[uid]; ok {
		m.mu.Unlock()
		sess.friendSub.Cancel()
		return existing, nil
	}
	m.sessions[uid] = sess
	m.mu.Unlock()

	go sess.consume()

	if err := m.presence.Heartbeat(ctx, uid); err != nil {
		log.Printf("标记用户 %s 在线失败: %v", uid, err)
	}

	log.Printf("用户 %s (%s) 会话已建立", user.Username, uid)
	return sess, nil
}

// End 登出钩子：取消所有订阅，清理在线状态，丢弃会话
func (m *Manager) End(ctx context.Context, uid string) {
	m.mu.Lock()
	sess, ok := m.sessions[uid]
	if ok {
		delete(m.sessions, uid)
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	sess.friendSub.Cancel()

	sess.mu.Lock()
	for _, sub := range sess.msgSubs {
		sub.Cancel()
	}
	sess.msgSubs = make(map[string]*chat.Subscription)
	sess.mu.Unlock()

	if err := m.presence.SetOffline(ctx, uid); err != nil {
		log.Printf("清理用户 %s 在线状态失败: %v", uid, err)
	}

	log.Printf("用户 %s 会话已结束", uid)
}

// Get 获取已建立的会话
func (m *Manager) Get(uid string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[uid]
	return sess, ok
}

// OpenMessages 以会话身份订阅某个会话的消息流。
// 订阅登记在会话内，登出时随会话一并取消。
func (m *Manager) OpenMessages(ctx context.Context, uid, channelID string) (*chat.Subscription, error) {
	sess, err := m.Start(ctx, uid)
	if err != nil {
		return nil, err
	}

	// 校验调用方是会话成员
	if _, err := m.chatSvc.GetChannel(ctx, channelID, uid); err != nil {
		return nil, err
	}

	sub := m.chatSvc.Hub().Subscribe(channelID)

	sess.mu.Lock()
	if old, ok := sess.msgSubs[channelID]; ok {
		old.Cancel()
	}
	sess.msgSubs[channelID] = sub
	sess.mu.Unlock()

	return sub, nil
}

// CloseMessages 取消某个会话的消息订阅
func (m *Manager) CloseMessages(uid, channelID string) {
	sess, ok := m.Get(uid)
	if !ok {
		return
	}
	sess.mu.Lock()
	sub, ok := sess.msgSubs[channelID]
	if ok {
		delete(sess.msgSubs, channelID)
	}
	sess.mu.Unlock()
	if ok {
		sub.Cancel()
	}
}
