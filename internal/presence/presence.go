package presence

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis 键
const (
	keyOnlineUsers = "online_users"
	keyLastActive  = "user:%s:last_active"

	// 心跳过期时间
	heartbeatTTL = 10 * time.Minute
)

// Manager 在线状态管理。Redis 可用时以 Redis 为准并跨实例共享，
// 不可用时退化为进程内缓存，不影响其余功能。
type Manager struct {
	client  *redis.Client
	enabled bool

	mutex sync.RWMutex
	local map[string]time.Time // 本地最后活跃时间缓存
}

// NewManager 创建状态管理器并尝试连接 Redis
func NewManager(addr, password string, db int) *Manager {
	m := &Manager{
		local: make(map[string]time.Time),
	}

	m.client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := m.client.Ping(ctx).Result(); err != nil {
		log.Printf("Redis连接失败: %v", err)
		log.Println("系统将在无Redis的情况下继续运行，在线状态仅保存在本地")
		m.enabled = false
		return m
	}

	log.Println("Redis连接成功")
	m.enabled = true
	return m
}

// Enabled 返回 Redis 是否可用
func (m *Manager) Enabled() bool {
	return m.enabled
}

// Heartbeat 记录用户心跳，刷新在线状态
func (m *Manager) Heartbeat(ctx context.Context, uid string) error {
	now := time.Now()

	m.mutex.Lock()
	m.local[uid] = now
	m.mutex.Unlock()

	if !m.enabled {
		return nil
	}

	// 使用管道批量操作
	pipe := m.client.Pipeline()
	pipe.Set(ctx, fmt.Sprintf(keyLastActive, uid), now.Unix(), heartbeatTTL)
	pipe.SAdd(ctx, keyOnlineUsers, uid)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("更新用户 %s 在线状态失败: %v", uid, err)
		return err
	}
	return nil
}

// SetOffline 用户下线时清理在线状态
func (m *Manager) SetOffline(ctx context.Context, uid string) error {
	m.mutex.Lock()
	delete(m.local, uid)
	m.mutex.Unlock()

	if !m.enabled {
		return nil
	}

	pipe := m.client.Pipeline()
	pipe.SRem(ctx, keyOnlineUsers, uid)
	pipe.Del(ctx, fmt.Sprintf(keyLastActive, uid))
	_, err := pipe.Exec(ctx)
	return err
}

// IsOnline 查询用户是否在线
func (m *Manager) IsOnline(ctx context.Context, uid string) bool {
	if m.enabled {
		ok, err := m.client.SIsMember(ctx, keyOnlineUsers, uid).Result()
		if err == nil {
			return ok
		}
		log.Printf("查询用户 %s 在线状态失败: %v", uid, err)
	}

	m.mutex.RLock()
	last, ok := m.local[uid]
	m.mutex.RUnlock()
	return ok && time.Since(last) < heartbeatTTL
}

// Close 关闭 Redis 连接
func (m *Manager) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
