package presence

import (
	"context"
	"testing"
)

// 端口 1 连接被立即拒绝，管理器应退化为本地模式而不报错
func newLocalManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager("127.0.0.1:1", "", 0)
	t.Cleanup(func() { m.Close() })
	if m.Enabled() {
		t.Skip("本地有 Redis 实例监听在端口 1，跳过本地模式测试")
	}
	return m
}

func TestHeartbeat_LocalFallback(t *testing.T) {
	m := newLocalManager(t)
	ctx := context.Background()

	if err := m.Heartbeat(ctx, "uid-1"); err != nil {
		t.Fatalf("本地模式心跳不应报错: %v", err)
	}
	if !m.IsOnline(ctx, "uid-1") {
		t.Fatal("心跳后用户应在线")
	}
	if m.IsOnline(ctx, "uid-2") {
		t.Fatal("未发送过心跳的用户不应在线")
	}
}

func TestSetOffline_LocalFallback(t *testing.T) {
	m := newLocalManager(t)
	ctx := context.Background()

	if err := m.Heartbeat(ctx, "uid-1"); err != nil {
		t.Fatalf("心跳失败: %v", err)
	}
	if err := m.SetOffline(ctx, "uid-1"); err != nil {
		t.Fatalf("下线不应报错: %v", err)
	}
	if m.IsOnline(ctx, "uid-1") {
		t.Fatal("下线后用户不应在线")
	}
}
