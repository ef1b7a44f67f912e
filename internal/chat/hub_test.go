package chat

import (
	"context"
	"fmt"
	"testing"
	"time"
)

// 等待订阅收到下一次快照
func nextSnapshot(t *testing.T, sub *Subscription) []MessageView {
	t.Helper()
	select {
	case snapshot, ok := <-sub.C:
		if !ok {
			t.Fatal("订阅通道已关闭")
		}
		return snapshot
	case <-time.After(2 * time.Second):
		t.Fatal("等待消息快照超时")
		return nil
	}
}

func TestHub_BothSubscribersConvergeToSameOrder(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	channelID := seedChannel(t, db, "ua", "ub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	// 双方各自订阅同一个会话
	aliceSub := svc.Hub().Subscribe(channelID)
	defer aliceSub.Cancel()
	bobSub := svc.Hub().Subscribe(channelID)
	defer bobSub.Cancel()

	// 订阅后先收到当前（空）快照
	nextSnapshot(t, aliceSub)
	nextSnapshot(t, bobSub)

	// 双方交替发送
	if _, err := svc.Post(context.Background(), channelID, "ua", "alice", "hello bob"); err != nil {
		t.Fatalf("alice 发送失败: %v", err)
	}
	aliceView := nextSnapshot(t, aliceSub)
	bobView := nextSnapshot(t, bobSub)
	if len(aliceView) != 1 || len(bobView) != 1 {
		t.Fatalf("双方都应收到一条消息: alice=%d bob=%d", len(aliceView), len(bobView))
	}

	if _, err := svc.Post(context.Background(), channelID, "ub", "bob", "hi alice"); err != nil {
		t.Fatalf("bob 发送失败: %v", err)
	}
	aliceView = nextSnapshot(t, aliceSub)
	bobView = nextSnapshot(t, bobSub)

	// 双方的订阅收敛到完全一致的顺序
	if len(aliceView) != 2 || len(bobView) != 2 {
		t.Fatalf("快照长度错误: alice=%d bob=%d", len(aliceView), len(bobView))
	}
	for i := range aliceView {
		if aliceView[i].ID != bobView[i].ID {
			t.Fatalf("第 %d 项顺序不一致: alice=%q bob=%q", i, aliceView[i].ID, bobView[i].ID)
		}
	}
	if aliceView[0].Content != "hello bob" || aliceView[1].Content != "hi alice" {
		t.Fatalf("消息顺序应为服务端时间序: %+v", aliceView)
	}
}

func TestHub_CancelDiscardsInflightPushes(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	channelID := seedChannel(t, db, "ua", "ub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	sub := svc.Hub().Subscribe(channelID)
	nextSnapshot(t, sub)

	sub.Cancel()

	// 取消后写入消息，订阅不再收到推送
	if _, err := svc.Post(context.Background(), channelID, "ua", "alice", "after cancel"); err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	time.Sleep(50 * time.Millisecond)

	select {
	case snapshot, ok := <-sub.C:
		if ok && snapshot != nil {
			t.Fatalf("已取消的订阅收到推送: %+v", snapshot)
		}
	default:
	}
}

func TestHub_SlowSubscriberGetsLatestSnapshot(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	channelID := seedChannel(t, db, "ua", "ub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	sub := svc.Hub().Subscribe(channelID)
	defer sub.Cancel()

	// 订阅者不消费，推送数量超出缓冲容量
	total := cap(sub.C) + 4
	for i := 0; i < total; i++ {
		if _, err := svc.Post(context.Background(), channelID, "ua", "alice", fmt.Sprintf("msg-%d", i)); err != nil {
			t.Fatalf("发送失败: %v", err)
		}
	}

	// 缓冲区满时丢弃最旧的快照，慢消费者排空后
	// 最后一份必须是包含全部消息的最新快照
	var latest []MessageView
	deadline := time.Now().Add(2 * time.Second)
	for len(latest) != total {
		if time.Now().After(deadline) {
			t.Fatalf("最新快照未送达, 最后一份 %d 条, 期望 %d", len(latest), total)
		}
		select {
		case snapshot, ok := <-sub.C:
			if !ok {
				t.Fatal("订阅通道不应关闭")
			}
			latest = snapshot
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestHub_SnapshotIsFullReplace(t *testing.T) {
	db := newTestDB(t)
	svc := NewMessageService(db)
	channelID := seedChannel(t, db, "ua", "ub")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	sub := svc.Hub().Subscribe(channelID)
	defer sub.Cancel()
	nextSnapshot(t, sub)

	// 每次推送都是全量快照而非增量
	for i, text := range []string{"one", "two", "three"} {
		if _, err := svc.Post(context.Background(), channelID, "ua", "alice", text); err != nil {
			t.Fatalf("发送失败: %v", err)
		}
		snapshot := nextSnapshot(t, sub)
		if len(snapshot) != i+1 {
			t.Fatalf("第 %d 次推送应包含 %d 条消息, 实际 %d", i+1, i+1, len(snapshot))
		}
	}
}
