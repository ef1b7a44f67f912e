package friend

import (
	"context"
	"fmt"
	"testing"
	"time"

	"friendchat/internal/directory"
	"friendchat/internal/model"
)

// 等待订阅收到下一次快照
func nextSnapshot(t *testing.T, sub *Subscription) []model.Friendship {
	t.Helper()
	select {
	case list, ok := <-sub.C:
		if !ok {
			t.Fatal("订阅通道已关闭")
		}
		return list
	case <-time.After(2 * time.Second):
		t.Fatal("等待好友列表快照超时")
		return nil
	}
}

func TestHub_PushesSnapshotOnAccept(t *testing.T) {
	svc, _, aliceUID, bobUID := setupTwoUsers(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	aliceSub := svc.Hub().Subscribe(aliceUID)
	defer aliceSub.Cancel()
	bobSub := svc.Hub().Subscribe(bobUID)
	defer bobSub.Cancel()

	// 订阅后先收到一次当前（空）快照
	if list := nextSnapshot(t, aliceSub); len(list) != 0 {
		t.Fatalf("初始快照应为空, 实际 %+v", list)
	}
	if list := nextSnapshot(t, bobSub); len(list) != 0 {
		t.Fatalf("初始快照应为空, 实际 %+v", list)
	}

	request, err := svc.SendRequest(context.Background(), aliceUID, "bob")
	if err != nil {
		t.Fatalf("发送失败: %v", err)
	}
	if err := svc.Accept(context.Background(), request.ID, bobUID); err != nil {
		t.Fatalf("接受失败: %v", err)
	}

	// 接受后双方都收到包含对方的完整快照
	aliceList := nextSnapshot(t, aliceSub)
	if len(aliceList) != 1 || aliceList[0].FriendID != bobUID {
		t.Fatalf("alice 的快照错误: %+v", aliceList)
	}
	bobList := nextSnapshot(t, bobSub)
	if len(bobList) != 1 || bobList[0].FriendID != aliceUID {
		t.Fatalf("bob 的快照错误: %+v", bobList)
	}
}

func TestHub_SlowSubscriberGetsLatestList(t *testing.T) {
	db := newTestDB(t)
	dir := directory.NewService(db)
	svc := NewService(db, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	uid, err := dir.Register(context.Background(), "me", "pw", "")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	sub := svc.Hub().Subscribe(uid)
	defer sub.Cancel()

	// 订阅者不消费，好友变化次数超出缓冲容量
	total := cap(sub.C) + 2
	for i := 0; i < total; i++ {
		handle := fmt.Sprintf("friend%02d", i)
		otherUID, err := dir.Register(context.Background(), handle, "pw", "")
		if err != nil {
			t.Fatalf("注册 %s 失败: %v", handle, err)
		}
		request, err := svc.SendRequest(context.Background(), uid, handle)
		if err != nil {
			t.Fatalf("发送给 %s 失败: %v", handle, err)
		}
		if err := svc.Accept(context.Background(), request.ID, otherUID); err != nil {
			t.Fatalf("%s 接受失败: %v", handle, err)
		}
	}

	// 缓冲区满时丢弃最旧的快照，排空后最后一份是完整的最新列表
	var latest []model.Friendship
	deadline := time.Now().Add(2 * time.Second)
	for len(latest) != total {
		if time.Now().After(deadline) {
			t.Fatalf("最新列表未送达, 最后一份 %d 条, 期望 %d", len(latest), total)
		}
		select {
		case list, ok := <-sub.C:
			if !ok {
				t.Fatal("订阅通道不应关闭")
			}
			latest = list
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func TestHub_CancelStopsDelivery(t *testing.T) {
	db := newTestDB(t)
	dir := directory.NewService(db)
	svc := NewService(db, dir)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Hub().Run(ctx)

	uid, err := dir.Register(context.Background(), "solo", "pw", "")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	sub := svc.Hub().Subscribe(uid)
	nextSnapshot(t, sub)

	sub.Cancel()

	// 取消后通道被关闭，后续通知不再送达
	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatal("取消后不应再收到快照")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("取消后通道应被关闭")
	}

	svc.Hub().Notify(uid)
	time.Sleep(50 * time.Millisecond)
	select {
	case list, ok := <-sub.C:
		if ok && list != nil {
			t.Fatalf("已取消的订阅收到推送: %+v", list)
		}
	default:
	}
}
