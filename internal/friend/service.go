package friend

import (
	"context"
	"errors"
	"log"
	"time"

	"friendchat/internal/channel"
	"friendchat/internal/directory"
	"friendchat/internal/errs"
	"friendchat/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service 好友请求状态机和好友关系存储
type Service struct {
	db  *gorm.DB
	dir *directory.Service
	hub *Hub
}

// NewService 创建好友服务实例
func NewService(db *gorm.DB, dir *directory.Service) *Service {
	s := &Service{db: db, dir: dir}
	s.hub = newHub(s.ListFriends)
	return s
}

// Hub 返回好友列表推送中心
func (s *Service) Hub() *Hub {
	return s.hub
}

// SendRequest 发送好友请求。请求ID由有序对确定，
// 已拒绝的请求可以重新发送（覆盖回 pending）。
func (s *Service) SendRequest(ctx context.Context, fromUID, toHandle string) (*model.FriendRequest, error) {
	// 获取发送方资料
	var sender model.User
	if err := s.db.WithContext(ctx).Where("id = ?", fromUID).First(&sender).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrHandleNotFound
		}
		return nil, err
	}

	// 不能添加自己
	toHandle = directory.Normalize(toHandle)
	if toHandle == sender.Username {
		return nil, errs.ErrSelfRequest
	}

	// 解析接收方
	toUID, err := s.dir.Resolve(ctx, toHandle)
	if err != nil {
		return nil, err
	}

	// 检查是否已经是好友
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Friendship{}).
		Where("user_id = ? AND friend_id = ?", fromUID, toUID).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errs.ErrAlreadyFriends
	}

	requestID := channel.RequestID(fromUID, toUID)
	now := time.Now()
	request := &model.FriendRequest{
		ID:           requestID,
		FromUID:      fromUID,
		FromUsername: sender.Username,
		ToUID:        toUID,
		ToUsername:   toHandle,
		Status:       model.RequestStatusPending,
		CreatedAt:    now,
	}

	// 写入前在事务内再次检查，收窄并发发送的竞争窗口。
	// 两个并发发送方落在同一确定性ID上，后写者在这里被拒绝。
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.FriendRequest
		err := tx.Where("id = ?", requestID).First(&existing).Error
		switch {
		case err == nil:
			if existing.Status == model.RequestStatusPending {
				return errs.ErrRequestPending
			}
			// 已拒绝的请求覆盖回 pending，重用同一条记录
			return tx.Model(&model.FriendRequest{}).Where("id = ?", requestID).
				Updates(map[string]interface{}{
					"status":       model.RequestStatusPending,
					"created_at":   now,
					"responded_at": nil,
				}).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(request).Error
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	log.Printf("用户 %s 向 %s 发送好友请求: %s", sender.Username, toHandle, requestID)
	return request, nil
}

// Accept 接受好友请求。四个效果在同一事务内完成：
// 更新请求状态、写入双向好友关系（两条镜像记录）、创建或合并会话。
// 任一步失败整体回滚，不会出现请求已接受但好友关系缺失的状态。
func (s *Service) Accept(ctx context.Context, requestID, callerUID string) error {
	var request model.FriendRequest

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", requestID).First(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrRequestNotFound
			}
			return err
		}

		// 只有接收方可以接受
		if request.ToUID != callerUID {
			return errs.ErrNotRecipient
		}

		switch request.Status {
		case model.RequestStatusAccepted:
			// 重试幂等，不重复写好友关系
			return nil
		case model.RequestStatusRejected:
			return errs.ErrRequestClosed
		}

		now := time.Now()

		// 1. 更新请求状态
		if err := tx.Model(&model.FriendRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":       model.RequestStatusAccepted,
				"responded_at": now,
			}).Error; err != nil {
			return err
		}

		// 2. 写入双向好友关系
		mirrors := []model.Friendship{
			{UserID: request.FromUID, FriendID: request.ToUID, FriendUsername: request.ToUsername, AddedAt: now},
			{UserID: request.ToUID, FriendID: request.FromUID, FriendUsername: request.FromUsername, AddedAt: now},
		}
		for _, f := range mirrors {
			if err := tx.Create(&f).Error; err != nil {
				return err
			}
		}

		// 3. 创建或合并会话
		memberA, memberB := request.FromUID, request.ToUID
		if memberA > memberB {
			memberA, memberB = memberB, memberA
		}
		ch := model.Channel{
			ID:        channel.ID(request.FromUID, request.ToUID),
			MemberA:   memberA,
			MemberB:   memberB,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{"updated_at": now}),
		}).Create(&ch).Error
	})
	if err != nil {
		return err
	}

	log.Printf("好友请求 %s 已接受", requestID)

	// 通知双方的好友列表订阅者
	s.hub.Notify(request.FromUID)
	s.hub.Notify(request.ToUID)
	return nil
}

// Reject 拒绝好友请求。只更新请求本身，不影响好友关系和会话。
// 对已拒绝的请求重复调用不会改变生命周期状态。
func (s *Service) Reject(ctx context.Context, requestID, callerUID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request model.FriendRequest
		if err := tx.Where("id = ?", requestID).First(&request).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrRequestNotFound
			}
			return err
		}

		// 只有接收方可以拒绝
		if request.ToUID != callerUID {
			return errs.ErrNotRecipient
		}

		if request.Status == model.RequestStatusAccepted {
			return errs.ErrRequestClosed
		}

		return tx.Model(&model.FriendRequest{}).Where("id = ?", requestID).
			Updates(map[string]interface{}{
				"status":       model.RequestStatusRejected,
				"responded_at": time.Now(),
			}).Error
	})
}

// ListFriends 获取好友列表，按用户名升序
func (s *Service) ListFriends(ctx context.Context, uid string) ([]model.Friendship, error) {
	var friends []model.Friendship
	err := s.db.WithContext(ctx).
		Where("user_id = ?", uid).
		Order("friend_username asc").
		Find(&friends).Error
	return friends, err
}

// ListIncomingRequests 获取待处理的入站好友请求
func (s *Service) ListIncomingRequests(ctx context.Context, uid string) ([]model.FriendRequest, error) {
	var requests []model.FriendRequest
	err := s.db.WithContext(ctx).
		Where("to_uid = ? AND status = ?", uid, model.RequestStatusPending).
		Order("created_at desc").
		Find(&requests).Error
	return requests, err
}

// GetRequest 获取单条好友请求
func (s *Service) GetRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	var request model.FriendRequest
	if err := s.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrRequestNotFound
		}
		return nil, err
	}
	return &request, nil
}
