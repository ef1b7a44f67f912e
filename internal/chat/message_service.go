package chat

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"friendchat/internal/errs"
	"friendchat/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MessageView 推送给订阅者的消息视图。服务端时间尚未落定的
// 消息以 pending 标记代替时间值，下一次权威快照到达后被整体替换。
type MessageView struct {
	ID             string    `json:"id"`
	ChannelID      string    `json:"channel_id"`
	AuthorUID      string    `json:"author_uid"`
	AuthorUsername string    `json:"author_username"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	Pending        bool      `json:"pending,omitempty"`
}

// MessageService 处理消息的写入、快照查询和实时推送
type MessageService struct {
	db  *gorm.DB
	hub *Hub
}

// NewMessageService 创建消息服务实例
func NewMessageService(db *gorm.DB) *MessageService {
	s := &MessageService{db: db}
	s.hub = newHub(s.Snapshot)
	return s
}

// Hub 返回消息快照推送中心
func (s *MessageService) Hub() *Hub {
	return s.hub
}

// Post 向会话追加一条消息。时间戳由服务端在写入时分配，
// 不使用客户端时钟，保证双方收敛到同一顺序。
func (s *MessageService) Post(ctx context.Context, channelID, authorUID, authorUsername, text string) (*model.Message, error) {
	// 拒绝空白消息
	if strings.TrimSpace(text) == "" {
		return nil, errs.ErrEmptyMessage
	}

	// 会话必须已存在（由接受好友请求的事务创建）
	var ch model.Channel
	if err := s.db.WithContext(ctx).Where("id = ?", channelID).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrChannelNotFound
		}
		return nil, err
	}

	now := time.Now()
	message := &model.Message{
		ID:             uuid.New().String(),
		ChannelID:      channelID,
		AuthorUID:      authorUID,
		AuthorUsername: authorUsername,
		Content:        text,
		CreatedAt:      now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 在事务内分配插入序号，作为同一时间戳的排序依据
		var maxSeq int64
		if err := tx.Model(&model.Message{}).Where("channel_id = ?", channelID).
			Select("COALESCE(MAX(seq), 0)").Scan(&maxSeq).Error; err != nil {
			return err
		}
		message.Seq = maxSeq + 1

		if err := tx.Create(message).Error; err != nil {
			return err
		}
		return tx.Model(&model.Channel{}).Where("id = ?", channelID).
			Update("updated_at", now).Error
	})
	if err != nil {
		log.Printf("保存消息到会话 %s 失败: %v", channelID, err)
		return nil, err
	}

	// 通知该会话的所有订阅者
	s.hub.Notify(channelID)
	return message, nil
}

// PostByUID 以用户ID为发送方发送消息，用户名从资料表解析
func (s *MessageService) PostByUID(ctx context.Context, channelID, authorUID, text string) (*model.Message, error) {
	var author model.User
	if err := s.db.WithContext(ctx).Where("id = ?", authorUID).First(&author).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrHandleNotFound
		}
		return nil, err
	}
	return s.Post(ctx, channelID, authorUID, author.Username, text)
}

// Snapshot 获取会话的完整消息序列，按服务端时间升序，
// 同一时间戳按插入序排列。主键作为最后一级排序键：
// 并发写入在隔离级别下可能分到相同的 seq，
// 加上唯一主键后全序仍然成立，双方快照不会分叉。
func (s *MessageService) Snapshot(ctx context.Context, channelID string) ([]MessageView, error) {
	var messages []model.Message
	err := s.db.WithContext(ctx).
		Where("channel_id = ?", channelID).
		Order("created_at asc").
		Order("seq asc").
		Order("id asc").
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	views := make([]MessageView, 0, len(messages))
	for _, m := range messages {
		views = append(views, MessageView{
			ID:             m.ID,
			ChannelID:      m.ChannelID,
			AuthorUID:      m.AuthorUID,
			AuthorUsername: m.AuthorUsername,
			Content:        m.Content,
			CreatedAt:      m.CreatedAt,
			Pending:        m.CreatedAt.IsZero(),
		})
	}
	return views, nil
}

// GetChannel 获取会话，校验调用方是否为成员
func (s *MessageService) GetChannel(ctx context.Context, channelID, uid string) (*model.Channel, error) {
	var ch model.Channel
	if err := s.db.WithContext(ctx).Where("id = ?", channelID).First(&ch).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrChannelNotFound
		}
		return nil, err
	}
	if ch.MemberA != uid && ch.MemberB != uid {
		return nil, errs.ErrNotMember
	}
	return &ch, nil
}
