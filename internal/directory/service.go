package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"friendchat/internal/errs"
	"friendchat/internal/model"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Service 用户名目录服务，维护 handle → uid 的唯一映射
type Service struct {
	db *gorm.DB
}

// NewService 创建目录服务实例
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Normalize 规范化用户名：去除首尾空白并转为小写。
// 注册和查询必须使用同一规则。
func Normalize(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// Register 注册新用户。目录条目和用户资料在同一事务内创建，
// 不会出现只有其一的中间状态。
func (s *Service) Register(ctx context.Context, handle, password, email string) (string, error) {
	handle = Normalize(handle)
	if handle == "" {
		return "", errs.ErrEmptyHandle
	}

	// 哈希密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	uid := uuid.New().String()
	now := time.Now()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 检查用户名是否已被占用
		var count int64
		if err := tx.Model(&model.DirectoryEntry{}).Where("handle = ?", handle).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return errs.ErrHandleTaken
		}

		// 创建用户资料
		user := model.User{
			ID:        uid,
			Username:  handle,
			Password:  string(hashedPassword),
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		// 创建目录条目
		entry := model.DirectoryEntry{
			Handle:    handle,
			UID:       uid,
			Email:     email,
			CreatedAt: now,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return "", err
	}

	return uid, nil
}

// Resolve 根据用户名解析用户ID，登录和好友搜索共用
func (s *Service) Resolve(ctx context.Context, handle string) (string, error) {
	handle = Normalize(handle)
	if handle == "" {
		return "", errs.ErrEmptyHandle
	}

	var entry model.DirectoryEntry
	if err := s.db.WithContext(ctx).Where("handle = ?", handle).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errs.ErrHandleNotFound
		}
		return "", err
	}

	return entry.UID, nil
}
