package user

import (
	"context"
	"errors"
	"log"

	"friendchat/internal/directory"
	"friendchat/internal/errs"
	"friendchat/internal/middleware"
	"friendchat/internal/model"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AccountService 账户服务，注册走目录服务保证原子性
type AccountService struct {
	db  *gorm.DB
	dir *directory.Service
}

// NewAccountService 创建账户服务实例
func NewAccountService(db *gorm.DB, dir *directory.Service) *AccountService {
	return &AccountService{db: db, dir: dir}
}

// Register 注册新用户
func (s *AccountService) Register(ctx context.Context, req *RegisterRequest) (string, error) {
	return s.dir.Register(ctx, req.Username, req.Password, req.Email)
}

// Login 用户登录
func (s *AccountService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	// 通过目录解析用户名
	uid, err := s.dir.Resolve(ctx, req.Username)
	if err != nil {
		return nil, err
	}

	var account model.User
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrHandleNotFound
		}
		return nil, err
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(account.Password), []byte(req.Password)); err != nil {
		log.Printf("用户 %s 密码验证失败", account.Username)
		return nil, errors.New("密码错误")
	}

	token, err := middleware.GenerateToken(account.ID)
	if err != nil {
		log.Printf("生成令牌失败: %v", err)
		return nil, err
	}

	log.Printf("用户 %s (ID: %s) 登录成功", account.Username, account.ID)
	return &LoginResponse{
		UserID: account.ID,
		Token:  token,
	}, nil
}

// GetUserByID 通过ID获取用户
func (s *AccountService) GetUserByID(ctx context.Context, uid string) (*UserResponse, error) {
	var account model.User
	if err := s.db.WithContext(ctx).Where("id = ?", uid).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrHandleNotFound
		}
		return nil, err
	}

	return &UserResponse{
		ID:        account.ID,
		Username:  account.Username,
		Email:     account.Email,
		CreatedAt: account.CreatedAt,
	}, nil
}

// SearchByHandle 按用户名精确查找用户（好友搜索入口）
func (s *AccountService) SearchByHandle(ctx context.Context, handle string) (*UserResponse, error) {
	uid, err := s.dir.Resolve(ctx, handle)
	if err != nil {
		return nil, err
	}

	resp, err := s.GetUserByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	// 搜索结果不暴露邮箱
	resp.Email = ""
	return resp, nil
}
