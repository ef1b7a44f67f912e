package directory

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // 纯Go SQLite，无需CGO
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"friendchat/internal/errs"
	"friendchat/internal/model"
)

// 测试数据库辅助函数
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("dir_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := model.SetupDatabase(db); err != nil {
		t.Fatalf("迁移表结构失败: %v", err)
	}
	return db
}

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"  Alice ": "alice",
		"BOB":      "bob",
		"carol":    "carol",
		"  ":       "",
	}
	for in, want := range cases {
		if got := Normalize(in); got != want {
			t.Fatalf("Normalize(%q)=%q, 期望 %q", in, got, want)
		}
	}
}

func TestRegister_CreatesEntryAndProfile(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	uid, err := svc.Register(ctx, "  Alice ", "secret", "alice@example.com")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}
	if uid == "" {
		t.Fatal("注册应返回用户ID")
	}

	// 目录条目使用规范化后的用户名
	var entry model.DirectoryEntry
	if err := db.Where("handle = ?", "alice").First(&entry).Error; err != nil {
		t.Fatalf("目录条目未创建: %v", err)
	}
	if entry.UID != uid {
		t.Fatalf("目录条目指向 %q, 期望 %q", entry.UID, uid)
	}

	// 用户资料同事务创建
	var account model.User
	if err := db.Where("id = ?", uid).First(&account).Error; err != nil {
		t.Fatalf("用户资料未创建: %v", err)
	}
	if account.Username != "alice" {
		t.Fatalf("用户资料用户名为 %q, 期望 alice", account.Username)
	}
	if account.Password == "secret" || account.Password == "" {
		t.Fatal("密码应以哈希形式存储")
	}
}

func TestRegister_DuplicateHandle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "pw1", "a1@example.com"); err != nil {
		t.Fatalf("首次注册失败: %v", err)
	}

	// 大小写和空白不同也视为同一用户名
	_, err := svc.Register(ctx, " ALICE ", "pw2", "a2@example.com")
	if !errors.Is(err, errs.ErrHandleTaken) {
		t.Fatalf("期望 ErrHandleTaken, 实际 %v", err)
	}

	// 两张表都应保持首次注册后的状态
	var entries, accounts int64
	db.Model(&model.DirectoryEntry{}).Count(&entries)
	db.Model(&model.User{}).Count(&accounts)
	if entries != 1 || accounts != 1 {
		t.Fatalf("重复注册不应留下新记录: usernames=%d users=%d", entries, accounts)
	}
}

func TestRegister_EmptyHandle(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)

	_, err := svc.Register(context.Background(), "   ", "pw", "")
	if !errors.Is(err, errs.ErrEmptyHandle) {
		t.Fatalf("期望 ErrEmptyHandle, 实际 %v", err)
	}
}

func TestResolve(t *testing.T) {
	db := newTestDB(t)
	svc := NewService(db)
	ctx := context.Background()

	uid, err := svc.Register(ctx, "bob", "pw", "")
	if err != nil {
		t.Fatalf("注册失败: %v", err)
	}

	// 查询使用同一规范化规则
	got, err := svc.Resolve(ctx, "  BOB ")
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if got != uid {
		t.Fatalf("解析结果 %q, 期望 %q", got, uid)
	}

	if _, err := svc.Resolve(ctx, "nobody"); !errors.Is(err, errs.ErrHandleNotFound) {
		t.Fatalf("期望 ErrHandleNotFound, 实际 %v", err)
	}
}
