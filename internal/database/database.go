package database

import (
	"fmt"
	"log"
	"time"

	"friendchat/internal/config"
	"friendchat/internal/model"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// InitDB 初始化数据库连接
func InitDB() (*gorm.DB, error) {
	// 设置日志
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	// 按配置选择驱动
	var dialector gorm.Dialector
	switch config.GlobalConfig.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(config.GlobalConfig.Database.DSN)
	case "mysql":
		dialector = mysql.Open(config.GlobalConfig.Database.DSN)
	default:
		return nil, fmt.Errorf("不支持的数据库驱动: %s", config.GlobalConfig.Database.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 设置最大空闲连接数
	sqlDB.SetMaxIdleConns(10)
	// 设置最大打开连接数
	sqlDB.SetMaxOpenConns(100)
	// 设置连接最大生存时间
	sqlDB.SetConnMaxLifetime(time.Hour)

	// 自动迁移数据库结构
	if err := model.SetupDatabase(db); err != nil {
		return nil, err
	}

	return db, nil
}
