package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"friendchat/internal/chat"
	"friendchat/internal/config"
	"friendchat/internal/database"
	"friendchat/internal/directory"
	"friendchat/internal/friend"
	"friendchat/internal/presence"
	"friendchat/internal/router"
	"friendchat/internal/session"
	"friendchat/internal/user"
)

func main() {
	// 读取配置
	if err := config.Init(); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化数据库
	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("初始化数据库失败: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("获取数据库连接失败: %v", err)
	}
	defer sqlDB.Close()

	log.Println("数据库初始化成功")

	// 初始化在线状态管理（Redis 不可用时自动退化为本地模式）
	redisConfig := config.GlobalConfig.Redis
	redisAddr := fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port)
	pres := presence.NewManager(redisAddr, redisConfig.Password, redisConfig.DB)
	defer pres.Close()

	// 组装服务
	dirSvc := directory.NewService(db)
	accountSvc := user.NewAccountService(db, dirSvc)
	friendSvc := friend.NewService(db, dirSvc)
	messageSvc := chat.NewMessageService(db)
	sessions := session.NewManager(db, friendSvc, messageSvc, pres)

	// 启动推送中心
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go friendSvc.Hub().Run(ctx)
	go messageSvc.Hub().Run(ctx)

	// 设置 Gin 路由
	r := router.SetupRouter(router.Deps{
		AccountService: accountSvc,
		FriendService:  friendSvc,
		MessageService: messageSvc,
		Sessions:       sessions,
		Presence:       pres,
	})

	// 启动 HTTP 服务器
	port := config.GlobalConfig.Server.Port
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(port),
		Handler: r,
	}

	go func() {
		log.Printf("HTTP服务器已启动，监听端口 %d", port)
		log.Printf("  - WebSocket (好友列表): ws://localhost:%d/api/ws/friends", port)
		log.Printf("  - WebSocket (会话消息): ws://localhost:%d/api/ws/channels/:id", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务器...")

	// 关闭 HTTP 服务器
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止推送中心
	cancel()

	log.Println("服务器已安全关闭")
}
