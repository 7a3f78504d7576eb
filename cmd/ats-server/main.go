package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ats-match-go/internal/api/handler"
	"ats-match-go/internal/api/router"
	"ats-match-go/internal/config"
	"ats-match-go/internal/outbox"
	"ats-match-go/internal/processor"
	"ats-match-go/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/spf13/pflag"

	appCoreLogger "ats-match-go/internal/logger"

	glog "github.com/cloudwego/hertz/pkg/common/hlog"
	hertzadapter "github.com/hertz-contrib/logger/zerolog"
)

var (
	version     = "1.0.0"        //nolint:gochecknoglobals
	serviceName = "ats-match-go" //nolint:gochecknoglobals
)

func main() {
	// .env 仅用于本地开发，缺失不是错误
	_ = godotenv.Load()

	initLogger()

	var configPath string
	pflag.StringVarP(&configPath, "config", "c", "internal/config/config.yaml", "Path to config file")
	pflag.Parse()

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		glog.Fatalf("加载配置失败: %v", err)
	}
	glog.Info("配置加载成功")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		glog.Fatalf("初始化存储失败: %v", err)
	}
	defer storageManager.Close()
	glog.Info("存储服务初始化成功")

	// 事件拓扑先就位，消息中继和重评消费者都依赖它
	if err := storageManager.RabbitMQ.EnsureEventTopology(); err != nil {
		glog.Fatalf("初始化RabbitMQ事件拓扑失败: %v", err)
	}
	glog.Info("RabbitMQ事件拓扑就绪")

	relayLogger := log.New(appCoreLogger.Logger, "[MessageRelay] ", log.LstdFlags|log.Lshortfile)
	messageRelay := outbox.NewMessageRelay(storageManager.MySQL.DB(), storageManager.RabbitMQ, relayLogger)
	messageRelay.Start()
	glog.Info("消息中继服务已启动")

	applicationProcessor, err := processor.CreateProcessorFromConfig(ctx, cfg, storageManager)
	if err != nil {
		glog.Fatalf("初始化评分流水线失败: %v", err)
	}
	glog.Info("评分流水线初始化成功")

	applicationHandler := handler.NewApplicationHandler(cfg, storageManager, applicationProcessor)
	listHandler := handler.NewApplicationListHandler(cfg, storageManager)
	jobHandler := handler.NewJobHandler(cfg, storageManager, applicationProcessor.Keywords)
	glog.Info("HTTP处理器初始化成功")

	go func() {
		glog.Infof("启动重评消费者，队列: %s", cfg.RabbitMQ.RescoreQueue)
		if err := applicationProcessor.StartRescoreConsumer(context.Background(), cfg); err != nil {
			glog.Fatalf("启动重评消费者失败: %v", err)
		}
	}()

	h := server.New(
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
	)
	h.Use(func(c context.Context, ctx *app.RequestContext) {
		glog.CtxInfof(c, "Request: %s %s", string(ctx.Method()), string(ctx.Path()))
		ctx.Next(c)
		glog.CtxInfof(c, "Response: status %d", ctx.Response.StatusCode())
	})

	router.RegisterRoutes(h, applicationHandler, listHandler, jobHandler)
	glog.Info("HTTP路由注册成功")

	glog.Infof("HTTP 服务器启动中，监听地址: %s", cfg.Server.Address)

	go func() {
		if err := h.Run(); err != nil {
			glog.Fatalf("启动HTTP服务器失败: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	glog.Info("接收到终止信号，正在优雅退出...")

	messageRelay.Stop()
	glog.Info("消息中继服务已停止")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := h.Shutdown(shutdownCtx); err != nil {
		glog.Fatalf("服务器关闭失败: %v", err)
	}
	glog.Info("优雅退出完成")
}

func initLogger() {
	logFilePath := "logs/app.log"
	fileWriter, err := os.OpenFile(logFilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatalf("无法打开日志文件 %s: %v", logFilePath, err)
	}

	consoleWriter := zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: "15:04:05",
	}

	multiWriter := zerolog.MultiLevelWriter(consoleWriter, fileWriter)

	// 统一初始化zerolog全局实例，之后Hertz框架日志也走同一个实例
	appCoreLogger.InitWithWriter(appCoreLogger.Config{
		Level:        "debug",
		TimeFormat:   "15:04:05",
		ReportCaller: true,
	}, multiWriter)

	hertzCompatibleLogger := hertzadapter.From(appCoreLogger.Logger)
	glog.SetLogger(hertzCompatibleLogger)
	glog.SetLevel(glog.LevelDebug)

	log.Println("Logger initialized with Zerolog (appCoreLogger & glog via adapter), writing to console and file:", logFilePath)
}
