package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"

	"github.com/palemoky/dice-quest/internal/config"
	"github.com/palemoky/dice-quest/internal/logger"
	"github.com/palemoky/dice-quest/internal/server"
	"github.com/palemoky/dice-quest/internal/telemetry"
)

func main() {
	// .env 不存在时忽略
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("加载 .env 失败: %v", err)
	}

	cmd := &cli.Command{
		Name:  "dice-quest",
		Usage: "多人骰子棋盘游戏服务器",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径，为空时只使用默认值与环境变量",
				Sources: cli.EnvVars("DICEQUEST_CONFIG"),
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "监听端口，覆盖配置文件与 PORT",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("服务器异常退出: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		log.Printf("加载配置文件失败，使用默认配置: %v", err)
		cfg = config.Default()
		if err := config.ApplyEnv(cfg); err != nil {
			return err
		}
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}

	if err := logger.Init(cfg.Log.File); err != nil {
		log.Printf("日志文件初始化失败，仅输出到终端: %v", err)
	}
	defer logger.Close()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry)
	if err != nil {
		return err
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Printf("关闭链路追踪失败: %v", err)
		}
	}()

	srv, err := server.NewServer(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	logger.LogInfo("🎲 Dice Quest 服务器启动中，监听 %s:%d", cfg.Server.Host, cfg.Server.Port)

	select {
	case err := <-errCh:
		srv.Shutdown(context.Background())
		return err
	case <-quit:
	}

	log.Println("正在优雅关闭服务器，再次发送信号强制关闭...")
	done := make(chan struct{})
	go func() {
		srv.GracefulShutdown(cfg.Game.ShutdownTimeoutDuration())
		close(done)
	}()

	select {
	case <-done:
	case <-quit:
		log.Println("⚠️ 强制关闭")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(sctx)
	}

	return <-errCh
}
