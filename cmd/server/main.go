package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"chatterbox/internal/config"
	"chatterbox/internal/db"
	clog "chatterbox/internal/log"
	"chatterbox/internal/mw"
	"chatterbox/internal/server"
	"chatterbox/internal/service"
	"chatterbox/internal/session"
	"chatterbox/internal/ws"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// main 函数负责加载配置、初始化日志、打开历史库、启动 hub 与 Gin 服务。
	cfg := config.Load()
	clog.Init(cfg.Env, cfg.LogLevel)
	if err := config.Validate(cfg); err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	if cfg.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	gdb, err := db.Connect(cfg.HistoryDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatal().Err(err).Msg("db migrate")
	}

	msgSvc := service.NewMessageService(gdb)
	router := session.NewRouter(session.NewDirectory(cfg.PasswordCost), session.WithHistory(msgSvc))
	hub := ws.NewHub(router)
	hubCtx, stopHub := context.WithCancel(context.Background())
	go hub.Run(hubCtx)

	limits := server.Limits{
		API:       mw.NewBuckets(rate.Every(time.Second/20), 40, 2*time.Minute),
		Handshake: mw.NewBuckets(rate.Every(time.Second), 10, 5*time.Minute),
	}
	engine := server.SetupRouter(cfg, hub, service.NewRoomService(hub, msgSvc), limits)
	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Str("version", cfg.Version).Msg("chat server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server run")
		}
	}()

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		shutdownTimeout,
		map[string]gfshutdown.Operation{
			"http": func(ctx context.Context) error {
				defer limits.API.Close()
				defer limits.Handshake.Close()
				return srv.Shutdown(ctx)
			},
			// hijack 之后的 websocket 连接不受 srv.Shutdown 管理，由 hub 关闭。
			"hub": func(ctx context.Context) error {
				stopHub()
				hub.Wait()
				return db.Close(gdb)
			},
		},
	)

	exitCode := <-wait
	log.Info().Int("exit_code", exitCode).Msg("server exited")
	os.Exit(exitCode)
}
