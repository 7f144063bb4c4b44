package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"sbr_farm/internal/app"
	"sbr_farm/internal/clock"
	"sbr_farm/internal/config"
	"sbr_farm/internal/db"
	httpServer "sbr_farm/internal/http"
	"sbr_farm/internal/http/handlers"
	"sbr_farm/internal/http/middleware"
	"sbr_farm/internal/logger"
	"sbr_farm/internal/repository"
	"sbr_farm/internal/scheduler"
	"sbr_farm/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-co-op/gocron/v2"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	dbPool := db.Connect(cfg.DatabaseURL, cfg.DBMaxConns)
	defer dbPool.Close()
	store := repository.NewPGStore(dbPool, cfg.StoreTimeout)

	probes := []handlers.Probe{{Name: "database", Check: store.Ping, Critical: true}}

	rdb := db.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	var locker gocron.Locker
	if rdb != nil {
		defer rdb.Close()
		probes = append(probes, handlers.Probe{
			Name:  "redis",
			Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		})
		locker = scheduler.NewRedisLocker(rdb, 10*time.Minute)
	}

	clk := clock.Real()
	svc := app.Build(store, cfg.Game, clk, cfg.WithdrawalReservation)
	tokens, err := service.NewTokens(cfg.JWTSecret, clk)
	if err != nil {
		logger.Fatal("jwt init failed", "error", err)
	}

	loop := svc.Scheduler(locker)
	if cfg.SchedulerEnabled {
		// open contests right away instead of waiting for the first rollover
		if _, err := svc.Contests.EnsureActive(context.Background()); err != nil {
			logger.Error("ensure active contests failed", "error", err)
		}
		if err := loop.Start(); err != nil {
			logger.Fatal("scheduler start failed", "error", err)
		}
		probes = append(probes, handlers.Probe{
			Name: "scheduler",
			Check: func(context.Context) error {
				if len(loop.Jobs()) == 0 {
					return errors.New("no jobs registered")
				}
				return nil
			},
		})
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	var auth *handlers.AuthHandler
	if cfg.BotToken != "" {
		auth = &handlers.AuthHandler{
			Players:  svc.Players,
			Tokens:   tokens,
			Clock:    clk,
			BotToken: cfg.BotToken,
			MaxAge:   cfg.InitDataTTL,
			TokenTTL: cfg.PlayerTokenTTL,
		}
	} else {
		logger.Warn("BOT_TOKEN not set, telegram login disabled")
	}

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Player: &handlers.Handler{
			Actions:  svc.Actions,
			Players:  svc.Players,
			Crops:    svc.Crops,
			Ledger:   svc.Ledger,
			Inv:      svc.Inv,
			VIP:      svc.VIP,
			Contests: svc.Contests,
			Payments: svc.Payments,
		},
		Admin: &handlers.AdminHandler{
			Admin:   svc.Admin,
			Players: svc.Players,
			Tokens:  tokens,
			Loop:    loop,
		},
		Auth:    auth,
		Health:  handlers.NewHealthHandler(version, probes...),
		Tokens:  tokens,
		Limiter: middleware.NewRateLimiter(rdb),
		Limits: httpServer.RateLimits{
			APILimit:     cfg.APIRateLimit,
			APIWindow:    cfg.APIRateWindow,
			ActionLimit:  cfg.ActionRateLimit,
			ActionWindow: cfg.ActionRateWindow,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "scheduler", cfg.SchedulerEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := loop.Stop(); err != nil {
		logger.Error("scheduler stop failed", "error", err)
	}

	logger.Info("server exited")
}
