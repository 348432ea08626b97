// Package app builds every dependency of the service and exposes the
// HTTP router
package app

import (
	"bitwise74/career-api/db"
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/repository"
	"bitwise74/career-api/internal/service"
	"bitwise74/career-api/internal/store"
	"bitwise74/career-api/pkg/middleware"
	"bitwise74/career-api/pkg/security"
	"context"
	"fmt"
	"time"

	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-gonic/gin"
	redisv8 "github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// mailQueueCapacity bounds the in-process mail backlog
const mailQueueCapacity = 256

type App struct {
	Router *gin.Engine
	Deps   *internal.Deps

	rdb        *redis.Client
	cacheRdb   *redisv8.Client
	asynq      *asynq.Server
	dispatcher *service.AsynqDispatcher
	mailQueue  *service.MailQueue
	cron       *cron.Cron
	cancel     context.CancelFunc
}

// New opens the database, picks redis backed or in-process implementations
// depending on redis.addr and starts the background workers
func New(ctx context.Context) (*App, error) {
	ctx, cancel := context.WithCancel(ctx)
	a := &App{cancel: cancel}

	conn, err := db.New()
	if err != nil {
		cancel()
		return nil, err
	}

	d := &internal.Deps{
		DB:       conn,
		Users:    &repository.UserRepository{DB: conn},
		Sessions: &repository.SessionRepository{DB: conn},
		Quiz:     &repository.QuizRepository{DB: conn},
		Chats:    &repository.ChatRepository{DB: conn},
		Reviews:  &repository.ReviewRepository{DB: conn},
		Resends:  &repository.ResendRepository{DB: conn, Policy: repository.DefaultResendPolicy},
		Frontend: viper.GetString("host.frontend_url"),
	}
	a.Deps = d

	mailer := service.NewSMTPMailer()
	workers := viper.GetInt("mail.workers")

	var (
		dispatcher service.MailDispatcher
		cacheStore persist.CacheStore
	)

	if addr := viper.GetString("redis.addr"); addr != "" {
		a.rdb = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := a.rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}

		d.Store = store.NewRedisStore(a.rdb)

		a.dispatcher = service.NewAsynqDispatcher(a.rdb)
		dispatcher = a.dispatcher

		srv, mux := service.NewMailServer(a.rdb, mailer, workers)
		if err := srv.Start(mux); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to start mail server, %w", err)
		}
		a.asynq = srv

		// gin-cache ships its redis store on the v8 client
		a.cacheRdb = redisv8.NewClient(&redisv8.Options{
			Addr:     addr,
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})
		cacheStore = persist.NewRedisStore(a.cacheRdb)

		zap.L().Info("Using redis for one-time codes, mail tasks and response cache", zap.String("addr", addr))
	} else {
		d.Store = store.NewMemoryStore()

		a.mailQueue = service.NewMailQueue(mailer, workers, mailQueueCapacity)
		a.mailQueue.StartWorkerPool()
		dispatcher = a.mailQueue

		cacheStore = persist.NewMemoryStore(time.Minute)
	}

	hasher := security.New()

	d.Auth = &service.AuthService{
		Users:    d.Users,
		Sessions: d.Sessions,
		Resends:  d.Resends,
		Store:    d.Store,
		Hasher:   hasher,
		Mail:     dispatcher,
	}

	d.OAuth = &service.OAuthService{
		Providers:   service.NewProviders(),
		Users:       d.Users,
		Sessions:    d.Sessions,
		Store:       d.Store,
		Hasher:      hasher,
		LinkByEmail: viper.GetBool("oauth.link_by_email"),
		Timeout:     viper.GetDuration("oauth.timeout"),
	}

	d.Bot = &service.ChatBot{
		Chats:   d.Chats,
		Timeout: viper.GetDuration("chat.timeout"),
	}

	if key := viper.GetString("gemini.api_key"); key != "" {
		gen, err := service.NewGeminiGenerator(ctx, key, viper.GetString("gemini.model"))
		if err != nil {
			// Canned replies still work
			zap.L().Error("Failed to create gemini client", zap.Error(err))
		} else {
			d.Bot.Generator = gen
		}
	}

	a.cron, err = service.ResendCleanup("@hourly", d.Resends)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to schedule resend cleanup, %w", err)
	}

	rateLimit := viper.GetInt("security.rate_limit")
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             rateLimit * 2,
	})
	go limiter.Cleanup(ctx)

	a.Router, err = NewRouter(d, RouterConfig{
		CORS:           viper.GetStringSlice("host.cors"),
		TrustedProxies: viper.GetStringSlice("host.trusted_proxies"),
		Limiter:        limiter,
		Cache:          cacheStore,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

// Close stops the background workers, letting queued mail finish, and
// releases every connection. Safe to call on a partially built App.
func (a *App) Close() {
	a.cancel()

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	if a.mailQueue != nil {
		a.mailQueue.Stop()
	}

	if a.asynq != nil {
		a.asynq.Shutdown()
	}

	if a.dispatcher != nil {
		if err := a.dispatcher.Close(); err != nil {
			zap.L().Warn("Failed to close mail task client", zap.Error(err))
		}
	}

	if a.cacheRdb != nil {
		a.cacheRdb.Close()
	}

	// RedisStore owns rdb, the memory store owns its janitor
	if a.Deps != nil && a.Deps.Store != nil {
		if err := a.Deps.Store.Close(); err != nil {
			zap.L().Warn("Failed to close one-time store", zap.Error(err))
		}
	} else if a.rdb != nil {
		a.rdb.Close()
	}

	if a.Deps != nil && a.Deps.DB != nil {
		if sqlDB, err := a.Deps.DB.DB(); err == nil {
			sqlDB.Close()
		}
	}
}
