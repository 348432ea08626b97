package app

import (
	"bitwise74/career-api/app/chat"
	"bitwise74/career-api/app/oauth"
	"bitwise74/career-api/app/quiz"
	"bitwise74/career-api/app/review"
	"bitwise74/career-api/app/root"
	"bitwise74/career-api/app/user"
	"bitwise74/career-api/internal"
	"bitwise74/career-api/internal/metrics"
	"bitwise74/career-api/pkg/middleware"
	"fmt"
	"time"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type RouterConfig struct {
	CORS []string
	// TrustedProxies may set X-Forwarded-For. Empty means the connecting
	// address is always the client address.
	TrustedProxies []string
	Limiter     *middleware.RateLimiter
	Cache       persist.CacheStore
	MaxBodySize int64
}

// handle adapts a handler that needs the shared dependencies to gin
func handle(d *internal.Deps, fn func(*gin.Context, *internal.Deps)) gin.HandlerFunc {
	return func(c *gin.Context) { fn(c, d) }
}

func NewRouter(d *internal.Deps, cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Cache == nil {
		cfg.Cache = persist.NewMemoryStore(time.Minute)
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = 1 << 20
	}

	router := gin.New()

	// Sessions are bound to the client address, so only listed proxies
	// get to report it
	var proxies []string
	if len(cfg.TrustedProxies) > 0 {
		proxies = cfg.TrustedProxies
	}

	if err := router.SetTrustedProxies(proxies); err != nil {
		return nil, fmt.Errorf("invalid trusted proxies, %w", err)
	}

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     cfg.CORS,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader, "Retry-After"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == "HEAD"
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetUint("userID"); v != 0 {
					fields = append(fields, zap.Uint("userID", v))
				}

				return fields
			},
		}),
		metrics.Middleware(),
	)

	if cfg.Limiter != nil {
		router.Use(cfg.Limiter.Middleware())
	}

	router.Use(middleware.BodySizeLimiter(cfg.MaxBodySize))

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true

	gate := middleware.NewSessionGate(d.Sessions)
	turnstile := middleware.NewTurnstileMiddleware()

	// GET /metrics			-> Prometheus scrape endpoint
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	main := router.Group("/api")
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		main.HEAD("/heartbeat", handle(d, root.Heartbeat))
		main.GET("/heartbeat", handle(d, root.Heartbeat))
	}

	users := main.Group("/users")
	{
		// POST /api/users 		-> Registers a new user
		users.POST("", turnstile, handle(d, user.UserRegister))

		// POST /api/users/login 	-> Logs in a user and binds the session to their address
		users.POST("/login", turnstile, handle(d, user.UserLogin))

		// POST /api/users/verify	-> Checks a mailed verification code
		users.POST("/verify", handle(d, user.UserVerify))

		// POST /api/users/resend	-> Mails a new verification code
		users.POST("/resend", turnstile, handle(d, user.UserResend))

		// GET /api/users/me		-> Returns the profile of the caller
		users.GET("/me", gate, handle(d, user.UserFetch))

		// POST /api/users/logout	-> Closes the caller's session
		users.POST("/logout", gate, handle(d, user.UserLogout))
	}

	auth := router.Group("/auth")
	{
		// GET /auth/:provider		-> Redirects to the provider's consent page
		auth.GET("/:provider", handle(d, oauth.OAuthStart))

		// GET /auth/:provider/callback	-> Finishes the login started above
		auth.GET("/:provider/callback", handle(d, oauth.OAuthCallback))
	}

	q := router.Group("", gate)
	{
		// POST /save_progress		-> Stores the caller's unfinished quiz
		q.POST("/save_progress", handle(d, quiz.SaveProgress))

		// GET /get_progress		-> Returns the unfinished quiz or {}
		q.GET("/get_progress", handle(d, quiz.GetProgress))

		// POST /process_results	-> Stores a finished quiz and clears progress
		q.POST("/process_results", handle(d, quiz.ProcessResults))

		// GET /results/latest		-> Returns the newest quiz result
		q.GET("/results/latest", handle(d, quiz.LatestResult))

		// GET /results/history		-> Returns every quiz result, newest first
		q.GET("/results/history", handle(d, quiz.ResultHistory))
	}

	ch := router.Group("/chat", gate)
	{
		// GET /chat/chats		-> Lists the caller's threads
		ch.GET("/chats", handle(d, chat.ListChats))

		// POST /chat/create		-> Creates a thread and makes it active
		ch.POST("/create", handle(d, chat.CreateChat))

		// POST /chat/:chat_id/set_active	-> Switches the active thread
		ch.POST("/:chat_id/set_active", handle(d, chat.SetActiveChat))

		// DELETE /chat/:chat_id	-> Deletes a thread with its messages
		ch.DELETE("/:chat_id", handle(d, chat.DeleteChat))

		// GET /chat/messages		-> Messages of the active thread
		ch.GET("/messages", handle(d, chat.GetMessages))

		// POST /chat/send		-> Sends a message and returns the assistant's reply
		ch.POST("/send", handle(d, chat.SendMessage))
	}

	reviews := main.Group("/reviews")
	{
		// GET /api/reviews/stats	-> Average rating and count
		reviews.GET("/stats", cache.CacheByRequestURI(cfg.Cache, 30*time.Second), handle(d, review.ReviewStats))

		// GET /api/reviews		-> Lists reviews with the caller's likes
		reviews.GET("", gate, handle(d, review.ReviewList))

		// POST /api/reviews		-> Creates the caller's review
		reviews.POST("", gate, handle(d, review.ReviewCreate))

		// PUT /api/reviews		-> Updates the caller's review
		reviews.PUT("", gate, handle(d, review.ReviewUpdate))

		// DELETE /api/reviews/user	-> Deletes the caller's review
		reviews.DELETE("/user", gate, handle(d, review.ReviewDelete))

		// POST /api/reviews/:id/like	-> Likes a review
		reviews.POST("/:id/like", gate, handle(d, review.ReviewLike))

		// POST /api/reviews/:id/unlike	-> Removes a like
		reviews.POST("/:id/unlike", gate, handle(d, review.ReviewUnlike))
	}

	return router, nil
}
