package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/cppla/postwall/config"
	"github.com/cppla/postwall/controllers"
	"github.com/cppla/postwall/middleware"
	"github.com/cppla/postwall/services"
	"github.com/cppla/postwall/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB, interactions *services.InteractionService, feed *services.FeedService) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.MaxMultipartMemory = 8 << 20
	// Replace default console logger with file-based zap logger
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", middleware.CSRFHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))
	r.Use(middleware.Metrics())

	if cfg.UploadDir != "" {
		publicPath := cfg.UploadPublicPath
		if publicPath == "" {
			publicPath = "/storage"
		}
		r.Static(publicPath, cfg.UploadDir)
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authController := controllers.NewAuthController(db)
	postController := controllers.NewPostController(interactions, feed)
	csrfController := controllers.NewCSRFController()
	statsController := controllers.NewStatsController(db)

	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(limiter.Middleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/refresh-csrf", middleware.AuthRequired(), csrfController.Refresh)

	// Public reads; liked flags are filled in when a token is presented
	public := api.Group("")
	public.Use(middleware.OptionalAuth())
	public.GET("/feed", postController.Feed)
	public.GET("/post/:id", postController.GetPost)
	api.GET("/stats", statsController.GetStats)

	protected := api.Group("/post")
	protected.Use(middleware.AuthRequired(), limiter.Middleware(), middleware.CSRFRequired())
	protected.POST("", postController.CreatePost)
	protected.PUT("/:id/update-caption", postController.UpdateCaption)
	protected.DELETE("/:id", postController.DeletePost)
	protected.POST("/:id/like", postController.ToggleLike)
	protected.POST("/:id/comment", postController.AddComment)
	protected.DELETE("/:id/comment/:commentId", postController.DeleteComment)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
