package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cppla/socialnet/config"
	"github.com/cppla/socialnet/controllers"
	"github.com/cppla/socialnet/middleware"
	"github.com/cppla/socialnet/services"
	"github.com/cppla/socialnet/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc *services.Services) *gin.Engine {
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
	// Access log goes to its own rolling file; the application logger is the fallback.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err != nil {
		gl = utils.Logger
	}
	r.Use(utils.Ginzap(gl, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(gl, false))
	r.Use(middleware.Metrics())

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.MaxMultipartMemory = cfg.UploadMaxBytes
	r.Static("/static/uploads", cfg.UploadDir)

	authController := controllers.NewAuthController(svc.Auth)
	userController := controllers.NewUserController(svc.Users)
	postController := controllers.NewPostController(svc.Posts)
	commentController := controllers.NewCommentController(svc.Comments)
	uploadController := controllers.NewUploadController(svc.Media, cfg.UploadMaxBytes)
	statsController := controllers.NewStatsController(svc.Stats)

	r.GET("/health", statsController.Health)
	r.GET("/stats", statsController.GetStats)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := middleware.AuthRequired()

	authGroup := r.Group("/auth")
	authGroup.Use(middleware.RateLimit(cfg.RateLimitPerMinute))
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/captcha", authController.Captcha)
	authGroup.GET("/oauth/:provider/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", authController.OAuthCallback)
	authGroup.POST("/logout", auth, authController.Logout)
	authGroup.GET("/me", auth, authController.Me)
	authGroup.PUT("/profile", auth, authController.UpdateProfile)

	posts := r.Group("/posts")
	posts.GET("", postController.ListPosts)
	posts.GET("/:id", postController.GetPost)
	posts.GET("/user/:userId", postController.ListByUser)
	posts.POST("", auth, postController.CreatePost)
	posts.PUT("/:id", auth, postController.UpdatePost)
	posts.DELETE("/:id", auth, postController.DeletePost)
	posts.POST("/:id/like", auth, postController.ToggleLike)

	comments := r.Group("/comments")
	comments.GET("/post/:postId", commentController.ListByPost)
	comments.POST("/post/:postId", auth, commentController.CreateComment)
	comments.PUT("/:commentId", auth, commentController.UpdateComment)
	comments.DELETE("/:commentId", auth, commentController.DeleteComment)
	comments.POST("/:commentId/like", auth, commentController.ToggleLike)

	users := r.Group("/users")
	users.GET("/search", userController.Search)
	users.GET("/profile/:username", middleware.OptionalAuth(), userController.Profile)
	users.GET("/suggestions", auth, userController.Suggestions)
	users.POST("/:userId/follow", auth, userController.Follow)
	users.DELETE("/:userId/follow", auth, userController.Unfollow)

	upload := r.Group("/upload")
	upload.Use(auth, middleware.RateLimit(cfg.RateLimitPerMinute))
	upload.POST("/image", uploadController.UploadImage)
	upload.DELETE("/image", uploadController.DeleteImage)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, "Route not found")
	})

	return r
}
