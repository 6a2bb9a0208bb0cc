package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/paperroom/completion"
	"github.com/cppla/paperroom/config"
	"github.com/cppla/paperroom/controllers"
	"github.com/cppla/paperroom/ledger"
	"github.com/cppla/paperroom/middleware"
	"github.com/cppla/paperroom/points"
	"github.com/cppla/paperroom/stats"
	"github.com/cppla/paperroom/store/gormstore"
	"github.com/cppla/paperroom/tasks"
	"github.com/cppla/paperroom/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(db *gorm.DB) *gin.Engine {
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
	accessLog := utils.Logger
	if cfg.GinPath != "" {
		if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg); err == nil {
			accessLog = gl
		} else {
			utils.Sugar.Warnf("gin access log disabled: %v", err)
		}
	}
	r.Use(utils.Ginzap(accessLog, time.RFC3339, true))
	r.Use(utils.RecoveryWithZap(accessLog, false))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
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

	if cfg.MetricsEnabled {
		middleware.InitPrometheus()
		r.Use(middleware.MonitorMiddleware())
		r.GET("/metrics", middleware.MetricsHandler())
	}

	r.GET("/health", func(ctx *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(ctx.Request.Context()) != nil {
			utils.Error(ctx, http.StatusServiceUnavailable, utils.CodeInternal, "database unavailable")
			return
		}
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	cal, err := stats.NewCalendar(cfg.StatsTimezone)
	if err != nil {
		utils.Sugar.Warnf("unknown stats timezone %q, using UTC: %v", cfg.StatsTimezone, err)
		cal = stats.UTC()
	}
	weights := points.DefaultWeights()
	weights.SubtaskBonus = cfg.SubtaskBonus

	st := gormstore.New(db)
	taskService := tasks.NewService(st, points.NewCalculator(weights), utils.Logger.Named("tasks"))
	coordinator := completion.New(st, stats.NewRollup(cal), utils.Logger.Named("completion"),
		completion.WithMaxAttempts(cfg.CompletionMaxAttempts))

	authController := controllers.NewAuthController(db)
	roomController := controllers.NewRoomController(db)
	taskController := controllers.NewTaskController(taskService, coordinator, st)
	activityController := controllers.NewActivityController(ledger.New(st))
	statsController := controllers.NewStatsController(st, cal, time.Duration(cfg.ChartCacheSeconds)*time.Second)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.GET("/users/me/stats", statsController.Me)
	protected.POST("/rooms", roomController.Create)
	protected.POST("/rooms/join", roomController.Join)

	room := protected.Group("/rooms/:roomId")
	room.Use(middleware.RoomMember(db))
	room.GET("", roomController.Get)
	room.GET("/tasks", taskController.List)
	room.POST("/tasks", taskController.Create)
	room.PATCH("/tasks/:taskId", taskController.Update)
	room.DELETE("/tasks/:taskId", taskController.Delete)
	room.POST("/tasks/:taskId/complete", taskController.Complete)
	room.GET("/activity", activityController.List)
	room.GET("/activity/summary", activityController.Summary)
	room.GET("/stats/chart", statsController.Chart)
	room.GET("/stats/today", statsController.Today)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, utils.CodeNotFound, "api route not found")
	})

	return r
}
