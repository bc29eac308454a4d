package app

import (
	"context"
	"log"
	"net/http"
	"newsreel_backend/internal/config"
	"newsreel_backend/internal/controller"
	"newsreel_backend/internal/middleware"
	"newsreel_backend/internal/repository"
	"newsreel_backend/internal/service"
	"newsreel_backend/internal/util"
	"newsreel_backend/pkg/configwatcher"
	"newsreel_backend/pkg/database"
	"newsreel_backend/pkg/logger"
	"newsreel_backend/pkg/monitoring"
	"newsreel_backend/pkg/security"
	"newsreel_backend/pkg/tracing"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	DB              *gorm.DB
	Redis           *redis.Client
	services        *services
	configCallbacks []func(*config.Config)

	// 限流清理、对账等后台协程随 ctx 退出
	ctx    context.Context
	cancel context.CancelFunc
}

type repositories struct {
	user      *repository.UserRepository
	post      *repository.PostRepository
	poll      *repository.PollRepository
	comment   *repository.CommentRepository
	report    *repository.ReportRepository
	review    *repository.ReviewRepository
	follow    *repository.FollowRepository
	phone     *repository.PhoneVerificationRepository
	blacklist *repository.TokenBlacklistRepository
}

type services struct {
	storage      *service.StorageService
	notification *service.NotificationService
	auth         *service.AuthService
	post         *service.PostService
	poll         *service.PollService
	comment      *service.CommentService
	follow       *service.FollowService
	review       *service.ReviewService
	report       *service.ReportService
	user         *service.UserService
	reconcile    *service.ReconcileService
}

type controllers struct {
	auth    *controller.AuthController
	user    *controller.UserController
	post    *controller.PostController
	comment *controller.CommentController
	review  *controller.ReviewController
	follow  *controller.FollowController
	report  *controller.ReportController
	health  *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) reloadConfig(cfg *config.Config) {
	for _, callback := range a.configCallbacks {
		callback(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:      repository.NewUserRepository(db),
		post:      repository.NewPostRepository(db),
		poll:      repository.NewPollRepository(db),
		comment:   repository.NewCommentRepository(db),
		report:    repository.NewReportRepository(db),
		review:    repository.NewReviewRepository(db),
		follow:    repository.NewFollowRepository(db, rdb),
		phone:     repository.NewPhoneVerificationRepository(db),
		blacklist: repository.NewTokenBlacklistRepository(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) (*services, error) {
	s := &services{}

	storage, err := service.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	s.storage = storage
	s.notification = service.NewNotificationService(repos.follow, cfg)
	s.auth = service.NewAuthService(db, repos.user, repos.phone, repos.blacklist, s.storage,
		service.NewTwilioSMSService(cfg.Twilio), service.NewMailService(cfg.Mail), cfg)

	s.post = service.NewPostService(db, repos.post, repos.poll, repos.user, repos.comment, repos.report,
		s.storage, service.NewVideoService(cfg), s.notification)
	s.poll = service.NewPollService(db, repos.post, repos.poll, s.post)
	s.comment = service.NewCommentService(db, repos.comment, repos.post, repos.user, s.storage)
	s.follow = service.NewFollowService(db, repos.follow, repos.user)
	s.review = service.NewReviewService(db, repos.review, repos.user, repos.report, s.storage)
	s.report = service.NewReportService(db, repos.report)
	s.user = service.NewUserService(repos.user, repos.review, repos.follow, s.storage)
	s.reconcile = service.NewReconcileService(db)

	return s, nil
}

func (a *App) initControllers(s *services, cfg *config.Config) *controllers {
	pageSize := cfg.App.PageSize
	return &controllers{
		auth:    controller.NewAuthController(s.auth),
		user:    controller.NewUserController(s.user, s.post, pageSize),
		post:    controller.NewPostController(s.post, s.poll, s.comment, pageSize),
		comment: controller.NewCommentController(s.comment, pageSize),
		review:  controller.NewReviewController(s.review, pageSize),
		follow:  controller.NewFollowController(s.follow),
		report:  controller.NewReportController(s.report),
		health:  controller.NewHealthController(a.DB, a.Redis),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID(), middleware.Logger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(a.ctx, cfg.RateLimit.MaxRequests, cfg.RateWindow()))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(cfg *config.Config) {
	if hours := cfg.App.ReconcileIntervalHours; hours > 0 {
		go a.services.reconcile.RunEvery(a.ctx, time.Duration(hours)*time.Hour)
	}

	go func() {
		if err := configwatcher.Watch(a.ctx, configDir+"/config.yaml", time.Second, a.reloadConfig); err != nil {
			logger.Log.Warn("config watcher stopped", zap.Error(err))
		}
	}()
}

// New 用现成的数据库与 Redis 组装路由，不启动后台任务
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) (*App, error) {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		ctx:    ctx,
		cancel: cancel,
	}

	repos := app.initRepositories(db, rdb)
	services, err := app.initServices(repos, cfg, db)
	if err != nil {
		cancel()
		return nil, err
	}
	app.services = services
	controllers := app.initControllers(services, cfg)

	app.RegisterConfigCallback(func(newCfg *config.Config) {
		logger.SetMode(newCfg.Server.Mode)
	})
	app.RegisterConfigCallback(services.notification.UpdateConfig)

	// 监控初始化
	monitoring.Init()

	router := gin.New()
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	gin.SetMode(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	migrate := cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode
	db, err := database.InitDB(&cfg.Database, migrate)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if cfg.MigrateOnly {
		return &App{Config: cfg, DB: db}
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
		log.Fatalf("Failed to initialize redis: %v", err)
	}

	app, err := New(cfg, db, rdb)
	if err != nil {
		logger.Log.Fatal("Failed to initialize services", zap.Error(err))
	}
	return app
}

func (a *App) Run() {
	cfg := a.Config

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
			}
		}()
	}

	a.startBackgroundTasks(cfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close 停止后台协程，等待未完成的推送
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.services != nil {
		a.services.post.Wait()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
}
