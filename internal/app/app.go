package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/config"
	"github.com/jgmap/core/internal/database"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/modules/activity"
	"github.com/jgmap/core/internal/modules/history"
	"github.com/jgmap/core/internal/modules/maintenance"
	"github.com/jgmap/core/internal/modules/moderation"
	"github.com/jgmap/core/internal/modules/point"
	"github.com/jgmap/core/internal/modules/report"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/modules/user"
	"github.com/jgmap/core/internal/modules/vote"
	pkgcron "github.com/jgmap/core/internal/pkg/cron"
	"github.com/jgmap/core/internal/pkg/dailylimit"
	"github.com/jgmap/core/internal/pkg/mail"
	pkgredis "github.com/jgmap/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler
}

// services bundles every constructed service so routes and cron jobs share
// the same instances.
type services struct {
	guard       *restriction.Service
	limiter     *dailylimit.Limiter
	activity    *activity.Service
	sync        *syncmod.Service
	reports     *report.Service
	votes       *vote.Service
	history     *history.Service
	points      *point.Service
	moderation  *moderation.Service
	users       *user.Service
	maintenance *maintenance.Service
}

// New initializes the application: config → DB → Redis → services → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, true)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.NonceHeader},
		ExposeHeaders:    []string{"Content-Length", "x-map-cache"},
		AllowCredentials: true,
	}
	if len(cfg.AllowedOrigins) > 0 && !cfg.IsDev() {
		corsConfig.AllowOriginFunc = newOriginAllowlist(cfg.AllowedOrigins).Allow
	} else {
		corsConfig.AllowOriginFunc = func(origin string) bool { return true }
	}
	router.Use(cors.New(corsConfig))

	mailer := mail.New(buildMailConfig(cfg))

	svcs := services{
		guard:   restriction.NewService(db),
		limiter: dailylimit.New(rc, cfg.Limits.DailyPlaces, cfg.Limits.DailyReports),
	}
	svcs.activity = activity.NewService(db, logger)
	svcs.sync = syncmod.NewService(db, rc, logger)
	svcs.reports = report.NewService(db, svcs.limiter, svcs.guard, svcs.sync)
	svcs.votes = vote.NewService(db, svcs.guard, svcs.reports, logger)
	svcs.history = history.NewService(db, svcs.guard, svcs.sync)
	svcs.points = point.NewService(db, cfg, svcs.guard, svcs.limiter, svcs.sync, mailer, svcs.activity, logger)
	svcs.moderation = moderation.NewService(db, cfg, svcs.sync, svcs.reports, mailer, svcs.limiter, svcs.activity, logger)
	svcs.users = user.NewService(db)
	svcs.maintenance = maintenance.NewService(db, cfg, svcs.sync, mailer, logger)

	if err := svcs.users.SeedAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Password); err != nil {
		logger.Warn("admin seed failed", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	sched := pkgcron.New()
	registerCronJobs(sched, svcs, logger)
	go sched.Start(ctx)

	app := &App{cfg: cfg, router: router, db: db, logger: logger, cancel: cancel, sched: sched}
	app.registerRoutes(rc, svcs)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }

func buildMailConfig(cfg *config.AppConfig) mail.Config {
	m := cfg.Mail
	return mail.Config{
		Enable:    m.Enable,
		Host:      m.Host,
		Port:      m.Port,
		User:      m.User,
		Pass:      m.Pass,
		From:      m.From,
		ReplyTo:   m.ReplyTo,
		UseResend: m.UseResend,
		ResendKey: m.ResendKey,
	}
}

func (a *App) startTime() time.Time {
	return processStart
}

var processStart = time.Now()
