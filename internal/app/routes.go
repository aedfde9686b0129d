package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jgmap/core/internal/middleware"
	"github.com/jgmap/core/internal/modules/activity"
	"github.com/jgmap/core/internal/modules/history"
	"github.com/jgmap/core/internal/modules/moderation"
	"github.com/jgmap/core/internal/modules/point"
	"github.com/jgmap/core/internal/modules/report"
	"github.com/jgmap/core/internal/modules/restriction"
	syncmod "github.com/jgmap/core/internal/modules/sync"
	"github.com/jgmap/core/internal/modules/user"
	"github.com/jgmap/core/internal/modules/vote"
	pkgredis "github.com/jgmap/core/internal/pkg/redis"
	"github.com/jgmap/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client, svcs services) {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)
	adminMW := middleware.RequireAdmin(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "jgmap-core",
		"version":  "1.0.0",
		"homepage": "https://jadegdziechce.pl",
	}

	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.RateLimit(rc.Raw()))
	api.Use(middleware.RequireNonce(rc, nonceSkipPaths(apiPrefix)...))
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:       15 * time.Second,
		Disable:   a.cfg.IsDev(),
		SkipPaths: httpCacheSkipPaths(apiPrefix),
	}))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"data": "pong"}) })
	api.GET("/uptime", func(c *gin.Context) {
		uptimeMs := time.Since(a.startTime()).Milliseconds()
		c.JSON(http.StatusOK, gin.H{
			"timestamp": uptimeMs,
			"humanize":  humanizeDuration(time.Duration(uptimeMs) * time.Millisecond),
		})
	})

	// One-shot write token; the frontend fetches one before every mutating call.
	api.GET("/nonce", func(c *gin.Context) {
		token, expires, err := middleware.IssueNonce(c, rc)
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"nonce": token, "expires_at": expires})
	})

	cleanCache := func(c *gin.Context) {
		deleted, err := middleware.PurgeHTTPCache(c.Request.Context(), rc.Raw())
		if err != nil {
			response.InternalError(c, err)
			return
		}
		response.OK(c, gin.H{"deleted": deleted})
	}
	api.GET("/clean_cache", authMW, adminMW, cleanCache)

	user.NewHandler(svcs.users).RegisterRoutes(api, authMW, adminMW)
	point.NewHandler(svcs.points, db).RegisterRoutes(api, authMW, adminMW)
	vote.NewHandler(svcs.votes).RegisterRoutes(api, authMW)
	report.NewHandler(svcs.reports).RegisterRoutes(api, authMW, adminMW)
	history.NewHandler(svcs.history).RegisterRoutes(api, authMW, adminMW)
	syncmod.NewHandler(svcs.sync, db).RegisterRoutes(api, authMW, adminMW)
	moderation.NewHandler(svcs.moderation).RegisterRoutes(api, authMW, adminMW)
	restriction.NewHandler(svcs.guard).RegisterRoutes(api, authMW, adminMW)
	activity.NewHandler(svcs.activity).RegisterRoutes(api, authMW, adminMW)
}

// nonceSkipPaths lists mutating endpoints reachable before the client can
// fetch a nonce.
func nonceSkipPaths(prefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	return []string{
		p + "/auth/login",
		p + "/auth/register",
	}
}

func httpCacheSkipPaths(prefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	if p == "" {
		p = apiPrefix
	}
	return []string{
		p + "/uptime",
		p + "/nonce",
		p + "/clean_cache",
		p + "/sync/updates",
		p + "/points/mine",
		p + "/points/admin",
		p + "/user/*",
		p + "/admin/*",
		p + "/moderation/*",
		p + "/history*",
		p + "/reports",
		p + "/activity",
		p + "/sync/events*",
		p + "/sync/stats",
	}
}
