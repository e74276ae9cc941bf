package server

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/creditanalysis"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/profiles"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/config"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/metrics"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server/middleware"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/server/respond"
	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/shared/storage/db"
)

// Rate limit groups.
const (
	groupDefault = "DEFAULT"
	groupSubmit  = "SUBMIT"
	groupPoll    = "POLL"
)

const healthPingTimeout = 2 * time.Second

// RouterDeps carries the handlers mounted by NewRouter. Nil handlers are skipped.
type RouterDeps struct {
	Config                config.Config
	CreditAnalysisHandler *creditanalysis.Handler
	ProfilesHandler       *profiles.Handler
	Limiter               *middleware.RateLimiter
	// DB is nil when the in-memory repositories are active.
	DB *sql.DB
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env, deps.Config.JWTSecret),
		middleware.RateLimit(middleware.RateLimitConfig{
			DefaultGroup: groupDefault,
			GroupFor:     rateLimitGroup,
			Limiter:      deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				groupDefault: {Rate: 10, Burst: 30},
				groupSubmit:  {Rate: 0.5, Burst: 5},
				groupPoll:    {Rate: 1, Burst: 3},
			},
		}),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", health(deps.DB))
	if deps.CreditAnalysisHandler != nil {
		deps.CreditAnalysisHandler.RegisterRoutes(api)
	}
	if deps.ProfilesHandler != nil {
		deps.ProfilesHandler.RegisterRoutes(api)
	}

	return r
}

func health(database *sql.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if database == nil {
			respond.OK(c, gin.H{"ok": true, "database": "memory"})
			return
		}
		h := db.Check(c.Request.Context(), database, healthPingTimeout)
		if !h.Up {
			respond.JSON(c, http.StatusServiceUnavailable, gin.H{"ok": false, "database": h})
			return
		}
		respond.OK(c, gin.H{"ok": true, "database": h})
	}
}

func rateLimitGroup(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return groupDefault
	}
	switch c.FullPath() {
	case "/api/v1/credit-analysis", "/api/v1/credit-profiles":
		return groupSubmit
	case "/api/v1/credit-analysis/poll":
		return groupPoll
	default:
		return groupDefault
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
