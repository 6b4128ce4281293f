package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/observability/logger"
	"github.com/jep-hq/tools/internal/observability/metrics"
	"github.com/jep-hq/tools/internal/observability/tracing"
	placedomain "github.com/jep-hq/tools/internal/place/domain"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
	"github.com/jep-hq/tools/internal/tenant"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger
	db     *gorm.DB

	registry   *tenant.Registry
	projectSvc projectdomain.Service
	placeSvc   placedomain.Service

	limiter *rateLimiter
}

type ServerParam struct {
	fx.In

	Engine     *gin.Engine
	Config     config.Config
	Log        *zap.Logger
	DB         *gorm.DB
	Registry   *tenant.Registry
	ProjectSvc projectdomain.Service
	PlaceSvc   placedomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		engine:     p.Engine,
		cfg:        p.Config,
		log:        p.Log.Named("server"),
		db:         p.DB,
		registry:   p.Registry,
		projectSvc: p.ProjectSvc,
		placeSvc:   p.PlaceSvc,
		limiter:    newRateLimiter(p.Config.RateLimitPerMinute, time.Minute),
	}
}

type EngineParam struct {
	fx.In

	Config      config.Config
	HTTPMetrics *metrics.HTTPMetrics `optional:"true"`
}

// NewEngine builds the gin engine with the shared middleware chain. The
// design tool embeds in arbitrary shop frontends, so CORS stays open.
func NewEngine(p EngineParam) *gin.Engine {
	if p.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept", "x-api-key"},
		MaxAge:          12 * time.Hour,
	}))
	engine.Use(logger.GinMiddleware(logger.MiddlewareConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	engine.Use(tracing.GinMiddleware())
	engine.Use(metrics.GinMiddleware(p.HTTPMetrics))
	return engine
}

// RegisterAPIRoutes mounts every route on the engine.
func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", s.Health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.Use(s.APIKeyRequired(), s.RateLimit())
	{
		v1.POST("/projects", s.UpsertProject)
		v1.GET("/projects", s.ListProjects)
		v1.GET("/projects/:id", s.GetProject)
		v1.PUT("/projects/:id", s.UpdateProject)
		v1.DELETE("/projects/:id", s.DeleteProject)

		v1.POST("/webhooks/orders", s.OrderWebhook)

		v1.GET("/places/:id", s.GetPlace)
	}
}
