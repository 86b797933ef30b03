package http

import (
	"log/slog"
	"os"

	"github.com/geocoder89/taskhub/internal/auth"
	"github.com/geocoder89/taskhub/internal/cache"
	"github.com/geocoder89/taskhub/internal/config"
	"github.com/geocoder89/taskhub/internal/http/handlers"
	"github.com/geocoder89/taskhub/internal/http/middlewares"
	"github.com/geocoder89/taskhub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps carries everything the router wires together. Storage is passed as
// the handler interfaces so tests can run against the memory repos.
type Deps struct {
	Cfg      config.Config
	Log      *slog.Logger
	Users    handlers.UserStore
	Tasks    handlers.TaskStore
	JWT      *auth.Manager
	Cache    *cache.TasksCache
	Prom     *observability.Prom
	Registry *prometheus.Registry
	Ping     func() error
}

func NewRouter(d Deps) *gin.Engine {
	if os.Getenv("APP_ENV") != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware

	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(RequestLogger(d.Log))
	r.Use(otelgin.Middleware("taskhub"))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.AllowedOrigins))
	r.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))
	r.Use(middlewares.RequireJSON())

	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}

	// health + metrics

	h := handlers.NewHealthHandler(d.Ping)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	// auth

	authHandler := handlers.NewAuthHandler(d.Users, d.JWT, d.Prom)

	r.POST("/signup", authHandler.SignUp)
	r.POST("/login", authHandler.Login)

	// tasks, always behind the guard

	tasksHandler := handlers.NewTasksHandler(d.Tasks, d.Cache, d.Prom)
	guard := middlewares.NewAuthMiddleware(d.JWT)

	tasks := r.Group("/tasks", guard.RequireAuth())

	tasks.GET("", tasksHandler.ListTasks)
	tasks.POST("", tasksHandler.CreateTask)
	tasks.PATCH("/:id", tasksHandler.UpdateTask)
	tasks.DELETE("/:id", tasksHandler.DeleteTask)

	return r
}
