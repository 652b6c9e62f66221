package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/geocoder89/sprintsync/internal/ai"
	"github.com/geocoder89/sprintsync/internal/auth"
	"github.com/geocoder89/sprintsync/internal/authz"
	"github.com/geocoder89/sprintsync/internal/config"
	"github.com/geocoder89/sprintsync/internal/http/handlers"
	"github.com/geocoder89/sprintsync/internal/http/middlewares"
	"github.com/geocoder89/sprintsync/internal/observability"
)

const (
	serviceName  = "sprintsync-api"
	maxBodyBytes = 1 << 20
)

// Denylist records logged-out tokens until they expire.
type Denylist interface {
	middlewares.RevocationChecker
	handlers.TokenRevoker
}

// Deps is everything the router needs. Only the stores and JWT are required.
type Deps struct {
	Log    *slog.Logger
	Config config.Config

	Users    handlers.UserStore
	Projects handlers.ProjectStore
	Tasks    handlers.TaskStore

	JWT      *auth.Manager
	Denylist Denylist
	AI       *ai.Service

	Prom    *observability.Prom
	Metrics http.Handler
	Ping    func(ctx context.Context) error
	// ShuttingDown flips readiness off while the server drains.
	ShuttingDown func() bool
}

func NewRouter(d Deps) *gin.Engine {
	if d.Config.Env != "dev" && d.Config.Env != "test" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := d.Log
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(middlewares.RequestLogger(log))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.SecurityHeaders(d.Config.IsProd()))
	if len(d.Config.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.Config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Authorization", "Content-Type", "If-None-Match", "X-Request-Id"},
			ExposeHeaders:    []string{"ETag", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}
	r.Use(middlewares.MaxBodyBytes(maxBodyBytes))
	r.Use(middlewares.RequireJSON())

	// health
	ping := func() error {
		if d.Ping == nil {
			return nil
		}
		ctx, cancel := config.WithTimeout(1 * time.Second)
		defer cancel()

		return d.Ping(ctx)
	}

	h := handlers.NewHealthHandler(ping, d.ShuttingDown)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics))
	}
	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	// avoid handing a typed nil to the middleware and handler
	var revoked middlewares.RevocationChecker
	var revoker handlers.TokenRevoker
	if d.Denylist != nil {
		revoked = d.Denylist
		revoker = d.Denylist
	}

	aiSvc := d.AI
	if aiSvc == nil {
		aiSvc = ai.NewService(nil, 0, d.Prom, log)
	}

	resolver := authz.NewResolver(d.Projects)
	authMw := middlewares.NewAuthMiddleware(d.JWT, d.Users, revoked, log)
	requireAuth := authMw.RequireAuth()
	requireAdmin := middlewares.RequireGlobalAdmin()

	authHandler := handlers.NewAuthHandler(d.Users, d.JWT, revoker, log)
	usersHandler := handlers.NewUsersHandler(d.Users)
	tasksHandler := handlers.NewTasksHandler(d.Tasks, d.Projects, d.Users, resolver, d.Prom)
	projectsHandler := handlers.NewProjectsHandler(d.Projects, d.Users, resolver, d.Prom)
	aiHandler := handlers.NewAIHandler(aiSvc)

	// 10 attempts per minute per client on the credential endpoints
	authLimiter := middlewares.NewRateLimiter(10, time.Minute)
	limitByIP := authLimiter.RateLimiterMiddleware(middlewares.KeyByIP)

	authGroup := r.Group("/auth")
	authGroup.POST("/register", limitByIP, authHandler.Register)
	authGroup.POST("/login", limitByIP, authHandler.Login)
	authGroup.GET("/me", requireAuth, authHandler.Me)
	authGroup.POST("/change-password", requireAuth, authHandler.ChangePassword)
	authGroup.POST("/logout", requireAuth, authHandler.Logout)

	users := r.Group("/users", requireAuth)
	users.GET("/profile", usersHandler.GetProfile)
	users.PUT("/profile", usersHandler.UpdateProfile)
	admin := users.Group("", requireAdmin)
	admin.GET("", usersHandler.List)
	admin.GET("/stats", usersHandler.Stats)
	admin.GET("/:id", usersHandler.Get)
	admin.PUT("/:id", usersHandler.Update)
	admin.DELETE("/:id", usersHandler.Delete)

	tasks := r.Group("/tasks", requireAuth)
	tasks.POST("", tasksHandler.Create)
	tasks.GET("", tasksHandler.List)
	tasks.GET("/stats/summary", tasksHandler.Stats)
	tasks.GET("/:id", tasksHandler.Get)
	tasks.PATCH("/:id", tasksHandler.Update)
	tasks.PATCH("/:id/status", tasksHandler.UpdateStatus)
	tasks.POST("/:id/time", tasksHandler.AddTime)
	tasks.POST("/:id/assign", tasksHandler.Assign)
	tasks.POST("/:id/unassign", tasksHandler.Unassign)
	tasks.DELETE("/:id", tasksHandler.Delete)

	projects := r.Group("/projects", requireAuth)
	projects.POST("", projectsHandler.Create)
	projects.GET("", projectsHandler.List)
	projects.GET("/:id", projectsHandler.Get)
	projects.PUT("/:id", projectsHandler.Update)
	projects.DELETE("/:id", projectsHandler.Delete)
	projects.GET("/:id/members", projectsHandler.ListMembers)
	projects.POST("/:id/members", projectsHandler.AddMember)
	projects.PATCH("/:id/members/:user_id", projectsHandler.UpdateMember)
	projects.DELETE("/:id/members/:user_id", projectsHandler.RemoveMember)

	// completions cost money; cap them per user
	aiLimiter := middlewares.NewRateLimiter(30, time.Minute)
	limitByUser := aiLimiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP)

	aiGroup := r.Group("/ai", requireAuth)
	aiGroup.GET("/status", aiHandler.Status)
	aiGroup.POST("/suggest/task-description", limitByUser, aiHandler.SuggestDescription)
	aiGroup.POST("/suggest/task-title", limitByUser, aiHandler.SuggestTitles)

	return r
}
