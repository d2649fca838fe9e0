// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"queuedesk/internal/admin"
	"queuedesk/internal/auth"
	"queuedesk/internal/shared/config"
	"queuedesk/internal/shared/database"
	"queuedesk/internal/tickets"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config        *config.Config
	db            *database.DB
	ticketService tickets.Service
}

// NewRouter creates a new router instance. The ticket service is built
// by the caller because the sweepers share it.
func NewRouter(cfg *config.Config, db *database.DB, ticketService tickets.Service) *Router {
	return &Router{
		config:        cfg,
		db:            db,
		ticketService: ticketService,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupAuthRoutes(api)
		r.setupTicketRoutes(api)
		r.setupAdminRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "queuedesk",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "queuedesk",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})

	engine.GET("/status", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "operational",
			"api_version": r.config.APIVersion,
			"timestamp":   time.Now(),
		})
	})
}

// setupAuthRoutes configures authentication routes
func (r *Router) setupAuthRoutes(rg *gin.RouterGroup) {
	authRepo := auth.NewRepository(r.db.GetPostgreSQL())
	authService := auth.NewService(authRepo, r.config)
	authController := auth.NewController(authService)
	authRouter := auth.NewRouter(authController)

	authRouter.SetupRoutes(rg)
}

// setupTicketRoutes configures the kiosk, display and staff console routes
func (r *Router) setupTicketRoutes(rg *gin.RouterGroup) {
	ticketController := tickets.NewController(r.ticketService)
	tickets.SetupTicketRoutes(rg, ticketController)
}

// setupAdminRoutes configures superadmin queue controls
func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	adminController := admin.NewController(r.ticketService)
	admin.SetupAdminRoutes(rg, adminController)
}
