package handlers

import (
	"eventhub-ticketing/internal/logger"
	"eventhub-ticketing/internal/middleware"
	"eventhub-ticketing/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterDeps struct {
	Log         *logger.Logger
	Auth        *middleware.TokenAuthority
	CheckIns    *CheckInHandler
	Tickets     *TicketHandler
	Orders      *OrderHandler
	Health      *HealthHandler
	RateLimit   int
	CORSOrigins []string
}

func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.EnhancedLogger(d.Log))
	router.Use(middleware.Recovery(d.Log))
	router.Use(middleware.CORS(d.CORSOrigins))
	router.Use(middleware.RateLimit(d.Log, d.RateLimit))
	router.Use(middleware.SecurityHeaders(d.Log))

	router.GET("/health", d.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTAuth(d.Auth, d.Log))
	{
		door := middleware.RequireRole(services.RoleStaff, services.RoleOrganizer, services.RoleAdmin)

		v1.POST("/checkin/validate", door, d.CheckIns.Validate)
		v1.GET("/events/:id/checkins", door, d.CheckIns.History)

		tickets := v1.Group("/tickets")
		{
			tickets.GET("/:id", d.Tickets.GetTicket)
			tickets.GET("/:id/qr", d.Tickets.GetTicketQR)
		}
		v1.GET("/me/tickets", d.Tickets.ListMyTickets)

		v1.POST("/orders/:id/issue", middleware.RequireRole(services.RoleOrganizer, services.RoleAdmin), d.Orders.IssueTickets)
	}

	d.Log.LogProcess("ROUTER", "All routes registered successfully")
	return router
}
