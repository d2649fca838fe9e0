package tickets

import (
	"github.com/gin-gonic/gin"

	"queuedesk/internal/shared/middleware"
)

func SetupTicketRoutes(router *gin.RouterGroup, controller Controller) {
	// Kiosk and display routes - no authentication
	router.POST("/tickets", controller.IssueTicket)

	public := router.Group("/queues/:office")
	{
		public.GET("/board", controller.GetBoard)
		public.GET("/wait", controller.GetWait)
	}

	// Staff console - requires a staff token whose role matches the office
	staff := router.Group("/queues/:office")
	staff.Use(middleware.JWTAuth(), middleware.RequireOfficeStaff())
	{
		staff.POST("/next", controller.ClaimNext)
		staff.POST("/resume", controller.ResumeHeld)
		staff.POST("/hold", controller.HoldCurrent)
		staff.POST("/complete", controller.CompleteCurrent)
		staff.GET("/status", controller.GetStatus)
		staff.POST("/cancel-waiting", controller.CancelWaiting)
	}
}
