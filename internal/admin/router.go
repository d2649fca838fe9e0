package admin

import (
	"github.com/gin-gonic/gin"

	"queuedesk/internal/shared/middleware"
)

func SetupAdminRoutes(router *gin.RouterGroup, controller Controller) {
	adminQueues := router.Group("/admin/queues/:office")
	adminQueues.Use(middleware.JWTAuth(), middleware.RequireSuperadmin())
	{
		adminQueues.POST("/cancel-waiting", controller.CancelWaiting)
		adminQueues.POST("/prioritize-section", controller.PrioritizeSection)
		adminQueues.POST("/cancel-section", controller.CancelSection)
		adminQueues.GET("/staff/:username/activity", controller.StaffActivity)
	}
}
