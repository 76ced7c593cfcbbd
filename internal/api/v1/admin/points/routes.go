package points

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	points := router.Group("/points")
	points.POST("/adjust", Adjust)
	points.POST("/refund", Refund)
	points.GET("/audit", Audit)
}
