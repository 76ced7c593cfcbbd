package points

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	points := router.Group("/points")
	points.GET("/balance", GetBalance)
	points.POST("/daily-login", ClaimDailyLogin)
	points.GET("/transactions", ListTransactions)
}
