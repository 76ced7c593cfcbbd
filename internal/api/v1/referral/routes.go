package referral

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	referral := router.Group("/referral")
	referral.POST("/apply", ApplyCode)
	referral.POST("/line-link", ConfirmLineLink)
	referral.GET("/status", Status)
}
