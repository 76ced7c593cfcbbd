package referral

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	referrals := router.Group("/referrals")
	referrals.GET("", ListRelationships)
	referrals.POST("/:id/cancel", CancelRelationship)
	referrals.GET("/suspicious", SuspiciousAccounts)
	referrals.GET("/bonus-steps", GetBonusSteps)
	referrals.PUT("/bonus-steps", SetBonusStep)
}
