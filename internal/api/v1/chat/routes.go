package chat

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	chat := router.Group("/chat")
	chat.POST("/sessions", CreateSession)
	chat.GET("/sessions", ListSessions)
	chat.POST("/sessions/:id/close", CloseSession)
}
