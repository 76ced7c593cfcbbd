package room

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	rooms := router.Group("/rooms")
	rooms.GET("", ListRooms)
	rooms.POST("/:id/join", JoinRoom)
}
