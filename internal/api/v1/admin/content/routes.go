package content

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/columns", CreateColumn)
	router.PATCH("/columns/:id", UpdateColumn)
	router.POST("/rooms", CreateRoom)
	router.PATCH("/rooms/:id", UpdateRoom)
}
