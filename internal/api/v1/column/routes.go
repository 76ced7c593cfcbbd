package column

import "github.com/gin-gonic/gin"

func RegisterRoutes(router *gin.RouterGroup) {
	columns := router.Group("/columns")
	columns.GET("", ListColumns)
	columns.GET("/:id", ViewColumn)
}
