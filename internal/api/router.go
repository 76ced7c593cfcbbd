package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/jinjinsansan/boat-backend/config"
	adminContent "github.com/jinjinsansan/boat-backend/internal/api/v1/admin/content"
	adminPoints "github.com/jinjinsansan/boat-backend/internal/api/v1/admin/points"
	adminReferral "github.com/jinjinsansan/boat-backend/internal/api/v1/admin/referral"
	adminTransaction "github.com/jinjinsansan/boat-backend/internal/api/v1/admin/transaction"
	adminUser "github.com/jinjinsansan/boat-backend/internal/api/v1/admin/user"
	"github.com/jinjinsansan/boat-backend/internal/api/v1/auth"
	"github.com/jinjinsansan/boat-backend/internal/api/v1/chat"
	"github.com/jinjinsansan/boat-backend/internal/api/v1/column"
	"github.com/jinjinsansan/boat-backend/internal/api/v1/points"
	"github.com/jinjinsansan/boat-backend/internal/api/v1/referral"
	"github.com/jinjinsansan/boat-backend/internal/api/v1/room"
	userRoutes "github.com/jinjinsansan/boat-backend/internal/api/v1/user"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/middleware"
)

func NewRouter() (*gin.Engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}

	_, err = database.Connect(cfg.DSN())
	if err != nil {
		return nil, err
	}

	err = database.ConnectRedis(cfg)
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.Use(middleware.Logger(), gin.Recovery())

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum age for preflight requests
	}))

	// API v1
	v1 := router.Group("/api/v1")
	{
		auth.RegisterRoutes(v1)

		authorized := v1.Group("/")
		authorized.Use(middleware.AuthMiddleware())
		{
			userRoutes.RegisterRoutes(authorized)
			points.RegisterRoutes(authorized)
			referral.RegisterRoutes(authorized)
			chat.RegisterRoutes(authorized)
			column.RegisterRoutes(authorized)
			room.RegisterRoutes(authorized)
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuthMiddleware())
		{
			adminUser.RegisterRoutes(admin)
			adminTransaction.RegisterRoutes(admin)
			adminPoints.RegisterRoutes(admin)
			adminReferral.RegisterRoutes(admin)
			adminContent.RegisterRoutes(admin)
		}
	}

	return router, nil
}
