package main

import (
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/jinjinsansan/boat-backend/config"
	"github.com/jinjinsansan/boat-backend/internal/api"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/services"
	"github.com/jinjinsansan/boat-backend/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := logger.InitLogger(&logger.Config{
		Level:      cfg.LogLevel,
		Filename:   cfg.LogFilename,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	}); err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	router, err := api.NewRouter()
	if err != nil {
		log.Fatalf("failed to create router: %v", err)
	}

	// Migrate the schema
	err = database.DB.AutoMigrate(
		&models.User{},
		&models.PointBalance{},
		&models.PointTransaction{},
		&models.ReferralRelationship{},
		&models.ReferralBonusStep{},
		&models.DuplicateLinkAttempt{},
		&models.ResourceGrant{},
		&models.Column{},
		&models.Room{},
		&models.ChatSession{},
	)
	if err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	if err := services.SeedReferralBonusSteps(cfg.ReferralBonusSteps); err != nil {
		log.Fatalf("failed to seed referral bonus steps: %v", err)
	}

	initAdminUser(cfg)

	scheduler, err := services.StartMaintenanceScheduler(
		time.Duration(cfg.ReferralPendingMaxAgeDays) * 24 * time.Hour)
	if err != nil {
		log.Fatalf("failed to start maintenance scheduler: %v", err)
	}
	defer scheduler.Shutdown()

	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}

func initAdminUser(cfg *config.Config) {
	if cfg.AdminPassword == "" {
		log.Println("ADMIN_PASSWORD not set, skipping admin user seed.")
		return
	}

	var adminUser models.User
	result := database.DB.Where("email = ?", cfg.AdminEmail).First(&adminUser)

	if result.Error != nil {
		if result.Error.Error() == "record not found" {
			hashedPassword, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
			if err != nil {
				log.Fatalf("failed to hash admin password: %v", err)
			}

			adminUser = models.User{
				Email:        cfg.AdminEmail,
				Password:     string(hashedPassword),
				Role:         "admin",
				ReferralCode: models.GenerateReferralCode(cfg.AdminEmail),
			}

			if err := database.DB.Create(&adminUser).Error; err != nil {
				log.Fatalf("failed to create admin user: %v", err)
			}
			log.Println("Admin user created successfully!")
		} else {
			log.Fatalf("failed to check for admin user: %v", result.Error)
		}
	} else {
		log.Println("Admin user already exists.")
	}
}
