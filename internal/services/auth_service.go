package services

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm" // Import gorm for ErrRecordNotFound

	"github.com/jinjinsansan/boat-backend/config"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
	"github.com/jinjinsansan/boat-backend/internal/utils"
)

var ErrUserAlreadyExists = errors.New("user with this email already exists")

// RegisterUser creates the account, its referral code and signup bonus,
// and applies the presented referral code if there is one. A bad code is
// not fatal: the user simply signs up without a referrer.
func RegisterUser(email, password, referralCode string) (*models.User, error) {
	// Check if user already exists
	var existingUser models.User
	result := database.DB.Where("email = ?", email).First(&existingUser)
	if result.Error == nil {
		return nil, ErrUserAlreadyExists
	}
	if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, result.Error
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var userCount int64
	database.DB.Model(&models.User{}).Count(&userCount)

	role := "user"
	if userCount == 0 {
		role = "admin"
	}

	user := &models.User{
		Email:        email,
		Password:     string(hashedPassword),
		Role:         role,
		ReferralCode: models.GenerateReferralCode(email),
	}

	if err := database.DB.Create(user).Error; err != nil {
		// Rare referral-code hash collision: salt the input and retry once.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			user.ReferralCode = models.GenerateReferralCode(fmt.Sprintf("%s#%d", email, userCount))
			err = database.DB.Create(user).Error
		}
		if err != nil {
			return nil, err
		}
	}

	cfg, _ := config.LoadConfig()
	if cfg != nil && cfg.PointsSignup > 0 {
		if _, err := GrantPoints(user.ID, cfg.PointsSignup, models.TransactionTypeSignup,
			"Signup bonus", "", "system"); err != nil {
			return nil, err
		}
	}

	if referralCode != "" {
		// Unknown or self-referencing codes are silently ignored.
		if _, err := ApplyReferralCode(user.ID, referralCode); err != nil {
			if !errors.Is(err, ErrInvalidReferralCode) &&
				!errors.Is(err, ErrSelfReferral) &&
				!errors.Is(err, ErrAlreadyReferred) {
				return nil, err
			}
		}
	}

	return user, nil
}

func LoginUser(email, password string) (string, *models.User, error) {
	var user models.User
	if err := database.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return "", nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, errors.New("invalid credentials")
	}

	token, err := utils.GenerateToken(user.ID, user.Role)
	if err != nil {
		return "", nil, err
	}

	return token, &user, nil
}
