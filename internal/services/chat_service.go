package services

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jinjinsansan/boat-backend/config"
	"github.com/jinjinsansan/boat-backend/internal/database"
	"github.com/jinjinsansan/boat-backend/internal/models"
)

// CreateChatSession opens a new AI prediction chat. Chat is pay-per-session:
// every session is a fresh debit. If the session row cannot be persisted
// after the debit succeeded, the debit is compensated with a refund.
func CreateChatSession(userID uint, title string) (*models.ChatSession, *AccessGrant, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	sessionID := uuid.New().String()
	grant, err := GrantAccess(userID, models.ResourceTypeChat, sessionID,
		cfg.PointsChatCreate, PaymentPolicyPerUse, "AI chat session")
	if err != nil {
		return nil, nil, err
	}

	session := &models.ChatSession{
		ID:            sessionID,
		UserID:        userID,
		Title:         title,
		Status:        models.ChatSessionStatusActive,
		PointsUsed:    grant.PointsUsed,
		TransactionID: grant.TransactionID,
	}
	if err := database.DB.Create(session).Error; err != nil {
		// The grant is useless without the session: compensate the debit.
		if grant.TransactionID != 0 {
			if _, refundErr := RefundAccess(grant.TransactionID, "Chat session could not be created", "system"); refundErr != nil {
				zap.L().Error("failed to refund orphaned chat debit",
					zap.Uint("transaction_id", grant.TransactionID),
					zap.Error(refundErr))
			}
		}
		return nil, nil, err
	}

	return session, grant, nil
}

// FindChatSessions lists the user's sessions, newest first.
func FindChatSessions(userID uint, page, limit int) ([]models.ChatSession, int64, error) {
	var sessions []models.ChatSession
	var total int64

	query := database.DB.Model(&models.ChatSession{}).Where("user_id = ?", userID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Order("created_at desc").Limit(limit).Offset(offset).Find(&sessions).Error; err != nil {
		return nil, 0, err
	}
	return sessions, total, nil
}

// CloseChatSession marks a session closed. Closing never refunds: the
// session was delivered.
func CloseChatSession(userID uint, sessionID string) (*models.ChatSession, error) {
	var session models.ChatSession
	if err := database.DB.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
		return nil, err
	}
	session.Status = models.ChatSessionStatusClosed
	if err := database.DB.Save(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
