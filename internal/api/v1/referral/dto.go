package referral

import "time"

type ApplyCodeInput struct {
	Code string `json:"code" binding:"required,len=6"`
}

type LineLinkInput struct {
	LineUserID string `json:"line_user_id" binding:"required,max=64"`
}

type RelationshipResponse struct {
	ID         uint      `json:"id"`
	ReferrerID uint      `json:"referrer_id"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

type LineLinkResponse struct {
	AlreadyLinked bool  `json:"already_linked"`
	LinkBonus     int64 `json:"link_bonus"`
	ReferrerBonus int64 `json:"referrer_bonus,omitempty"`
	LinkedCount   int64 `json:"linked_count,omitempty"`
}
