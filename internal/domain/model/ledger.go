package model

import "time"

type RewardType string

const (
	RewardCoins      RewardType = "coins"
	RewardDiscount   RewardType = "discount"
	RewardExperience RewardType = "experience"
	RewardGiftCard   RewardType = "gift_card"
)

// CoinLedger is a user's balance. TotalCoins mirrors LifetimeEarned.
type CoinLedger struct {
	UserID         string    `json:"user_id"`
	TotalCoins     int       `json:"total_coins"`
	AvailableCoins int       `json:"available_coins"`
	LifetimeEarned int       `json:"lifetime_earned"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Reward is an immutable record of coins granted.
type Reward struct {
	ID           string     `json:"id"`
	UserID       string     `json:"user_id"`
	QuestID      *string    `json:"quest_id,omitempty"`
	SubmissionID *string    `json:"submission_id,omitempty"`
	AwardKey     string     `json:"-"`
	RewardType   RewardType `json:"reward_type"`
	CoinsEarned  int        `json:"coins_earned"`
	BonusCoins   int        `json:"bonus_coins"`
	Description  string     `json:"description"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (r Reward) Total() int { return r.CoinsEarned + r.BonusCoins }

// QuestAwardKey is the idempotency key of an award. A user is paid for a
// quest at most once.
func QuestAwardKey(userID, questID string) string {
	return "quest:" + userID + ":" + questID
}
