package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type QuestCategory string

const (
	CategoryBudget       QuestCategory = "budget"
	CategoryExploration  QuestCategory = "exploration"
	CategoryTransport    QuestCategory = "transport"
	CategoryCultural     QuestCategory = "cultural"
	CategorySocialImpact QuestCategory = "social_impact"
)

func (c QuestCategory) Valid() bool {
	switch c {
	case CategoryBudget, CategoryExploration, CategoryTransport, CategoryCultural, CategorySocialImpact:
		return true
	}
	return false
}

// QuestRequirements are the acceptance criteria a submission is judged against.
// A nil/empty field imposes no constraint.
type QuestRequirements struct {
	MaxAmount        *decimal.Decimal `json:"max_amount,omitempty"`
	MinItems         *int             `json:"min_items,omitempty" validate:"omitempty,gte=0"`
	MinLocations     *int             `json:"min_locations,omitempty" validate:"omitempty,gte=0"`
	TransportTypes   []string         `json:"transport_types,omitempty" validate:"omitempty,dive,required"`
	ExpectedLocation string           `json:"expected_location,omitempty"`
}

type Quest struct {
	ID                string                 `json:"id"`
	Title             string                 `json:"title"`
	Slug              string                 `json:"slug"`
	Description       string                 `json:"description"`
	Category          QuestCategory          `json:"category"`
	RewardCoins       int                    `json:"reward_coins"`
	BonusCoins        int                    `json:"bonus_coins"`
	Requirements      QuestRequirements      `json:"requirements"`
	VerificationRules map[string]interface{} `json:"verification_rules,omitempty"`
	DifficultyLevel   int                    `json:"difficulty_level"`
	ExpiresAt         *time.Time             `json:"expires_at,omitempty"`
	CreatedAt         time.Time              `json:"created_at"`
	UpdatedAt         time.Time              `json:"updated_at"`
}
