package model

import "time"

type LeaderboardEntry struct {
	Rank                 int        `json:"rank"`
	UserID               string     `json:"user_id"`
	TotalQuestsCompleted int        `json:"total_quests_completed"`
	TotalCoinsEarned     int        `json:"total_coins_earned"`
	CurrentStreak        int        `json:"current_streak"`
	LongestStreak        int        `json:"longest_streak"`
	LastQuestCompleted   *time.Time `json:"last_quest_completed,omitempty"`
}
