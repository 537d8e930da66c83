package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"trippey_quests/internal/common"
	"trippey_quests/internal/domain/model"
)

type QuestRepository interface {
	CreateQuest(ctx context.Context, tx *sql.Tx, quest *model.Quest) error
	FindQuestByID(ctx context.Context, id string) (*model.Quest, error)
	FindQuestBySlug(ctx context.Context, slug string) (*model.Quest, error)
	ListQuests(ctx context.Context, category model.QuestCategory, limit, offset int) ([]model.Quest, int, error)
}

type pgQuestRepository struct {
	db *sql.DB
}

func NewPgQuestRepository(db *sql.DB) QuestRepository {
	return &pgQuestRepository{db: db}
}

const questColumns = `id, title, slug, description, category, reward_coins, bonus_coins,
       requirements, verification_rules, difficulty_level, expires_at, created_at, updated_at`

func (r *pgQuestRepository) CreateQuest(ctx context.Context, tx *sql.Tx, q *model.Quest) error {
	reqs, err := toJSONB(q.Requirements)
	if err != nil {
		return fmt.Errorf("pgQuestRepository.CreateQuest: %w", err)
	}
	rules, err := toJSONB(q.VerificationRules)
	if err != nil {
		return fmt.Errorf("pgQuestRepository.CreateQuest: %w", err)
	}

	query := `INSERT INTO quests (id, title, slug, description, category, reward_coins, bonus_coins, requirements, verification_rules, difficulty_level, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	          RETURNING created_at, updated_at`
	err = conn(r.db, tx).QueryRowContext(ctx, query,
		q.ID, q.Title, q.Slug, q.Description, q.Category, q.RewardCoins, q.BonusCoins,
		reqs, rules, q.DifficultyLevel, q.ExpiresAt,
	).Scan(&q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if common.IsUniqueViolation(err) {
			return fmt.Errorf("quest with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgQuestRepository.CreateQuest: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanQuest(row rowScanner) (*model.Quest, error) {
	var q model.Quest
	var reqs, rules []byte
	var expiresAt sql.NullTime
	if err := row.Scan(&q.ID, &q.Title, &q.Slug, &q.Description, &q.Category, &q.RewardCoins, &q.BonusCoins,
		&reqs, &rules, &q.DifficultyLevel, &expiresAt, &q.CreatedAt, &q.UpdatedAt); err != nil {
		return nil, err
	}
	if err := fromJSONB(reqs, &q.Requirements); err != nil {
		return nil, err
	}
	if err := fromJSONB(rules, &q.VerificationRules); err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		q.ExpiresAt = &expiresAt.Time
	}
	return &q, nil
}

func (r *pgQuestRepository) FindQuestByID(ctx context.Context, id string) (*model.Quest, error) {
	return r.findOne(ctx, "id", id)
}

func (r *pgQuestRepository) FindQuestBySlug(ctx context.Context, slug string) (*model.Quest, error) {
	return r.findOne(ctx, "slug", slug)
}

func (r *pgQuestRepository) findOne(ctx context.Context, column, value string) (*model.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE ` + column + ` = $1`
	q, err := scanQuest(r.db.QueryRowContext(ctx, query, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestRepository.findOne(%s): %w", column, err)
	}
	return q, nil
}

func (r *pgQuestRepository) ListQuests(ctx context.Context, category model.QuestCategory, limit, offset int) ([]model.Quest, int, error) {
	var where strings.Builder
	var args []interface{}
	where.WriteString(" WHERE (expires_at IS NULL OR expires_at > now())")
	if category != "" {
		args = append(args, category)
		where.WriteString(fmt.Sprintf(" AND category = $%d", len(args)))
	}

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM quests`+where.String(), args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgQuestRepository.ListQuests count: %w", err)
	}

	query := `SELECT ` + questColumns + ` FROM quests` + where.String() +
		fmt.Sprintf(" ORDER BY difficulty_level, created_at DESC LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgQuestRepository.ListQuests query: %w", err)
	}
	defer rows.Close()

	quests := []model.Quest{}
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("pgQuestRepository.ListQuests scan: %w", err)
		}
		quests = append(quests, *q)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("pgQuestRepository.ListQuests rows: %w", err)
	}
	return quests, total, nil
}
