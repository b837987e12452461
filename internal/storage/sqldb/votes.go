// Package sqldb persists votes through gorm. Production runs on
// Postgres; tests use an in-memory sqlite database, which enforces the
// same unique index.
package sqldb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/snipfeed/writegate/internal/vote"
)

type VoteRepository struct {
	db *gorm.DB
}

func NewVoteRepository(db *gorm.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

// Migrate creates the votes table and its unique index.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&vote.Vote{})
}

func (r *VoteRepository) Get(ctx context.Context, userID, postID uuid.UUID) (vote.Direction, error) {
	var v vote.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return vote.None, vote.ErrNotFound
	}
	if err != nil {
		return vote.None, fmt.Errorf("get vote: %w", err)
	}
	return v.Direction, nil
}

// Upsert is one INSERT ... ON CONFLICT (user_id, post_id) DO UPDATE, so
// concurrent writes for the same pair serialize on the unique index and
// can never produce a second row.
func (r *VoteRepository) Upsert(ctx context.Context, v vote.Vote) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "post_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).
		Create(&v).Error
	if err != nil {
		return fmt.Errorf("upsert vote: %w", err)
	}
	return nil
}

func (r *VoteRepository) Delete(ctx context.Context, userID, postID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&vote.Vote{}).Error
	if err != nil {
		return fmt.Errorf("delete vote: %w", err)
	}
	return nil
}

func (r *VoteRepository) Tally(ctx context.Context, postID uuid.UUID) (int64, int64, error) {
	var up, down int64
	db := r.db.WithContext(ctx).Model(&vote.Vote{})
	if err := db.Where("post_id = ? AND direction = ?", postID, vote.Up).Count(&up).Error; err != nil {
		return 0, 0, fmt.Errorf("tally up: %w", err)
	}
	db = r.db.WithContext(ctx).Model(&vote.Vote{})
	if err := db.Where("post_id = ? AND direction = ?", postID, vote.Down).Count(&down).Error; err != nil {
		return 0, 0, fmt.Errorf("tally down: %w", err)
	}
	return up, down, nil
}
