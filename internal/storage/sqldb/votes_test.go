package sqldb

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/snipfeed/writegate/internal/vote"
)

func setupRepo(t *testing.T) *VoteRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))

	return NewVoteRepository(db)
}

func countRows(t *testing.T, r *VoteRepository, userID, postID uuid.UUID) int64 {
	t.Helper()
	var n int64
	err := r.db.Model(&vote.Vote{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&n).Error
	require.NoError(t, err)
	return n
}

func TestVoteRepository(t *testing.T) {
	ctx := context.Background()
	user := uuid.New()
	post := uuid.New()

	t.Run("get on empty table", func(t *testing.T) {
		r := setupRepo(t)
		_, err := r.Get(ctx, user, post)
		assert.ErrorIs(t, err, vote.ErrNotFound)
	})

	t.Run("upsert never creates a second row", func(t *testing.T) {
		r := setupRepo(t)

		require.NoError(t, r.Upsert(ctx, vote.Vote{UserID: user, PostID: post, Direction: vote.Up}))
		require.NoError(t, r.Upsert(ctx, vote.Vote{UserID: user, PostID: post, Direction: vote.Down}))

		assert.Equal(t, int64(1), countRows(t, r, user, post))

		d, err := r.Get(ctx, user, post)
		require.NoError(t, err)
		assert.Equal(t, vote.Down, d)
	})

	t.Run("delete by pair", func(t *testing.T) {
		r := setupRepo(t)

		require.NoError(t, r.Upsert(ctx, vote.Vote{UserID: user, PostID: post, Direction: vote.Up}))
		require.NoError(t, r.Delete(ctx, user, post))

		_, err := r.Get(ctx, user, post)
		assert.ErrorIs(t, err, vote.ErrNotFound)

		// Deleting an absent pair is a no-op, not an error.
		assert.NoError(t, r.Delete(ctx, user, post))
	})

	t.Run("tally counts surviving rows", func(t *testing.T) {
		r := setupRepo(t)
		other := uuid.New()

		require.NoError(t, r.Upsert(ctx, vote.Vote{UserID: user, PostID: post, Direction: vote.Up}))
		require.NoError(t, r.Upsert(ctx, vote.Vote{UserID: other, PostID: post, Direction: vote.Down}))
		require.NoError(t, r.Upsert(ctx, vote.Vote{UserID: user, PostID: uuid.New(), Direction: vote.Up}))

		up, down, err := r.Tally(ctx, post)
		require.NoError(t, err)
		assert.Equal(t, int64(1), up)
		assert.Equal(t, int64(1), down)
	})
}

// The coordinator against a real unique index: the displayed score must
// always equal the sum of persisted rows.
func TestCoordinatorWithSQLRepository(t *testing.T) {
	ctx := context.Background()
	r := setupRepo(t)
	c := vote.NewCoordinator(r, nil)

	user := uuid.New()
	post := uuid.New()

	out, err := c.Apply(ctx, user, post, vote.Up)
	require.NoError(t, err)
	assert.Equal(t, vote.Up, out.State)

	out, err = c.Apply(ctx, user, post, vote.Up)
	require.NoError(t, err)
	assert.Equal(t, vote.None, out.State)
	assert.Equal(t, int64(0), countRows(t, r, user, post))

	out, err = c.Apply(ctx, user, post, vote.Down)
	require.NoError(t, err)
	assert.Equal(t, vote.Down, out.State)

	// Flip: exactly one row, direction up.
	out, err = c.Apply(ctx, user, post, vote.Up)
	require.NoError(t, err)
	assert.Equal(t, vote.Up, out.State)
	assert.Equal(t, int64(1), countRows(t, r, user, post))

	up, down, err := r.Tally(ctx, post)
	require.NoError(t, err)
	assert.Equal(t, int64(1), up)
	assert.Equal(t, int64(0), down)
}
