package repository

import (
	"bitwise74/career-api/internal/model"
	"bitwise74/career-api/internal/testutil"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewCreateOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ReviewRepository{DB: db}
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice", "a@example.com")

	_, err := repo.Create(ctx, u.ID, 4, "good")
	require.NoError(t, err)

	_, err = repo.Create(ctx, u.ID, 1, "changed my mind")
	assert.ErrorIs(t, err, ErrReviewExists)

	got, err := repo.ByUser(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Rating)
	assert.Equal(t, "good", got.Comment)
}

func TestReviewUpdateDelete(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ReviewRepository{DB: db}
	ctx := context.Background()

	u := testutil.CreateUser(t, db, "alice", "a@example.com")
	fan := testutil.CreateUser(t, db, "fan", "f@example.com")

	_, err := repo.Update(ctx, u.ID, 2, "x")
	assert.ErrorIs(t, err, ErrReviewNotFound)

	r, err := repo.Create(ctx, u.ID, 4, "good")
	require.NoError(t, err)

	updated, err := repo.Update(ctx, u.ID, 5, "great")
	require.NoError(t, err)
	assert.Equal(t, 5, updated.Rating)
	assert.Equal(t, "great", updated.Comment)

	_, err = repo.Like(ctx, r.ID, fan.ID)
	require.NoError(t, err)

	ok, err := repo.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	var likes int64
	require.NoError(t, db.Model(&model.ReviewLike{}).Count(&likes).Error)
	assert.Zero(t, likes)

	ok, err = repo.Delete(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReviewLikeUnlike(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ReviewRepository{DB: db}
	ctx := context.Background()

	author := testutil.CreateUser(t, db, "alice", "a@example.com")
	fan := testutil.CreateUser(t, db, "bob", "b@example.com")

	r, err := repo.Create(ctx, author.ID, 5, "")
	require.NoError(t, err)

	likes := func() int {
		got, err := repo.ByUser(ctx, author.ID)
		require.NoError(t, err)
		return got.Likes
	}

	ok, err := repo.Unlike(ctx, r.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 0, likes())

	ok, err = repo.Like(ctx, r.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Like(ctx, r.ID, fan.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, likes())

	ok, err = repo.Unlike(ctx, r.ID, fan.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, likes())

	_, err = repo.Like(ctx, 9999, fan.ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)

	_, err = repo.Unlike(ctx, 9999, fan.ID)
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestReviewListAndStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	repo := &ReviewRepository{DB: db}
	ctx := context.Background()

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.AverageRating)
	assert.Zero(t, stats.ReviewsCount)

	a := testutil.CreateUser(t, db, "alice", "a@example.com")
	b := testutil.CreateUser(t, db, "bob", "b@example.com")
	c := testutil.CreateUser(t, db, "carol", "c@example.com")

	ra, err := repo.Create(ctx, a.ID, 5, "")
	require.NoError(t, err)
	rb, err := repo.Create(ctx, b.ID, 2, "")
	require.NoError(t, err)
	rc, err := repo.Create(ctx, c.ID, 4, "")
	require.NoError(t, err)

	_, err = repo.Like(ctx, rb.ID, a.ID)
	require.NoError(t, err)
	_, err = repo.Like(ctx, rb.ID, c.ID)
	require.NoError(t, err)
	_, err = repo.Like(ctx, rc.ID, a.ID)
	require.NoError(t, err)

	ids := func(entries []ReviewEntry) []uint {
		out := make([]uint, len(entries))
		for i, e := range entries {
			out[i] = e.ID
		}
		return out
	}

	highest, err := repo.List(ctx, "highest", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{ra.ID, rc.ID, rb.ID}, ids(highest))

	lowest, err := repo.List(ctx, "lowest", a.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{rb.ID, rc.ID, ra.ID}, ids(lowest))

	popular, err := repo.List(ctx, "popular", a.ID)
	require.NoError(t, err)
	assert.Equal(t, rb.ID, popular[0].ID)
	assert.Equal(t, "bob", popular[0].Username)
	assert.True(t, popular[0].UserHasLiked)
	assert.Equal(t, 2, popular[0].Likes)

	for _, e := range popular {
		if e.ID == ra.ID {
			assert.False(t, e.UserHasLiked)
		}
	}

	stats, err = repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3.7, stats.AverageRating)
	assert.EqualValues(t, 3, stats.ReviewsCount)
}
