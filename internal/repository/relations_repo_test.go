package repository

import (
	"context"
	"testing"

	"Orion_Tube/internal/apperr"
	"Orion_Tube/internal/model"
	"Orion_Tube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLikeRepository(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	v := testutil.CreateVideo(t, db, alice, "a", true)
	repo := NewLikeRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &model.Like{UserID: bob.ID, VideoID: v.ID}))
	err := repo.Create(ctx, &model.Like{UserID: bob.ID, VideoID: v.ID})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	n, err := repo.CountByVideo(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	liked, err := repo.Exists(ctx, bob.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	liked, err = repo.Exists(ctx, alice.ID, v.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	removed, err := repo.Delete(ctx, bob.ID, v.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = repo.Delete(ctx, bob.ID, v.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSubscriptionRepository_Toggle(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")
	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	on, err := repo.Toggle(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, on)
	_, err = repo.Toggle(ctx, carol.ID, alice.ID)
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, bob.ID, carol.ID)
	require.NoError(t, err)

	n, err := repo.CountSubscribers(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = repo.CountSubscribedTo(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	sub, err := repo.IsSubscribed(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, sub)

	on, err = repo.Toggle(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, on)
	sub, err = repo.IsSubscribed(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, sub)
}

func TestWatchHistoryRepository_AddIsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	v1 := testutil.CreateVideo(t, db, alice, "one", true)
	v2 := testutil.CreateVideo(t, db, alice, "two", true)
	repo := NewWatchHistoryRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Add(ctx, bob.ID, v1.ID))
	}
	require.NoError(t, repo.Add(ctx, bob.ID, v2.ID))

	var n int64
	db.Model(&model.WatchHistory{}).Where("user_id = ?", bob.ID).Count(&n)
	assert.Equal(t, int64(2), n)

	videos, err := repo.ListVideos(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, videos, 2)
	assert.Equal(t, "two", videos[0].Title)
	assert.Equal(t, "alice", videos[0].Owner.Username)

	// 视频改回草稿后不再出现在别人的历史里
	db.Model(&model.Video{}).Where("id = ?", v2.ID).Update("is_published", false)
	videos, err = repo.ListVideos(ctx, bob.ID)
	require.NoError(t, err)
	assert.Len(t, videos, 1)
}

func TestCommentRepository_ListByVideo(t *testing.T) {
	db := testutil.NewDB(t)
	alice := testutil.CreateUser(t, db, "alice")
	v := testutil.CreateVideo(t, db, alice, "a", true)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	for _, c := range []string{"first", "second", "third"} {
		require.NoError(t, repo.Create(ctx, &model.Comment{VideoID: v.ID, UserID: alice.ID, Content: c}))
	}

	page, total, err := repo.ListByVideo(ctx, v.ID, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "third", page[0].Content)
	assert.Equal(t, "alice", page[0].User.Username)

	require.NoError(t, repo.DeleteByVideo(ctx, v.ID))
	_, total, err = repo.ListByVideo(ctx, v.ID, 0, 2)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUserRepository_UsernameIsCaseInsensitive(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := &model.User{Username: "  Alice ", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, "alice", u.Username)

	got, err := repo.FindByUsername(ctx, "ALICE")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	err = repo.Create(ctx, &model.User{Username: "alice", Password: "hash"})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = repo.FindByUsername(ctx, "nobody")
	assert.True(t, apperr.IsNotFound(err))
}

func TestUserRepository_FindByLogin(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &model.User{Username: "Dave", Password: "x", Email: "dave@example.com"}))

	tests := []struct {
		name     string
		username string
		email    string
		found    bool
	}{
		{name: "username", username: "DAVE", found: true},
		{name: "email", email: " Dave@Example.com ", found: true},
		{name: "either matches", username: "nobody", email: "dave@example.com", found: true},
		{name: "neither", username: "nobody", email: "x@y.io"},
		{name: "both empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := repo.FindByLogin(ctx, tt.username, tt.email)
			if !tt.found {
				assert.True(t, apperr.IsNotFound(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "dave", u.Username)
		})
	}
}

func TestUserRepository_UpdateOnlyNamedColumns(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := testutil.CreateUser(t, db, "alice")

	u.FullName = "Alice A"
	u.Email = "not-saved@x.io"
	require.NoError(t, repo.Update(ctx, u, "full_name"))

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Alice A", got.FullName)
	assert.Empty(t, got.Email)

	// 值没变也不报错
	require.NoError(t, repo.Update(ctx, got, "full_name"))
	require.NoError(t, repo.Update(ctx, got))
}
