package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whirlpost/blog-engine/internal/domain"
)

func adminActor(t *testing.T, e *Engine) Actor {
	t.Helper()
	admin, err := e.CreateUser(context.Background(), "moderator", domain.RoleAdmin)
	require.NoError(t, err)
	return Actor{ID: admin.ID, Role: domain.RoleAdmin}
}

func TestToggleSuspension_AdminOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, post := seedPost(t, engine)

	_, err := engine.ToggleSuspension(context.Background(), Actor{ID: reader.ID, Role: domain.RoleUser}, SuspendPost, post.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestToggleSuspension_NoSelfSuspension(t *testing.T) {
	engine, _ := newTestEngine(t)
	admin := adminActor(t, engine)

	_, err := engine.ToggleSuspension(context.Background(), admin, SuspendUser, admin.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestToggleSuspension_RoundTrip(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, _, post := seedPost(t, engine)
	admin := adminActor(t, engine)
	ctx := context.Background()

	res, err := engine.ToggleSuspension(ctx, admin, SuspendPost, post.ID)
	require.NoError(t, err)
	assert.True(t, res.IsSuspended)
	assert.Equal(t, "suspended", res.Message)

	res, err = engine.ToggleSuspension(ctx, admin, SuspendPost, post.ID)
	require.NoError(t, err)
	assert.False(t, res.IsSuspended)
	assert.Equal(t, "unsuspended", res.Message)
}

func TestSuspension_Visibility(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	admin := adminActor(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "still visible flag-wise")
	require.NoError(t, err)
	_ = author

	_, err = engine.ToggleSuspension(ctx, admin, SuspendPost, post.ID)
	require.NoError(t, err)

	// Пост пропадает из ленты...
	feed, err := engine.Feed(ctx, 1, 10)
	require.NoError(t, err)
	for _, p := range feed {
		assert.NotEqual(t, post.ID, p.ID)
	}

	// ...и из обычного чтения, но виден в админском списке.
	_, err = engine.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	suspended, err := engine.SuspendedPosts(ctx, admin)
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.Equal(t, post.ID, suspended[0].ID)

	// Дерево комментариев обычным путем недоступно.
	_, err = engine.GetComments(ctx, post.ID, reader.ID, 1, 10, false)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Каскада на флаги детей нет: комментарий сам по себе не
	// саспенджен, он скрыт лишь потому, что скрыт пост.
	comment, err := store.GetCommentByID(ctx, node.ID)
	require.NoError(t, err)
	assert.False(t, comment.IsSuspended)
}

func TestSuspendedComment_ExcludedFromTree(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, post := seedPost(t, engine)
	admin := adminActor(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "to be hidden")
	require.NoError(t, err)
	_, err = engine.ToggleSuspension(ctx, admin, SuspendComment, node.ID)
	require.NoError(t, err)

	page, err := engine.GetComments(ctx, post.ID, reader.ID, 1, 10, false)
	require.NoError(t, err)
	assert.Empty(t, page.Comments)

	listed, err := engine.SuspendedComments(ctx, admin)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, node.ID, listed[0].ID)
}

func TestSuspendedUser_StillDeletableContent(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, post := seedPost(t, engine)
	admin := adminActor(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "mine")
	require.NoError(t, err)
	_, err = engine.ToggleSuspension(ctx, admin, SuspendComment, node.ID)
	require.NoError(t, err)

	// Саспенд и удаление ортогональны: автор удаляет и
	// саспендженный комментарий.
	require.NoError(t, engine.DeleteComment(ctx, reader.ID, node.ID))
}
