package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whirlpost/blog-engine/internal/domain"
)

// waitNotifications дожидается асинхронной рассылки: уведомления
// уходят в горутине уже после коммита мутации.
func waitNotifications(t *testing.T, e *Engine, userID string, want int) []*domain.Notification {
	t.Helper()
	var ns []*domain.Notification
	require.Eventually(t, func() bool {
		var err error
		ns, err = e.Notifications(context.Background(), userID)
		return err == nil && len(ns) == want
	}, time.Second, 10*time.Millisecond)
	return ns
}

func TestToggleLike_RoundTrip(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	// Лайк: счетчик 0 -> 1, уведомление автору.
	res, err := engine.ToggleLike(ctx, reader.ID, domain.PostTarget(post.ID))
	require.NoError(t, err)
	assert.True(t, res.IsLiked)
	assert.Equal(t, 1, res.LikeCount)

	ns := waitNotifications(t, engine, author.ID, 1)
	assert.Equal(t, domain.NotificationLike, ns[0].Kind)
	assert.Equal(t, reader.ID, ns[0].ActorID)

	// Повторный вызов снимает лайк и не шлет второго уведомления.
	res, err = engine.ToggleLike(ctx, reader.ID, domain.PostTarget(post.ID))
	require.NoError(t, err)
	assert.False(t, res.IsLiked)
	assert.Equal(t, 0, res.LikeCount)

	updated, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, updated.LikeRefs)

	ns, err = engine.Notifications(ctx, author.ID)
	require.NoError(t, err)
	assert.Len(t, ns, 1)
}

func TestToggleLike_SelfLikeNoNotification(t *testing.T) {
	engine, _ := newTestEngine(t)
	author, _, post := seedPost(t, engine)
	ctx := context.Background()

	res, err := engine.ToggleLike(ctx, author.ID, domain.PostTarget(post.ID))
	require.NoError(t, err)
	assert.True(t, res.IsLiked)

	// Даем горутине рассылки шанс отработать, если бы она была.
	time.Sleep(50 * time.Millisecond)
	ns, err := engine.Notifications(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestToggleLike_CommentTarget(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, author.ID, post.ID, "like me")
	require.NoError(t, err)

	res, err := engine.ToggleLike(ctx, reader.ID, domain.CommentTarget(node.ID))
	require.NoError(t, err)
	assert.True(t, res.IsLiked)
	assert.Equal(t, 1, res.LikeCount)

	comment, err := store.GetCommentByID(ctx, node.ID)
	require.NoError(t, err)
	assert.Len(t, comment.LikeRefs, 1)
}

func TestToggleLike_InvalidTarget(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, _ := seedPost(t, engine)

	_, err := engine.ToggleLike(context.Background(), reader.ID, domain.LikeTarget{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestToggleLike_SuspendedTarget(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, post := seedPost(t, engine)
	ctx := context.Background()
	admin, err := engine.CreateUser(ctx, "mod", domain.RoleAdmin)
	require.NoError(t, err)

	_, err = engine.ToggleSuspension(ctx, Actor{ID: admin.ID, Role: domain.RoleAdmin}, SuspendPost, post.ID)
	require.NoError(t, err)

	// Саспендженная цель неотличима от отсутствующей.
	_, err = engine.ToggleLike(ctx, reader.ID, domain.PostTarget(post.ID))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestToggleLike_MissingTarget(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, _ := seedPost(t, engine)

	_, err := engine.ToggleLike(context.Background(), reader.ID, domain.PostTarget("no-such-post"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
