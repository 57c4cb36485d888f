package service

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage/inmemory"
)

// newTestEngine создает ядро поверх in-memory хранилища.
func newTestEngine(t *testing.T) (*Engine, *inmemory.Store) {
	t.Helper()
	store := inmemory.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := NewEngine(store, &NoopMediaStore{}, NewNotifier(store, logger), logger)
	return engine, store
}

// seedPost создает автора, читателя и одобренный пост автора.
func seedPost(t *testing.T, e *Engine) (author, reader *domain.User, post *domain.Post) {
	t.Helper()
	ctx := context.Background()

	admin, err := e.CreateUser(ctx, "admin", domain.RoleAdmin)
	require.NoError(t, err)
	author, err = e.CreateUser(ctx, "author", domain.RoleUser)
	require.NoError(t, err)
	reader, err = e.CreateUser(ctx, "reader", domain.RoleUser)
	require.NoError(t, err)

	post, err = e.CreatePost(ctx, author.ID, PostInput{
		Title:   "Test Post",
		Content: "Content",
	})
	require.NoError(t, err)
	post, err = e.ApprovePost(ctx, Actor{ID: admin.ID, Role: domain.RoleAdmin}, post.ID)
	require.NoError(t, err)
	return author, reader, post
}
