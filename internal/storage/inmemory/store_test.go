package inmemory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// newTestStore создает хранилище с одним постом.
func newTestStore(t *testing.T) (*Store, *domain.Post) {
	t.Helper()
	store := New()
	ctx := context.Background()
	post, err := store.CreatePost(ctx, &domain.Post{
		AuthorID: "user-1",
		Title:    "Test Post",
		Content:  "Content",
		Status:   domain.PostStatusApproved,
	})
	require.NoError(t, err)
	return store, post
}

func TestStore_CreateAndGetPost(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	retrieved, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, post.Title, retrieved.Title)

	_, err = store.GetPostByID(ctx, "non-existent-id")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_GetReturnsCopies(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	// Правки на полученной записи не видны до Save.
	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	got.CommentCount = 42

	again, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, again.CommentCount)
}

func TestStore_CommentHierarchyIndexes(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	parent, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "user-2", Content: "Parent"})
	require.NoError(t, err)
	child, err := store.CreateComment(ctx, &domain.Comment{PostID: post.ID, ParentID: &parent.ID, AuthorID: "user-3", Content: "Child"})
	require.NoError(t, err)

	all, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byParent, err := store.GetCommentsByParentIDs(ctx, []string{parent.ID})
	require.NoError(t, err)
	require.Len(t, byParent[parent.ID], 1)
	assert.Equal(t, child.ID, byParent[parent.ID][0].ID)

	// Удаление чистит индексы.
	require.NoError(t, store.DeleteComment(ctx, child.ID))
	byParent, err = store.GetCommentsByParentIDs(ctx, []string{parent.ID})
	require.NoError(t, err)
	assert.Empty(t, byParent[parent.ID])
}

func TestStore_FindLike(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	target := domain.PostTarget(post.ID)
	_, err := store.FindLike(ctx, target, "user-2")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	like := &domain.Like{LikedBy: "user-2"}
	id := post.ID
	like.PostID = &id
	_, err = store.CreateLike(ctx, like)
	require.NoError(t, err)

	found, err := store.FindLike(ctx, target, "user-2")
	require.NoError(t, err)
	assert.Equal(t, like.ID, found.ID)
}

func TestStore_TransactionCommit(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()

	err := store.InTransaction(ctx, func(tx storage.Storage) error {
		p, err := tx.GetPostByID(ctx, post.ID)
		if err != nil {
			return err
		}
		p.CommentCount = 7
		return tx.SavePost(ctx, p)
	})
	require.NoError(t, err)

	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, got.CommentCount)
}

func TestStore_TransactionRollback(t *testing.T) {
	store, post := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := store.InTransaction(ctx, func(tx storage.Storage) error {
		p, err := tx.GetPostByID(ctx, post.ID)
		if err != nil {
			return err
		}
		p.CommentCount = 7
		if err := tx.SavePost(ctx, p); err != nil {
			return err
		}
		if _, err := tx.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: "u", Content: "doomed"}); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Ни одна запись транзакции не видна снаружи.
	got, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.CommentCount)

	comments, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestStore_FollowPeers(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	alice, err := store.CreateUser(ctx, &domain.User{UserName: "alice"})
	require.NoError(t, err)
	bob, err := store.CreateUser(ctx, &domain.User{UserName: "bob"})
	require.NoError(t, err)
	carol, err := store.CreateUser(ctx, &domain.User{UserName: "carol"})
	require.NoError(t, err)

	bob.Following = []domain.UserRef{{ID: alice.ID, UserName: alice.UserName}}
	require.NoError(t, store.SaveUser(ctx, bob))

	peers, err := store.GetFollowPeers(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, peers, 1)
	assert.Equal(t, bob.ID, peers[0].ID)
	_ = carol
}

func TestStore_DeleteNotificationsInvolving(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateNotification(ctx, &domain.Notification{UserID: "alice", ActorID: "bob", Message: "m", Kind: domain.NotificationLike})
	require.NoError(t, err)
	_, err = store.CreateNotification(ctx, &domain.Notification{UserID: "carol", ActorID: "alice", Message: "m", Kind: domain.NotificationFollow})
	require.NoError(t, err)
	keep, err := store.CreateNotification(ctx, &domain.Notification{UserID: "carol", ActorID: "bob", Message: "m", Kind: domain.NotificationComment})
	require.NoError(t, err)

	require.NoError(t, store.DeleteNotificationsInvolving(ctx, "alice"))

	left, err := store.GetNotificationsByUser(ctx, "carol")
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, keep.ID, left[0].ID)

	none, err := store.GetNotificationsByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, none)
}
