package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whirlpost/blog-engine/internal/domain"
)

func TestFollow_Symmetry(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	alice, err := engine.CreateUser(ctx, "alice", domain.RoleUser)
	require.NoError(t, err)
	bob, err := engine.CreateUser(ctx, "bob", domain.RoleUser)
	require.NoError(t, err)

	require.NoError(t, engine.Follow(ctx, alice.ID, bob.ID))

	// Обе денормализованные ссылки на месте.
	aliceNow, err := store.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceNow.Following, 1)
	assert.Equal(t, bob.ID, aliceNow.Following[0].ID)

	bobNow, err := store.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, bobNow.Followers, 1)
	assert.Equal(t, alice.ID, bobNow.Followers[0].ID)

	ns := waitNotifications(t, engine, bob.ID, 1)
	assert.Equal(t, domain.NotificationFollow, ns[0].Kind)

	// Повторная подписка - ошибка валидации.
	err = engine.Follow(ctx, alice.ID, bob.ID)
	assert.ErrorIs(t, err, domain.ErrValidation)

	require.NoError(t, engine.Unfollow(ctx, alice.ID, bob.ID))
	aliceNow, err = store.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, aliceNow.Following)
	bobNow, err = store.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobNow.Followers)
}

func TestFollow_SelfTarget(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	alice, err := engine.CreateUser(ctx, "alice", domain.RoleUser)
	require.NoError(t, err)

	err = engine.Follow(ctx, alice.ID, alice.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDeleteAccount_Cascade(t *testing.T) {
	engine, store := newTestEngine(t)
	ctx := context.Background()

	admin, err := engine.CreateUser(ctx, "admin", domain.RoleAdmin)
	require.NoError(t, err)
	adminActor := Actor{ID: admin.ID, Role: domain.RoleAdmin}
	alice, err := engine.CreateUser(ctx, "alice", domain.RoleUser)
	require.NoError(t, err)
	bob, err := engine.CreateUser(ctx, "bob", domain.RoleUser)
	require.NoError(t, err)

	// Пост Алисы с комментарием Боба.
	alicePost, err := engine.CreatePost(ctx, alice.ID, PostInput{Title: "Alice's post", Content: "body"})
	require.NoError(t, err)
	_, err = engine.ApprovePost(ctx, adminActor, alicePost.ID)
	require.NoError(t, err)
	bobComment, err := engine.CreateComment(ctx, bob.ID, alicePost.ID, "nice")
	require.NoError(t, err)

	// Пост Боба: корневой комментарий Алисы, под ним ответ Боба.
	bobPost, err := engine.CreatePost(ctx, bob.ID, PostInput{Title: "Bob's post", Content: "body"})
	require.NoError(t, err)
	_, err = engine.ApprovePost(ctx, adminActor, bobPost.ID)
	require.NoError(t, err)
	aliceComment, err := engine.CreateComment(ctx, alice.ID, bobPost.ID, "hello")
	require.NoError(t, err)
	bobReply, err := engine.CreateReply(ctx, bob.ID, aliceComment.ID, "hi back")
	require.NoError(t, err)

	// Лайк и подписки Алисы.
	_, err = engine.ToggleLike(ctx, alice.ID, domain.PostTarget(bobPost.ID))
	require.NoError(t, err)
	require.NoError(t, engine.Follow(ctx, alice.ID, bob.ID))
	require.NoError(t, engine.Follow(ctx, bob.ID, alice.ID))

	// Дожидаемся асинхронных уведомлений до каскада, чтобы поздняя
	// горутина не воскресила запись после чистки.
	waitNotifications(t, engine, bob.ID, 3) // комментарий, лайк, подписка Алисы

	require.NoError(t, engine.DeleteAccount(ctx, alice.ID))

	// (g) Пользователь удален.
	_, err = store.GetUserByID(ctx, alice.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// (b) Пост Алисы исчез вместе с комментарием Боба.
	_, err = store.GetPostByID(ctx, alicePost.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetCommentByID(ctx, bobComment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// (c) Комментарий Алисы на чужом посте удален и отцеплен, счетчик
	// поста Боба уменьшился на корневой комментарий.
	_, err = store.GetCommentByID(ctx, aliceComment.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	bobPostNow, err := store.GetPostByID(ctx, bobPost.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bobPostNow.CommentCount)
	assert.NotContains(t, bobPostNow.CommentRefs, aliceComment.ID)

	// Ответ Боба НЕ удален рекурсивно - он осиротел.
	orphan, err := store.GetCommentByID(ctx, bobReply.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceComment.ID, *orphan.ParentID)

	// (d) Лайк Алисы вычищен из кеша поста.
	assert.Empty(t, bobPostNow.LikeRefs)

	// (e) Подписочные ссылки на Алису вычищены у Боба.
	bobNow, err := store.GetUserByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, bobNow.Followers)
	assert.Empty(t, bobNow.Following)

	// (f) Уведомления с участием Алисы исчезли.
	ns, err := engine.Notifications(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, ns)
}

func TestDeleteAccount_OrphanPromotedInTree(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()

	admin, err := engine.CreateUser(ctx, "admin", domain.RoleAdmin)
	require.NoError(t, err)
	alice, err := engine.CreateUser(ctx, "alice", domain.RoleUser)
	require.NoError(t, err)
	bob, err := engine.CreateUser(ctx, "bob", domain.RoleUser)
	require.NoError(t, err)

	post, err := engine.CreatePost(ctx, bob.ID, PostInput{Title: "Bob's post", Content: "body"})
	require.NoError(t, err)
	_, err = engine.ApprovePost(ctx, Actor{ID: admin.ID, Role: domain.RoleAdmin}, post.ID)
	require.NoError(t, err)

	parent, err := engine.CreateComment(ctx, alice.ID, post.ID, "parent")
	require.NoError(t, err)
	reply, err := engine.CreateReply(ctx, bob.ID, parent.ID, "reply")
	require.NoError(t, err)

	require.NoError(t, engine.DeleteAccount(ctx, alice.ID))

	// Родитель исчез из-под ответа; сборщик дерева поднимает
	// сироту на верхний уровень вместо потери.
	page, err := engine.GetComments(ctx, post.ID, bob.ID, 1, 10, false)
	require.NoError(t, err)
	require.Len(t, page.Comments, 1)
	assert.Equal(t, reply.ID, page.Comments[0].ID)
}

func TestDeletePost_Cascade(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "gone soon")
	require.NoError(t, err)
	_, err = engine.ToggleLike(ctx, reader.ID, domain.PostTarget(post.ID))
	require.NoError(t, err)
	_, err = engine.ToggleLike(ctx, author.ID, domain.CommentTarget(node.ID))
	require.NoError(t, err)

	// Не автор удалить не может.
	err = engine.DeletePost(ctx, reader.ID, post.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, engine.DeletePost(ctx, author.ID, post.ID))

	_, err = store.GetPostByID(ctx, post.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = store.GetCommentByID(ctx, node.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	likes, err := store.GetLikesByUser(ctx, reader.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)
	likes, err = store.GetLikesByUser(ctx, author.ID)
	require.NoError(t, err)
	assert.Empty(t, likes)
}
