package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whirlpost/blog-engine/internal/domain"
)

func TestCreateComment_IncrementsCounter(t *testing.T) {
	engine, store := newTestEngine(t)
	_, reader, post := seedPost(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "First!")
	require.NoError(t, err)
	assert.NotEmpty(t, node.ID)
	assert.Nil(t, node.ParentID)

	updated, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.CommentCount)
	assert.Contains(t, updated.CommentRefs, node.ID)
}

func TestCreateComment_EmptyContent(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, post := seedPost(t, engine)

	_, err := engine.CreateComment(context.Background(), reader.ID, post.ID, "   ")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateComment_TooLong(t *testing.T) {
	engine, _ := newTestEngine(t)
	_, reader, post := seedPost(t, engine)

	_, err := engine.CreateComment(context.Background(), reader.ID, post.ID, strings.Repeat("a", 2001))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateReply_LinksParent(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	root, err := engine.CreateComment(ctx, reader.ID, post.ID, "Parent")
	require.NoError(t, err)
	reply, err := engine.CreateReply(ctx, author.ID, root.ID, "Child")
	require.NoError(t, err)

	parent, err := store.GetCommentByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Contains(t, parent.Replies, reply.ID)

	// Ответ идет в счетчик поста, но не в его корневой список.
	updated, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.CommentCount)
	assert.NotContains(t, updated.CommentRefs, reply.ID)
}

func TestCreateReply_DepthLimit(t *testing.T) {
	engine, store := newTestEngine(t)
	_, reader, post := seedPost(t, engine)
	ctx := context.Background()

	// Корень - глубина 0; разрешено до глубины 5 включительно.
	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "depth 0")
	require.NoError(t, err)
	for depth := 1; depth <= domain.MaxReplyDepth; depth++ {
		node, err = engine.CreateReply(ctx, reader.ID, node.ID, "reply")
		require.NoError(t, err, "depth %d must be allowed", depth)
	}

	before, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)

	_, err = engine.CreateReply(ctx, reader.ID, node.ID, "one too deep")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Отказ не оставляет следов в коллекции.
	after, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestDeleteComment_CascadesSubtree(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	// C1 <- C2 <- C3, лайки на C2 и C3.
	c1, err := engine.CreateComment(ctx, reader.ID, post.ID, "C1")
	require.NoError(t, err)
	c2, err := engine.CreateReply(ctx, author.ID, c1.ID, "C2")
	require.NoError(t, err)
	c3, err := engine.CreateReply(ctx, reader.ID, c2.ID, "C3")
	require.NoError(t, err)

	_, err = engine.ToggleLike(ctx, reader.ID, domain.CommentTarget(c2.ID))
	require.NoError(t, err)
	_, err = engine.ToggleLike(ctx, author.ID, domain.CommentTarget(c3.ID))
	require.NoError(t, err)

	mid, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	require.Equal(t, 3, mid.CommentCount)

	require.NoError(t, engine.DeleteComment(ctx, reader.ID, c1.ID))

	// Все поддерево исчезло, счетчик вернулся к нулю.
	updated, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CommentCount)
	assert.NotContains(t, updated.CommentRefs, c1.ID)

	for _, id := range []string{c1.ID, c2.ID, c3.ID} {
		_, err := store.GetCommentByID(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}

	likes, err := store.GetLikesByCommentIDs(ctx, []string{c1.ID, c2.ID, c3.ID})
	require.NoError(t, err)
	for _, id := range []string{c1.ID, c2.ID, c3.ID} {
		assert.Empty(t, likes[id])
	}
}

func TestCreateReply_ConcurrentSiblings(t *testing.T) {
	engine, store := newTestEngine(t)
	_, reader, post := seedPost(t, engine)
	ctx := context.Background()

	root, err := engine.CreateComment(ctx, reader.ID, post.ID, "Parent")
	require.NoError(t, err)

	// Одновременные ответы на один родительский комментарий не
	// должны затирать записи друг друга в parent.Replies.
	const n = 8
	replyIDs := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			node, err := engine.CreateReply(ctx, reader.ID, root.ID, "sibling")
			assert.NoError(t, err)
			if node != nil {
				replyIDs[i] = node.ID
			}
		}(i)
	}
	wg.Wait()

	parent, err := store.GetCommentByID(ctx, root.ID)
	require.NoError(t, err)
	require.Len(t, parent.Replies, n)
	for _, id := range replyIDs {
		assert.Contains(t, parent.Replies, id)
	}

	updated, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, n+1, updated.CommentCount)
}

func TestDeleteComment_ConcurrentReply(t *testing.T) {
	engine, store := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	root, err := engine.CreateComment(ctx, reader.ID, post.ID, "Parent")
	require.NoError(t, err)

	// Ответ наперегонки с удалением родителя: либо ответ успел и
	// каскад снес его вместе с корнем, либо удаление пришло первым
	// и ответ получил ErrNotFound. В обоих исходах пост остается
	// без комментариев и без висячих ссылок.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := engine.CreateReply(ctx, author.ID, root.ID, "racer"); err != nil {
			assert.ErrorIs(t, err, domain.ErrNotFound)
		}
	}()
	go func() {
		defer wg.Done()
		assert.NoError(t, engine.DeleteComment(ctx, reader.ID, root.ID))
	}()
	wg.Wait()

	left, err := store.GetCommentsByPostID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	updated, err := store.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, updated.CommentCount)
	assert.Empty(t, updated.CommentRefs)
}

func TestDeleteComment_AuthorOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "mine")
	require.NoError(t, err)

	err = engine.DeleteComment(ctx, author.ID, node.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestUpdateComment_AuthorOnly(t *testing.T) {
	engine, _ := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()

	node, err := engine.CreateComment(ctx, reader.ID, post.ID, "original")
	require.NoError(t, err)

	_, err = engine.UpdateComment(ctx, author.ID, node.ID, "hijacked")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := engine.UpdateComment(ctx, reader.ID, node.ID, "edited")
	require.NoError(t, err)
	assert.Equal(t, "edited", updated.Content)
}

func TestBuildTree_OrphanPromotion(t *testing.T) {
	missing := "no-such-parent"
	now := time.Now().UTC()
	flat := []*domain.Comment{
		{ID: "a", Content: "root", CreatedAt: now},
		{ID: "b", ParentID: &missing, Content: "orphan", CreatedAt: now.Add(time.Second)},
	}

	roots := BuildTree(flat, map[string][]*domain.Like{}, "actor")

	// Сирота поднимается на верхний уровень, а не теряется.
	require.Len(t, roots, 2)
	ids := []string{roots[0].ID, roots[1].ID}
	assert.Contains(t, ids, "a")
	assert.Contains(t, ids, "b")
}

func TestBuildTree_LikeState(t *testing.T) {
	flat := []*domain.Comment{
		{ID: "a", Content: "root", LikeRefs: []string{"l1", "l2"}},
	}
	likes := map[string][]*domain.Like{
		"a": {{ID: "l1", LikedBy: "me"}, {ID: "l2", LikedBy: "other"}},
	}

	roots := BuildTree(flat, likes, "me")
	require.Len(t, roots, 1)
	assert.Equal(t, 2, roots[0].LikeCount)
	assert.True(t, roots[0].IsLiked)

	roots = BuildTree(flat, likes, "stranger")
	assert.False(t, roots[0].IsLiked)
}

func TestGetComments_PaginationAndFiltering(t *testing.T) {
	engine, _ := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()
	admin, err := engine.CreateUser(ctx, "mod", domain.RoleAdmin)
	require.NoError(t, err)

	var rootIDs []string
	for i := 0; i < 3; i++ {
		node, err := engine.CreateComment(ctx, reader.ID, post.ID, "top-level")
		require.NoError(t, err)
		rootIDs = append(rootIDs, node.ID)
	}
	_, err = engine.CreateReply(ctx, author.ID, rootIDs[0], "nested")
	require.NoError(t, err)

	// Саспендим один корневой комментарий.
	_, err = engine.ToggleSuspension(ctx, Actor{ID: admin.ID, Role: domain.RoleAdmin}, SuspendComment, rootIDs[2])
	require.NoError(t, err)

	page, err := engine.GetComments(ctx, post.ID, reader.ID, 1, 10, false)
	require.NoError(t, err)
	assert.Len(t, page.Comments, 2)
	assert.Equal(t, 3, page.TotalComments) // 2 видимых корня + ответ
	assert.Equal(t, 1, page.TotalPages)

	// Модераторский вариант видит и саспендженный корень.
	modPage, err := engine.GetComments(ctx, post.ID, admin.ID, 1, 10, true)
	require.NoError(t, err)
	assert.Len(t, modPage.Comments, 3)

	// Пагинация по корневым узлам.
	small, err := engine.GetComments(ctx, post.ID, reader.ID, 1, 1, false)
	require.NoError(t, err)
	assert.Len(t, small.Comments, 1)
	assert.Equal(t, 2, small.TotalPages)
}

func TestGetReplies_FiltersAndLikeState(t *testing.T) {
	engine, _ := newTestEngine(t)
	author, reader, post := seedPost(t, engine)
	ctx := context.Background()
	admin, err := engine.CreateUser(ctx, "mod", domain.RoleAdmin)
	require.NoError(t, err)

	root, err := engine.CreateComment(ctx, reader.ID, post.ID, "Parent")
	require.NoError(t, err)
	visible, err := engine.CreateReply(ctx, author.ID, root.ID, "visible")
	require.NoError(t, err)
	hidden, err := engine.CreateReply(ctx, author.ID, root.ID, "hidden")
	require.NoError(t, err)

	_, err = engine.ToggleLike(ctx, reader.ID, domain.CommentTarget(visible.ID))
	require.NoError(t, err)
	_, err = engine.ToggleSuspension(ctx, Actor{ID: admin.ID, Role: domain.RoleAdmin}, SuspendComment, hidden.ID)
	require.NoError(t, err)

	replies, err := engine.GetReplies(ctx, root.ID, reader.ID)
	require.NoError(t, err)
	require.Len(t, replies, 1)
	assert.Equal(t, visible.ID, replies[0].ID)
	assert.Equal(t, 1, replies[0].LikeCount)
	assert.True(t, replies[0].IsLiked)

	other, err := engine.GetReplies(ctx, root.ID, author.ID)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.False(t, other[0].IsLiked)
}
