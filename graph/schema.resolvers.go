package graph

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/whirlpost/blog-engine/graph/generated"
	"github.com/whirlpost/blog-engine/graph/model"
	"github.com/whirlpost/blog-engine/internal/auth"
	"github.com/whirlpost/blog-engine/internal/dataloader"
	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/service"

	gopherloader "github.com/graph-gophers/dataloader"
)

// requireActor достает действующее лицо; мутации без него не идут.
func requireActor(ctx context.Context) (service.Actor, error) {
	actor := auth.FromContext(ctx)
	if actor.ID == "" {
		return service.Actor{}, fmt.Errorf("%w: authentication required", domain.ErrForbidden)
	}
	return actor, nil
}

func pageArgs(page, limit *int) (int, int) {
	p, l := 1, 10
	if page != nil {
		p = *page
	}
	if limit != nil {
		l = *limit
	}
	return p, l
}

// === Comment Resolvers ===

// Replies резолвер для дочерних комментариев.
// Узлы из собранного дерева приходят с уже материализованными
// ответами; для остальных спускаемся на уровень ниже через
// Dataloader - один батч-запрос на уровень, глубина ограничена
// инвариантом вложенности.
func (r *commentResolver) Replies(ctx context.Context, obj *domain.CommentNode) ([]*domain.CommentNode, error) {
	if obj.Replies != nil {
		return obj.Replies, nil
	}

	loaders := dataloader.For(ctx)
	res, err := loaders.RepliesByParentID.Load(ctx, gopherloader.StringKey(obj.ID))()
	if err != nil {
		return nil, fmt.Errorf("failed to load replies: %w", err)
	}
	children, _ := res.([]*domain.Comment)
	children = lo.Filter(children, func(c *domain.Comment, _ int) bool { return !c.IsSuspended })

	actor := auth.FromContext(ctx)
	nodes := make([]*domain.CommentNode, len(children))
	for i, c := range children {
		isLiked := false
		if likesRes, err := loaders.LikesByCommentID.Load(ctx, gopherloader.StringKey(c.ID))(); err == nil {
			likes, _ := likesRes.([]*domain.Like)
			isLiked = lo.SomeBy(likes, func(l *domain.Like) bool { return l.LikedBy == actor.ID })
		}
		nodes[i] = &domain.CommentNode{
			Comment:   c,
			LikeCount: len(c.LikeRefs),
			IsLiked:   isLiked,
			// Replies нарочно nil: следующий уровень загрузит
			// этот же резолвер.
		}
	}
	return nodes, nil
}

// === User Resolvers ===

func (r *userResolver) Role(ctx context.Context, obj *domain.User) (string, error) {
	return string(obj.Role), nil
}

// === SuspensionResult Resolvers ===

func (r *suspensionResultResolver) Kind(ctx context.Context, obj *service.SuspensionResult) (string, error) {
	return string(obj.Kind), nil
}

// === Notification Resolvers ===

func (r *notificationResolver) Type(ctx context.Context, obj *domain.Notification) (string, error) {
	return string(obj.Kind), nil
}

// === Post Resolvers ===

func (r *postResolver) Status(ctx context.Context, obj *domain.Post) (string, error) {
	return string(obj.Status), nil
}

func (r *postResolver) LikeCount(ctx context.Context, obj *domain.Post) (int, error) {
	return len(obj.LikeRefs), nil
}

func (r *postResolver) Comments(ctx context.Context, obj *domain.Post, page, limit *int) (*service.CommentPage, error) {
	p, l := pageArgs(page, limit)
	actor := auth.FromContext(ctx)
	return r.Engine.GetComments(ctx, obj.ID, actor.ID, p, l, false)
}

// === Mutation Resolvers ===

func (r *mutationResolver) CreateUser(ctx context.Context, userName string, role *string) (*domain.User, error) {
	var userRole domain.Role
	if role != nil {
		userRole = domain.Role(*role)
	}
	return r.Engine.CreateUser(ctx, userName, userRole)
}

func (r *mutationResolver) FollowUser(ctx context.Context, id string) (bool, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Engine.Follow(ctx, actor.ID, id); err != nil {
		return false, err
	}
	return true, nil
}

func (r *mutationResolver) UnfollowUser(ctx context.Context, id string) (bool, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Engine.Unfollow(ctx, actor.ID, id); err != nil {
		return false, err
	}
	return true, nil
}

func (r *mutationResolver) DeleteAccount(ctx context.Context) (bool, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Engine.DeleteAccount(ctx, actor.ID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *mutationResolver) CreatePost(ctx context.Context, input model.NewPost) (*domain.Post, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	in := service.PostInput{
		Title:   input.Title,
		Content: input.Content,
		Tags:    input.Tags,
	}
	if input.Category != nil {
		in.Category = *input.Category
	}
	if input.ImageURL != nil {
		in.ImageURL = *input.ImageURL
	}
	return r.Engine.CreatePost(ctx, actor.ID, in)
}

func (r *mutationResolver) ApprovePost(ctx context.Context, id string) (*domain.Post, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.ApprovePost(ctx, actor, id)
}

func (r *mutationResolver) DeletePost(ctx context.Context, id string) (bool, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Engine.DeletePost(ctx, actor.ID, id); err != nil {
		return false, err
	}
	return true, nil
}

func (r *mutationResolver) CreateComment(ctx context.Context, postID, content string) (*domain.CommentNode, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	node, err := r.Engine.CreateComment(ctx, actor.ID, postID, content)
	if err != nil {
		return nil, err
	}
	// Асинхронно уведомляем подписчиков поста.
	go r.Comments.publish(node.PostID, node)
	return node, nil
}

func (r *mutationResolver) CreateReply(ctx context.Context, parentCommentID, content string) (*domain.CommentNode, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	node, err := r.Engine.CreateReply(ctx, actor.ID, parentCommentID, content)
	if err != nil {
		return nil, err
	}
	go r.Comments.publish(node.PostID, node)
	return node, nil
}

func (r *mutationResolver) UpdateComment(ctx context.Context, commentID, content string) (*domain.CommentNode, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.UpdateComment(ctx, actor.ID, commentID, content)
}

func (r *mutationResolver) DeleteComment(ctx context.Context, commentID string) (bool, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Engine.DeleteComment(ctx, actor.ID, commentID); err != nil {
		return false, err
	}
	return true, nil
}

func (r *mutationResolver) ToggleLike(ctx context.Context, postID, commentID *string) (*service.ToggleLikeResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	// Ровно одна из двух целей.
	var target domain.LikeTarget
	switch {
	case postID != nil && commentID != nil:
		return nil, fmt.Errorf("%w: exactly one of postId or commentId must be set", domain.ErrValidation)
	case postID != nil:
		target = domain.PostTarget(*postID)
	case commentID != nil:
		target = domain.CommentTarget(*commentID)
	}

	result, err := r.Engine.ToggleLike(ctx, actor.ID, target)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (r *mutationResolver) ToggleSuspension(ctx context.Context, kind, id string) (*service.SuspensionResult, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.ToggleSuspension(ctx, actor, service.SuspensionKind(kind), id)
}

func (r *mutationResolver) MarkNotificationRead(ctx context.Context, id string) (*domain.Notification, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.MarkNotificationRead(ctx, actor.ID, id)
}

func (r *mutationResolver) DeleteNotification(ctx context.Context, id string) (bool, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return false, err
	}
	if err := r.Engine.DeleteNotification(ctx, actor.ID, id); err != nil {
		return false, err
	}
	return true, nil
}

// === Query Resolvers ===

func (r *queryResolver) Feed(ctx context.Context, page, limit *int) ([]*domain.Post, error) {
	p, l := pageArgs(page, limit)
	return r.Engine.Feed(ctx, p, l)
}

func (r *queryResolver) Post(ctx context.Context, id string) (*domain.Post, error) {
	return r.Engine.GetPost(ctx, id)
}

func (r *queryResolver) Comments(ctx context.Context, postID string, page, limit *int) (*service.CommentPage, error) {
	p, l := pageArgs(page, limit)
	actor := auth.FromContext(ctx)
	return r.Engine.GetComments(ctx, postID, actor.ID, p, l, false)
}

// Replies раскрывает следующий уровень ветки по запросу клиента,
// не поднимая все дерево поста.
func (r *queryResolver) Replies(ctx context.Context, commentID string) ([]*domain.CommentNode, error) {
	actor := auth.FromContext(ctx)
	return r.Engine.GetReplies(ctx, commentID, actor.ID)
}

func (r *queryResolver) Notifications(ctx context.Context) ([]*domain.Notification, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.Notifications(ctx, actor.ID)
}

func (r *queryResolver) SuspendedPosts(ctx context.Context) ([]*domain.Post, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.SuspendedPosts(ctx, actor)
}

func (r *queryResolver) SuspendedComments(ctx context.Context) ([]*domain.CommentNode, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	comments, err := r.Engine.SuspendedComments(ctx, actor)
	if err != nil {
		return nil, err
	}
	return lo.Map(comments, func(c *domain.Comment, _ int) *domain.CommentNode {
		return &domain.CommentNode{
			Comment:   c,
			LikeCount: len(c.LikeRefs),
			Replies:   []*domain.CommentNode{},
		}
	}), nil
}

func (r *queryResolver) SuspendedUsers(ctx context.Context) ([]*domain.User, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	return r.Engine.SuspendedUsers(ctx, actor)
}

// === Subscription Resolvers ===

func (r *subscriptionResolver) CommentAdded(ctx context.Context, postID string) (<-chan *domain.CommentNode, error) {
	// Проверяем, существует ли пост, прежде чем подписываться.
	if _, err := r.Engine.GetPost(ctx, postID); err != nil {
		return nil, err
	}

	ch := make(chan *domain.CommentNode, 1)
	subID := uuid.NewString()

	r.Comments.mu.Lock()
	if r.Comments.subs[postID] == nil {
		r.Comments.subs[postID] = make(map[string]chan *domain.CommentNode)
	}
	r.Comments.subs[postID][subID] = ch
	r.Comments.mu.Unlock()

	// Горутина для очистки при отключении клиента.
	go func() {
		<-ctx.Done()
		r.Comments.mu.Lock()
		if postSubs, ok := r.Comments.subs[postID]; ok {
			delete(postSubs, subID)
			if len(postSubs) == 0 {
				delete(r.Comments.subs, postID)
			}
		}
		r.Comments.mu.Unlock()
	}()

	return ch, nil
}

func (r *subscriptionResolver) NotificationAdded(ctx context.Context) (<-chan *domain.Notification, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}

	ch := make(chan *domain.Notification, 1)
	subID := uuid.NewString()

	r.Notifications.mu.Lock()
	if r.Notifications.subs[actor.ID] == nil {
		r.Notifications.subs[actor.ID] = make(map[string]chan *domain.Notification)
	}
	r.Notifications.subs[actor.ID][subID] = ch
	r.Notifications.mu.Unlock()

	go func() {
		<-ctx.Done()
		r.Notifications.mu.Lock()
		if userSubs, ok := r.Notifications.subs[actor.ID]; ok {
			delete(userSubs, subID)
			if len(userSubs) == 0 {
				delete(r.Notifications.subs, actor.ID)
			}
		}
		r.Notifications.mu.Unlock()
	}()

	return ch, nil
}

// === Boilerplate: Связывание резолверов с сгенерированным интерфейсом ===

// Comment returns generated.CommentResolver implementation.
func (r *Resolver) Comment() generated.CommentResolver { return &commentResolver{r} }

// Mutation returns generated.MutationResolver implementation.
func (r *Resolver) Mutation() generated.MutationResolver { return &mutationResolver{r} }

// Notification returns generated.NotificationResolver implementation.
func (r *Resolver) Notification() generated.NotificationResolver { return &notificationResolver{r} }

// Post returns generated.PostResolver implementation.
func (r *Resolver) Post() generated.PostResolver { return &postResolver{r} }

// Query returns generated.QueryResolver implementation.
func (r *Resolver) Query() generated.QueryResolver { return &queryResolver{r} }

// Subscription returns generated.SubscriptionResolver implementation.
func (r *Resolver) Subscription() generated.SubscriptionResolver { return &subscriptionResolver{r} }

// SuspensionResult returns generated.SuspensionResultResolver implementation.
func (r *Resolver) SuspensionResult() generated.SuspensionResultResolver {
	return &suspensionResultResolver{r}
}

// User returns generated.UserResolver implementation.
func (r *Resolver) User() generated.UserResolver { return &userResolver{r} }

type commentResolver struct{ *Resolver }
type notificationResolver struct{ *Resolver }
type mutationResolver struct{ *Resolver }
type postResolver struct{ *Resolver }
type queryResolver struct{ *Resolver }
type subscriptionResolver struct{ *Resolver }
type suspensionResultResolver struct{ *Resolver }
type userResolver struct{ *Resolver }
