package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// PostInput - данные нового поста.
type PostInput struct {
	Title    string
	Content  string
	Tags     []string
	Category string
	ImageURL string
}

// CreatePost создает пост от имени actor в статусе pending.
func (e *Engine) CreatePost(ctx context.Context, actorID string, input PostInput) (*domain.Post, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: post title cannot be empty", domain.ErrValidation)
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, fmt.Errorf("%w: post content cannot be empty", domain.ErrValidation)
	}

	return e.store.CreatePost(ctx, &domain.Post{
		AuthorID:    actorID,
		Title:       strings.TrimSpace(input.Title),
		Content:     input.Content,
		Tags:        input.Tags,
		Category:    input.Category,
		ImageURL:    input.ImageURL,
		Status:      domain.PostStatusPending,
		LikeRefs:    []string{},
		CommentRefs: []string{},
	})
}

// ApprovePost переводит пост из pending в approved. Только админ.
func (e *Engine) ApprovePost(ctx context.Context, actor Actor, postID string) (*domain.Post, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin can approve posts", domain.ErrForbidden)
	}
	post, err := e.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	post.Status = domain.PostStatusApproved
	if err := e.store.SavePost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

// GetPost возвращает пост для обычного пути чтения: саспендженный
// пост неотличим от отсутствующего.
func (e *Engine) GetPost(ctx context.Context, postID string) (*domain.Post, error) {
	post, err := e.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsSuspended {
		return nil, fmt.Errorf("%w: post %s", domain.ErrNotFound, post.ID)
	}
	return post, nil
}

// Feed возвращает страницу одобренных несаспендженных постов,
// новые первыми.
func (e *Engine) Feed(ctx context.Context, page, limit int) ([]*domain.Post, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	return e.store.GetFeed(ctx, storage.PaginationArgs{
		Limit:  limit,
		Offset: (page - 1) * limit,
	})
}

// DeletePost удаляет пост вместе со всеми его комментариями и
// лайками. Только автор. Картинка поста удаляется из
// медиа-хранилища с мягким отказом; остальное - одна транзакция.
// Покомментной бухгалтерии здесь нет: поддерево поста выбрасывается
// целиком.
func (e *Engine) DeletePost(ctx context.Context, actorID, postID string) error {
	post, err := e.store.GetPostByID(ctx, postID)
	if err != nil {
		return err
	}
	if post.AuthorID != actorID {
		return fmt.Errorf("%w: only the author can delete a post", domain.ErrForbidden)
	}

	return e.store.InTransaction(ctx, func(tx storage.Storage) error {
		e.removeMedia(ctx, post.ImageURL)
		if err := tx.DeleteLikesByPostID(ctx, post.ID); err != nil {
			return err
		}
		if err := tx.DeleteCommentsByPostID(ctx, post.ID); err != nil {
			return err
		}
		return tx.DeletePost(ctx, post.ID)
	})
}
