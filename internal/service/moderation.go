package service

import (
	"context"
	"fmt"

	"github.com/whirlpost/blog-engine/internal/domain"
)

// SuspensionKind - вид сущности для переключения саспенда.
type SuspensionKind string

const (
	SuspendUser    SuspensionKind = "user"
	SuspendPost    SuspensionKind = "post"
	SuspendComment SuspensionKind = "comment"
)

// SuspensionResult - исход переключения.
type SuspensionResult struct {
	Kind        SuspensionKind `json:"kind"`
	ID          string         `json:"id"`
	IsSuspended bool           `json:"isSuspended"`
	Message     string         `json:"message"`
}

// ToggleSuspension безусловно переворачивает флаг саспенда сущности.
// Только админ; пользователь не может саспендить сам себя.
//
// Одиночная запись, транзакция не нужна. Каскада на детей нет:
// саспенд поста не трогает флаги его комментариев - они пропадают
// из выдачи лишь потому, что пропал сам пост.
func (e *Engine) ToggleSuspension(ctx context.Context, actor Actor, kind SuspensionKind, id string) (*SuspensionResult, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin can toggle suspension", domain.ErrForbidden)
	}

	var suspended bool
	switch kind {
	case SuspendUser:
		if id == actor.ID {
			return nil, fmt.Errorf("%w: cannot suspend yourself", domain.ErrValidation)
		}
		user, err := e.store.GetUserByID(ctx, id)
		if err != nil {
			return nil, err
		}
		user.IsSuspended = !user.IsSuspended
		if err := e.store.SaveUser(ctx, user); err != nil {
			return nil, err
		}
		suspended = user.IsSuspended

	case SuspendPost:
		post, err := e.store.GetPostByID(ctx, id)
		if err != nil {
			return nil, err
		}
		post.IsSuspended = !post.IsSuspended
		if err := e.store.SavePost(ctx, post); err != nil {
			return nil, err
		}
		suspended = post.IsSuspended

	case SuspendComment:
		comment, err := e.store.GetCommentByID(ctx, id)
		if err != nil {
			return nil, err
		}
		comment.IsSuspended = !comment.IsSuspended
		if err := e.store.SaveComment(ctx, comment); err != nil {
			return nil, err
		}
		suspended = comment.IsSuspended

	default:
		return nil, fmt.Errorf("%w: unknown suspension kind %q", domain.ErrValidation, kind)
	}

	message := "unsuspended"
	if suspended {
		message = "suspended"
	}
	return &SuspensionResult{Kind: kind, ID: id, IsSuspended: suspended, Message: message}, nil
}

// Модераторские пути чтения: саспендженные сущности видны здесь и
// только здесь.

func (e *Engine) SuspendedPosts(ctx context.Context, actor Actor) ([]*domain.Post, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return e.store.GetSuspendedPosts(ctx)
}

func (e *Engine) SuspendedComments(ctx context.Context, actor Actor) ([]*domain.Comment, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return e.store.GetSuspendedComments(ctx)
}

func (e *Engine) SuspendedUsers(ctx context.Context, actor Actor) ([]*domain.User, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return e.store.GetSuspendedUsers(ctx)
}
