package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// CreateUser регистрирует пользователя. Выдача токенов - снаружи;
// ядру достаточно записи.
func (e *Engine) CreateUser(ctx context.Context, userName string, role domain.Role) (*domain.User, error) {
	if strings.TrimSpace(userName) == "" {
		return nil, fmt.Errorf("%w: user name cannot be empty", domain.ErrValidation)
	}
	if role == "" {
		role = domain.RoleUser
	}
	return e.store.CreateUser(ctx, &domain.User{
		UserName:  strings.TrimSpace(userName),
		Role:      role,
		Followers: []domain.UserRef{},
		Following: []domain.UserRef{},
	})
}

// GetUser возвращает пользователя по id.
func (e *Engine) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return e.store.GetUserByID(ctx, id)
}

func hasRef(refs []domain.UserRef, id string) bool {
	return lo.SomeBy(refs, func(r domain.UserRef) bool { return r.ID == id })
}

func withoutRef(refs []domain.UserRef, id string) []domain.UserRef {
	return lo.Reject(refs, func(r domain.UserRef, _ int) bool { return r.ID == id })
}

// Follow подписывает actor на target: обе денормализованные ссылки
// обновляются в одной транзакции, уведомление уходит после коммита.
func (e *Engine) Follow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot follow yourself", domain.ErrValidation)
	}

	err := e.store.InTransaction(ctx, func(tx storage.Storage) error {
		actor, err := tx.GetUserByID(ctx, actorID)
		if err != nil {
			return err
		}
		target, err := tx.GetUserByID(ctx, targetID)
		if err != nil {
			return err
		}
		if target.IsSuspended {
			return fmt.Errorf("%w: user %s", domain.ErrNotFound, target.ID)
		}
		if hasRef(actor.Following, targetID) {
			return fmt.Errorf("%w: already following", domain.ErrValidation)
		}

		actor.Following = append(actor.Following, domain.UserRef{ID: target.ID, UserName: target.UserName})
		target.Followers = append(target.Followers, domain.UserRef{ID: actor.ID, UserName: actor.UserName})
		if err := tx.SaveUser(ctx, actor); err != nil {
			return err
		}
		return tx.SaveUser(ctx, target)
	})
	if err != nil {
		return err
	}

	e.fanout(ctx, NewNotification{
		RecipientID: targetID,
		ActorID:     actorID,
		Message:     e.actorName(ctx, actorID) + " started following you",
		Kind:        domain.NotificationFollow,
		Link:        "/users/" + actorID,
	})
	return nil
}

// Unfollow снимает подписку; обе стороны чистятся в одной транзакции.
func (e *Engine) Unfollow(ctx context.Context, actorID, targetID string) error {
	if actorID == targetID {
		return fmt.Errorf("%w: cannot unfollow yourself", domain.ErrValidation)
	}

	return e.store.InTransaction(ctx, func(tx storage.Storage) error {
		actor, err := tx.GetUserByID(ctx, actorID)
		if err != nil {
			return err
		}
		target, err := tx.GetUserByID(ctx, targetID)
		if err != nil {
			return err
		}
		if !hasRef(actor.Following, targetID) {
			return fmt.Errorf("%w: not following", domain.ErrValidation)
		}

		actor.Following = withoutRef(actor.Following, targetID)
		target.Followers = withoutRef(target.Followers, actorID)
		if err := tx.SaveUser(ctx, actor); err != nil {
			return err
		}
		return tx.SaveUser(ctx, target)
	})
}

// DeleteAccount - самый тяжелый каскад: пользователь забирает с
// собой свои посты (с их комментариями и лайками), свои комментарии
// в чужих постах, свои лайки, ссылки на себя в подписках других и
// все уведомления, где он получатель или действующее лицо.
// Вся последовательность - одна транзакция; медиа-удаления мягкие.
//
// Ответы на чужие комментарии пользователя сознательно НЕ удаляются
// рекурсивно (в отличие от DeleteComment): осиротевшие ответы
// поднимет на верхний уровень сборщик дерева.
func (e *Engine) DeleteAccount(ctx context.Context, actorID string) error {
	user, err := e.store.GetUserByID(ctx, actorID)
	if err != nil {
		return err
	}

	return e.store.InTransaction(ctx, func(tx storage.Storage) error {
		// (a) Аватар.
		e.removeMedia(ctx, user.AvatarURL)

		// (b) Собственные посты со всем содержимым.
		posts, err := tx.GetPostsByAuthor(ctx, actorID)
		if err != nil {
			return err
		}
		for _, post := range posts {
			e.removeMedia(ctx, post.ImageURL)
			if err := tx.DeleteLikesByPostID(ctx, post.ID); err != nil {
				return err
			}
			if err := tx.DeleteCommentsByPostID(ctx, post.ID); err != nil {
				return err
			}
			if err := tx.DeletePost(ctx, post.ID); err != nil {
				return err
			}
		}

		// (c) Комментарии в чужих постах: отцепить, снять лайки,
		// удалить. Комментарии на собственных постах уже исчезли
		// на шаге (b), так что здесь остались только "чужие".
		comments, err := tx.GetCommentsByAuthor(ctx, actorID)
		if err != nil {
			return err
		}
		for _, c := range comments {
			if err := detachComment(ctx, tx, c); err != nil {
				return err
			}
			if err := tx.DeleteLikesByTarget(ctx, domain.CommentTarget(c.ID)); err != nil {
				return err
			}
			if err := tx.DeleteComment(ctx, c.ID); err != nil {
				return err
			}
		}

		// (d) Лайки пользователя: вычистить из кешей целей и удалить.
		likes, err := tx.GetLikesByUser(ctx, actorID)
		if err != nil {
			return err
		}
		for _, l := range likes {
			if _, err := pullLikeRef(ctx, tx, l.Target(), l.ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
				return err
			}
			if err := tx.DeleteLike(ctx, l.ID); err != nil {
				return err
			}
		}

		// (e) Ссылки на пользователя в подписках остальных.
		peers, err := tx.GetFollowPeers(ctx, actorID)
		if err != nil {
			return err
		}
		for _, p := range peers {
			p.Followers = withoutRef(p.Followers, actorID)
			p.Following = withoutRef(p.Following, actorID)
			if err := tx.SaveUser(ctx, p); err != nil {
				return err
			}
		}

		// (f) Уведомления с участием пользователя.
		if err := tx.DeleteNotificationsInvolving(ctx, actorID); err != nil {
			return err
		}

		// (g) Сама запись пользователя.
		return tx.DeleteUser(ctx, actorID)
	})
}

// detachComment отцепляет комментарий от родителя либо от поста.
// Счетчик поста уменьшается только в пост-ветке - вместе со списком
// commentRefs; исчезнувший владелец не считается ошибкой.
func detachComment(ctx context.Context, tx storage.Storage, c *domain.Comment) error {
	if c.ParentID != nil {
		parent, err := tx.GetCommentByID(ctx, *c.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		parent.Replies = withoutID(parent.Replies, c.ID)
		return tx.SaveComment(ctx, parent)
	}

	post, err := tx.GetPostByID(ctx, c.PostID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	post.CommentRefs = withoutID(post.CommentRefs, c.ID)
	post.CommentCount--
	return tx.SavePost(ctx, post)
}
