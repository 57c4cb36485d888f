package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// ToggleLikeResult - исход переключения лайка.
type ToggleLikeResult struct {
	IsLiked   bool `json:"isLiked"`
	LikeCount int  `json:"likeCount"`
}

// ToggleLike идемпотентно переключает лайк пары (actor, target):
// существующий лайк удаляется, отсутствующий - создается, и в обоих
// случаях кеш likeRefs цели синхронизируется в той же транзакции.
// Уведомление автору цели уходит только на свежий лайк и только
// после коммита.
//
// Переключение - это check-then-act без уникального индекса: два
// одновременных вызова одного пользователя по одной цели могут оба
// увидеть "лайка нет" и вставить по записи (или оба удалить).
// Известная щель согласованности, оставлена как есть.
func (e *Engine) ToggleLike(ctx context.Context, actorID string, target domain.LikeTarget) (ToggleLikeResult, error) {
	if target.IsZero() {
		return ToggleLikeResult{}, fmt.Errorf("%w: exactly one of post or comment target must be set", domain.ErrValidation)
	}

	var (
		result ToggleLikeResult
		note   *NewNotification
	)

	err := e.store.InTransaction(ctx, func(tx storage.Storage) error {
		authorID, link, err := resolveLikeTarget(ctx, tx, target)
		if err != nil {
			return err
		}

		existing, err := tx.FindLike(ctx, target, actorID)
		switch {
		case err == nil:
			// Лайк уже есть - снимаем.
			if err := tx.DeleteLike(ctx, existing.ID); err != nil {
				return err
			}
			count, err := pullLikeRef(ctx, tx, target, existing.ID)
			if err != nil {
				return err
			}
			result = ToggleLikeResult{IsLiked: false, LikeCount: count}

		case errors.Is(err, domain.ErrNotFound):
			// Лайка нет - ставим.
			like := &domain.Like{LikedBy: actorID}
			if target.Kind() == domain.LikeTargetPost {
				id := target.ID()
				like.PostID = &id
			} else {
				id := target.ID()
				like.CommentID = &id
			}
			created, err := tx.CreateLike(ctx, like)
			if err != nil {
				return err
			}
			count, err := pushLikeRef(ctx, tx, target, created.ID)
			if err != nil {
				return err
			}
			result = ToggleLikeResult{IsLiked: true, LikeCount: count}

			if authorID != actorID {
				note = &NewNotification{
					RecipientID: authorID,
					ActorID:     actorID,
					Kind:        domain.NotificationLike,
					Link:        link,
				}
			}

		default:
			return err
		}
		return nil
	})
	if err != nil {
		return ToggleLikeResult{}, err
	}

	if note != nil {
		note.Message = e.actorName(ctx, actorID) + likeMessage(target)
		e.fanout(ctx, *note)
	}
	return result, nil
}

func likeMessage(target domain.LikeTarget) string {
	if target.Kind() == domain.LikeTargetPost {
		return " liked your post"
	}
	return " liked your comment"
}

// resolveLikeTarget находит цель лайка и возвращает ее автора и
// ссылку для уведомления. Отсутствующая или саспендженная цель
// неотличимы для вызывающего: обе дают ErrNotFound.
func resolveLikeTarget(ctx context.Context, tx storage.Storage, target domain.LikeTarget) (authorID, link string, err error) {
	switch target.Kind() {
	case domain.LikeTargetPost:
		post, err := tx.GetPostByID(ctx, target.ID())
		if err != nil {
			return "", "", err
		}
		if post.IsSuspended {
			return "", "", fmt.Errorf("%w: post %s", domain.ErrNotFound, post.ID)
		}
		return post.AuthorID, "/posts/" + post.ID, nil

	default:
		comment, err := tx.GetCommentByID(ctx, target.ID())
		if err != nil {
			return "", "", err
		}
		if comment.IsSuspended {
			return "", "", fmt.Errorf("%w: comment %s", domain.ErrNotFound, comment.ID)
		}
		return comment.AuthorID, "/posts/" + comment.PostID + "#comment-" + comment.ID, nil
	}
}

// pushLikeRef добавляет id лайка в кеш цели и возвращает новую длину.
func pushLikeRef(ctx context.Context, tx storage.Storage, target domain.LikeTarget, likeID string) (int, error) {
	if target.Kind() == domain.LikeTargetPost {
		post, err := tx.GetPostByID(ctx, target.ID())
		if err != nil {
			return 0, err
		}
		post.LikeRefs = append(post.LikeRefs, likeID)
		return len(post.LikeRefs), tx.SavePost(ctx, post)
	}

	comment, err := tx.GetCommentByID(ctx, target.ID())
	if err != nil {
		return 0, err
	}
	comment.LikeRefs = append(comment.LikeRefs, likeID)
	return len(comment.LikeRefs), tx.SaveComment(ctx, comment)
}

// pullLikeRef убирает id лайка из кеша цели и возвращает новую длину.
func pullLikeRef(ctx context.Context, tx storage.Storage, target domain.LikeTarget, likeID string) (int, error) {
	if target.Kind() == domain.LikeTargetPost {
		post, err := tx.GetPostByID(ctx, target.ID())
		if err != nil {
			return 0, err
		}
		post.LikeRefs = withoutID(post.LikeRefs, likeID)
		return len(post.LikeRefs), tx.SavePost(ctx, post)
	}

	comment, err := tx.GetCommentByID(ctx, target.ID())
	if err != nil {
		return 0, err
	}
	comment.LikeRefs = withoutID(comment.LikeRefs, likeID)
	return len(comment.LikeRefs), tx.SaveComment(ctx, comment)
}
