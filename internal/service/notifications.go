package service

import (
	"context"
	"fmt"

	"github.com/whirlpost/blog-engine/internal/domain"
)

// Операции получателя над своими уведомлениями. Ядро меняет в
// уведомлении только флаг IsRead и может удалить его по запросу
// самого получателя.

// Notifications возвращает уведомления пользователя, новые первыми.
func (e *Engine) Notifications(ctx context.Context, actorID string) ([]*domain.Notification, error) {
	return e.store.GetNotificationsByUser(ctx, actorID)
}

// MarkNotificationRead помечает уведомление прочитанным.
func (e *Engine) MarkNotificationRead(ctx context.Context, actorID, id string) (*domain.Notification, error) {
	n, err := e.store.GetNotificationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.UserID != actorID {
		return nil, fmt.Errorf("%w: notification belongs to another user", domain.ErrForbidden)
	}
	n.IsRead = true
	if err := e.store.SaveNotification(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// DeleteNotification удаляет уведомление получателя.
func (e *Engine) DeleteNotification(ctx context.Context, actorID, id string) error {
	n, err := e.store.GetNotificationByID(ctx, id)
	if err != nil {
		return err
	}
	if n.UserID != actorID {
		return fmt.Errorf("%w: notification belongs to another user", domain.ErrForbidden)
	}
	return e.store.DeleteNotification(ctx, n.ID)
}
