package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// NewNotification - запрос на создание уведомления.
type NewNotification struct {
	RecipientID string
	ActorID     string
	Message     string
	Kind        domain.NotificationKind
	Link        string
}

// Notifier сохраняет уведомления по принципу best-effort: мутация,
// породившая уведомление, к этому моменту уже закоммичена, поэтому
// сбой доставки только логируется и никогда не видим вызывающему.
type Notifier struct {
	store storage.Storage
	log   *slog.Logger

	mu        sync.RWMutex
	observers []func(*domain.Notification)
}

// NewNotifier создает рассыльщик поверх хранилища.
func NewNotifier(store storage.Storage, log *slog.Logger) *Notifier {
	return &Notifier{
		store: store,
		log:   log.With("component", "service.Notifier"),
	}
}

// Observe регистрирует колбэк на каждое сохраненное уведомление
// (транспорт пушит их подписчикам). Вызывать до начала обслуживания
// запросов.
func (n *Notifier) Observe(fn func(*domain.Notification)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.observers = append(n.observers, fn)
}

// Send сохраняет уведомление и возвращает его; nil при любом сбое.
// Уведомления не входят в транзакцию мутации.
func (n *Notifier) Send(ctx context.Context, note NewNotification) *domain.Notification {
	created, err := n.store.CreateNotification(ctx, &domain.Notification{
		UserID:  note.RecipientID,
		ActorID: note.ActorID,
		Message: note.Message,
		Kind:    note.Kind,
		Link:    note.Link,
	})
	if err != nil {
		n.log.Warn("failed to persist notification",
			"recipient", note.RecipientID, "kind", note.Kind, "error", err)
		return nil
	}

	n.mu.RLock()
	observers := n.observers
	n.mu.RUnlock()
	for _, fn := range observers {
		fn(created)
	}
	return created
}
