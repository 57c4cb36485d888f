// Package service реализует ядро платформы: журнал лайков, сборку
// дерева комментариев, каскадные мутации, машину саспенда и
// рассылку уведомлений. Транспорт и аутентификация живут снаружи;
// сюда приходит уже проверенный actor.
package service

import (
	"context"
	"log/slog"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// Actor - действующее лицо запроса, как его выдал Identity Provider.
// Значениям доверяем безусловно.
type Actor struct {
	ID   string
	Role domain.Role
}

// IsAdmin сообщает, имеет ли действующее лицо роль администратора.
func (a Actor) IsAdmin() bool { return a.Role == domain.RoleAdmin }

// Engine связывает хранилище, медиа-хранилище и рассыльщик
// уведомлений. Все мутации, затрагивающие больше одной сущности,
// выполняются через store.InTransaction; уведомления уходят только
// после коммита.
type Engine struct {
	store    storage.Storage
	media    MediaStore
	notifier *Notifier
	log      *slog.Logger
}

// NewEngine создает ядро поверх заданных коллабораторов.
func NewEngine(store storage.Storage, media MediaStore, notifier *Notifier, log *slog.Logger) *Engine {
	return &Engine{
		store:    store,
		media:    media,
		notifier: notifier,
		log:      log.With("component", "service.Engine"),
	}
}

// Notifier возвращает рассыльщик, чтобы транспорт мог подписаться
// на создаваемые уведомления.
func (e *Engine) Notifier() *Notifier { return e.notifier }

// fanout отправляет уведомление после уже закоммиченной мутации.
// Запускается в горутине и никогда не возвращает ошибку вызывающему.
func (e *Engine) fanout(ctx context.Context, note NewNotification) {
	go e.notifier.Send(context.WithoutCancel(ctx), note)
}

// removeMedia удаляет файл из медиа-хранилища. Отказ удаления -
// мягкий: пишем в лог и продолжаем.
func (e *Engine) removeMedia(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if res := e.media.Remove(ctx, url); !res.Success {
		e.log.Warn("media removal failed", "url", url)
	}
}

// actorName возвращает имя пользователя для текста уведомления.
// Имя - украшение, поэтому ошибка чтения не фатальна.
func (e *Engine) actorName(ctx context.Context, actorID string) string {
	user, err := e.store.GetUserByID(ctx, actorID)
	if err != nil {
		return "Someone"
	}
	return user.UserName
}
