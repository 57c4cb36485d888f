// graph/resolver.go

package graph

import (
	"sync"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/service"
)

// This file will not be regenerated automatically.
//
// It serves as dependency injection for your app, add any dependencies you require here.

// CommentObserver хранит каналы подписчиков на комментарии поста.
type CommentObserver struct {
	mu sync.RWMutex
	//          map[postID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.CommentNode
}

// NewCommentObserver - конструктор для наблюдателя комментариев.
func NewCommentObserver() *CommentObserver {
	return &CommentObserver{
		subs: make(map[string]map[string]chan *domain.CommentNode),
	}
}

// publish рассылает узел всем подписчикам поста, не блокируясь на
// медленных клиентах.
func (o *CommentObserver) publish(postID string, node *domain.CommentNode) {
	o.mu.RLock()
	subs := o.subs[postID]
	o.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- node:
		default:
			// Клиент не успевает читать - пропускаем.
		}
	}
}

// NotificationObserver хранит каналы подписчиков на уведомления.
type NotificationObserver struct {
	mu sync.RWMutex
	//          map[userID] map[subscriberID] channel
	subs map[string]map[string]chan *domain.Notification
}

// NewNotificationObserver - конструктор для наблюдателя уведомлений.
func NewNotificationObserver() *NotificationObserver {
	return &NotificationObserver{
		subs: make(map[string]map[string]chan *domain.Notification),
	}
}

func (o *NotificationObserver) publish(n *domain.Notification) {
	o.mu.RLock()
	subs := o.subs[n.UserID]
	o.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- n:
		default:
		}
	}
}

// Resolver - корневая структура резолвера. Содержит ядро и обоих
// наблюдателей для подписок.
type Resolver struct {
	Engine        *service.Engine
	Comments      *CommentObserver
	Notifications *NotificationObserver
}

// NewResolver собирает резолвер и подключает пуш уведомлений к
// рассыльщику ядра: каждое сохраненное уведомление уходит
// websocket-подписчикам получателя.
func NewResolver(engine *service.Engine) *Resolver {
	r := &Resolver{
		Engine:        engine,
		Comments:      NewCommentObserver(),
		Notifications: NewNotificationObserver(),
	}
	engine.Notifier().Observe(r.Notifications.publish)
	return r
}
