package storage

import (
	"context"

	"github.com/whirlpost/blog-engine/internal/domain"
)

// PaginationArgs - аргументы для постраничной выдачи.
type PaginationArgs struct {
	Limit  int
	Offset int
}

// Storage определяет контракт для хранилищ.
//
// Реализации переводят ошибки драйвера в таксономию domain
// (отсутствие записи -> domain.ErrNotFound, прочее -> domain.ErrDatabase).
type Storage interface {
	// InTransaction выполняет fn на транзакционном экземпляре
	// хранилища. Любая ошибка fn откатывает все записи; nil - коммит.
	// Вложенные вызовы не поддерживаются.
	InTransaction(ctx context.Context, fn func(tx Storage) error) error

	// === Users ===

	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	SaveUser(ctx context.Context, user *domain.User) error
	DeleteUser(ctx context.Context, id string) error
	// GetFollowPeers возвращает пользователей, у которых userID
	// встречается в followers или following.
	GetFollowPeers(ctx context.Context, userID string) ([]*domain.User, error)
	GetSuspendedUsers(ctx context.Context) ([]*domain.User, error)

	// === Posts ===

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	// GetFeed возвращает одобренные несаспендженные посты, новые первыми.
	GetFeed(ctx context.Context, args PaginationArgs) ([]*domain.Post, error)
	GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error)
	GetSuspendedPosts(ctx context.Context) ([]*domain.Post, error)
	SavePost(ctx context.Context, post *domain.Post) error
	DeletePost(ctx context.Context, id string) error

	// === Comments ===

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	// GetCommentsByPostID возвращает ВСЕ комментарии поста без
	// фильтрации по саспенду; видимость - забота вызывающего слоя.
	GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error)
	GetCommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error)
	GetSuspendedComments(ctx context.Context) ([]*domain.Comment, error)
	// GetCommentsByParentIDs - батч для Dataloader'а: дети для
	// множества родителей одним запросом.
	GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error)
	SaveComment(ctx context.Context, comment *domain.Comment) error
	DeleteComment(ctx context.Context, id string) error
	DeleteCommentsByPostID(ctx context.Context, postID string) error

	// === Likes ===

	CreateLike(ctx context.Context, like *domain.Like) (*domain.Like, error)
	// FindLike ищет лайк пары (цель, пользователь); domain.ErrNotFound,
	// если его нет.
	FindLike(ctx context.Context, target domain.LikeTarget, userID string) (*domain.Like, error)
	GetLikesByTarget(ctx context.Context, target domain.LikeTarget) ([]*domain.Like, error)
	// GetLikesByCommentIDs - батч для Dataloader'а и сборки дерева.
	GetLikesByCommentIDs(ctx context.Context, commentIDs []string) (map[string][]*domain.Like, error)
	GetLikesByUser(ctx context.Context, userID string) ([]*domain.Like, error)
	DeleteLike(ctx context.Context, id string) error
	DeleteLikesByTarget(ctx context.Context, target domain.LikeTarget) error
	DeleteLikesByPostID(ctx context.Context, postID string) error

	// === Notifications ===

	CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error)
	GetNotificationByID(ctx context.Context, id string) (*domain.Notification, error)
	GetNotificationsByUser(ctx context.Context, userID string) ([]*domain.Notification, error)
	SaveNotification(ctx context.Context, n *domain.Notification) error
	DeleteNotification(ctx context.Context, id string) error
	// DeleteNotificationsInvolving удаляет уведомления, где userID -
	// получатель или действующее лицо.
	DeleteNotificationsInvolving(ctx context.Context, userID string) error
}
