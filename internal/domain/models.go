package domain

import "time"

// Role определяет роль пользователя в системе.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// PostStatus определяет статус модерации поста.
type PostStatus string

const (
	PostStatusPending  PostStatus = "pending"
	PostStatusApproved PostStatus = "approved"
)

// NotificationKind определяет тип уведомления.
type NotificationKind string

const (
	NotificationComment NotificationKind = "comment"
	NotificationLike    NotificationKind = "like"
	NotificationFollow  NotificationKind = "follow"
)

// UserRef - денормализованная ссылка на пользователя в списках подписок.
// Хранит имя рядом с id, чтобы не ходить за ним при каждом чтении.
type UserRef struct {
	ID       string `json:"id"`
	UserName string `json:"userName"`
}

// User представляет пользователя платформы.
// Followers/Following - обратные ссылки, а не владение: удаление
// пользователя вычищает его из этих списков у всех остальных.
type User struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserName    string    `json:"userName" gorm:"type:varchar(255);not null"`
	Role        Role      `json:"role" gorm:"type:varchar(16);not null;default:'user'"`
	AvatarURL   string    `json:"avatarUrl" gorm:"type:text"`
	IsSuspended bool      `json:"isSuspended" gorm:"not null;default:false"`
	Followers   []UserRef `json:"followers" gorm:"type:jsonb;serializer:json"`
	Following   []UserRef `json:"following" gorm:"type:jsonb;serializer:json"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Post представляет пост в системе.
// CommentCount и LikeRefs - кешированные агрегаты; инварианты:
// CommentCount == числу комментариев с PostID == ID,
// len(LikeRefs) == числу лайков, указывающих на пост.
type Post struct {
	ID           string     `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	AuthorID     string     `json:"authorId" gorm:"type:uuid;not null;index"`
	Title        string     `json:"title" gorm:"type:varchar(255);not null"`
	Content      string     `json:"content" gorm:"type:text;not null"`
	Tags         []string   `json:"tags" gorm:"type:jsonb;serializer:json"`
	Category     string     `json:"category" gorm:"type:varchar(64)"`
	Status       PostStatus `json:"status" gorm:"type:varchar(16);not null;default:'pending'"`
	ImageURL     string     `json:"imageUrl" gorm:"type:text"`
	IsSuspended  bool       `json:"isSuspended" gorm:"not null;default:false"`
	LikeRefs     []string   `json:"likeRefs" gorm:"type:jsonb;serializer:json"`
	CommentRefs  []string   `json:"commentRefs" gorm:"type:jsonb;serializer:json"`
	CommentCount int        `json:"commentCount" gorm:"not null;default:0"`
	CreatedAt    time.Time  `json:"createdAt" gorm:"not null;default:now()"`
}

// Comment представляет комментарий к посту.
// Replies - список id дочерних комментариев в порядке вставки.
// Глубина вложенности ограничена (MaxReplyDepth) и вычисляется
// обходом ParentID, а не хранится в записи.
type Comment struct {
	ID          string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PostID      string    `json:"postId" gorm:"type:uuid;not null;index"`
	ParentID    *string   `json:"parentComment,omitempty" gorm:"type:uuid;index"`
	AuthorID    string    `json:"authorId" gorm:"type:uuid;not null;index"`
	Content     string    `json:"content" gorm:"type:varchar(2000);not null"`
	Replies     []string  `json:"replies" gorm:"type:jsonb;serializer:json"`
	LikeRefs    []string  `json:"likeRefs" gorm:"type:jsonb;serializer:json"`
	IsSuspended bool      `json:"isSuspended" gorm:"not null;default:false"`
	CreatedAt   time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// MaxReplyDepth - максимальное расстояние от ответа до корневого
// комментария. Корневой комментарий имеет глубину 0.
const MaxReplyDepth = 5

// Like представляет лайк пользователя на посте или комментарии.
// Ровно одно из полей PostID/CommentID заполнено; в коде цель
// передается как LikeTarget, а пара nullable-колонок остается
// деталью хранения.
type Like struct {
	ID        string    `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	PostID    *string   `json:"post,omitempty" gorm:"type:uuid;index"`
	CommentID *string   `json:"comment,omitempty" gorm:"type:uuid;index"`
	LikedBy   string    `json:"likedBy" gorm:"type:uuid;not null;index"`
	CreatedAt time.Time `json:"createdAt" gorm:"not null;default:now()"`
}

// Target восстанавливает цель лайка из пары колонок.
func (l *Like) Target() LikeTarget {
	if l.PostID != nil {
		return PostTarget(*l.PostID)
	}
	if l.CommentID != nil {
		return CommentTarget(*l.CommentID)
	}
	return LikeTarget{}
}

// Notification представляет уведомление пользователя.
// Создается только как побочный эффект мутаций; ядро меняет в нем
// лишь флаг IsRead и может удалить по запросу получателя.
type Notification struct {
	ID        string           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    string           `json:"user" gorm:"type:uuid;not null;index"`
	ActorID   string           `json:"actorId" gorm:"type:uuid;index"`
	Message   string           `json:"message" gorm:"type:varchar(512);not null"`
	Kind      NotificationKind `json:"type" gorm:"type:varchar(16);not null"`
	Link      string           `json:"link" gorm:"type:text"`
	IsRead    bool             `json:"isRead" gorm:"not null;default:false"`
	CreatedAt time.Time        `json:"createdAt" gorm:"not null;default:now()"`
}

// CommentNode - узел собранного дерева комментариев.
// LikeCount и IsLiked вычисляются при сборке; Replies затеняет
// список id из Comment уже разрешенными узлами.
type CommentNode struct {
	*Comment
	LikeCount int            `json:"likeCount"`
	IsLiked   bool           `json:"isLiked"`
	Replies   []*CommentNode `json:"replies"`
}
