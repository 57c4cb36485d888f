package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// Store реализует интерфейс Storage с использованием PostgreSQL.
type Store struct {
	db *gorm.DB
}

// New создает новый экземпляр хранилища PostgreSQL.
func New(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Выполняем миграцию схемы.
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Like{},
		&domain.Notification{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{db: db}, nil
}

// InTransaction оборачивает fn в gorm-транзакцию: fn получает Store,
// привязанный к tx, так что все запросы внутри идут через одну сессию.
func (s *Store) InTransaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}

// translate переводит ошибку gorm в таксономию domain.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, what)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrDatabase, what, err)
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return nil, translate(err, "create user")
	}
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var user domain.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "user "+id)
	}
	return &user, nil
}

func (s *Store) SaveUser(ctx context.Context, user *domain.User) error {
	return translate(s.db.WithContext(ctx).Save(user).Error, "save user "+user.ID)
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Delete(&domain.User{}, "id = ?", id).Error, "delete user "+id)
}

func (s *Store) GetFollowPeers(ctx context.Context, userID string) ([]*domain.User, error) {
	// Ищем jsonb-вхождение ссылки {"id": userID} в любом из списков.
	ref, err := json.Marshal([]map[string]string{{"id": userID}})
	if err != nil {
		return nil, fmt.Errorf("%w: marshal user ref: %v", domain.ErrDatabase, err)
	}
	var users []*domain.User
	err = s.db.WithContext(ctx).
		Where("id <> ?", userID).
		Where("followers @> ?::jsonb OR following @> ?::jsonb", string(ref), string(ref)).
		Find(&users).Error
	return users, translate(err, "follow peers of "+userID)
}

func (s *Store) GetSuspendedUsers(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := s.db.WithContext(ctx).
		Where("is_suspended = ?", true).
		Order("created_at DESC").
		Find(&users).Error
	return users, translate(err, "suspended users")
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := s.db.WithContext(ctx).Create(post).Error; err != nil {
		return nil, translate(err, "create post")
	}
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var post domain.Post
	if err := s.db.WithContext(ctx).First(&post, "id = ?", id).Error; err != nil {
		return nil, translate(err, "post "+id)
	}
	return &post, nil
}

func (s *Store) GetFeed(ctx context.Context, args storage.PaginationArgs) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Where("status = ? AND is_suspended = ?", domain.PostStatusApproved, false).
		Order("created_at DESC").
		Limit(args.Limit).
		Offset(args.Offset).
		Find(&posts).Error
	return posts, translate(err, "feed")
}

func (s *Store) GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, translate(err, "posts by "+authorID)
}

func (s *Store) GetSuspendedPosts(ctx context.Context) ([]*domain.Post, error) {
	var posts []*domain.Post
	err := s.db.WithContext(ctx).
		Where("is_suspended = ?", true).
		Order("created_at DESC").
		Find(&posts).Error
	return posts, translate(err, "suspended posts")
}

func (s *Store) SavePost(ctx context.Context, post *domain.Post) error {
	return translate(s.db.WithContext(ctx).Save(post).Error, "save post "+post.ID)
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Delete(&domain.Post{}, "id = ?", id).Error, "delete post "+id)
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := s.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, translate(err, "create comment")
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var comment domain.Comment
	if err := s.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, translate(err, "comment "+id)
	}
	return &comment, nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, translate(err, "comments of post "+postID)
}

func (s *Store) GetCommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("author_id = ?", authorID).
		Find(&comments).Error
	return comments, translate(err, "comments by "+authorID)
}

func (s *Store) GetSuspendedComments(ctx context.Context) ([]*domain.Comment, error) {
	var comments []*domain.Comment
	err := s.db.WithContext(ctx).
		Where("is_suspended = ?", true).
		Order("created_at DESC").
		Find(&comments).Error
	return comments, translate(err, "suspended comments")
}

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	var comments []*domain.Comment
	// Загружаем детей для всех родителей одним запросом.
	err := s.db.WithContext(ctx).
		Where("parent_id IN ?", parentIDs).
		Order("parent_id, created_at ASC").
		Find(&comments).Error
	if err != nil {
		return nil, translate(err, "comments by parents")
	}

	result := make(map[string][]*domain.Comment, len(parentIDs))
	for _, c := range comments {
		if c.ParentID != nil {
			result[*c.ParentID] = append(result[*c.ParentID], c)
		}
	}
	return result, nil
}

func (s *Store) SaveComment(ctx context.Context, comment *domain.Comment) error {
	return translate(s.db.WithContext(ctx).Save(comment).Error, "save comment "+comment.ID)
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Delete(&domain.Comment{}, "id = ?", id).Error, "delete comment "+id)
}

func (s *Store) DeleteCommentsByPostID(ctx context.Context, postID string) error {
	err := s.db.WithContext(ctx).Delete(&domain.Comment{}, "post_id = ?", postID).Error
	return translate(err, "delete comments of post "+postID)
}

// === Likes ===

func (s *Store) CreateLike(ctx context.Context, like *domain.Like) (*domain.Like, error) {
	if err := s.db.WithContext(ctx).Create(like).Error; err != nil {
		return nil, translate(err, "create like")
	}
	return like, nil
}

// targetQuery строит условие по варианту суммы-типа.
func targetQuery(db *gorm.DB, target domain.LikeTarget) *gorm.DB {
	if target.Kind() == domain.LikeTargetPost {
		return db.Where("post_id = ?", target.ID())
	}
	return db.Where("comment_id = ?", target.ID())
}

func (s *Store) FindLike(ctx context.Context, target domain.LikeTarget, userID string) (*domain.Like, error) {
	var like domain.Like
	err := targetQuery(s.db.WithContext(ctx), target).
		Where("liked_by = ?", userID).
		First(&like).Error
	if err != nil {
		return nil, translate(err, "like for "+target.ID())
	}
	return &like, nil
}

func (s *Store) GetLikesByTarget(ctx context.Context, target domain.LikeTarget) ([]*domain.Like, error) {
	var likes []*domain.Like
	err := targetQuery(s.db.WithContext(ctx), target).Find(&likes).Error
	return likes, translate(err, "likes of "+target.ID())
}

func (s *Store) GetLikesByCommentIDs(ctx context.Context, commentIDs []string) (map[string][]*domain.Like, error) {
	var likes []*domain.Like
	err := s.db.WithContext(ctx).
		Where("comment_id IN ?", commentIDs).
		Find(&likes).Error
	if err != nil {
		return nil, translate(err, "likes by comments")
	}

	result := make(map[string][]*domain.Like, len(commentIDs))
	for _, id := range commentIDs {
		result[id] = []*domain.Like{}
	}
	for _, l := range likes {
		if l.CommentID != nil {
			result[*l.CommentID] = append(result[*l.CommentID], l)
		}
	}
	return result, nil
}

func (s *Store) GetLikesByUser(ctx context.Context, userID string) ([]*domain.Like, error) {
	var likes []*domain.Like
	err := s.db.WithContext(ctx).Where("liked_by = ?", userID).Find(&likes).Error
	return likes, translate(err, "likes by "+userID)
}

func (s *Store) DeleteLike(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Delete(&domain.Like{}, "id = ?", id).Error, "delete like "+id)
}

func (s *Store) DeleteLikesByTarget(ctx context.Context, target domain.LikeTarget) error {
	err := targetQuery(s.db.WithContext(ctx), target).Delete(&domain.Like{}).Error
	return translate(err, "delete likes of "+target.ID())
}

func (s *Store) DeleteLikesByPostID(ctx context.Context, postID string) error {
	// Лайки самого поста и лайки всех его комментариев одним запросом.
	sub := s.db.Model(&domain.Comment{}).Select("id").Where("post_id = ?", postID)
	err := s.db.WithContext(ctx).
		Where("post_id = ? OR comment_id IN (?)", postID, sub).
		Delete(&domain.Like{}).Error
	return translate(err, "delete likes of post "+postID)
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return nil, translate(err, "create notification")
	}
	return n, nil
}

func (s *Store) GetNotificationByID(ctx context.Context, id string) (*domain.Notification, error) {
	var n domain.Notification
	if err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error; err != nil {
		return nil, translate(err, "notification "+id)
	}
	return &n, nil
}

func (s *Store) GetNotificationsByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	var ns []*domain.Notification
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&ns).Error
	return ns, translate(err, "notifications of "+userID)
}

func (s *Store) SaveNotification(ctx context.Context, n *domain.Notification) error {
	return translate(s.db.WithContext(ctx).Save(n).Error, "save notification "+n.ID)
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	return translate(s.db.WithContext(ctx).Delete(&domain.Notification{}, "id = ?", id).Error, "delete notification "+id)
}

func (s *Store) DeleteNotificationsInvolving(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).
		Where("user_id = ? OR actor_id = ?", userID, userID).
		Delete(&domain.Notification{}).Error
	return translate(err, "delete notifications involving "+userID)
}
