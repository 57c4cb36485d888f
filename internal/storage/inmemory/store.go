package inmemory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

// Store реализует интерфейс Storage в памяти.
//
// Транзакция - это глобальная блокировка плюс снимок всех карт:
// InTransaction держит мьютекс на весь колбэк, а при ошибке
// восстанавливает снимок. Get-методы возвращают копии записей, чтобы
// незакоммиченные правки вызывающего кода не просачивались в карты.
type Store struct {
	mu   *sync.RWMutex
	inTx bool

	users         map[string]*domain.User
	posts         map[string]*domain.Post
	comments      map[string]*domain.Comment
	likes         map[string]*domain.Like
	notifications map[string]*domain.Notification

	commentsByPost   map[string][]string // map[postID][]commentID (все комментарии поста)
	commentsByParent map[string][]string // map[parentID][]commentID
}

// New создает новый экземпляр in-memory хранилища.
func New() *Store {
	return &Store{
		mu:               &sync.RWMutex{},
		users:            make(map[string]*domain.User),
		posts:            make(map[string]*domain.Post),
		comments:         make(map[string]*domain.Comment),
		likes:            make(map[string]*domain.Like),
		notifications:    make(map[string]*domain.Notification),
		commentsByPost:   make(map[string][]string),
		commentsByParent: make(map[string][]string),
	}
}

// Внутри транзакции мьютекс уже захвачен, поэтому методы
// блокируются только вне ее.

func (s *Store) lock() {
	if !s.inTx {
		s.mu.Lock()
	}
}

func (s *Store) unlock() {
	if !s.inTx {
		s.mu.Unlock()
	}
}

func (s *Store) rlock() {
	if !s.inTx {
		s.mu.RLock()
	}
}

func (s *Store) runlock() {
	if !s.inTx {
		s.mu.RUnlock()
	}
}

// InTransaction выполняет fn под глобальной блокировкой. При ошибке
// все карты восстанавливаются из снимка, так что частичных записей
// снаружи не видно.
func (s *Store) InTransaction(ctx context.Context, fn func(tx storage.Storage) error) error {
	if s.inTx {
		return fmt.Errorf("%w: nested transaction", domain.ErrDatabase)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.cloneData()

	tx := &Store{
		mu:               s.mu,
		inTx:             true,
		users:            s.users,
		posts:            s.posts,
		comments:         s.comments,
		likes:            s.likes,
		notifications:    s.notifications,
		commentsByPost:   s.commentsByPost,
		commentsByParent: s.commentsByParent,
	}

	if err := fn(tx); err != nil {
		s.users = snapshot.users
		s.posts = snapshot.posts
		s.comments = snapshot.comments
		s.likes = snapshot.likes
		s.notifications = snapshot.notifications
		s.commentsByPost = snapshot.commentsByPost
		s.commentsByParent = snapshot.commentsByParent
		return err
	}
	return nil
}

// === Users ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	s.lock()
	defer s.unlock()

	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	if user.Role == "" {
		user.Role = domain.RoleUser
	}
	s.users[user.ID] = cloneUser(user)
	return user, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.rlock()
	defer s.runlock()

	user, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	return cloneUser(user), nil
}

func (s *Store) SaveUser(ctx context.Context, user *domain.User) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.users[user.ID]; !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, user.ID)
	}
	s.users[user.ID] = cloneUser(user)
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("%w: user %s", domain.ErrNotFound, id)
	}
	delete(s.users, id)
	return nil
}

func (s *Store) GetFollowPeers(ctx context.Context, userID string) ([]*domain.User, error) {
	s.rlock()
	defer s.runlock()

	var peers []*domain.User
	for _, u := range s.users {
		if u.ID == userID {
			continue
		}
		refers := func(refs []domain.UserRef) bool {
			for _, r := range refs {
				if r.ID == userID {
					return true
				}
			}
			return false
		}
		if refers(u.Followers) || refers(u.Following) {
			peers = append(peers, cloneUser(u))
		}
	}
	return peers, nil
}

func (s *Store) GetSuspendedUsers(ctx context.Context) ([]*domain.User, error) {
	s.rlock()
	defer s.runlock()

	var users []*domain.User
	for _, u := range s.users {
		if u.IsSuspended {
			users = append(users, cloneUser(u))
		}
	}
	sortByCreatedAtDesc(users, func(u *domain.User) time.Time { return u.CreatedAt })
	return users, nil
}

// === Posts ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	s.lock()
	defer s.unlock()

	post.ID = uuid.NewString()
	post.CreatedAt = time.Now().UTC()
	if post.Status == "" {
		post.Status = domain.PostStatusPending
	}
	s.posts[post.ID] = clonePost(post)
	return post, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.rlock()
	defer s.runlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("%w: post %s", domain.ErrNotFound, id)
	}
	return clonePost(post), nil
}

func (s *Store) GetFeed(ctx context.Context, args storage.PaginationArgs) ([]*domain.Post, error) {
	s.rlock()
	defer s.runlock()

	var posts []*domain.Post
	for _, p := range s.posts {
		if p.Status == domain.PostStatusApproved && !p.IsSuspended {
			posts = append(posts, clonePost(p))
		}
	}
	sortByCreatedAtDesc(posts, func(p *domain.Post) time.Time { return p.CreatedAt })

	start := args.Offset
	if start >= len(posts) {
		return []*domain.Post{}, nil
	}
	end := start + args.Limit
	if end > len(posts) {
		end = len(posts)
	}
	return posts[start:end], nil
}

func (s *Store) GetPostsByAuthor(ctx context.Context, authorID string) ([]*domain.Post, error) {
	s.rlock()
	defer s.runlock()

	var posts []*domain.Post
	for _, p := range s.posts {
		if p.AuthorID == authorID {
			posts = append(posts, clonePost(p))
		}
	}
	sortByCreatedAtDesc(posts, func(p *domain.Post) time.Time { return p.CreatedAt })
	return posts, nil
}

func (s *Store) GetSuspendedPosts(ctx context.Context) ([]*domain.Post, error) {
	s.rlock()
	defer s.runlock()

	var posts []*domain.Post
	for _, p := range s.posts {
		if p.IsSuspended {
			posts = append(posts, clonePost(p))
		}
	}
	sortByCreatedAtDesc(posts, func(p *domain.Post) time.Time { return p.CreatedAt })
	return posts, nil
}

func (s *Store) SavePost(ctx context.Context, post *domain.Post) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.posts[post.ID]; !ok {
		return fmt.Errorf("%w: post %s", domain.ErrNotFound, post.ID)
	}
	s.posts[post.ID] = clonePost(post)
	return nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("%w: post %s", domain.ErrNotFound, id)
	}
	delete(s.posts, id)
	return nil
}

// === Comments ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.lock()
	defer s.unlock()

	comment.ID = uuid.NewString()
	comment.CreatedAt = time.Now().UTC()
	s.comments[comment.ID] = cloneComment(comment)

	// Обновление индексов иерархии.
	s.commentsByPost[comment.PostID] = append(s.commentsByPost[comment.PostID], comment.ID)
	if comment.ParentID != nil {
		s.commentsByParent[*comment.ParentID] = append(s.commentsByParent[*comment.ParentID], comment.ID)
	}
	return comment, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.rlock()
	defer s.runlock()

	comment, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("%w: comment %s", domain.ErrNotFound, id)
	}
	return cloneComment(comment), nil
}

func (s *Store) GetCommentsByPostID(ctx context.Context, postID string) ([]*domain.Comment, error) {
	s.rlock()
	defer s.runlock()

	ids := s.commentsByPost[postID]
	comments := make([]*domain.Comment, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.comments[id]; ok {
			comments = append(comments, cloneComment(c))
		}
	}
	return comments, nil
}

func (s *Store) GetCommentsByAuthor(ctx context.Context, authorID string) ([]*domain.Comment, error) {
	s.rlock()
	defer s.runlock()

	var comments []*domain.Comment
	for _, c := range s.comments {
		if c.AuthorID == authorID {
			comments = append(comments, cloneComment(c))
		}
	}
	return comments, nil
}

func (s *Store) GetSuspendedComments(ctx context.Context) ([]*domain.Comment, error) {
	s.rlock()
	defer s.runlock()

	var comments []*domain.Comment
	for _, c := range s.comments {
		if c.IsSuspended {
			comments = append(comments, cloneComment(c))
		}
	}
	sortByCreatedAtDesc(comments, func(c *domain.Comment) time.Time { return c.CreatedAt })
	return comments, nil
}

func (s *Store) GetCommentsByParentIDs(ctx context.Context, parentIDs []string) (map[string][]*domain.Comment, error) {
	s.rlock()
	defer s.runlock()

	results := make(map[string][]*domain.Comment, len(parentIDs))
	for _, pID := range parentIDs {
		childIDs := s.commentsByParent[pID]
		children := make([]*domain.Comment, 0, len(childIDs))
		for _, cID := range childIDs {
			if c, ok := s.comments[cID]; ok {
				children = append(children, cloneComment(c))
			}
		}
		results[pID] = children
	}
	return results, nil
}

func (s *Store) SaveComment(ctx context.Context, comment *domain.Comment) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.comments[comment.ID]; !ok {
		return fmt.Errorf("%w: comment %s", domain.ErrNotFound, comment.ID)
	}
	s.comments[comment.ID] = cloneComment(comment)
	return nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	comment, ok := s.comments[id]
	if !ok {
		return fmt.Errorf("%w: comment %s", domain.ErrNotFound, id)
	}
	delete(s.comments, id)

	s.commentsByPost[comment.PostID] = removeID(s.commentsByPost[comment.PostID], id)
	if comment.ParentID != nil {
		s.commentsByParent[*comment.ParentID] = removeID(s.commentsByParent[*comment.ParentID], id)
	}
	delete(s.commentsByParent, id)
	return nil
}

func (s *Store) DeleteCommentsByPostID(ctx context.Context, postID string) error {
	s.lock()
	defer s.unlock()

	for _, id := range s.commentsByPost[postID] {
		if c, ok := s.comments[id]; ok {
			delete(s.comments, id)
			delete(s.commentsByParent, id)
			if c.ParentID != nil {
				s.commentsByParent[*c.ParentID] = removeID(s.commentsByParent[*c.ParentID], id)
			}
		}
	}
	delete(s.commentsByPost, postID)
	return nil
}

// === Likes ===

func (s *Store) CreateLike(ctx context.Context, like *domain.Like) (*domain.Like, error) {
	s.lock()
	defer s.unlock()

	like.ID = uuid.NewString()
	like.CreatedAt = time.Now().UTC()
	s.likes[like.ID] = cloneLike(like)
	return like, nil
}

func (s *Store) FindLike(ctx context.Context, target domain.LikeTarget, userID string) (*domain.Like, error) {
	s.rlock()
	defer s.runlock()

	for _, l := range s.likes {
		if l.LikedBy == userID && l.Target() == target {
			return cloneLike(l), nil
		}
	}
	return nil, fmt.Errorf("%w: like for %s by %s", domain.ErrNotFound, target.ID(), userID)
}

func (s *Store) GetLikesByTarget(ctx context.Context, target domain.LikeTarget) ([]*domain.Like, error) {
	s.rlock()
	defer s.runlock()

	var likes []*domain.Like
	for _, l := range s.likes {
		if l.Target() == target {
			likes = append(likes, cloneLike(l))
		}
	}
	return likes, nil
}

func (s *Store) GetLikesByCommentIDs(ctx context.Context, commentIDs []string) (map[string][]*domain.Like, error) {
	s.rlock()
	defer s.runlock()

	results := make(map[string][]*domain.Like, len(commentIDs))
	for _, id := range commentIDs {
		results[id] = []*domain.Like{}
	}
	for _, l := range s.likes {
		if l.CommentID == nil {
			continue
		}
		if _, wanted := results[*l.CommentID]; wanted {
			results[*l.CommentID] = append(results[*l.CommentID], cloneLike(l))
		}
	}
	return results, nil
}

func (s *Store) GetLikesByUser(ctx context.Context, userID string) ([]*domain.Like, error) {
	s.rlock()
	defer s.runlock()

	var likes []*domain.Like
	for _, l := range s.likes {
		if l.LikedBy == userID {
			likes = append(likes, cloneLike(l))
		}
	}
	return likes, nil
}

func (s *Store) DeleteLike(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.likes[id]; !ok {
		return fmt.Errorf("%w: like %s", domain.ErrNotFound, id)
	}
	delete(s.likes, id)
	return nil
}

func (s *Store) DeleteLikesByTarget(ctx context.Context, target domain.LikeTarget) error {
	s.lock()
	defer s.unlock()

	for id, l := range s.likes {
		if l.Target() == target {
			delete(s.likes, id)
		}
	}
	return nil
}

func (s *Store) DeleteLikesByPostID(ctx context.Context, postID string) error {
	s.lock()
	defer s.unlock()

	// Лайки самого поста и лайки всех его комментариев.
	commentIDs := make(map[string]struct{}, len(s.commentsByPost[postID]))
	for _, id := range s.commentsByPost[postID] {
		commentIDs[id] = struct{}{}
	}
	for id, l := range s.likes {
		if l.PostID != nil && *l.PostID == postID {
			delete(s.likes, id)
			continue
		}
		if l.CommentID != nil {
			if _, ok := commentIDs[*l.CommentID]; ok {
				delete(s.likes, id)
			}
		}
	}
	return nil
}

// === Notifications ===

func (s *Store) CreateNotification(ctx context.Context, n *domain.Notification) (*domain.Notification, error) {
	s.lock()
	defer s.unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	s.notifications[n.ID] = cloneNotification(n)
	return n, nil
}

func (s *Store) GetNotificationByID(ctx context.Context, id string) (*domain.Notification, error) {
	s.rlock()
	defer s.runlock()

	n, ok := s.notifications[id]
	if !ok {
		return nil, fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	return cloneNotification(n), nil
}

func (s *Store) GetNotificationsByUser(ctx context.Context, userID string) ([]*domain.Notification, error) {
	s.rlock()
	defer s.runlock()

	var ns []*domain.Notification
	for _, n := range s.notifications {
		if n.UserID == userID {
			ns = append(ns, cloneNotification(n))
		}
	}
	sortByCreatedAtDesc(ns, func(n *domain.Notification) time.Time { return n.CreatedAt })
	return ns, nil
}

func (s *Store) SaveNotification(ctx context.Context, n *domain.Notification) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.notifications[n.ID]; !ok {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, n.ID)
	}
	s.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (s *Store) DeleteNotification(ctx context.Context, id string) error {
	s.lock()
	defer s.unlock()

	if _, ok := s.notifications[id]; !ok {
		return fmt.Errorf("%w: notification %s", domain.ErrNotFound, id)
	}
	delete(s.notifications, id)
	return nil
}

func (s *Store) DeleteNotificationsInvolving(ctx context.Context, userID string) error {
	s.lock()
	defer s.unlock()

	for id, n := range s.notifications {
		if n.UserID == userID || n.ActorID == userID {
			delete(s.notifications, id)
		}
	}
	return nil
}

// === Вспомогательные функции ===

func removeID(ids []string, id string) []string {
	return slices.DeleteFunc(slices.Clone(ids), func(v string) bool { return v == id })
}

func sortByCreatedAtDesc[T any](items []T, at func(T) time.Time) {
	sort.Slice(items, func(i, j int) bool {
		return at(items[i]).After(at(items[j]))
	})
}

// data - снимок всех карт для отката транзакции.
type data struct {
	users            map[string]*domain.User
	posts            map[string]*domain.Post
	comments         map[string]*domain.Comment
	likes            map[string]*domain.Like
	notifications    map[string]*domain.Notification
	commentsByPost   map[string][]string
	commentsByParent map[string][]string
}

func (s *Store) cloneData() *data {
	d := &data{
		users:            make(map[string]*domain.User, len(s.users)),
		posts:            make(map[string]*domain.Post, len(s.posts)),
		comments:         make(map[string]*domain.Comment, len(s.comments)),
		likes:            make(map[string]*domain.Like, len(s.likes)),
		notifications:    make(map[string]*domain.Notification, len(s.notifications)),
		commentsByPost:   make(map[string][]string, len(s.commentsByPost)),
		commentsByParent: make(map[string][]string, len(s.commentsByParent)),
	}
	for k, v := range s.users {
		d.users[k] = cloneUser(v)
	}
	for k, v := range s.posts {
		d.posts[k] = clonePost(v)
	}
	for k, v := range s.comments {
		d.comments[k] = cloneComment(v)
	}
	for k, v := range s.likes {
		d.likes[k] = cloneLike(v)
	}
	for k, v := range s.notifications {
		d.notifications[k] = cloneNotification(v)
	}
	for k, v := range s.commentsByPost {
		d.commentsByPost[k] = slices.Clone(v)
	}
	for k, v := range s.commentsByParent {
		d.commentsByParent[k] = slices.Clone(v)
	}
	return d
}

func cloneUser(u *domain.User) *domain.User {
	c := *u
	c.Followers = slices.Clone(u.Followers)
	c.Following = slices.Clone(u.Following)
	return &c
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Tags = slices.Clone(p.Tags)
	c.LikeRefs = slices.Clone(p.LikeRefs)
	c.CommentRefs = slices.Clone(p.CommentRefs)
	return &c
}

func cloneComment(cm *domain.Comment) *domain.Comment {
	c := *cm
	if cm.ParentID != nil {
		pid := *cm.ParentID
		c.ParentID = &pid
	}
	c.Replies = slices.Clone(cm.Replies)
	c.LikeRefs = slices.Clone(cm.LikeRefs)
	return &c
}

func cloneLike(l *domain.Like) *domain.Like {
	c := *l
	if l.PostID != nil {
		id := *l.PostID
		c.PostID = &id
	}
	if l.CommentID != nil {
		id := *l.CommentID
		c.CommentID = &id
	}
	return &c
}

func cloneNotification(n *domain.Notification) *domain.Notification {
	c := *n
	return &c
}
