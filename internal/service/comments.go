package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/whirlpost/blog-engine/internal/domain"
	"github.com/whirlpost/blog-engine/internal/storage"
)

const maxCommentLength = 2000

// CommentPage - страница дерева комментариев поста.
// Пагинация идет по корневым узлам; TotalComments считает все
// видимые комментарии, включая ответы.
type CommentPage struct {
	Comments      []*domain.CommentNode `json:"comments"`
	TotalComments int                   `json:"totalComments"`
	TotalPages    int                   `json:"totalPages"`
}

// BuildTree собирает плоский набор комментариев в иерархию.
//
// Два прохода: сначала карта id -> узел с производными LikeCount и
// IsLiked, затем подвешивание каждого узла к родителю. Узел, чей
// родитель не попал в карту (удален из-под него или скрыт),
// поднимается на верхний уровень - это защита, а не ошибка.
// Корневые узлы сортируются по createdAt по убыванию; порядок
// ответов - порядок вставки.
func BuildTree(flat []*domain.Comment, likesByComment map[string][]*domain.Like, actorID string) []*domain.CommentNode {
	nodes := make(map[string]*domain.CommentNode, len(flat))
	for _, c := range flat {
		nodes[c.ID] = &domain.CommentNode{
			Comment:   c,
			LikeCount: len(c.LikeRefs),
			IsLiked: lo.SomeBy(likesByComment[c.ID], func(l *domain.Like) bool {
				return l.LikedBy == actorID
			}),
			Replies: []*domain.CommentNode{},
		}
	}

	var roots []*domain.CommentNode
	for _, c := range flat {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Replies = append(parent.Replies, node)
				continue
			}
		}
		roots = append(roots, node)
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].CreatedAt.After(roots[j].CreatedAt)
	})
	return roots
}

// GetComments возвращает страницу дерева комментариев поста.
// Саспендженные комментарии исключаются; includeSuspended - вариант
// для модераторского пути чтения, он же показывает дерево
// саспендженного поста.
func (e *Engine) GetComments(ctx context.Context, postID, actorID string, page, limit int, includeSuspended bool) (*CommentPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	post, err := e.store.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post.IsSuspended && !includeSuspended {
		return nil, fmt.Errorf("%w: post %s", domain.ErrNotFound, post.ID)
	}

	flat, err := e.store.GetCommentsByPostID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !includeSuspended {
		flat = lo.Filter(flat, func(c *domain.Comment, _ int) bool { return !c.IsSuspended })
	}

	likes, err := e.store.GetLikesByCommentIDs(ctx, lo.Map(flat, func(c *domain.Comment, _ int) string { return c.ID }))
	if err != nil {
		return nil, err
	}

	roots := BuildTree(flat, likes, actorID)

	totalPages := (len(roots) + limit - 1) / limit
	start := (page - 1) * limit
	if start > len(roots) {
		start = len(roots)
	}
	end := start + limit
	if end > len(roots) {
		end = len(roots)
	}

	return &CommentPage{
		Comments:      roots[start:end],
		TotalComments: len(flat),
		TotalPages:    totalPages,
	}, nil
}

// GetReplies возвращает прямых детей комментария как узлы дерева
// глубины один; глубже транспорт спускается рекурсивно (ограничено
// инвариантом глубины). Лайки читаются точечно по цели - детей на
// уровне немного, батчинг здесь не нужен.
func (e *Engine) GetReplies(ctx context.Context, parentID, actorID string) ([]*domain.CommentNode, error) {
	byParent, err := e.store.GetCommentsByParentIDs(ctx, []string{parentID})
	if err != nil {
		return nil, err
	}
	children := lo.Filter(byParent[parentID], func(c *domain.Comment, _ int) bool { return !c.IsSuspended })

	nodes := make([]*domain.CommentNode, len(children))
	for i, c := range children {
		likes, err := e.store.GetLikesByTarget(ctx, domain.CommentTarget(c.ID))
		if err != nil {
			return nil, err
		}
		nodes[i] = &domain.CommentNode{
			Comment:   c,
			LikeCount: len(c.LikeRefs),
			IsLiked: lo.SomeBy(likes, func(l *domain.Like) bool {
				return l.LikedBy == actorID
			}),
			Replies: []*domain.CommentNode{},
		}
	}
	return nodes, nil
}

// CreateComment создает корневой комментарий к посту.
func (e *Engine) CreateComment(ctx context.Context, actorID, postID, content string) (*domain.CommentNode, error) {
	return e.createComment(ctx, actorID, postID, nil, content)
}

// CreateReply создает ответ на существующий комментарий.
func (e *Engine) CreateReply(ctx context.Context, actorID, parentCommentID, content string) (*domain.CommentNode, error) {
	parent, err := e.store.GetCommentByID(ctx, parentCommentID)
	if err != nil {
		return nil, err
	}
	if parent.IsSuspended {
		return nil, fmt.Errorf("%w: comment %s", domain.ErrNotFound, parent.ID)
	}
	return e.createComment(ctx, actorID, parent.PostID, &parentCommentID, content)
}

func validateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: comment content cannot be empty", domain.ErrValidation)
	}
	if len(content) > maxCommentLength {
		return fmt.Errorf("%w: comment content is too long", domain.ErrValidation)
	}
	return nil
}

// replyDepth считает расстояние от parent до корневого комментария
// обходом указателей ParentID. Обрыв цепочки (родитель удален
// из-под ответа) завершает подсчет, а не рушит его.
func (e *Engine) replyDepth(ctx context.Context, parent *domain.Comment) (int, error) {
	depth := 0
	cur := parent
	for cur.ParentID != nil {
		next, err := e.store.GetCommentByID(ctx, *cur.ParentID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				break
			}
			return 0, err
		}
		depth++
		cur = next
	}
	return depth, nil
}

func (e *Engine) createComment(ctx context.Context, actorID, postID string, parentID *string, content string) (*domain.CommentNode, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	var parent *domain.Comment
	if parentID != nil {
		var err error
		parent, err = e.store.GetCommentByID(ctx, *parentID)
		if err != nil {
			return nil, err
		}
		if parent.IsSuspended {
			return nil, fmt.Errorf("%w: comment %s", domain.ErrNotFound, parent.ID)
		}
		depth, err := e.replyDepth(ctx, parent)
		if err != nil {
			return nil, err
		}
		// Новый ответ окажется на глубине depth+1.
		if depth+1 > domain.MaxReplyDepth {
			return nil, fmt.Errorf("%w: maximum reply depth exceeded", domain.ErrValidation)
		}
	}

	var created *domain.Comment
	err := e.store.InTransaction(ctx, func(tx storage.Storage) error {
		post, err := tx.GetPostByID(ctx, postID)
		if err != nil {
			return err
		}
		if post.IsSuspended {
			return fmt.Errorf("%w: post %s", domain.ErrNotFound, post.ID)
		}

		// Родителя перечитываем в сессии транзакции: снимок, взятый
		// выше для проверки глубины, под конкурентным ответом уже
		// устарел, и сохранение его Replies стерло бы чужую запись.
		if parentID != nil {
			parent, err = tx.GetCommentByID(ctx, *parentID)
			if err != nil {
				return err
			}
			if parent.IsSuspended {
				return fmt.Errorf("%w: comment %s", domain.ErrNotFound, parent.ID)
			}
		}

		created, err = tx.CreateComment(ctx, &domain.Comment{
			PostID:   postID,
			ParentID: parentID,
			AuthorID: actorID,
			Content:  strings.TrimSpace(content),
			Replies:  []string{},
			LikeRefs: []string{},
		})
		if err != nil {
			return err
		}

		if parent != nil {
			parent.Replies = append(parent.Replies, created.ID)
			if err := tx.SaveComment(ctx, parent); err != nil {
				return err
			}
		} else {
			post.CommentRefs = append(post.CommentRefs, created.ID)
		}

		post.CommentCount++
		return tx.SavePost(ctx, post)
	})
	if err != nil {
		return nil, err
	}

	// Уведомляем автора родителя (для ответа) или автора поста
	// (для корневого комментария); себе не уведомляем.
	recipient, message, link := e.commentFanoutTarget(ctx, created, parent)
	if recipient != "" && recipient != actorID {
		e.fanout(ctx, NewNotification{
			RecipientID: recipient,
			ActorID:     actorID,
			Message:     e.actorName(ctx, actorID) + message,
			Kind:        domain.NotificationComment,
			Link:        link,
		})
	}

	return &domain.CommentNode{
		Comment:   created,
		LikeCount: 0,
		IsLiked:   false,
		Replies:   []*domain.CommentNode{},
	}, nil
}

func (e *Engine) commentFanoutTarget(ctx context.Context, created *domain.Comment, parent *domain.Comment) (recipient, message, link string) {
	link = "/posts/" + created.PostID + "#comment-" + created.ID
	if parent != nil {
		return parent.AuthorID, " replied to your comment", link
	}
	post, err := e.store.GetPostByID(ctx, created.PostID)
	if err != nil {
		return "", "", ""
	}
	return post.AuthorID, " commented on your post", link
}

// UpdateComment меняет текст комментария. Разрешено только автору.
func (e *Engine) UpdateComment(ctx context.Context, actorID, commentID, content string) (*domain.CommentNode, error) {
	if err := validateContent(content); err != nil {
		return nil, err
	}

	comment, err := e.store.GetCommentByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actorID {
		return nil, fmt.Errorf("%w: only the author can edit a comment", domain.ErrForbidden)
	}

	comment.Content = strings.TrimSpace(content)
	if err := e.store.SaveComment(ctx, comment); err != nil {
		return nil, err
	}

	isLiked := false
	if _, err := e.store.FindLike(ctx, domain.CommentTarget(comment.ID), actorID); err == nil {
		isLiked = true
	}
	return &domain.CommentNode{
		Comment:   comment,
		LikeCount: len(comment.LikeRefs),
		IsLiked:   isLiked,
		Replies:   []*domain.CommentNode{},
	}, nil
}

// DeleteComment удаляет комментарий со всем поддеревом.
//
// Обход в глубину, дети раньше родителя; на каждом удаленном узле
// счетчик комментариев поста уменьшается на единицу, так что в сумме
// он падает ровно на 1 + число потомков. Лайки каждого удаленного
// узла снимаются, корень отцепляется от родителя или от списка
// комментариев поста. Все - в одной транзакции: любая ошибка
// откатывает каскад целиком.
//
// Саспенд и удаление ортогональны: автор может удалить и
// саспендженный комментарий.
func (e *Engine) DeleteComment(ctx context.Context, actorID, commentID string) error {
	root, err := e.store.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if root.AuthorID != actorID {
		return fmt.Errorf("%w: only the author can delete a comment", domain.ErrForbidden)
	}

	return e.store.InTransaction(ctx, func(tx storage.Storage) error {
		// Корень перечитываем в транзакции: список Replies из
		// снимка до нее мог пополниться конкурентным ответом,
		// и обход по устаревшему списку оставил бы его висеть.
		root, err := tx.GetCommentByID(ctx, commentID)
		if err != nil {
			return err
		}
		post, err := tx.GetPostByID(ctx, root.PostID)
		if err != nil {
			return err
		}

		var deleteSubtree func(c *domain.Comment) error
		deleteSubtree = func(c *domain.Comment) error {
			for _, childID := range c.Replies {
				child, err := tx.GetCommentByID(ctx, childID)
				if err != nil {
					if errors.Is(err, domain.ErrNotFound) {
						// Висячая ссылка на уже удаленного ребенка.
						continue
					}
					return err
				}
				if err := deleteSubtree(child); err != nil {
					return err
				}
			}
			if err := tx.DeleteLikesByTarget(ctx, domain.CommentTarget(c.ID)); err != nil {
				return err
			}
			if err := tx.DeleteComment(ctx, c.ID); err != nil {
				return err
			}
			post.CommentCount--
			return nil
		}
		if err := deleteSubtree(root); err != nil {
			return err
		}

		// Отцепляем корень от владельца.
		if root.ParentID != nil {
			parent, err := tx.GetCommentByID(ctx, *root.ParentID)
			switch {
			case err == nil:
				parent.Replies = withoutID(parent.Replies, root.ID)
				if err := tx.SaveComment(ctx, parent); err != nil {
					return err
				}
			case errors.Is(err, domain.ErrNotFound):
				// Родитель уже исчез - отцеплять не от чего.
			default:
				return err
			}
		} else {
			post.CommentRefs = withoutID(post.CommentRefs, root.ID)
		}

		return tx.SavePost(ctx, post)
	})
}

func withoutID(ids []string, id string) []string {
	return lo.Without(ids, id)
}
