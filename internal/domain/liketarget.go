package domain

// LikeTargetKind различает два вида целей лайка.
type LikeTargetKind int

const (
	LikeTargetPost LikeTargetKind = iota + 1
	LikeTargetComment
)

// LikeTarget - сумма-тип "пост XOR комментарий". Нулевое значение
// невалидно; конструировать только через PostTarget/CommentTarget.
type LikeTarget struct {
	kind LikeTargetKind
	id   string
}

// PostTarget создает цель-пост.
func PostTarget(postID string) LikeTarget {
	return LikeTarget{kind: LikeTargetPost, id: postID}
}

// CommentTarget создает цель-комментарий.
func CommentTarget(commentID string) LikeTarget {
	return LikeTarget{kind: LikeTargetComment, id: commentID}
}

func (t LikeTarget) Kind() LikeTargetKind { return t.kind }
func (t LikeTarget) ID() string           { return t.id }

// IsZero сообщает, что цель не была сконструирована.
func (t LikeTarget) IsZero() bool { return t.kind == 0 || t.id == "" }
