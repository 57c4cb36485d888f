package domain

import "errors"

// Таксономия ошибок ядра. Конкретика добавляется оберткой
// fmt.Errorf("%w: ...", ErrX), классификация - через errors.Is.
var (
	// ErrValidation - некорректный вход: пустой контент, превышение
	// глубины, самонацеливание и т.п.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound - цель отсутствует или скрыта саспендом.
	ErrNotFound = errors.New("not found")

	// ErrForbidden - нарушение владения или роли.
	ErrForbidden = errors.New("forbidden")

	// ErrDatabase - неожиданный сбой хранилища; транзакция к этому
	// моменту уже откатана.
	ErrDatabase = errors.New("database failure")
)
