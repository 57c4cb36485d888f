package service

import (
	"context"
	"io"
	"log/slog"
)

// RemoveResult - исход удаления файла в медиа-хранилище.
type RemoveResult struct {
	Success bool
}

// MediaStore - контракт внешнего хранилища файлов. Реализация
// (S3, локальный диск) вне ядра.
type MediaStore interface {
	// Store принимает файл и возвращает постоянный URL.
	Store(ctx context.Context, file io.Reader, name string) (string, error)
	// Remove удаляет файл по URL. Отказы толерируются вызывающим.
	Remove(ctx context.Context, url string) RemoveResult
}

// NoopMediaStore - заглушка для разработки и тестов: ничего не
// хранит, удаление всегда "успешно".
type NoopMediaStore struct {
	Log *slog.Logger
}

func (m *NoopMediaStore) Store(ctx context.Context, file io.Reader, name string) (string, error) {
	return "noop://" + name, nil
}

func (m *NoopMediaStore) Remove(ctx context.Context, url string) RemoveResult {
	if m.Log != nil {
		m.Log.Debug("noop media remove", "url", url)
	}
	return RemoveResult{Success: true}
}
