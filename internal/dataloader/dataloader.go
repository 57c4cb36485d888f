package dataloader

import (
	"context"
	"net/http"
	"time"

	"github.com/graph-gophers/dataloader"

	"github.com/whirlpost/blog-engine/internal/storage"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	RepliesByParentID *dataloader.Loader
	LikesByCommentID  *dataloader.Loader
}

// Middleware для внедрения лоадеров в контекст запроса.
// Каждый лоадер собирает ключи одного тика в единственный
// батч-запрос к хранилищу - одно обращение на уровень дерева.
func Middleware(store storage.Storage, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		repliesFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
			parentIDs := make([]string, len(keys))
			for i, k := range keys {
				parentIDs[i] = k.String()
			}

			commentsMap, err := store.GetCommentsByParentIDs(ctx, parentIDs)
			if err != nil {
				return errorResults(keys, err)
			}

			results := make([]*dataloader.Result, len(keys))
			for i, parentID := range parentIDs {
				results[i] = &dataloader.Result{Data: commentsMap[parentID]}
			}
			return results
		}

		likesFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
			commentIDs := make([]string, len(keys))
			for i, k := range keys {
				commentIDs[i] = k.String()
			}

			likesMap, err := store.GetLikesByCommentIDs(ctx, commentIDs)
			if err != nil {
				return errorResults(keys, err)
			}

			results := make([]*dataloader.Result, len(keys))
			for i, commentID := range commentIDs {
				results[i] = &dataloader.Result{Data: likesMap[commentID]}
			}
			return results
		}

		loaders := Loaders{
			RepliesByParentID: dataloader.NewBatchedLoader(repliesFn, dataloader.WithWait(time.Millisecond*1)),
			LikesByCommentID:  dataloader.NewBatchedLoader(likesFn, dataloader.WithWait(time.Millisecond*1)),
		}

		ctx := context.WithValue(r.Context(), key, &loaders)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// errorResults возвращает ошибку батча для всех ключей сразу.
func errorResults(keys dataloader.Keys, err error) []*dataloader.Result {
	results := make([]*dataloader.Result, len(keys))
	for i := range results {
		results[i] = &dataloader.Result{Error: err}
	}
	return results
}

// For извлекает лоадеры из контекста.
func For(ctx context.Context) *Loaders {
	return ctx.Value(key).(*Loaders)
}
