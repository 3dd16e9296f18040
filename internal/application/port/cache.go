package port

import (
	"context"
	"errors"
)

// ErrCacheMiss возвращается, если ключ отсутствует в кеше
var ErrCacheMiss = errors.New("cache miss")

// Cache кеш последнего анализа и выборок истории.
// Значения сериализуются в JSON, срок жизни задает реализация.
type Cache interface {
	// Get читает значение в dest; ErrCacheMiss если ключа нет
	Get(ctx context.Context, key string, dest interface{}) error

	Set(ctx context.Context, key string, value interface{}) error

	Delete(ctx context.Context, key string) error

	// DeletePattern удаляет ключи по glob-шаблону (sremon:cycles:*)
	DeletePattern(ctx context.Context, pattern string) error

	Close() error
}
