package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/emrgen/pidkeeper/internal/model"
)

const documentTTL = time.Hour

func documentKey(v3 string) string {
	return "pid:document:" + v3
}

var _ DocumentCache = (*Redis)(nil)

type Redis struct {
	client *redis.Client
}

func NewRedis(addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client}, nil
}

// GetDocument returns the cached row for v3, or nil on a miss.
func (r *Redis) GetDocument(ctx context.Context, v3 string) (*model.Document, error) {
	value, err := r.client.Get(ctx, documentKey(v3)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var doc model.Document
	if err := json.Unmarshal([]byte(value), &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *Redis) SetDocument(ctx context.Context, doc *model.Document) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, documentKey(doc.V3), value, documentTTL).Err()
}
