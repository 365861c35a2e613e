package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"veritas/internal/revocation/models"
	id "veritas/pkg/domain"
	dErrors "veritas/pkg/domain-errors"
)

const listKeyPrefix = "revocation:list:"

// RedisStore keeps revocation lists in Redis as JSON documents. Lists are
// hot-path reads (every credential verification checks one), which is why
// Redis sits in front of the durable store in production wiring.
type RedisStore struct {
	client redis.Cmdable
}

// NewRedis constructs a Redis-backed revocation list store.
func NewRedis(client redis.Cmdable) *RedisStore {
	return &RedisStore{client: client}
}

func listKey(issuerID id.IssuerID) string {
	return listKeyPrefix + issuerID.String()
}

func (s *RedisStore) GetList(ctx context.Context, issuerID id.IssuerID) (*models.List, error) {
	raw, err := s.client.Get(ctx, listKey(issuerID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("get revocation list: %w", err)
	}
	var list models.List
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "decoding revocation list")
	}
	return &list, nil
}

func (s *RedisStore) PutList(ctx context.Context, list *models.List) error {
	if list == nil {
		return dErrors.New(dErrors.CodeBadRequest, "revocation list is required")
	}
	raw, err := json.Marshal(list)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "encoding revocation list")
	}
	if err := s.client.Set(ctx, listKey(list.IssuerID), raw, 0).Err(); err != nil {
		return fmt.Errorf("put revocation list: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
