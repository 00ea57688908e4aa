package repository

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/sha3"

	redisapp "github.com/mikutaniguchi/ticket-collection/internal/storage/redis"
)

const scanBatch = 100

type RedisTokenRepo struct {
	Client *redisapp.Client
}

func NewRedisTokenRepo(client *redisapp.Client) *RedisTokenRepo {
	return &RedisTokenRepo{Client: client}
}

func (r *RedisTokenRepo) SaveRefreshToken(ctx context.Context, userID, token string, exp time.Duration) error {
	return r.Client.Set(ctx, refreshTokenKey(userID, token), "1", exp).Err()
}

func (r *RedisTokenRepo) GetRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	val, err := r.Client.Get(ctx, refreshTokenKey(userID, token)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "1", nil
}

func (r *RedisTokenRepo) DeleteRefreshToken(ctx context.Context, userID, token string) error {
	return r.Client.Del(ctx, refreshTokenKey(userID, token)).Err()
}

// DeleteAllUserTokens revokes every refresh token of the user. Keys are
// collected with SCAN, not KEYS.
func (r *RedisTokenRepo) DeleteAllUserTokens(ctx context.Context, userID string) error {
	var (
		cursor uint64
		keys   []string
	)
	for {
		batch, next, err := r.Client.Scan(ctx, cursor, refreshTokenPrefix(userID)+"*", scanBatch).Result()
		if err != nil {
			return err
		}
		keys = append(keys, batch...)
		if next == 0 {
			break
		}
		cursor = next
	}

	if len(keys) == 0 {
		return nil
	}
	return r.Client.Del(ctx, keys...).Err()
}

func refreshTokenPrefix(userID string) string {
	return "refresh:" + userID + ":"
}

// refreshTokenKey stores a digest of the token, never the token itself.
func refreshTokenKey(userID, token string) string {
	sum := sha3.Sum256([]byte(token))
	return refreshTokenPrefix(userID) + hex.EncodeToString(sum[:])
}
