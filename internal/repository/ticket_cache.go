package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	redisapp "github.com/mikutaniguchi/ticket-collection/internal/storage/redis"
)

// RedisTicketCache keeps each user's sorted ticket list as one JSON value.
type RedisTicketCache struct {
	Client *redisapp.Client
	ttl    time.Duration
}

func NewRedisTicketCache(client *redisapp.Client, ttl time.Duration) *RedisTicketCache {
	return &RedisTicketCache{Client: client, ttl: ttl}
}

func (c *RedisTicketCache) GetUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, bool, error) {
	const op = "repository.RedisTicketCache.GetUserTickets"

	raw, err := c.Client.Get(ctx, userTicketsKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	var tickets []models.Ticket
	if err := json.Unmarshal(raw, &tickets); err != nil {
		return nil, false, fmt.Errorf("%s: %w", op, err)
	}

	return tickets, true, nil
}

func (c *RedisTicketCache) SetUserTickets(ctx context.Context, userID uuid.UUID, tickets []models.Ticket) error {
	const op = "repository.RedisTicketCache.SetUserTickets"

	raw, err := json.Marshal(tickets)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.Client.Set(ctx, userTicketsKey(userID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *RedisTicketCache) InvalidateUser(ctx context.Context, userID uuid.UUID) error {
	const op = "repository.RedisTicketCache.InvalidateUser"

	if err := c.Client.Del(ctx, userTicketsKey(userID)).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func userTicketsKey(userID uuid.UUID) string {
	return "tickets:user:" + userID.String()
}
