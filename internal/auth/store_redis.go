// Copyright (c) 2026 Folio Works. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/folioworks/folio/internal/platform/apperr"
	"github.com/folioworks/folio/internal/platform/constants"
)

// RedisResetTokenRepository implements ResetTokenRepository using Redis.
type RedisResetTokenRepository struct {
	client *redis.Client
}

// NewResetTokenRepository creates a new Redis-backed ResetTokenRepository.
func NewResetTokenRepository(client *redis.Client) *RedisResetTokenRepository {
	return &RedisResetTokenRepository{client: client}
}

/*
Set stores a reset token with its associated userID and TTL.

Parameters:
  - context: context.Context
  - token: string
  - userID: string
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (repository *RedisResetTokenRepository) Set(context context.Context, token string, userID string, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixResetToken + token

	// Set the token with TTL
	if err := repository.client.Set(context, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Get retrieves the userID for a given token.

Description: Returns apperr.NotFound if the token is absent or expired.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - string: Original UserID
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisResetTokenRepository) Get(context context.Context, token string) (string, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixResetToken + token

	// Get the token from Redis
	userID, err := repository.client.Get(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Reset token is invalid or expired")
		}
		return "", fmt.Errorf("redis_reset_token_get_failed: %w", err)
	}

	// Return the userID
	return userID, nil
}

/*
Delete removes the token from Redis.

Parameters:
  - context: context.Context
  - token: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisResetTokenRepository) Delete(context context.Context, token string) error {

	// Use constants for key prefix
	key := constants.RedisPrefixResetToken + token

	// Delete the token from Redis
	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_reset_token_delete_failed: %w", err)
	}

	// Return nil on success
	return nil
}

// # OAuth State Repository

// RedisStateRepository implements StateRepository using Redis.
type RedisStateRepository struct {
	client *redis.Client
}

// NewStateRepository creates a new Redis-backed StateRepository.
func NewStateRepository(client *redis.Client) *RedisStateRepository {
	return &RedisStateRepository{client: client}
}

/*
Set stores an OAuth state nonce with the provider name and a TTL bounding the
redirect round-trip window.

Parameters:
  - context: context.Context
  - state: string
  - provider: string
  - ttl: time.Duration

Returns:
  - error: Storage failures
*/
func (repository *RedisStateRepository) Set(context context.Context, state string, provider string, ttl time.Duration) error {

	// Use constants for key prefix
	key := constants.RedisPrefixOAuthState + state

	// Set the state with TTL
	if err := repository.client.Set(context, key, provider, ttl).Err(); err != nil {
		return fmt.Errorf("redis_oauth_state_set_failed: %w", err)
	}

	// Return nil on success
	return nil
}

/*
Consume retrieves and deletes the state in a single atomic GETDEL, so a state
can never be replayed across two concurrent callbacks.

Parameters:
  - context: context.Context
  - state: string

Returns:
  - string: Provider name the state was issued for
  - error: apperr.NotFound or connectivity errors
*/
func (repository *RedisStateRepository) Consume(context context.Context, state string) (string, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixOAuthState + state

	// Atomically fetch and remove the state
	provider, err := repository.client.GetDel(context, key).Result()

	// Handle errors
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("OAuth state is invalid or expired")
		}
		return "", fmt.Errorf("redis_oauth_state_consume_failed: %w", err)
	}

	// Return the provider
	return provider, nil
}
