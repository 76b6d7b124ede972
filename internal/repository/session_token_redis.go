package repository

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/client-service/internal/domain"
)

const sessionKeyPrefix = "session:"

// touchScript performs the conditional Valid/last-used update server-side.
// Redis executes scripts atomically, which gives the per-token
// read-then-write the same guarantee the Postgres backend gets from a
// single conditional UPDATE.
var touchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return false
end
if redis.call('HGET', KEYS[1], 'status') ~= 'Invalid' then
  redis.call('HSET', KEYS[1], 'status', 'Valid', 'last_used_at', ARGV[1])
end
return redis.call('HGETALL', KEYS[1])
`)

type redisSessionTokenRepository struct {
	client *redis.Client
}

// NewRedisSessionTokenRepository returns a Redis-backed implementation
// storing each record as a hash under session:<token>.
func NewRedisSessionTokenRepository(client *redis.Client) SessionTokenRepository {
	return &redisSessionTokenRepository{client: client}
}

func (r *redisSessionTokenRepository) Create(ctx context.Context, token string, userID int64, username string) (*domain.SessionTokenRecord, error) {
	now := time.Now().UTC()
	record := &domain.SessionTokenRecord{
		Token:      token,
		UserID:     userID,
		Username:   username,
		Status:     domain.TokenStatusActive,
		LastUsedAt: now,
		CreatedAt:  now,
	}

	fields := map[string]any{
		"user_id":      userID,
		"username":     username,
		"status":       string(domain.TokenStatusActive),
		"last_used_at": now.Format(time.RFC3339Nano),
		"created_at":   now.Format(time.RFC3339Nano),
	}
	if err := r.client.HSet(ctx, sessionKeyPrefix+token, fields).Err(); err != nil {
		return nil, err
	}
	return record, nil
}

func (r *redisSessionTokenRepository) Get(ctx context.Context, token string) (*domain.SessionTokenRecord, error) {
	fields, err := r.client.HGetAll(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, ErrTokenNotFound
	}
	return recordFromHash(token, fields), nil
}

func (r *redisSessionTokenRepository) Touch(ctx context.Context, token string) (*domain.SessionTokenRecord, error) {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	result, err := touchScript.Run(ctx, r.client, []string{sessionKeyPrefix + token}, now).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	reply, ok := result.([]any)
	if !ok || len(reply) == 0 {
		return nil, ErrTokenNotFound
	}
	fields := make(map[string]string, len(reply)/2)
	for i := 0; i+1 < len(reply); i += 2 {
		key, _ := reply[i].(string)
		val, _ := reply[i+1].(string)
		fields[key] = val
	}
	return recordFromHash(token, fields), nil
}

func (r *redisSessionTokenRepository) Invalidate(ctx context.Context, token string) (bool, error) {
	return r.SetStatus(ctx, token, domain.TokenStatusInvalid)
}

func (r *redisSessionTokenRepository) SetStatus(ctx context.Context, token string, status domain.TokenStatus) (bool, error) {
	exists, err := r.client.Exists(ctx, sessionKeyPrefix+token).Result()
	if err != nil {
		return false, err
	}
	if exists == 0 {
		return false, nil
	}
	if err := r.client.HSet(ctx, sessionKeyPrefix+token, "status", string(status)).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func recordFromHash(token string, fields map[string]string) *domain.SessionTokenRecord {
	record := &domain.SessionTokenRecord{
		Token:    token,
		Username: fields["username"],
		Status:   domain.TokenStatus(fields["status"]),
	}
	record.UserID, _ = strconv.ParseInt(fields["user_id"], 10, 64)
	// Unparsable timestamps come back zero-valued; the guard self-heals
	// such records on next use.
	record.LastUsedAt, _ = time.Parse(time.RFC3339Nano, fields["last_used_at"])
	record.CreatedAt, _ = time.Parse(time.RFC3339Nano, fields["created_at"])
	return record
}
