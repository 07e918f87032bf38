package sessioncache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"standup_bot/internal/domain/standup"
)

const sessionTTL = 24 * time.Hour

// Redis is a shared session cache for multi-instance deployments. Cache
// errors degrade to misses; the persisted response row remains the source
// of truth.
type Redis struct {
	client *redis.Client
	logger *logrus.Logger
}

func NewRedis(url string, logger *logrus.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}

	return &Redis{client: client, logger: logger}, nil
}

func (r *Redis) Get(ctx context.Context, userID string) (*standup.Session, bool) {
	val, err := r.client.Get(ctx, sessionKey(userID)).Result()
	if err != nil {
		if err != redis.Nil {
			r.logger.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("Session cache read failed")
		}
		return nil, false
	}

	session := &standup.Session{}
	if err := json.Unmarshal([]byte(val), session); err != nil {
		r.logger.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("Session cache entry corrupt")
		return nil, false
	}
	return session, true
}

func (r *Redis) Put(ctx context.Context, userID string, session *standup.Session) {
	data, err := json.Marshal(session)
	if err != nil {
		r.logger.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("Session cache encode failed")
		return
	}
	if err := r.client.Set(ctx, sessionKey(userID), data, sessionTTL).Err(); err != nil {
		r.logger.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("Session cache write failed")
	}
}

func (r *Redis) Delete(ctx context.Context, userID string) {
	if err := r.client.Del(ctx, sessionKey(userID)).Err(); err != nil {
		r.logger.WithFields(logrus.Fields{"user_id": userID, "error": err}).Warn("Session cache delete failed")
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

func sessionKey(userID string) string {
	return "session:" + userID
}
