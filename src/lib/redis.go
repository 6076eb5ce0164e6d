package lib

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

func GetRedisClient() *redis.Client {
	if redisClient != nil {
		return redisClient
	}
	redisHost := os.Getenv("REDIS_HOST")
	if redisHost == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisHost)
	if err != nil {
		log.Printf("[redis] Error parsing connection string: %s\n", err.Error())
		return nil
	}
	rdb := redis.NewClient(opt)
	redisClient = rdb
	return rdb
}

// NewRedisClient replaces the shared instance with a custom client.
func NewRedisClient(c *redis.Client) *redis.Client {
	redisClient = c
	return redisClient
}

// AcquireLease takes a short-lived exclusive lease. It returns false when the
// lease is already held, and a release func otherwise. Without redis
// configured there is nothing to coordinate against and the lease is a no-op.
func AcquireLease(ctx context.Context, key string, ttl time.Duration) (bool, func()) {
	rd := GetRedisClient()
	if rd == nil {
		return true, func() {}
	}
	ok, err := rd.SetNX(ctx, key, time.Now().UnixMilli(), ttl).Result()
	if err != nil {
		log.Printf("[redis] Error acquiring lease %s: %s\n", key, err.Error())
		return true, func() {}
	}
	if !ok {
		return false, func() {}
	}
	return true, func() {
		if err := rd.Del(context.Background(), key).Err(); err != nil {
			log.Printf("[redis] Error releasing lease %s: %s\n", key, err.Error())
		}
	}
}
