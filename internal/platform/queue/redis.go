package queue

import (
	"context"
	"time"
	"trippey_quests/internal/platform/config"
	"trippey_quests/internal/platform/logging"

	"github.com/redis/go-redis/v9"
)

var RDB *redis.Client

func ConnectRedis() {
	RDB = redis.NewClient(&redis.Options{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout(config.AppConfig.RedisPingTimeout))
	defer cancel()
	if _, err := RDB.Ping(ctx).Result(); err != nil {
		logging.Log.Fatalf("Could not connect to Redis: %v", err)
	}
	logging.Log.Info("Connected to Redis")
}

func pingTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 5 * time.Second
	}
	return d
}

func CloseRedis() {
	if RDB != nil {
		RDB.Close()
		logging.Log.Info("Redis connection closed")
	}
}
