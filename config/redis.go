// config/redis.go
package config

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

var redisClient *redis.Client

// ConnectRedis connects to Redis and verifies the connection with a ping.
// Redis is optional: when it is unreachable the function returns nil and
// the features built on it fall back to degraded behavior.
func ConnectRedis() *redis.Client {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}

	db := 0
	if v := os.Getenv("REDIS_DB"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Warning: invalid REDIS_DB %q, using database 0", v)
		} else {
			db = parsed
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASSWORD"),
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		PoolSize:     10,
		MaxRetries:   2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis unreachable at %s: %v", addr, err)
		log.Println("Confirmation latch and email metrics will be disabled")
		return nil
	}

	log.Println("Connected to Redis")
	redisClient = client
	return client
}

// GetRedisClient returns the shared client, nil when Redis is disabled
func GetRedisClient() *redis.Client {
	return redisClient
}

// CloseRedis closes the Redis connection if one was established
func CloseRedis() {
	if redisClient != nil {
		redisClient.Close()
	}
}
