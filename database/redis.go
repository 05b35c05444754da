package database

import (
	"fmt"

	"github.com/go-redis/redis"
)

// InitRedis return a redis instance
func InitRedis(ip string, port int, pass string, db int) *redis.Client {
	redisdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", ip, port),
		Password: pass,
		DB:       db,
	})
	return redisdb
}
