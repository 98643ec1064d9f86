package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"pensionfund/internal/config"

	"github.com/go-redis/redis/v8"
)

// Redis 在本系统承担两类职责：
// 1. 参与人级分布式锁（缴存/提取互斥，防止同一账户并发资金变动）
// 2. 基金统计缓存（短 TTL，容忍秒级陈旧）
// 两类键统一走下面的 key 构造函数，保证命名空间不冲突

const keyPrefix = "pension"

// UserLockKey 参与人互斥锁键
func UserLockKey(userID int64) string {
	return fmt.Sprintf("%s:lock:user:%d", keyPrefix, userID)
}

// FundStatisticsKey 基金统计缓存键
func FundStatisticsKey() string {
	return keyPrefix + ":fund:statistics"
}

var RedisClient *redis.Client

func InitRedis(cfg *config.RedisConfig) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("连接 Redis 失败: %v", err)
	}

	RedisClient = client
	log.Println("Redis 连接成功")
	return client
}
