package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pensionfund/internal/infrastructure/cache"
	"pensionfund/pkg/idgen"

	"github.com/go-redis/redis/v8"
)

// ============================================================================
// 分布式锁
// ============================================================================
//
// 核心假设是"同一参与人的资金操作串行执行"（缴存、提取之间不允许
// 交错观察到中间状态）。单实例下数据库事务已足够，多实例部署时由
// redis 锁把同一参与人的调用串行化。
//
// 加锁：SET key value NX EX timeout（NX 保证互斥，EX 防止死锁）
// 释放：Lua 脚本先验证 value 再删除，避免误删他人持有的锁
// ============================================================================

var (
	ErrLockFailed  = errors.New("获取分布式锁失败")
	ErrLockExpired = errors.New("锁已过期")
)

// DistributedLock 分布式锁
type DistributedLock struct {
	client     *redis.Client
	key        string        // 锁的 key
	value      string        // 锁的 value（用于验证锁的持有者）
	expiration time.Duration // 锁的过期时间
}

// NewDistributedLock 创建分布式锁
func NewDistributedLock(client *redis.Client, key, value string, expiration time.Duration) *DistributedLock {
	return &DistributedLock{
		client:     client,
		key:        key,
		value:      value,
		expiration: expiration,
	}
}

// TryLock 尝试获取锁（非阻塞）
func (l *DistributedLock) TryLock(ctx context.Context) (bool, error) {
	success, err := l.client.SetNX(ctx, l.key, l.value, l.expiration).Result()
	if err != nil {
		return false, err
	}
	return success, nil
}

// Lock 阻塞式获取锁（带重试）
func (l *DistributedLock) Lock(ctx context.Context, retryInterval time.Duration, maxRetries int) error {
	for i := 0; i < maxRetries; i++ {
		success, err := l.TryLock(ctx)
		if err != nil {
			return err
		}
		if success {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryInterval):
			// 继续重试
		}
	}
	return ErrLockFailed
}

// Unlock 释放锁
//
// 【关键点】Lua 脚本保证"检查+删除"原子执行：锁超时被他人接管后，
// 过期持有者的 Unlock 不会删掉新持有者的锁
func (l *DistributedLock) Unlock(ctx context.Context) error {
	script := `
		if redis.call("GET", KEYS[1]) == ARGV[1] then
			return redis.call("DEL", KEYS[1])
		else
			return 0
		end
	`
	_, err := l.client.Eval(ctx, script, []string{l.key}, l.value).Result()
	return err
}

// NewParticipantLock 按参与人维度的资金操作锁
//
// 粒度选择：同一参与人的缴存/提取互斥，不同参与人可并发
func NewParticipantLock(client *redis.Client, userID int64) *DistributedLock {
	key := cache.UserLockKey(userID)
	// value 使用雪花ID，便于追踪是哪次调用持有锁
	value := fmt.Sprintf("%d", idgen.NextID())
	return NewDistributedLock(client, key, value, 30*time.Second)
}
