/*
 * @module service/distributed_lock/redis_lock
 * @description Redis分布式锁实现，用于多实例部署时每日指标任务只由一个实例执行
 * @architecture 工具层 - 提供分布式锁能力
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 获取锁 -> 执行任务 -> 释放锁/自动过期
 * @rules 使用Redis SET NX实现，只有持有者可以释放或续期，支持自动过期
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/init.go, service/scheduler/scheduler_service.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix 锁键默认前缀
const DefaultKeyPrefix = "datacontract:lock:"

// DistributedLock 分布式锁接口
type DistributedLock interface {
	// TryLock 尝试获取锁
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	// Unlock 释放锁
	Unlock(ctx context.Context, key string) error
	// Refresh 刷新锁的过期时间
	Refresh(ctx context.Context, key string, ttl time.Duration) error
	// IsLocked 检查锁是否存在
	IsLocked(ctx context.Context, key string) (bool, error)
}

// RedisConfig Redis连接配置
type RedisConfig struct {
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisLock Redis分布式锁实现
type RedisLock struct {
	client     *redis.Client
	instanceID string // 实例ID，用于标识锁的持有者
	prefix     string
}

const unlockScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

const refreshScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("pexpire", KEYS[1], ARGV[2])
	else
		return 0
	end
`

// NewRedisLock 创建Redis分布式锁并检查连接
func NewRedisLock(cfg RedisConfig) (*RedisLock, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("Redis连接失败: %w", err)
	}

	lock := NewRedisLockWithClient(client, cfg.KeyPrefix)
	slog.Info("Redis分布式锁初始化成功",
		"instance_id", lock.instanceID,
		"redis_host", cfg.Host,
		"redis_port", cfg.Port)
	return lock, nil
}

// NewRedisLockWithClient 使用已有客户端创建分布式锁
func NewRedisLockWithClient(client *redis.Client, prefix string) *RedisLock {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	hostname, _ := os.Hostname()
	return &RedisLock{
		client:     client,
		instanceID: fmt.Sprintf("%s:%d", hostname, os.Getpid()),
		prefix:     prefix,
	}
}

func (r *RedisLock) lockKey(key string) string {
	return r.prefix + key
}

// TryLock 尝试获取锁，只有当key不存在时才会设置成功
func (r *RedisLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.lockKey(key), r.instanceID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	if ok {
		slog.Debug("分布式锁: 成功获取锁", "key", key, "ttl", ttl, "instance", r.instanceID)
	}
	return ok, nil
}

// Unlock 释放锁，只有锁的持有者才能释放
func (r *RedisLock) Unlock(ctx context.Context, key string) error {
	n, err := r.client.Eval(ctx, unlockScript, []string{r.lockKey(key)}, r.instanceID).Int64()
	if err != nil {
		return fmt.Errorf("释放锁失败: %w", err)
	}
	if n == 0 {
		slog.Warn("分布式锁: 锁不存在或已被其他实例持有", "key", key, "instance", r.instanceID)
	}
	return nil
}

// Refresh 刷新锁的过期时间
func (r *RedisLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	n, err := r.client.Eval(ctx, refreshScript, []string{r.lockKey(key)}, r.instanceID, ttl.Milliseconds()).Int64()
	if err != nil {
		return fmt.Errorf("刷新锁失败: %w", err)
	}
	if n == 0 {
		return ErrLockNotHeld
	}
	return nil
}

// IsLocked 检查锁是否存在
func (r *RedisLock) IsLocked(ctx context.Context, key string) (bool, error) {
	exists, err := r.client.Exists(ctx, r.lockKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("检查锁状态失败: %w", err)
	}
	return exists > 0, nil
}

// Close 关闭Redis客户端
func (r *RedisLock) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
