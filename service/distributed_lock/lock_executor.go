/*
 * @module service/distributed_lock/lock_executor
 * @description 在分布式锁保护下执行任务，可选定时续期
 * @architecture 工具层 - 分布式锁
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 获取锁 -> 执行任务(续期) -> 释放锁
 * @rules 未获取到锁时跳过执行，不视为错误
 * @dependencies context, time
 * @refs service/scheduler/scheduler_service.go
 */

package distributed_lock

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// LockExecutor 带锁执行器，用于简化锁的使用
type LockExecutor struct {
	lock DistributedLock
}

// NewLockExecutor 创建带锁执行器
func NewLockExecutor(lock DistributedLock) *LockExecutor {
	return &LockExecutor{lock: lock}
}

// ExecuteWithLock 在锁保护下执行函数，锁被其他实例持有时跳过并返回 false
func (e *LockExecutor) ExecuteWithLock(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) error) (bool, error) {
	locked, err := e.lock.TryLock(ctx, key, ttl)
	if err != nil {
		return false, fmt.Errorf("获取锁失败: %w", err)
	}
	if !locked {
		slog.Debug("分布式锁: 锁已被其他实例持有，跳过执行", "key", key)
		return false, nil
	}

	defer func() {
		// 释放不跟随调用方的取消
		unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if unlockErr := e.lock.Unlock(unlockCtx, key); unlockErr != nil {
			slog.Error("分布式锁: 释放锁失败", "key", key, "error", unlockErr)
		}
	}()

	return true, fn(ctx)
}

// ExecuteWithLockAndRefresh 在锁保护下执行函数，并按 refreshInterval 自动续期
func (e *LockExecutor) ExecuteWithLockAndRefresh(ctx context.Context, key string, ttl, refreshInterval time.Duration, fn func(ctx context.Context) error) (bool, error) {
	return e.ExecuteWithLock(ctx, key, ttl, func(ctx context.Context) error {
		refreshCtx, cancelRefresh := context.WithCancel(ctx)
		defer cancelRefresh()

		go func() {
			ticker := time.NewTicker(refreshInterval)
			defer ticker.Stop()

			for {
				select {
				case <-refreshCtx.Done():
					return
				case <-ticker.C:
					if refreshErr := e.lock.Refresh(refreshCtx, key, ttl); refreshErr != nil {
						slog.Error("分布式锁: 续期失败", "key", key, "error", refreshErr)
					}
				}
			}
		}()

		return fn(ctx)
	})
}
