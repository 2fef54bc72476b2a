/*
 * @module service/distributed_lock/local_lock
 * @description 进程内锁实现，未配置Redis或Redis不可用时使用
 * @architecture 工具层 - 分布式锁
 * @documentReference dev_docs/data_contract.md
 * @stateFlow 获取锁 -> 到期自动失效 -> 释放锁
 * @rules 只在单实例部署下保证互斥
 * @dependencies sync, time
 * @refs service/init.go
 */

package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockNotHeld 锁不存在或已被其他持有者占用
var ErrLockNotHeld = errors.New("锁不存在或已被其他实例持有")

// LocalLock 进程内锁，单实例部署或未配置Redis时使用
type LocalLock struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewLocalLock 创建进程内锁
func NewLocalLock() *LocalLock {
	return &LocalLock{
		expires: make(map[string]time.Time),
		now:     time.Now,
	}
}

// held 调用方需持有 mu
func (l *LocalLock) held(key string) bool {
	exp, ok := l.expires[key]
	if !ok {
		return false
	}
	if !l.now().Before(exp) {
		delete(l.expires, key)
		return false
	}
	return true
}

// TryLock 尝试获取锁
func (l *LocalLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.held(key) {
		return false, nil
	}
	l.expires[key] = l.now().Add(ttl)
	return true, nil
}

// Unlock 释放锁
func (l *LocalLock) Unlock(ctx context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.expires, key)
	return nil
}

// Refresh 刷新锁的过期时间
func (l *LocalLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.held(key) {
		return ErrLockNotHeld
	}
	l.expires[key] = l.now().Add(ttl)
	return nil
}

// IsLocked 检查锁是否存在
func (l *LocalLock) IsLocked(ctx context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held(key), nil
}
