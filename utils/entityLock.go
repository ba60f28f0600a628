package utils

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/sirupsen/logrus"
)

const entityLockTTL = 30 * time.Second

// in-process fallback when redis is not configured
var localLocks = &keyedLocks{held: make(map[string]chan struct{})}

type keyedLocks struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

func (l *keyedLocks) acquire(ctx context.Context, key string) (func(), error) {
	for {
		l.mu.Lock()
		ch, busy := l.held[key]
		if !busy {
			done := make(chan struct{})
			l.held[key] = done
			l.mu.Unlock()
			var once sync.Once
			return func() {
				once.Do(func() {
					l.mu.Lock()
					delete(l.held, key)
					close(done)
					l.mu.Unlock()
				})
			}, nil
		}
		l.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ErrLockNotObtained
		}
	}
}

func EntityLockKey(entity string, id int) string {
	return fmt.Sprintf("lock:%s:%d", entity, id)
}

// ObtainLock serializes check-and-act sequences on one entity across instances.
// The returned release func must be called once the transaction has committed or rolled back.
func ObtainLock(ctx context.Context, key string) (release func(), err error) {
	locker := config.GetRedisLock()
	if locker == nil {
		waitCtx, cancel := context.WithTimeout(ctx, entityLockTTL)
		defer cancel()
		return localLocks.acquire(waitCtx, key)
	}

	lock, err := locker.Obtain(ctx, key, entityLockTTL, &redislock.Options{
		RetryStrategy: redislock.LimitRetry(redislock.LinearBackoff(100*time.Millisecond), 100),
	})
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, WrapRemote("obtain lock "+key, err)
	}
	return func() {
		if releaseErr := lock.Release(context.Background()); releaseErr != nil && !errors.Is(releaseErr, redislock.ErrLockNotHeld) {
			config.GetLogger().WithFields(logrus.Fields{
				"field": "ObtainLock",
				"key":   key,
			}).Warn("failed to release redis lock: " + releaseErr.Error())
		}
	}, nil
}

// WithEntityLock runs fn while holding the lock for entity/id.
func WithEntityLock(ctx context.Context, entity string, id int, fn func() error) error {
	release, err := ObtainLock(ctx, EntityLockKey(entity, id))
	if err != nil {
		return err
	}
	defer release()
	return fn()
}
