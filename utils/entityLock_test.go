package utils_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
)

func TestWithEntityLockSerializes(t *testing.T) {
	config.SetRedis(nil)
	ctx := context.Background()

	var holders, maxHolders int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := utils.WithEntityLock(ctx, "event", 1, func() error {
				n := atomic.AddInt32(&holders, 1)
				for {
					m := atomic.LoadInt32(&maxHolders)
					if n <= m || atomic.CompareAndSwapInt32(&maxHolders, m, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&holders, -1)
				return nil
			})
			if err != nil {
				t.Errorf("WithEntityLock: %v", err)
			}
		}()
	}
	wg.Wait()
	if maxHolders != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxHolders)
	}
}

func TestObtainLockRespectsContext(t *testing.T) {
	config.SetRedis(nil)

	release, err := utils.ObtainLock(context.Background(), utils.EntityLockKey("event", 2))
	if err != nil {
		t.Fatalf("ObtainLock: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := utils.ObtainLock(ctx, utils.EntityLockKey("event", 2)); !errors.Is(err, utils.ErrLockNotObtained) {
		t.Fatalf("expected ErrLockNotObtained, got %v", err)
	}

	// other entities are independent
	otherRelease, err := utils.ObtainLock(context.Background(), utils.EntityLockKey("event", 3))
	if err != nil {
		t.Fatalf("ObtainLock other: %v", err)
	}
	otherRelease()

	release()
	release()
	again, err := utils.ObtainLock(context.Background(), utils.EntityLockKey("event", 2))
	if err != nil {
		t.Fatalf("ObtainLock after release: %v", err)
	}
	again()
}

func TestWithEntityLockReturnsFnError(t *testing.T) {
	config.SetRedis(nil)
	want := errors.New("boom")
	if err := utils.WithEntityLock(context.Background(), "staff_assignment", 9, func() error { return want }); !errors.Is(err, want) {
		t.Fatalf("got %v", err)
	}
}
