package workflow

import (
	"context"
	"fmt"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"gorm.io/gorm"
)

// WithAdvisoryLock serializes fn across instances using a database advisory lock named name.
// NOTE: mysql GET_LOCK and postgres pg_advisory_lock are connection-scoped, so the lock is taken
// and released on one pinned connection. sqlite has a single writer and runs fn directly.
func WithAdvisoryLock(ctx context.Context, name string, fn func() error) error {
	db := config.GetDB().WithContext(ctx)
	driver := db.Dialector.Name()
	if driver != config.DriverMySQL && driver != config.DriverPostgres {
		return fn()
	}

	return db.Connection(func(conn *gorm.DB) error {
		if err := acquireAdvisoryLock(conn, driver, name); err != nil {
			return err
		}
		defer releaseAdvisoryLock(conn, driver, name)
		return fn()
	})
}

func acquireAdvisoryLock(conn *gorm.DB, driver, name string) error {
	switch driver {
	case config.DriverMySQL:
		var ok int
		if err := conn.Raw("SELECT GET_LOCK(?, 30)", name).Scan(&ok).Error; err != nil {
			return err
		}
		if ok != 1 {
			return fmt.Errorf("could not acquire advisory lock %s", name)
		}
	case config.DriverPostgres:
		if err := conn.Exec("SELECT pg_advisory_lock(hashtext(?))", name).Error; err != nil {
			return err
		}
	}
	return nil
}

func releaseAdvisoryLock(conn *gorm.DB, driver, name string) {
	switch driver {
	case config.DriverMySQL:
		var _ok int
		_ = conn.Raw("SELECT RELEASE_LOCK(?)", name).Scan(&_ok).Error
	case config.DriverPostgres:
		_ = conn.Exec("SELECT pg_advisory_unlock(hashtext(?))", name).Error
	}
}
