package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"gorm.io/gorm"
)

var ErrIdempotencyInProgress = errors.New("idempotency in progress")

// a STARTED key younger than this belongs to a request that is still running
const staleStartedAfter = 5 * time.Minute

// BeginIdempotency inserts STARTED. If SUCCEEDED exists, returns (true, nil) meaning "skip safely".
func BeginIdempotency(tx *gorm.DB, handlerName, key string) (skip bool, err error) {
	row := models.IdempotencyKey{
		HandlerName: handlerName,
		Key:         key,
		Status:      models.IdempotencyStatusStarted,
	}
	if err := tx.Create(&row).Error; err == nil {
		return false, nil
	} else if !utils.IsDuplicateKeyError(err) {
		return false, err
	}

	var existing models.IdempotencyKey
	if err := tx.Where("handler_name = ? AND idem_key = ?", handlerName, key).First(&existing).Error; err != nil {
		return false, err
	}

	switch existing.Status {
	case models.IdempotencyStatusSucceeded:
		return true, nil
	case models.IdempotencyStatusStarted:
		if time.Since(existing.UpdatedAt) < staleStartedAfter {
			return false, ErrIdempotencyInProgress
		}
	}
	// stale STARTED or FAILED: retry on the same row
	return false, tx.Model(&models.IdempotencyKey{}).
		Where("id = ?", existing.ID).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusStarted, "last_error": nil}).Error
}

func MarkIdempotencySucceeded(tx *gorm.DB, handlerName, key string) error {
	return tx.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND idem_key = ?", handlerName, key).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusSucceeded, "last_error": nil}).Error
}

func MarkIdempotencyFailed(tx *gorm.DB, handlerName, key string, err error) error {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return tx.Model(&models.IdempotencyKey{}).
		Where("handler_name = ? AND idem_key = ?", handlerName, key).
		Updates(map[string]interface{}{"status": models.IdempotencyStatusFailed, "last_error": &msg}).Error
}

// RunIdempotent runs fn once per (handlerName, key). An empty key runs fn unconditionally.
// skipped is true when the key already SUCCEEDED and fn was not called.
func RunIdempotent(ctx context.Context, handlerName, key string, fn func(ctx context.Context) error) (skipped bool, err error) {
	if key == "" {
		return false, fn(ctx)
	}
	db := config.GetDB().WithContext(ctx)

	skip, err := BeginIdempotency(db, handlerName, key)
	if err != nil {
		if errors.Is(err, ErrIdempotencyInProgress) {
			return false, utils.NewConflictError("request %s is already in progress", key)
		}
		return false, utils.WrapRemote("begin idempotency", err)
	}
	if skip {
		return true, nil
	}

	if runErr := fn(ctx); runErr != nil {
		if err := MarkIdempotencyFailed(db, handlerName, key, runErr); err != nil {
			config.LogError(config.GetLogger(), "idempotency.go", "RunIdempotent", "MarkIdempotencyFailed", key, err)
		}
		return false, runErr
	}
	if err := MarkIdempotencySucceeded(db, handlerName, key); err != nil {
		return false, utils.WrapRemote("mark idempotency succeeded", err)
	}
	return false, nil
}
