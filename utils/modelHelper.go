package utils

import (
	"context"
	"errors"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"gorm.io/gorm"
)

/* DB fetching */

// fetch model from db
// (may return RecordNotFound)
func FetchModel[T any](ctx context.Context, id int, associations ...string) (*T, error) {
	return FetchModelTx[T](config.GetDB().WithContext(ctx), id, associations...)
}

// FetchModelTx fetches inside an open transaction.
func FetchModelTx[T any](tx *gorm.DB, id int, associations ...string) (*T, error) {
	query := tx
	for _, field := range associations {
		query = query.Preload(field)
	}
	var result T
	if err := query.First(&result, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, WrapRemote("fetch "+GetTypeName[T](), err)
	}
	return &result, nil
}

// fetch all models from db, ordered by id
func FetchAllModels[T any](ctx context.Context, associations ...string) ([]*T, error) {
	query := config.GetDB().WithContext(ctx)
	for _, field := range associations {
		query = query.Preload(field)
	}
	var results []*T
	if err := query.Order("id").Find(&results).Error; err != nil {
		return nil, WrapRemote("list "+GetTypeName[T](), err)
	}
	return results, nil
}
