package utils

import (
	"context"
	"reflect"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"gorm.io/gorm"
)

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

// check if id exists, return RecordNotFound Error
func ValidateResourceId[T any](ctx context.Context, id interface{}) error {
	count, err := ResourceCountWhere[T](config.GetDB().WithContext(ctx), "id = ?", id)
	if err != nil {
		return err
	}
	if count <= 0 {
		return ErrorRecordNotFound
	}
	return nil
}

// check if ALL ids exist
func ValidateResourcesId[M any, ID comparable](tx *gorm.DB, ids []ID) error {
	unqIds := UniqueSlice(ids)
	if len(unqIds) == 0 {
		return nil
	}

	count, err := ResourceCountWhere[M](tx, "id IN ?", unqIds)
	if err != nil {
		return err
	}
	if count != int64(len(unqIds)) {
		return NewValidationError("unknown %s id in %v", GetTypeName[M](), unqIds)
	}
	return nil
}

// count records, using WHERE $condition
func ResourceCountWhere[T any](tx *gorm.DB, condition string, value ...interface{}) (int64, error) {
	var model T
	var count int64
	if err := tx.Model(&model).Where(condition, value...).Count(&count).Error; err != nil {
		return 0, WrapRemote("count "+GetTypeName[T](), err)
	}
	return count, nil
}
