package utils

import (
	"errors"
	"fmt"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrorRecordNotFound = errors.New("record not found")

// ErrLockNotObtained is returned when another request holds the entity lock.
var ErrLockNotObtained = errors.New("resource is busy, try again")

// ValidationError reports a precondition that was not met. Nothing was written.
type ValidationError struct {
	Message string
	// Conflict marks a state conflict (wrong status, already done) as opposed to bad input.
	Conflict bool
}

func (e *ValidationError) Error() string {
	return e.Message
}

func NewValidationError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

func NewConflictError(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Conflict: true}
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsConflictError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve) && ve.Conflict
}

// RemoteOperationError wraps a failed read/write against the database or redis.
type RemoteOperationError struct {
	Op  string
	Err error
}

func (e *RemoteOperationError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *RemoteOperationError) Unwrap() error {
	return e.Err
}

// WrapRemote classifies a store error. Not-found and domain errors pass through untouched.
func WrapRemote(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorRecordNotFound
	}
	var ve *ValidationError
	var re *RemoteOperationError
	if errors.As(err, &ve) || errors.As(err, &re) ||
		errors.Is(err, ErrorRecordNotFound) || errors.Is(err, ErrLockNotObtained) {
		return err
	}
	return &RemoteOperationError{Op: op, Err: err}
}

// IsDuplicateKeyError reports a unique-constraint violation on any supported dialect.
func IsDuplicateKeyError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqlDriver.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}
