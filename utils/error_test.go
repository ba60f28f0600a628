package utils_test

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"gorm.io/gorm"
)

func TestWrapRemote(t *testing.T) {
	if utils.WrapRemote("op", nil) != nil {
		t.Fatalf("nil must stay nil")
	}
	if err := utils.WrapRemote("op", gorm.ErrRecordNotFound); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("record not found: got %v", err)
	}
	ve := utils.NewConflictError("order %d is Purchased", 3)
	if err := utils.WrapRemote("op", ve); err != ve {
		t.Fatalf("domain errors must pass through, got %v", err)
	}
	if err := utils.WrapRemote("op", utils.ErrLockNotObtained); !errors.Is(err, utils.ErrLockNotObtained) {
		t.Fatalf("lock errors must pass through, got %v", err)
	}

	cause := errors.New("connection reset")
	err := utils.WrapRemote("fetch ingredient", cause)
	var remote *utils.RemoteOperationError
	if !errors.As(err, &remote) || remote.Op != "fetch ingredient" {
		t.Fatalf("expected RemoteOperationError, got %v", err)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("wrapped error must unwrap to its cause")
	}
	if again := utils.WrapRemote("outer", err); again != err {
		t.Fatalf("already wrapped errors must not be wrapped twice")
	}
}

func TestValidationAndConflictErrors(t *testing.T) {
	validation := utils.NewValidationError("bad input")
	conflict := utils.NewConflictError("wrong state")
	wrapped := fmt.Errorf("handler: %w", conflict)

	if !utils.IsValidationError(validation) || utils.IsConflictError(validation) {
		t.Fatalf("validation error misclassified")
	}
	if !utils.IsValidationError(wrapped) || !utils.IsConflictError(wrapped) {
		t.Fatalf("wrapped conflict misclassified")
	}
	if utils.IsValidationError(errors.New("plain")) {
		t.Fatalf("plain error misclassified")
	}
}

func TestIsDuplicateKeyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"gorm translated", gorm.ErrDuplicatedKey, true},
		{"mysql 1062", &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{"mysql other", &mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock"}, false},
		{"wrapped", fmt.Errorf("insert: %w", gorm.ErrDuplicatedKey), true},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := utils.IsDuplicateKeyError(tt.err); got != tt.want {
				t.Fatalf("got %v want %v", got, tt.want)
			}
		})
	}
}
