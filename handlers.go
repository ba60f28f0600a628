package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/workflow"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// respondError maps the error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case utils.IsConflictError(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case utils.IsValidationError(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrLockNotObtained):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case models.IsInvalidLogin(err):
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	default:
		cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
		config.LogError(config.GetLogger(), "handlers.go", "respondError", c.FullPath(), cid, err)
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func intParam(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

func bindJSON(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}

func respond[T any](c *gin.Context, status int, result T, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, result)
}

// idempotentTransition runs a retry-safe state change. A repeated Idempotency-Key that already
// succeeded answers with the entity's current state instead of running again.
func idempotentTransition[T any](c *gin.Context, handlerName string, run func(ctx context.Context) (T, error), current func(ctx context.Context) (T, error)) {
	ctx := c.Request.Context()
	var result T
	skipped, err := workflow.RunIdempotent(ctx, handlerName, c.GetHeader(IdempotencyKeyHeader), func(ctx context.Context) error {
		var err error
		result, err = run(ctx)
		return err
	})
	if err == nil && skipped {
		result, err = current(ctx)
	}
	respond(c, http.StatusOK, result, err)
}
