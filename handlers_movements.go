package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/middlewares"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
)

type movementLineView struct {
	models.InventoryMovementLine
	IngredientName string          `json:"ingredient_name"`
	Unit           models.BaseUnit `json:"unit"`
}

type movementView struct {
	*models.InventoryMovement
	Lines []movementLineView `json:"lines"`
}

func toMovementViews(ctx context.Context, movements []*models.InventoryMovement) ([]*movementView, error) {
	var ids []int
	for _, m := range movements {
		for _, l := range m.Lines {
			ids = append(ids, l.IngredientId)
		}
	}
	// one batched read for every line of every movement
	ingredients, errs := middlewares.GetIngredients(ctx, ids)
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	views := make([]*movementView, 0, len(movements))
	i := 0
	for _, m := range movements {
		view := &movementView{InventoryMovement: m, Lines: make([]movementLineView, 0, len(m.Lines))}
		for _, l := range m.Lines {
			lv := movementLineView{InventoryMovementLine: l}
			if ing := ingredients[i]; ing != nil {
				lv.IngredientName = ing.Name
				lv.Unit = ing.BaseUnit
			}
			i++
			view.Lines = append(view.Lines, lv)
		}
		views = append(views, view)
	}
	return views, nil
}

func respondMovement(c *gin.Context, status int, movement *models.InventoryMovement, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := toMovementViews(c.Request.Context(), []*models.InventoryMovement{movement})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(status, views[0])
}

func createInventoryMovementHandler(c *gin.Context) {
	var input models.NewInventoryMovement
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.CreateInventoryMovement(c.Request.Context(), &input)
	respondMovement(c, http.StatusCreated, result, err)
}

func listInventoryMovementsHandler(c *gin.Context) {
	var filter models.InventoryMovementFilter
	if v := c.Query("event_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event_id"})
			return
		}
		filter.EventId = &id
	}
	if v := c.Query("type"); v != "" {
		t := models.MovementType(v)
		if !t.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid type %q", v)})
			return
		}
		filter.Type = &t
	}
	if v := c.Query("state"); v != "" {
		s := models.MovementState(v)
		if !s.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid state %q", v)})
			return
		}
		filter.State = &s
	}

	ctx := c.Request.Context()
	movements, err := models.ListInventoryMovements(ctx, filter)
	if err != nil {
		respondError(c, err)
		return
	}
	views, err := toMovementViews(ctx, movements)
	respond(c, http.StatusOK, views, err)
}

func updateInventoryMovementHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.NewInventoryMovement
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.UpdateInventoryMovement(c.Request.Context(), id, &input)
	respondMovement(c, http.StatusOK, result, err)
}

func deleteInventoryMovementHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	if err := models.DeleteInventoryMovement(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func confirmInventoryMovementHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	idempotentTransition(c, fmt.Sprintf("confirm_inventory_movement:%d", id),
		func(ctx context.Context) (*models.InventoryMovement, error) {
			return models.ConfirmInventoryMovement(ctx, id)
		},
		func(ctx context.Context) (*models.InventoryMovement, error) {
			return models.GetInventoryMovement(ctx, id)
		})
}

func stockAuditHandler(c *gin.Context) {
	result, err := models.AuditIngredientStock(c.Request.Context())
	respond(c, http.StatusOK, result, err)
}
