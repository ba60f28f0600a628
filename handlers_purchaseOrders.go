package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
)

func generatePurchaseOrderHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.GeneratePurchaseOrder(c.Request.Context(), eventId)
	respond(c, http.StatusCreated, result, err)
}

func regeneratePurchaseOrderHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.RegeneratePurchaseOrder(c.Request.Context(), eventId)
	respond(c, http.StatusCreated, result, err)
}

func listEventPurchaseOrdersHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.ListEventPurchaseOrders(c.Request.Context(), eventId)
	respond(c, http.StatusOK, result, err)
}

func getPurchaseOrderHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.GetPurchaseOrder(c.Request.Context(), id)
	respond(c, http.StatusOK, result, err)
}

func exportPurchaseOrderHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	// fetch first so a missing order still answers 404 as JSON
	if _, err := models.GetPurchaseOrder(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=purchase-order-%d.xlsx", id))
	if err := models.ExportPurchaseOrderXlsx(c.Request.Context(), id, c.Writer); err != nil {
		respondError(c, err)
	}
}

func updatePurchaseOrderLineHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	lineId, ok := intParam(c, "lineId")
	if !ok {
		return
	}
	var input models.UpdatePurchaseOrderLineInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.UpdatePurchaseOrderLine(c.Request.Context(), id, lineId, &input)
	respond(c, http.StatusOK, result, err)
}

func recalculatePurchaseOrderHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.RecalculatePurchaseOrderTotal(c.Request.Context(), id)
	respond(c, http.StatusOK, result, err)
}

// purchaseOrderTransitionHandler wraps approve, purchase and cancel.
func purchaseOrderTransitionHandler(name string, transition func(context.Context, int) (*models.PurchaseOrder, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := intParam(c, "id")
		if !ok {
			return
		}
		idempotentTransition(c, fmt.Sprintf("%s_purchase_order:%d", name, id),
			func(ctx context.Context) (*models.PurchaseOrder, error) { return transition(ctx, id) },
			func(ctx context.Context) (*models.PurchaseOrder, error) { return models.GetPurchaseOrder(ctx, id) })
	}
}

func dispatchEventHandler(c *gin.Context) {
	eventId, ok := intParam(c, "id")
	if !ok {
		return
	}
	idempotentTransition(c, fmt.Sprintf("dispatch_event:%d", eventId),
		func(ctx context.Context) (*models.InventoryMovement, error) {
			return models.DispatchEventIngredients(ctx, eventId)
		},
		func(ctx context.Context) (*models.InventoryMovement, error) {
			return models.GetEventDispatchMovement(ctx, eventId)
		})
}
