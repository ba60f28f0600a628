package models_test

import (
	"errors"
	"testing"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
)

func TestPurchaseOrderLifecycle(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	if order.CurrentStatus != models.PurchaseOrderStatusDraft {
		t.Fatalf("expected Draft, got %s", order.CurrentStatus)
	}
	if order.NumberOfGuests != 20 {
		t.Fatalf("expected 20 guests from the quotation, got %d", order.NumberOfGuests)
	}
	if len(order.Lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(order.Lines))
	}
	assertDecimal(t, "rice to buy", order.Lines[0].QuantityToBuy, dec("1500"))
	assertDecimal(t, "bread to buy", order.Lines[1].QuantityToBuy, dec("4"))
	assertDecimal(t, "estimated total", order.EstimatedTotal, dec("3400"))

	if _, err := models.GeneratePurchaseOrder(ctx, fx.eventId); !utils.IsConflictError(err) {
		t.Fatalf("second generate: expected conflict, got %v", err)
	}

	// regenerate replaces the draft with identical numbers
	regenerated, err := models.RegeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("RegeneratePurchaseOrder: %v", err)
	}
	assertDecimal(t, "regenerated total", regenerated.EstimatedTotal, order.EstimatedTotal)
	if len(regenerated.Lines) != len(order.Lines) {
		t.Fatalf("regenerated %d lines, first run had %d", len(regenerated.Lines), len(order.Lines))
	}
	for i, want := range order.Lines {
		got := regenerated.Lines[i]
		if got.IngredientId != want.IngredientId {
			t.Fatalf("line %d: ingredient %d, first run had %d", i, got.IngredientId, want.IngredientId)
		}
		assertDecimal(t, "regenerated needed", got.QuantityNeeded, want.QuantityNeeded)
		assertDecimal(t, "regenerated in stock", got.QuantityInStock, want.QuantityInStock)
		assertDecimal(t, "regenerated to buy", got.QuantityToBuy, want.QuantityToBuy)
		assertDecimal(t, "regenerated subtotal", got.Subtotal, want.Subtotal)
	}
	if _, err := models.GetPurchaseOrder(ctx, order.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("old draft should be gone, got %v", err)
	}
	orders, err := models.ListEventPurchaseOrders(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("ListEventPurchaseOrders: %v", err)
	}
	if len(orders) != 1 || orders[0].ID != regenerated.ID {
		t.Fatalf("expected only order %d, got %+v", regenerated.ID, orders)
	}
	order = regenerated

	line, err := models.UpdatePurchaseOrderLine(ctx, order.ID, order.Lines[0].ID, &models.UpdatePurchaseOrderLineInput{
		QuantityToBuy: decPtr("1600"),
	})
	if err != nil {
		t.Fatalf("UpdatePurchaseOrderLine: %v", err)
	}
	assertDecimal(t, "edited subtotal", line.Subtotal, dec("3200"))

	order, err = models.RecalculatePurchaseOrderTotal(ctx, order.ID)
	if err != nil {
		t.Fatalf("RecalculatePurchaseOrderTotal: %v", err)
	}
	assertDecimal(t, "recalculated total", order.EstimatedTotal, dec("3600"))

	if _, err := models.MarkPurchaseOrderPurchased(ctx, order.ID); !utils.IsConflictError(err) {
		t.Fatalf("purchase before approve: expected conflict, got %v", err)
	}

	order, err = models.ApprovePurchaseOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("ApprovePurchaseOrder: %v", err)
	}
	if order.CurrentStatus != models.PurchaseOrderStatusApproved || order.ApprovedAt == nil {
		t.Fatalf("expected Approved with timestamp, got %+v", order)
	}
	if _, err := models.RegeneratePurchaseOrder(ctx, fx.eventId); !utils.IsConflictError(err) {
		t.Fatalf("regenerate approved: expected conflict, got %v", err)
	}
	if _, err := models.UpdatePurchaseOrderLine(ctx, order.ID, order.Lines[0].ID, &models.UpdatePurchaseOrderLineInput{
		QuantityToBuy: decPtr("1"),
	}); !utils.IsConflictError(err) {
		t.Fatalf("edit approved line: expected conflict, got %v", err)
	}
	if _, err := models.ApprovePurchaseOrder(ctx, order.ID); !utils.IsConflictError(err) {
		t.Fatalf("second approve: expected conflict, got %v", err)
	}

	order, err = models.MarkPurchaseOrderPurchased(ctx, order.ID)
	if err != nil {
		t.Fatalf("MarkPurchaseOrderPurchased: %v", err)
	}
	if order.CurrentStatus != models.PurchaseOrderStatusPurchased || order.PurchaseMovementId == nil {
		t.Fatalf("expected Purchased with a linked movement, got %+v", order)
	}
	assertDecimal(t, "rice after purchase", ingredientStock(t, ctx, fx.rice.ID), dec("2100"))
	assertDecimal(t, "bread after purchase", ingredientStock(t, ctx, fx.bread.ID), dec("4"))

	purchase, err := models.GetInventoryMovement(ctx, *order.PurchaseMovementId)
	if err != nil {
		t.Fatalf("GetInventoryMovement: %v", err)
	}
	if purchase.Type != models.MovementTypePurchase || purchase.State != models.MovementStateConfirmed {
		t.Fatalf("unexpected purchase movement %+v", purchase)
	}
	if len(purchase.Lines) != 2 {
		t.Fatalf("expected 2 purchase lines, got %d", len(purchase.Lines))
	}

	if _, err := models.MarkPurchaseOrderPurchased(ctx, order.ID); !utils.IsConflictError(err) {
		t.Fatalf("second purchase: expected conflict, got %v", err)
	}
	assertDecimal(t, "rice after repeated purchase", ingredientStock(t, ctx, fx.rice.ID), dec("2100"))

	if _, err := models.CancelPurchaseOrder(ctx, order.ID); !utils.IsConflictError(err) {
		t.Fatalf("cancel purchased: expected conflict, got %v", err)
	}
}

func TestDispatchEventIngredients(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	if _, err := models.DispatchEventIngredients(ctx, fx.eventId); !utils.IsConflictError(err) {
		t.Fatalf("dispatch without order: expected conflict, got %v", err)
	}
	if _, err := models.DispatchEventIngredients(ctx, fx.eventId+100); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("dispatch unknown event: expected not found, got %v", err)
	}

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	if _, err := models.ApprovePurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("ApprovePurchaseOrder: %v", err)
	}
	if _, err := models.DispatchEventIngredients(ctx, fx.eventId); !utils.IsConflictError(err) {
		t.Fatalf("dispatch approved order: expected conflict, got %v", err)
	}
	if _, err := models.MarkPurchaseOrderPurchased(ctx, order.ID); err != nil {
		t.Fatalf("MarkPurchaseOrderPurchased: %v", err)
	}
	// 500 + 1500 rice, 0 + 4 bread
	assertDecimal(t, "rice before dispatch", ingredientStock(t, ctx, fx.rice.ID), dec("2000"))

	movement, err := models.DispatchEventIngredients(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("DispatchEventIngredients: %v", err)
	}
	if movement.Type != models.MovementTypeUse || movement.State != models.MovementStateConfirmed {
		t.Fatalf("unexpected dispatch movement %+v", movement)
	}
	if movement.EventId == nil || *movement.EventId != fx.eventId {
		t.Fatalf("dispatch movement not linked to event: %+v", movement.EventId)
	}
	assertDecimal(t, "rice after dispatch", ingredientStock(t, ctx, fx.rice.ID), dec("0"))
	assertDecimal(t, "bread after dispatch", ingredientStock(t, ctx, fx.bread.ID), dec("0"))

	if _, err := models.DispatchEventIngredients(ctx, fx.eventId); !utils.IsConflictError(err) {
		t.Fatalf("second dispatch: expected conflict, got %v", err)
	}

	stored, err := models.GetEventDispatchMovement(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GetEventDispatchMovement: %v", err)
	}
	if stored.ID != movement.ID {
		t.Fatalf("expected dispatch movement %d, got %d", movement.ID, stored.ID)
	}
	order, err = models.GetPurchaseOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetPurchaseOrder: %v", err)
	}
	if order.DispatchedAt == nil || order.DispatchMovementId == nil || *order.DispatchMovementId != movement.ID {
		t.Fatalf("order not stamped with dispatch: %+v", order)
	}
}

func TestDispatchRefusedAfterManualUse(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	if _, err := models.ApprovePurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("ApprovePurchaseOrder: %v", err)
	}
	if _, err := models.MarkPurchaseOrderPurchased(ctx, order.ID); err != nil {
		t.Fatalf("MarkPurchaseOrderPurchased: %v", err)
	}

	manual, err := models.CreateInventoryMovement(ctx, &models.NewInventoryMovement{
		Type:    models.MovementTypeUse,
		EventId: &fx.eventId,
		Lines:   []models.NewInventoryMovementLine{{IngredientId: fx.rice.ID, Quantity: dec("100")}},
	})
	if err != nil {
		t.Fatalf("CreateInventoryMovement: %v", err)
	}
	// only a confirmed use counts against dispatch
	if _, err := models.ConfirmInventoryMovement(ctx, manual.ID); err != nil {
		t.Fatalf("ConfirmInventoryMovement: %v", err)
	}

	if _, err := models.DispatchEventIngredients(ctx, fx.eventId); !utils.IsConflictError(err) {
		t.Fatalf("dispatch after manual use: expected conflict, got %v", err)
	}
	assertDecimal(t, "rice", ingredientStock(t, ctx, fx.rice.ID), dec("1900"))
}

func TestCancelPurchaseOrderFreesEvent(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	first, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	if _, err := models.ApprovePurchaseOrder(ctx, first.ID); err != nil {
		t.Fatalf("ApprovePurchaseOrder: %v", err)
	}
	cancelled, err := models.CancelPurchaseOrder(ctx, first.ID)
	if err != nil {
		t.Fatalf("CancelPurchaseOrder: %v", err)
	}
	if cancelled.CurrentStatus != models.PurchaseOrderStatusCancelled || cancelled.CancelledAt == nil {
		t.Fatalf("expected Cancelled with timestamp, got %+v", cancelled)
	}
	if _, err := models.CancelPurchaseOrder(ctx, first.ID); !utils.IsConflictError(err) {
		t.Fatalf("second cancel: expected conflict, got %v", err)
	}
	assertDecimal(t, "rice untouched", ingredientStock(t, ctx, fx.rice.ID), dec("500"))

	second, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("generate after cancel: %v", err)
	}
	if second.ID == first.ID {
		t.Fatalf("expected a new order")
	}

	orders, err := models.ListEventPurchaseOrders(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("ListEventPurchaseOrders: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("expected cancelled and draft orders, got %d", len(orders))
	}
	if orders[0].CurrentStatus != models.PurchaseOrderStatusCancelled || orders[1].CurrentStatus != models.PurchaseOrderStatusDraft {
		t.Fatalf("unexpected statuses %s, %s", orders[0].CurrentStatus, orders[1].CurrentStatus)
	}
}

func TestUpdatePurchaseOrderLineRejectsNegative(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	_, err = models.UpdatePurchaseOrderLine(ctx, order.ID, order.Lines[0].ID, &models.UpdatePurchaseOrderLineInput{
		QuantityToBuy: decPtr("-1"),
	})
	if !utils.IsValidationError(err) || utils.IsConflictError(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = models.UpdatePurchaseOrderLine(ctx, order.ID, 9999, &models.UpdatePurchaseOrderLineInput{
		UnitCost: decPtr("3"),
	})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("unknown line: expected not found, got %v", err)
	}
}

func TestMarkPurchasedSkipsCoveredLines(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	// 100ml per 10 servings for 20 guests needs 200ml; 1000ml on hand covers it
	oil := mustCreateIngredient(t, ctx, "Oil", models.BaseUnitMilliliter, "5", "1000")
	dressing, err := models.CreateRecipe(ctx, &models.NewRecipe{
		Name:             "Dressing",
		ServingsPerBatch: dec("10"),
		Lines:            []models.NewRecipeLine{{IngredientId: oil.ID, QuantityPerBatch: dec("100")}},
	})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	if _, err := models.SetEventPlannedDishes(ctx, fx.eventId, []models.NewEventPlannedDish{
		{RecipeId: fx.recipe.ID, PlannedQuantity: dec("1")},
		{RecipeId: dressing.ID, PlannedQuantity: dec("1")},
	}); err != nil {
		t.Fatalf("SetEventPlannedDishes: %v", err)
	}

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	if len(order.Lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(order.Lines))
	}
	var oilLine *models.PurchaseOrderLine
	for i := range order.Lines {
		if order.Lines[i].IngredientId == oil.ID {
			oilLine = &order.Lines[i]
		}
	}
	if oilLine == nil {
		t.Fatalf("no line for oil in %+v", order.Lines)
	}
	assertDecimal(t, "oil needed", oilLine.QuantityNeeded, dec("200"))
	assertDecimal(t, "oil to buy", oilLine.QuantityToBuy, dec("0"))
	assertDecimal(t, "estimated total", order.EstimatedTotal, dec("3400"))

	if _, err := models.ApprovePurchaseOrder(ctx, order.ID); err != nil {
		t.Fatalf("ApprovePurchaseOrder: %v", err)
	}
	order, err = models.MarkPurchaseOrderPurchased(ctx, order.ID)
	if err != nil {
		t.Fatalf("MarkPurchaseOrderPurchased: %v", err)
	}

	purchase, err := models.GetInventoryMovement(ctx, *order.PurchaseMovementId)
	if err != nil {
		t.Fatalf("GetInventoryMovement: %v", err)
	}
	if len(purchase.Lines) != 2 {
		t.Fatalf("expected only the 2 lines with something to buy, got %d", len(purchase.Lines))
	}
	for _, line := range purchase.Lines {
		if line.IngredientId == oil.ID {
			t.Fatalf("covered ingredient leaked into the purchase movement: %+v", line)
		}
	}
	assertDecimal(t, "oil untouched", ingredientStock(t, ctx, oil.ID), dec("1000"))
	assertDecimal(t, "rice after purchase", ingredientStock(t, ctx, fx.rice.ID), dec("2000"))
	assertDecimal(t, "bread after purchase", ingredientStock(t, ctx, fx.bread.ID), dec("4"))
}

func TestGeneratePurchaseOrderFailsWhenQuotationUnreadable(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	db := config.GetDB()
	if err := db.Exec("ALTER TABLE quotations RENAME TO quotations_offline").Error; err != nil {
		t.Fatalf("rename quotations: %v", err)
	}
	_, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err == nil {
		t.Fatalf("expected the quotation read failure to surface")
	}
	var remote *utils.RemoteOperationError
	if !errors.As(err, &remote) {
		t.Fatalf("expected a remote operation error, got %T %v", err, err)
	}
	if err := db.Exec("ALTER TABLE quotations_offline RENAME TO quotations").Error; err != nil {
		t.Fatalf("restore quotations: %v", err)
	}

	orders, err := models.ListEventPurchaseOrders(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("ListEventPurchaseOrders: %v", err)
	}
	if len(orders) != 0 {
		t.Fatalf("failed generation must not write, found %d orders", len(orders))
	}

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder after restore: %v", err)
	}
	if order.NumberOfGuests != 20 {
		t.Fatalf("expected 20 guests, got %d", order.NumberOfGuests)
	}
}

func TestUpdatePurchaseOrderLineKeepsQuantityAsEntered(t *testing.T) {
	ctx := setupTestDB(t)
	t.Setenv("ROUNDING_MODE", "half_up")
	t.Setenv("ROUND_QUANTITY_PLACES", "2")
	fx := newCateringFixture(t, ctx)

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}
	bread := order.Lines[1]

	if _, err := models.UpdatePurchaseOrderLine(ctx, order.ID, bread.ID, &models.UpdatePurchaseOrderLineInput{
		QuantityToBuy: decPtr("1.005"),
	}); !utils.IsValidationError(err) || utils.IsConflictError(err) {
		t.Fatalf("too many decimals: expected validation error, got %v", err)
	}

	line, err := models.UpdatePurchaseOrderLine(ctx, order.ID, bread.ID, &models.UpdatePurchaseOrderLineInput{
		QuantityToBuy: decPtr("4.25"),
	})
	if err != nil {
		t.Fatalf("UpdatePurchaseOrderLine: %v", err)
	}
	assertDecimal(t, "quantity as entered", line.QuantityToBuy, dec("4.25"))
	assertDecimal(t, "subtotal", line.Subtotal, dec("425"))
}
