package models_test

import (
	"errors"
	"testing"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
)

func TestNextStock(t *testing.T) {
	tests := []struct {
		movementType models.MovementType
		current      string
		qty          string
		want         string
	}{
		{models.MovementTypePurchase, "10", "5", "15"},
		{models.MovementTypeUse, "10", "4", "6"},
		{models.MovementTypeUse, "3", "5", "0"},
		{models.MovementTypeReturn, "10", "2.5", "7.5"},
		{models.MovementTypeReturn, "1", "2", "0"},
		{models.MovementTypeAdjustment, "10", "42", "42"},
		{models.MovementTypeAdjustment, "10", "0", "0"},
		{models.MovementType("Transfer"), "10", "3", "10"},
	}
	for _, tt := range tests {
		t.Run(string(tt.movementType), func(t *testing.T) {
			got := models.NextStock(tt.movementType, dec(tt.current), dec(tt.qty))
			assertDecimal(t, "stock", got, dec(tt.want))
		})
	}
}

func TestConfirmInventoryMovementAppliesOnce(t *testing.T) {
	ctx := setupTestDB(t)
	flour := mustCreateIngredient(t, ctx, "Flour", models.BaseUnitGram, "3", "100")

	movement, err := models.CreateInventoryMovement(ctx, &models.NewInventoryMovement{
		Type:     models.MovementTypePurchase,
		Supplier: "Mill",
		Lines: []models.NewInventoryMovementLine{
			{IngredientId: flour.ID, Quantity: dec("250"), UnitCost: dec("3")},
			{IngredientId: flour.ID, Quantity: dec("50"), UnitCost: dec("3")},
		},
	})
	if err != nil {
		t.Fatalf("CreateInventoryMovement: %v", err)
	}
	if movement.State != models.MovementStateDraft {
		t.Fatalf("expected Draft, got %s", movement.State)
	}
	assertDecimal(t, "stock after draft", ingredientStock(t, ctx, flour.ID), dec("100"))

	confirmed, err := models.ConfirmInventoryMovement(ctx, movement.ID)
	if err != nil {
		t.Fatalf("ConfirmInventoryMovement: %v", err)
	}
	if confirmed.State != models.MovementStateConfirmed || confirmed.ConfirmedAt == nil {
		t.Fatalf("expected Confirmed with timestamp, got %+v", confirmed)
	}
	assertDecimal(t, "stock after confirm", ingredientStock(t, ctx, flour.ID), dec("400"))

	// repeated ingredient lines chain their audit values
	first, second := confirmed.Lines[0], confirmed.Lines[1]
	assertDecimal(t, "first before", *first.StockBefore, dec("100"))
	assertDecimal(t, "first after", *first.StockAfter, dec("350"))
	assertDecimal(t, "second before", *second.StockBefore, dec("350"))
	assertDecimal(t, "second after", *second.StockAfter, dec("400"))

	if _, err := models.ConfirmInventoryMovement(ctx, movement.ID); !utils.IsConflictError(err) {
		t.Fatalf("second confirm: expected conflict, got %v", err)
	}
	assertDecimal(t, "stock after repeated confirm", ingredientStock(t, ctx, flour.ID), dec("400"))

	if _, err := models.UpdateInventoryMovement(ctx, movement.ID, &models.NewInventoryMovement{
		Type:  models.MovementTypePurchase,
		Lines: []models.NewInventoryMovementLine{{IngredientId: flour.ID, Quantity: dec("1")}},
	}); !utils.IsConflictError(err) {
		t.Fatalf("edit confirmed: expected conflict, got %v", err)
	}
	if err := models.DeleteInventoryMovement(ctx, movement.ID); !utils.IsConflictError(err) {
		t.Fatalf("delete confirmed: expected conflict, got %v", err)
	}
	if _, err := models.ConfirmInventoryMovement(ctx, 9999); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("confirm unknown: expected not found, got %v", err)
	}
}

func TestUseMovementClampsAtZero(t *testing.T) {
	ctx := setupTestDB(t)
	milk := mustCreateIngredient(t, ctx, "Milk", models.BaseUnitMilliliter, "4", "300")

	movement, err := models.CreateInventoryMovement(ctx, &models.NewInventoryMovement{
		Type:  models.MovementTypeUse,
		Lines: []models.NewInventoryMovementLine{{IngredientId: milk.ID, Quantity: dec("500")}},
	})
	if err != nil {
		t.Fatalf("CreateInventoryMovement: %v", err)
	}
	if _, err := models.ConfirmInventoryMovement(ctx, movement.ID); err != nil {
		t.Fatalf("ConfirmInventoryMovement: %v", err)
	}
	assertDecimal(t, "stock", ingredientStock(t, ctx, milk.ID), dec("0"))
}

func TestDraftMovementEditAndDelete(t *testing.T) {
	ctx := setupTestDB(t)
	sugar := mustCreateIngredient(t, ctx, "Sugar", models.BaseUnitGram, "5", "")
	salt := mustCreateIngredient(t, ctx, "Salt", models.BaseUnitGram, "1", "")

	movement, err := models.CreateInventoryMovement(ctx, &models.NewInventoryMovement{
		Type:  models.MovementTypePurchase,
		Lines: []models.NewInventoryMovementLine{{IngredientId: sugar.ID, Quantity: dec("10")}},
	})
	if err != nil {
		t.Fatalf("CreateInventoryMovement: %v", err)
	}

	updated, err := models.UpdateInventoryMovement(ctx, movement.ID, &models.NewInventoryMovement{
		Type:  models.MovementTypeAdjustment,
		Notes: "stock count",
		Lines: []models.NewInventoryMovementLine{
			{IngredientId: sugar.ID, Quantity: dec("0")},
			{IngredientId: salt.ID, Quantity: dec("40")},
		},
	})
	if err != nil {
		t.Fatalf("UpdateInventoryMovement: %v", err)
	}
	if updated.Type != models.MovementTypeAdjustment || len(updated.Lines) != 2 {
		t.Fatalf("unexpected updated movement %+v", updated)
	}

	adjustment := models.MovementTypeAdjustment
	list, err := models.ListInventoryMovements(ctx, models.InventoryMovementFilter{Type: &adjustment})
	if err != nil {
		t.Fatalf("ListInventoryMovements: %v", err)
	}
	if len(list) != 1 || list[0].ID != movement.ID {
		t.Fatalf("expected the edited draft in the filtered list, got %d movements", len(list))
	}

	if err := models.DeleteInventoryMovement(ctx, movement.ID); err != nil {
		t.Fatalf("DeleteInventoryMovement: %v", err)
	}
	if _, err := models.GetInventoryMovement(ctx, movement.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("deleted movement: expected not found, got %v", err)
	}
	assertDecimal(t, "sugar", ingredientStock(t, ctx, sugar.ID), dec("0"))
	assertDecimal(t, "salt", ingredientStock(t, ctx, salt.ID), dec("0"))
}

func TestCreateInventoryMovementValidation(t *testing.T) {
	ctx := setupTestDB(t)
	oil := mustCreateIngredient(t, ctx, "Oil", models.BaseUnitMilliliter, "1", "")
	missingEvent := 404

	tests := []struct {
		name  string
		input models.NewInventoryMovement
	}{
		{"no lines", models.NewInventoryMovement{Type: models.MovementTypePurchase}},
		{"unknown type", models.NewInventoryMovement{Type: "Transfer", Lines: []models.NewInventoryMovementLine{{IngredientId: oil.ID, Quantity: dec("1")}}}},
		{"zero purchase", models.NewInventoryMovement{Type: models.MovementTypePurchase, Lines: []models.NewInventoryMovementLine{{IngredientId: oil.ID, Quantity: dec("0")}}}},
		{"negative quantity", models.NewInventoryMovement{Type: models.MovementTypeUse, Lines: []models.NewInventoryMovementLine{{IngredientId: oil.ID, Quantity: dec("-1")}}}},
		{"unknown ingredient", models.NewInventoryMovement{Type: models.MovementTypeUse, Lines: []models.NewInventoryMovementLine{{IngredientId: 999, Quantity: dec("1")}}}},
		{"unknown event", models.NewInventoryMovement{Type: models.MovementTypeUse, EventId: &missingEvent, Lines: []models.NewInventoryMovementLine{{IngredientId: oil.ID, Quantity: dec("1")}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := models.CreateInventoryMovement(ctx, &tt.input); !utils.IsValidationError(err) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}
