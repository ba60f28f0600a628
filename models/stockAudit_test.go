package models_test

import (
	"testing"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
)

func TestAuditIngredientStock(t *testing.T) {
	ctx := setupTestDB(t)
	butter := mustCreateIngredient(t, ctx, "Butter", models.BaseUnitGram, "10", "200")
	cream := mustCreateIngredient(t, ctx, "Cream", models.BaseUnitMilliliter, "6", "50")

	use, err := models.CreateInventoryMovement(ctx, &models.NewInventoryMovement{
		Type:  models.MovementTypeUse,
		Lines: []models.NewInventoryMovementLine{{IngredientId: butter.ID, Quantity: dec("80")}},
	})
	if err != nil {
		t.Fatalf("CreateInventoryMovement: %v", err)
	}
	if _, err := models.ConfirmInventoryMovement(ctx, use.ID); err != nil {
		t.Fatalf("ConfirmInventoryMovement: %v", err)
	}

	drifts, err := models.AuditIngredientStock(ctx)
	if err != nil {
		t.Fatalf("AuditIngredientStock: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected a clean ledger, got %+v", drifts)
	}

	// a write outside the movement ledger
	if err := config.GetDB().Model(&models.Ingredient{}).Where("id = ?", cream.ID).
		Update("current_stock", dec("35")).Error; err != nil {
		t.Fatalf("tamper stock: %v", err)
	}

	drifts, err = models.AuditIngredientStock(ctx)
	if err != nil {
		t.Fatalf("AuditIngredientStock: %v", err)
	}
	if len(drifts) != 1 || drifts[0].IngredientId != cream.ID {
		t.Fatalf("expected cream drift, got %+v", drifts)
	}
	assertDecimal(t, "expected", drifts[0].Expected, dec("50"))
	assertDecimal(t, "actual", drifts[0].Actual, dec("35"))

	adjustment, err := models.RecordStockDriftAdjustment(ctx, drifts)
	if err != nil {
		t.Fatalf("RecordStockDriftAdjustment: %v", err)
	}
	if adjustment.Type != models.MovementTypeAdjustment || adjustment.State != models.MovementStateConfirmed {
		t.Fatalf("unexpected adjustment %+v", adjustment)
	}
	assertDecimal(t, "cream stock kept", ingredientStock(t, ctx, cream.ID), dec("35"))
	assertDecimal(t, "butter untouched", ingredientStock(t, ctx, butter.ID), dec("120"))

	drifts, err = models.AuditIngredientStock(ctx)
	if err != nil {
		t.Fatalf("AuditIngredientStock: %v", err)
	}
	if len(drifts) != 0 {
		t.Fatalf("expected a clean ledger after adjustment, got %+v", drifts)
	}

	if _, err := models.RecordStockDriftAdjustment(ctx, nil); !utils.IsValidationError(err) {
		t.Fatalf("no drifts: expected validation error, got %v", err)
	}
}
