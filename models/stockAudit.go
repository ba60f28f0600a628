package models

import (
	"context"
	"sort"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// StockDrift is one ingredient whose stored stock disagrees with its movement ledger.
type StockDrift struct {
	IngredientId   int             `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Expected       decimal.Decimal `json:"expected"`
	Actual         decimal.Decimal `json:"actual"`
}

// AuditIngredientStock replays confirmed movements from zero, in (confirmed_at, id) order,
// and reports every ingredient whose current stock differs from the replayed value.
func AuditIngredientStock(ctx context.Context) (result []StockDrift, err error) {
	ctx, span := startSpan(ctx, "AuditIngredientStock")
	defer func() { endSpan(span, err) }()

	db := config.GetDB().WithContext(ctx)

	var movements []InventoryMovement
	if err := db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("state = ?", MovementStateConfirmed).
		Order("confirmed_at").Order("id").
		Find(&movements).Error; err != nil {
		return nil, utils.WrapRemote("load confirmed movements", err)
	}

	expected := make(map[int]decimal.Decimal)
	for _, m := range movements {
		for _, line := range m.Lines {
			expected[line.IngredientId] = NextStock(m.Type, expected[line.IngredientId], line.Quantity)
		}
	}

	var ingredients []Ingredient
	if err := db.Select("id", "name", "current_stock").Order("id").Find(&ingredients).Error; err != nil {
		return nil, utils.WrapRemote("load ingredients", err)
	}

	result = make([]StockDrift, 0)
	for _, ing := range ingredients {
		want := expected[ing.ID]
		if want.Equal(ing.CurrentStock) {
			continue
		}
		result = append(result, StockDrift{
			IngredientId:   ing.ID,
			IngredientName: ing.Name,
			Expected:       want,
			Actual:         ing.CurrentStock,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].IngredientId < result[j].IngredientId })
	span.SetAttributes(attribute.Int("drift.count", len(result)))
	return result, nil
}

// RecordStockDriftAdjustment writes one confirmed Adjustment per drifted ingredient, setting the
// stock to the value it already has. The ledger then explains current stock.
func RecordStockDriftAdjustment(ctx context.Context, drifts []StockDrift) (result *InventoryMovement, err error) {
	ctx, span := startSpan(ctx, "RecordStockDriftAdjustment", attribute.Int("drift.count", len(drifts)))
	defer func() { endSpan(span, err) }()

	if len(drifts) == 0 {
		return nil, utils.NewValidationError("no stock drift to record")
	}

	movement := &InventoryMovement{
		Type:  MovementTypeAdjustment,
		Notes: "Stock audit drift adjustment",
	}
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range drifts {
			// re-read: stock may have moved since the audit ran
			var ingredient Ingredient
			if err := lockForUpdate(tx).Select("id", "current_stock").First(&ingredient, d.IngredientId).Error; err != nil {
				return utils.WrapRemote("read ingredient stock", err)
			}
			movement.Lines = append(movement.Lines, InventoryMovementLine{
				IngredientId: ingredient.ID,
				Quantity:     ingredient.CurrentStock,
			})
		}
		_, err := createConfirmedMovementTx(ctx, tx, movement)
		return err
	})
	if err != nil {
		return nil, err
	}
	config.MovementsConfirmed.WithLabelValues(string(MovementTypeAdjustment)).Inc()
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients, utils.CacheTagInventoryMovements)
	return movement, nil
}
