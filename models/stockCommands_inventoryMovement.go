package models

import (
	"context"
	"errors"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextStock is the stock rule for one movement line.
// Use and Return clamp at zero; Adjustment sets the absolute value.
func NextStock(movementType MovementType, current, qty decimal.Decimal) decimal.Decimal {
	switch movementType {
	case MovementTypePurchase:
		return current.Add(qty)
	case MovementTypeUse, MovementTypeReturn:
		return decimal.Max(decimal.Zero, current.Sub(qty))
	case MovementTypeAdjustment:
		return qty
	default:
		return current
	}
}

func lockForUpdate(tx *gorm.DB) *gorm.DB {
	// sqlite has no row locks; its single writer already serializes
	if tx.Dialector.Name() == config.DriverSqlite {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// confirmInventoryMovementTx is the only code path that changes Ingredient.CurrentStock.
// The Draft->Confirmed flip is conditional, so a movement is applied at most once
// even when two requests race past the entity lock.
func confirmInventoryMovementTx(ctx context.Context, tx *gorm.DB, id int) (*InventoryMovement, error) {
	changes := map[string]interface{}{
		"state":        MovementStateConfirmed,
		"confirmed_at": time.Now().UTC(),
	}
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		changes["confirmed_by_user_id"] = userId
	}
	res := tx.Model(&InventoryMovement{}).
		Where("id = ? AND state = ?", id, MovementStateDraft).
		Updates(changes)
	if res.Error != nil {
		return nil, utils.WrapRemote("confirm inventory movement", res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := utils.FetchModelTx[InventoryMovement](tx, id); err != nil {
			return nil, err
		}
		return nil, utils.NewConflictError("inventory movement %d is already confirmed", id)
	}

	movement, err := fetchInventoryMovementTx(tx, id)
	if err != nil {
		return nil, err
	}
	if err := applyInventoryMovementStock(tx, movement); err != nil {
		config.LogError(config.GetLogger(), "stockCommands_inventoryMovement.go", "confirmInventoryMovementTx", "applyInventoryMovementStock", id, err)
		return nil, err
	}
	return movement, nil
}

// lines apply in order; a repeated ingredient sees the stock written by the previous line
func applyInventoryMovementStock(tx *gorm.DB, movement *InventoryMovement) error {
	for i := range movement.Lines {
		line := &movement.Lines[i]

		var ingredient Ingredient
		if err := lockForUpdate(tx).Select("id", "current_stock").First(&ingredient, line.IngredientId).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.NewValidationError("ingredient %d not found", line.IngredientId)
			}
			return utils.WrapRemote("read ingredient stock", err)
		}

		before := ingredient.CurrentStock
		after := NextStock(movement.Type, before, line.Quantity)

		if err := tx.Model(&Ingredient{}).Where("id = ?", ingredient.ID).
			Update("current_stock", after).Error; err != nil {
			return utils.WrapRemote("write ingredient stock", err)
		}
		if err := tx.Model(&InventoryMovementLine{}).Where("id = ?", line.ID).
			Updates(map[string]interface{}{"stock_before": before, "stock_after": after}).Error; err != nil {
			return utils.WrapRemote("write movement line audit", err)
		}
		line.StockBefore = &before
		line.StockAfter = &after
	}
	return nil
}

// createConfirmedMovementTx inserts movement as a Draft and confirms it in the same transaction.
func createConfirmedMovementTx(ctx context.Context, tx *gorm.DB, movement *InventoryMovement) (*InventoryMovement, error) {
	movement.State = MovementStateDraft
	movement.stampCreator(ctx)
	if err := tx.Create(movement).Error; err != nil {
		if utils.IsDuplicateKeyError(err) && movement.SourceKey != nil {
			return nil, utils.NewConflictError("movement %s already exists", *movement.SourceKey)
		}
		return nil, utils.WrapRemote("create inventory movement", err)
	}
	confirmed, err := confirmInventoryMovementTx(ctx, tx, movement.ID)
	if err != nil {
		return nil, err
	}
	*movement = *confirmed
	return movement, nil
}
