package models

import (
	"context"
	"fmt"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// DispatchEventIngredients consumes the event's ingredients from stock: one confirmed Use
// movement carrying quantityNeeded per ingredient. Allowed once per event, after the order is Purchased.
func DispatchEventIngredients(ctx context.Context, eventId int) (result *InventoryMovement, err error) {
	ctx, span := startSpan(ctx, "DispatchEventIngredients", attribute.Int("event.id", eventId))
	defer func() { endSpan(span, err) }()

	var orderId int
	err = utils.WithEntityLock(ctx, "event", eventId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if _, err := utils.FetchModelTx[Event](tx, eventId); err != nil {
				return err
			}

			var orders []PurchaseOrder
			if err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_id") }).
				Where("event_id = ? AND current_status = ?", eventId, PurchaseOrderStatusPurchased).
				Find(&orders).Error; err != nil {
				return utils.WrapRemote("find purchased order", err)
			}
			if len(orders) == 0 {
				return utils.NewConflictError("event %d has no purchased order", eventId)
			}
			order := orders[0]

			used, err := countUseMovements(tx, eventId)
			if err != nil {
				return err
			}
			if used > 0 || order.DispatchedAt != nil {
				return utils.NewConflictError("event %d ingredients were already dispatched", eventId)
			}

			sourceKey := fmt.Sprintf("dispatch:event:%d", eventId)
			movement := &InventoryMovement{
				Type:      MovementTypeUse,
				EventId:   &eventId,
				Notes:     fmt.Sprintf("Dispatch for purchase order #%d", order.ID),
				SourceKey: &sourceKey,
			}
			for _, line := range order.Lines {
				if !line.QuantityNeeded.IsPositive() {
					continue
				}
				movement.Lines = append(movement.Lines, InventoryMovementLine{
					IngredientId: line.IngredientId,
					Quantity:     line.QuantityNeeded,
					UnitCost:     line.UnitCost,
				})
			}
			if _, err := createConfirmedMovementTx(ctx, tx, movement); err != nil {
				return err
			}

			res := tx.Model(&PurchaseOrder{}).
				Where("id = ? AND current_status = ? AND dispatched_at IS NULL", order.ID, PurchaseOrderStatusPurchased).
				Updates(map[string]interface{}{
					"dispatched_at":        time.Now().UTC(),
					"dispatch_movement_id": movement.ID,
				})
			if res.Error != nil {
				return utils.WrapRemote("stamp dispatch", res.Error)
			}
			if res.RowsAffected == 0 {
				return utils.NewConflictError("event %d ingredients were already dispatched", eventId)
			}
			orderId = order.ID
			result = movement
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.MovementsConfirmed.WithLabelValues(string(MovementTypeUse)).Inc()
	config.LogTransition(config.GetLogger(), "purchase_order", orderId, string(PurchaseOrderStatusPurchased), "Dispatched", cid)
	utils.InvalidateCacheTags(ctx, utils.CacheTagPurchaseOrders, utils.CacheTagIngredients, utils.CacheTagInventoryMovements)
	return result, nil
}

// countUseMovements counts confirmed Use movements recorded against the event. Drafts have no stock effect.
func countUseMovements(tx *gorm.DB, eventId int) (int64, error) {
	count, err := utils.ResourceCountWhere[InventoryMovement](tx, "event_id = ? AND type = ? AND state = ?", eventId, MovementTypeUse, MovementStateConfirmed)
	if err != nil {
		return 0, utils.WrapRemote("count use movements", err)
	}
	return count, nil
}

// GetEventDispatchMovement returns the Use movement written by DispatchEventIngredients.
func GetEventDispatchMovement(ctx context.Context, eventId int) (*InventoryMovement, error) {
	var movement InventoryMovement
	err := config.GetDB().WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Where("source_key = ?", fmt.Sprintf("dispatch:event:%d", eventId)).
		Take(&movement).Error
	if err != nil {
		return nil, utils.WrapRemote("fetch dispatch movement", err)
	}
	return &movement, nil
}
