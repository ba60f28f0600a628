package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// PurchaseOrder is the per-event shortfall of ingredients.
// Draft -> Approved -> Purchased, with Draft|Approved -> Cancelled. Purchased and Cancelled are terminal.
type PurchaseOrder struct {
	ID      int `gorm:"primary_key" json:"id"`
	EventId int `gorm:"index;not null" json:"event_id"`
	// equals EventId while the order is not Cancelled; the unique index allows one live order per event
	ActiveEventId      *int                `gorm:"uniqueIndex" json:"-"`
	CurrentStatus      PurchaseOrderStatus `gorm:"size:20;not null;index" json:"current_status"`
	NumberOfGuests     int                 `gorm:"not null;default:1" json:"number_of_guests"`
	EstimatedTotal     decimal.Decimal     `gorm:"type:decimal(20,4);default:0" json:"estimated_total"`
	Lines              []PurchaseOrderLine `json:"lines"`
	PurchaseMovementId *int                `json:"purchase_movement_id"`
	DispatchMovementId *int                `json:"dispatch_movement_id"`
	ApprovedAt         *time.Time          `json:"approved_at"`
	PurchasedAt        *time.Time          `json:"purchased_at"`
	DispatchedAt       *time.Time          `json:"dispatched_at"`
	CancelledAt        *time.Time          `json:"cancelled_at"`
	CreatedAt          time.Time           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time           `gorm:"autoUpdateTime" json:"updated_at"`
}

type PurchaseOrderLine struct {
	ID              int             `gorm:"primary_key" json:"id"`
	PurchaseOrderId int             `gorm:"index;not null" json:"purchase_order_id"`
	IngredientId    int             `gorm:"index;not null" json:"ingredient_id"`
	IngredientName  string          `gorm:"size:255" json:"ingredient_name"`
	Unit            BaseUnit        `gorm:"size:10;not null" json:"unit"`
	QuantityNeeded  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_needed"`
	QuantityInStock decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_in_stock"`
	QuantityToBuy   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_to_buy"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_cost"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
}

type UpdatePurchaseOrderLineInput struct {
	QuantityToBuy *decimal.Decimal `json:"quantity_to_buy"`
	UnitCost      *decimal.Decimal `json:"unit_cost"`
}

func GetPurchaseOrder(ctx context.Context, id int) (*PurchaseOrder, error) {
	return fetchPurchaseOrderTx(config.GetDB().WithContext(ctx), id)
}

func fetchPurchaseOrderTx(tx *gorm.DB, id int) (*PurchaseOrder, error) {
	var order PurchaseOrder
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_id") }).
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, utils.WrapRemote("fetch purchase order", err)
	}
	return &order, nil
}

// ListEventPurchaseOrders returns every order of the event, cancelled ones included.
func ListEventPurchaseOrders(ctx context.Context, eventId int) ([]*PurchaseOrder, error) {
	key := fmt.Sprintf("event:%d", eventId)
	return utils.CacheList(ctx, utils.CacheTagPurchaseOrders, key, func() ([]*PurchaseOrder, error) {
		var results []*PurchaseOrder
		err := config.GetDB().WithContext(ctx).
			Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("ingredient_id") }).
			Where("event_id = ?", eventId).Order("id").Find(&results).Error
		if err != nil {
			return nil, utils.WrapRemote("list purchase orders", err)
		}
		return results, nil
	})
}

// transitionPurchaseOrder moves the order to `to` only if its current status is one of `from`.
func transitionPurchaseOrder(tx *gorm.DB, id int, from []PurchaseOrderStatus, to PurchaseOrderStatus, extra map[string]interface{}) error {
	updates := map[string]interface{}{"current_status": to}
	for k, v := range extra {
		updates[k] = v
	}
	res := tx.Model(&PurchaseOrder{}).Where("id = ? AND current_status IN ?", id, from).Updates(updates)
	if res.Error != nil {
		return utils.WrapRemote("transition purchase order", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var current PurchaseOrder
	if err := tx.Select("id", "current_status").First(&current, id).Error; err != nil {
		return utils.WrapRemote("fetch purchase order", err)
	}
	return utils.NewConflictError("purchase order %d is %s; cannot move to %s", id, current.CurrentStatus, to)
}

func afterPurchaseOrderTransition(ctx context.Context, id int, from, to PurchaseOrderStatus) {
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.PurchaseOrderTransitions.WithLabelValues(string(to)).Inc()
	config.LogTransition(config.GetLogger(), "purchase_order", id, string(from), string(to), cid)
	utils.InvalidateCacheTags(ctx, utils.CacheTagPurchaseOrders)
}

// purchaseOrderEventId resolves the lock scope for an order. EventId never changes.
func purchaseOrderEventId(ctx context.Context, orderId int) (int, error) {
	var order PurchaseOrder
	if err := config.GetDB().WithContext(ctx).Select("id", "event_id").First(&order, orderId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, utils.ErrorRecordNotFound
		}
		return 0, utils.WrapRemote("fetch purchase order", err)
	}
	return order.EventId, nil
}

// withPurchaseOrderTx runs fn in one transaction under the lock of the order's event.
func withPurchaseOrderTx(ctx context.Context, orderId int, fn func(tx *gorm.DB) error) error {
	eventId, err := purchaseOrderEventId(ctx, orderId)
	if err != nil {
		return err
	}
	return utils.WithEntityLock(ctx, "event", eventId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(fn)
	})
}

// UpdatePurchaseOrderLine edits a Draft line and recomputes its subtotal.
// The order's EstimatedTotal is left alone until RecalculatePurchaseOrderTotal is called.
func UpdatePurchaseOrderLine(ctx context.Context, orderId, lineId int, input *UpdatePurchaseOrderLineInput) (result *PurchaseOrderLine, err error) {
	ctx, span := startSpan(ctx, "UpdatePurchaseOrderLine", attribute.Int("purchase_order.id", orderId), attribute.Int("line.id", lineId))
	defer func() { endSpan(span, err) }()

	if input.QuantityToBuy != nil && input.QuantityToBuy.IsNegative() {
		return nil, utils.NewValidationError("quantity to buy cannot be negative")
	}
	if input.UnitCost != nil && input.UnitCost.IsNegative() {
		return nil, utils.NewValidationError("unit cost cannot be negative")
	}

	rounder := config.GetRounder()
	if input.QuantityToBuy != nil && !rounder.QuantityFits(*input.QuantityToBuy) {
		return nil, utils.NewValidationError("quantity to buy %s has more than %d decimal places", input.QuantityToBuy.String(), rounder.QuantityPlaces)
	}
	var line PurchaseOrderLine
	err = withPurchaseOrderTx(ctx, orderId, func(tx *gorm.DB) error {
		order, err := utils.FetchModelTx[PurchaseOrder](tx, orderId)
		if err != nil {
			return err
		}
		if order.CurrentStatus != PurchaseOrderStatusDraft {
			return utils.NewConflictError("purchase order %d is %s; only Draft lines can be edited", orderId, order.CurrentStatus)
		}
		if err := tx.Where("id = ? AND purchase_order_id = ?", lineId, orderId).First(&line).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return utils.ErrorRecordNotFound
			}
			return utils.WrapRemote("fetch purchase order line", err)
		}
		if input.QuantityToBuy != nil {
			line.QuantityToBuy = *input.QuantityToBuy
		}
		if input.UnitCost != nil {
			line.UnitCost = *input.UnitCost
		}
		line.Subtotal = rounder.Money(line.QuantityToBuy.Mul(line.UnitCost))
		return utils.WrapRemote("update purchase order line", tx.Model(&PurchaseOrderLine{}).Where("id = ?", line.ID).
			Updates(map[string]interface{}{
				"quantity_to_buy": line.QuantityToBuy,
				"unit_cost":       line.UnitCost,
				"subtotal":        line.Subtotal,
			}).Error)
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagPurchaseOrders)
	return &line, nil
}

// RecalculatePurchaseOrderTotal sets EstimatedTotal to the sum of line subtotals.
func RecalculatePurchaseOrderTotal(ctx context.Context, orderId int) (result *PurchaseOrder, err error) {
	ctx, span := startSpan(ctx, "RecalculatePurchaseOrderTotal", attribute.Int("purchase_order.id", orderId))
	defer func() { endSpan(span, err) }()

	err = withPurchaseOrderTx(ctx, orderId, func(tx *gorm.DB) error {
		order, err := fetchPurchaseOrderTx(tx, orderId)
		if err != nil {
			return err
		}
		if order.CurrentStatus != PurchaseOrderStatusDraft {
			return utils.NewConflictError("purchase order %d is %s; only Draft totals can be recalculated", orderId, order.CurrentStatus)
		}
		total := decimal.Zero
		for _, line := range order.Lines {
			total = total.Add(line.Subtotal)
		}
		total = config.GetRounder().Money(total)
		return utils.WrapRemote("update purchase order total", tx.Model(&PurchaseOrder{}).
			Where("id = ? AND current_status = ?", orderId, PurchaseOrderStatusDraft).
			Update("estimated_total", total).Error)
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagPurchaseOrders)
	return GetPurchaseOrder(ctx, orderId)
}

func ApprovePurchaseOrder(ctx context.Context, orderId int) (result *PurchaseOrder, err error) {
	ctx, span := startSpan(ctx, "ApprovePurchaseOrder", attribute.Int("purchase_order.id", orderId))
	defer func() { endSpan(span, err) }()

	err = withPurchaseOrderTx(ctx, orderId, func(tx *gorm.DB) error {
		return transitionPurchaseOrder(tx, orderId,
			[]PurchaseOrderStatus{PurchaseOrderStatusDraft}, PurchaseOrderStatusApproved,
			map[string]interface{}{"approved_at": time.Now().UTC()})
	})
	if err != nil {
		return nil, err
	}
	afterPurchaseOrderTransition(ctx, orderId, PurchaseOrderStatusDraft, PurchaseOrderStatusApproved)
	return GetPurchaseOrder(ctx, orderId)
}

// MarkPurchaseOrderPurchased moves Approved -> Purchased and, in the same transaction, records
// one confirmed Purchase movement holding every line with quantityToBuy > 0.
func MarkPurchaseOrderPurchased(ctx context.Context, orderId int) (result *PurchaseOrder, err error) {
	ctx, span := startSpan(ctx, "MarkPurchaseOrderPurchased", attribute.Int("purchase_order.id", orderId))
	defer func() { endSpan(span, err) }()

	err = withPurchaseOrderTx(ctx, orderId, func(tx *gorm.DB) error {
		if err := transitionPurchaseOrder(tx, orderId,
			[]PurchaseOrderStatus{PurchaseOrderStatusApproved}, PurchaseOrderStatusPurchased,
			map[string]interface{}{"purchased_at": time.Now().UTC()}); err != nil {
			return err
		}
		order, err := fetchPurchaseOrderTx(tx, orderId)
		if err != nil {
			return err
		}

		sourceKey := fmt.Sprintf("purchase-order:%d", orderId)
		movement := &InventoryMovement{
			Type:      MovementTypePurchase,
			EventId:   &order.EventId,
			Notes:     fmt.Sprintf("Purchase order #%d", orderId),
			SourceKey: &sourceKey,
		}
		for _, line := range order.Lines {
			if !line.QuantityToBuy.IsPositive() {
				continue
			}
			movement.Lines = append(movement.Lines, InventoryMovementLine{
				IngredientId: line.IngredientId,
				Quantity:     line.QuantityToBuy,
				UnitCost:     line.UnitCost,
			})
		}
		if _, err := createConfirmedMovementTx(ctx, tx, movement); err != nil {
			return err
		}
		return utils.WrapRemote("link purchase movement", tx.Model(&PurchaseOrder{}).Where("id = ?", orderId).
			Update("purchase_movement_id", movement.ID).Error)
	})
	if err != nil {
		return nil, err
	}
	config.MovementsConfirmed.WithLabelValues(string(MovementTypePurchase)).Inc()
	afterPurchaseOrderTransition(ctx, orderId, PurchaseOrderStatusApproved, PurchaseOrderStatusPurchased)
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients, utils.CacheTagInventoryMovements)
	return GetPurchaseOrder(ctx, orderId)
}

// CancelPurchaseOrder has no stock effect; nothing was committed before Purchased.
func CancelPurchaseOrder(ctx context.Context, orderId int) (result *PurchaseOrder, err error) {
	ctx, span := startSpan(ctx, "CancelPurchaseOrder", attribute.Int("purchase_order.id", orderId))
	defer func() { endSpan(span, err) }()

	var from PurchaseOrderStatus
	err = withPurchaseOrderTx(ctx, orderId, func(tx *gorm.DB) error {
		order, err := utils.FetchModelTx[PurchaseOrder](tx, orderId)
		if err != nil {
			return err
		}
		from = order.CurrentStatus
		return transitionPurchaseOrder(tx, orderId,
			[]PurchaseOrderStatus{PurchaseOrderStatusDraft, PurchaseOrderStatusApproved}, PurchaseOrderStatusCancelled,
			map[string]interface{}{
				"cancelled_at":    time.Now().UTC(),
				"active_event_id": nil,
			})
	})
	if err != nil {
		return nil, err
	}
	afterPurchaseOrderTransition(ctx, orderId, from, PurchaseOrderStatusCancelled)
	return GetPurchaseOrder(ctx, orderId)
}
