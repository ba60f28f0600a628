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

// ComputePurchaseOrderLines expands planned dishes into ingredient quantities and nets them
// against stock:
//
//	perGuest = lineQuantity / servingsPerBatch
//	needed  += perGuest * plannedQuantity * guests     (summed per ingredient)
//	toBuy    = max(0, needed - stock)
//	subtotal = toBuy * costPerUnit
//
// Lines come back sorted by ingredient id.
func ComputePurchaseOrderLines(guests int, dishes []EventPlannedDish, recipes map[int]*Recipe, ingredients map[int]*Ingredient, rounder config.Rounder) ([]PurchaseOrderLine, decimal.Decimal, error) {
	if guests <= 0 {
		guests = 1
	}
	guestCount := decimal.NewFromInt(int64(guests))

	needed := make(map[int]decimal.Decimal)
	for _, dish := range dishes {
		recipe, ok := recipes[dish.RecipeId]
		if !ok || recipe == nil {
			return nil, decimal.Zero, utils.NewValidationError("recipe %d for planned dish not found", dish.RecipeId)
		}
		servings := recipe.ServingsPerBatch
		if !servings.IsPositive() {
			servings = decimal.NewFromInt(1)
		}
		for _, line := range recipe.Lines {
			perGuest := line.QuantityPerBatch.Div(servings)
			forDish := perGuest.Mul(dish.PlannedQuantity).Mul(guestCount)
			needed[line.IngredientId] = needed[line.IngredientId].Add(forDish)
		}
	}

	ids := make([]int, 0, len(needed))
	for id := range needed {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	lines := make([]PurchaseOrderLine, 0, len(ids))
	total := decimal.Zero
	for _, id := range ids {
		ingredient, ok := ingredients[id]
		if !ok || ingredient == nil {
			return nil, decimal.Zero, utils.NewValidationError("ingredient %d referenced by a recipe not found", id)
		}
		quantityNeeded := rounder.Quantity(needed[id])
		inStock := rounder.Quantity(ingredient.CurrentStock)
		toBuy := decimal.Max(decimal.Zero, quantityNeeded.Sub(inStock))
		subtotal := rounder.Money(toBuy.Mul(ingredient.CostPerUnit))

		lines = append(lines, PurchaseOrderLine{
			IngredientId:    id,
			IngredientName:  ingredient.Name,
			Unit:            ingredient.BaseUnit,
			QuantityNeeded:  quantityNeeded,
			QuantityInStock: inStock,
			QuantityToBuy:   toBuy,
			UnitCost:        ingredient.CostPerUnit,
			Subtotal:        subtotal,
		})
		total = total.Add(subtotal)
	}
	return lines, rounder.Money(total), nil
}

func findActivePurchaseOrder(tx *gorm.DB, eventId int) (*PurchaseOrder, error) {
	var orders []PurchaseOrder
	if err := tx.Where("event_id = ? AND current_status <> ?", eventId, PurchaseOrderStatusCancelled).
		Order("id").Limit(1).Find(&orders).Error; err != nil {
		return nil, utils.WrapRemote("find active purchase order", err)
	}
	if len(orders) == 0 {
		return nil, nil
	}
	return &orders[0], nil
}

func generatePurchaseOrderTx(tx *gorm.DB, eventId int) (*PurchaseOrder, error) {
	event, err := utils.FetchModelTx[Event](tx, eventId, "PlannedDishes")
	if err != nil {
		return nil, err
	}
	guests, err := resolveNumberOfGuests(tx, event)
	if err != nil {
		return nil, err
	}

	recipeIds := make([]int, 0, len(event.PlannedDishes))
	for _, dish := range event.PlannedDishes {
		recipeIds = append(recipeIds, dish.RecipeId)
	}
	recipes := make(map[int]*Recipe)
	ingredients := make(map[int]*Ingredient)
	if len(recipeIds) > 0 {
		var recipeRows []*Recipe
		if err := tx.Preload("Lines").Where("id IN ?", recipeIds).Find(&recipeRows).Error; err != nil {
			return nil, utils.WrapRemote("load recipes", err)
		}
		var ingredientIds []int
		for _, r := range recipeRows {
			recipes[r.ID] = r
			for _, l := range r.Lines {
				ingredientIds = append(ingredientIds, l.IngredientId)
			}
		}
		ingredientIds = utils.UniqueSlice(ingredientIds)
		if len(ingredientIds) > 0 {
			var ingredientRows []*Ingredient
			if err := tx.Where("id IN ?", ingredientIds).Find(&ingredientRows).Error; err != nil {
				return nil, utils.WrapRemote("load ingredients", err)
			}
			for _, ing := range ingredientRows {
				ingredients[ing.ID] = ing
			}
		}
	}

	lines, total, err := ComputePurchaseOrderLines(guests, event.PlannedDishes, recipes, ingredients, config.GetRounder())
	if err != nil {
		return nil, err
	}

	order := PurchaseOrder{
		EventId:        eventId,
		ActiveEventId:  &eventId,
		CurrentStatus:  PurchaseOrderStatusDraft,
		NumberOfGuests: guests,
		EstimatedTotal: total,
		Lines:          lines,
	}
	if err := tx.Create(&order).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, utils.NewConflictError("event %d already has an active purchase order", eventId)
		}
		return nil, utils.WrapRemote("create purchase order", err)
	}
	return &order, nil
}

// GeneratePurchaseOrder builds a Draft order for the event's planned dishes.
// An event has at most one non-cancelled order.
func GeneratePurchaseOrder(ctx context.Context, eventId int) (result *PurchaseOrder, err error) {
	ctx, span := startSpan(ctx, "GeneratePurchaseOrder", attribute.Int("event.id", eventId))
	defer func() { endSpan(span, err) }()

	var orderId int
	err = utils.WithEntityLock(ctx, "event", eventId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			active, err := findActivePurchaseOrder(tx, eventId)
			if err != nil {
				return err
			}
			if active != nil {
				return utils.NewConflictError("event %d already has a %s purchase order (%d)", eventId, active.CurrentStatus, active.ID)
			}
			order, err := generatePurchaseOrderTx(tx, eventId)
			if err != nil {
				return err
			}
			orderId = order.ID
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	afterPurchaseOrderTransition(ctx, orderId, "", PurchaseOrderStatusDraft)
	return GetPurchaseOrder(ctx, orderId)
}

// RegeneratePurchaseOrder drops the event's Draft order and generates it again from current
// recipes and stock. Approved and Purchased orders cannot be regenerated.
func RegeneratePurchaseOrder(ctx context.Context, eventId int) (result *PurchaseOrder, err error) {
	ctx, span := startSpan(ctx, "RegeneratePurchaseOrder", attribute.Int("event.id", eventId))
	defer func() { endSpan(span, err) }()

	var orderId int
	err = utils.WithEntityLock(ctx, "event", eventId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			active, err := findActivePurchaseOrder(tx, eventId)
			if err != nil {
				return err
			}
			if active != nil {
				if active.CurrentStatus != PurchaseOrderStatusDraft {
					return utils.NewConflictError("purchase order %d is %s; only Draft orders can be regenerated", active.ID, active.CurrentStatus)
				}
				if err := tx.Where("purchase_order_id = ?", active.ID).Delete(&PurchaseOrderLine{}).Error; err != nil {
					return utils.WrapRemote("delete purchase order lines", err)
				}
				res := tx.Where("id = ? AND current_status = ?", active.ID, PurchaseOrderStatusDraft).Delete(&PurchaseOrder{})
				if res.Error != nil {
					return utils.WrapRemote("delete purchase order", res.Error)
				}
				if res.RowsAffected == 0 {
					return utils.NewConflictError("purchase order %d is no longer a draft", active.ID)
				}
			}
			order, err := generatePurchaseOrderTx(tx, eventId)
			if err != nil {
				return err
			}
			orderId = order.ID
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	afterPurchaseOrderTransition(ctx, orderId, "", PurchaseOrderStatusDraft)
	return GetPurchaseOrder(ctx, orderId)
}
