package models

import (
	"context"
	"errors"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

// InventoryMovement is the audit record for a stock change.
// Draft movements have no stock effect. Confirmation applies the lines exactly once
// and the movement is immutable afterwards.
type InventoryMovement struct {
	ID       int           `gorm:"primary_key" json:"id"`
	Type     MovementType  `gorm:"size:20;not null;index" json:"type"`
	State    MovementState `gorm:"size:20;not null;index" json:"state"`
	EventId  *int          `gorm:"index" json:"event_id"`
	Supplier string        `gorm:"size:255" json:"supplier"`
	Notes    string        `gorm:"type:text" json:"notes"`
	// set for movements generated by a workflow; unique so a retry cannot create a twin
	SourceKey     *string                 `gorm:"size:100;uniqueIndex" json:"source_key,omitempty"`
	CorrelationId string                  `gorm:"size:64;index" json:"correlation_id"`
	Lines         []InventoryMovementLine `json:"lines"`
	// actor from the request context; empty for anonymous requests
	CreatedBy         string     `gorm:"size:100" json:"created_by"`
	CreatedByUserId   *int       `gorm:"index" json:"created_by_user_id"`
	ConfirmedByUserId *int       `json:"confirmed_by_user_id"`
	ConfirmedAt       *time.Time `json:"confirmed_at"`
	CreatedAt         time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// stampCreator records who is creating the movement, as carried by the request context.
func (m *InventoryMovement) stampCreator(ctx context.Context) {
	m.CorrelationId, _ = utils.GetCorrelationIdFromContext(ctx)
	m.CreatedBy, _ = utils.GetUsernameFromContext(ctx)
	if userId, ok := utils.GetUserIdFromContext(ctx); ok {
		m.CreatedByUserId = &userId
	}
}

type InventoryMovementLine struct {
	ID                  int             `gorm:"primary_key" json:"id"`
	InventoryMovementId int             `gorm:"index;not null" json:"inventory_movement_id"`
	IngredientId        int             `gorm:"index;not null" json:"ingredient_id"`
	Quantity            decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitCost            decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"unit_cost"`
	// written at confirmation
	StockBefore *decimal.Decimal `gorm:"type:decimal(20,4)" json:"stock_before"`
	StockAfter  *decimal.Decimal `gorm:"type:decimal(20,4)" json:"stock_after"`
}

type NewInventoryMovement struct {
	Type     MovementType               `json:"type" validate:"required"`
	EventId  *int                       `json:"event_id"`
	Supplier string                     `json:"supplier" validate:"max=255"`
	Notes    string                     `json:"notes"`
	Lines    []NewInventoryMovementLine `json:"lines" validate:"required,min=1,dive"`
}

type NewInventoryMovementLine struct {
	IngredientId int             `json:"ingredient_id" validate:"required,gt=0"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitCost     decimal.Decimal `json:"unit_cost"`
}

type InventoryMovementFilter struct {
	EventId *int
	Type    *MovementType
	State   *MovementState
}

func (input *NewInventoryMovement) validate(tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.Type.IsValid() {
		return utils.NewValidationError("invalid movement type %q", input.Type)
	}
	ids := make([]int, 0, len(input.Lines))
	for _, line := range input.Lines {
		if line.Quantity.IsNegative() {
			return utils.NewValidationError("quantity for ingredient %d cannot be negative", line.IngredientId)
		}
		// an Adjustment to zero is a valid stock count
		if input.Type != MovementTypeAdjustment && line.Quantity.IsZero() {
			return utils.NewValidationError("quantity for ingredient %d must be greater than zero", line.IngredientId)
		}
		if line.UnitCost.IsNegative() {
			return utils.NewValidationError("unit cost for ingredient %d cannot be negative", line.IngredientId)
		}
		ids = append(ids, line.IngredientId)
	}
	if err := utils.ValidateResourcesId[Ingredient](tx, ids); err != nil {
		return err
	}
	if input.EventId != nil {
		if _, err := utils.FetchModelTx[Event](tx, *input.EventId); err != nil {
			if errors.Is(err, utils.ErrorRecordNotFound) {
				return utils.NewValidationError("event %d not found", *input.EventId)
			}
			return err
		}
	}
	return nil
}

func (input *NewInventoryMovement) lines(movementId int) []InventoryMovementLine {
	lines := make([]InventoryMovementLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, InventoryMovementLine{
			InventoryMovementId: movementId,
			IngredientId:        l.IngredientId,
			Quantity:            l.Quantity,
			UnitCost:            l.UnitCost,
		})
	}
	return lines
}

// CreateInventoryMovement records a Draft movement. Stock is untouched until confirmation.
func CreateInventoryMovement(ctx context.Context, input *NewInventoryMovement) (result *InventoryMovement, err error) {
	ctx, span := startSpan(ctx, "CreateInventoryMovement")
	defer func() { endSpan(span, err) }()

	movement := InventoryMovement{
		Type:     input.Type,
		State:    MovementStateDraft,
		EventId:  input.EventId,
		Supplier: input.Supplier,
		Notes:    input.Notes,
	}
	movement.stampCreator(ctx)
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := input.validate(tx); err != nil {
			return err
		}
		movement.Lines = input.lines(0)
		return utils.WrapRemote("create inventory movement", tx.Create(&movement).Error)
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagInventoryMovements)
	return GetInventoryMovement(ctx, movement.ID)
}

// UpdateInventoryMovement replaces a Draft movement's header and lines.
func UpdateInventoryMovement(ctx context.Context, id int, input *NewInventoryMovement) (result *InventoryMovement, err error) {
	ctx, span := startSpan(ctx, "UpdateInventoryMovement", attribute.Int("movement.id", id))
	defer func() { endSpan(span, err) }()

	err = utils.WithEntityLock(ctx, "inventory_movement", id, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := utils.FetchModelTx[InventoryMovement](tx, id)
			if err != nil {
				return err
			}
			if existing.State != MovementStateDraft {
				return utils.NewConflictError("inventory movement %d is %s and cannot be edited", id, existing.State)
			}
			if err := input.validate(tx); err != nil {
				return err
			}
			res := tx.Model(&InventoryMovement{}).
				Where("id = ? AND state = ?", id, MovementStateDraft).
				Updates(map[string]interface{}{
					"type":     input.Type,
					"event_id": input.EventId,
					"supplier": input.Supplier,
					"notes":    input.Notes,
				})
			if res.Error != nil {
				return utils.WrapRemote("update inventory movement", res.Error)
			}
			if res.RowsAffected == 0 {
				return utils.NewConflictError("inventory movement %d is no longer a draft", id)
			}
			if err := tx.Where("inventory_movement_id = ?", id).Delete(&InventoryMovementLine{}).Error; err != nil {
				return utils.WrapRemote("delete movement lines", err)
			}
			lines := input.lines(id)
			return utils.WrapRemote("create movement lines", tx.Create(&lines).Error)
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagInventoryMovements)
	return GetInventoryMovement(ctx, id)
}

// DeleteInventoryMovement removes a Draft movement. Stock is never touched.
func DeleteInventoryMovement(ctx context.Context, id int) (err error) {
	ctx, span := startSpan(ctx, "DeleteInventoryMovement", attribute.Int("movement.id", id))
	defer func() { endSpan(span, err) }()

	err = utils.WithEntityLock(ctx, "inventory_movement", id, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := utils.FetchModelTx[InventoryMovement](tx, id)
			if err != nil {
				return err
			}
			if existing.State != MovementStateDraft {
				return utils.NewConflictError("inventory movement %d is %s and cannot be deleted", id, existing.State)
			}
			if err := tx.Where("inventory_movement_id = ?", id).Delete(&InventoryMovementLine{}).Error; err != nil {
				return utils.WrapRemote("delete movement lines", err)
			}
			res := tx.Where("id = ? AND state = ?", id, MovementStateDraft).Delete(&InventoryMovement{})
			if res.Error != nil {
				return utils.WrapRemote("delete inventory movement", res.Error)
			}
			if res.RowsAffected == 0 {
				return utils.NewConflictError("inventory movement %d is no longer a draft", id)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagInventoryMovements)
	return nil
}

// ConfirmInventoryMovement flips a Draft to Confirmed and applies its stock effect.
func ConfirmInventoryMovement(ctx context.Context, id int) (result *InventoryMovement, err error) {
	ctx, span := startSpan(ctx, "ConfirmInventoryMovement", attribute.Int("movement.id", id))
	defer func() { endSpan(span, err) }()

	err = utils.WithEntityLock(ctx, "inventory_movement", id, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = confirmInventoryMovementTx(ctx, tx, id)
			return err
		})
	})
	if err != nil {
		return nil, err
	}
	config.MovementsConfirmed.WithLabelValues(string(result.Type)).Inc()
	cid, _ := utils.GetCorrelationIdFromContext(ctx)
	config.LogTransition(config.GetLogger(), "inventory_movement", id, string(MovementStateDraft), string(MovementStateConfirmed), cid)
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients, utils.CacheTagInventoryMovements)
	return result, nil
}

func GetInventoryMovement(ctx context.Context, id int) (*InventoryMovement, error) {
	return fetchInventoryMovementTx(config.GetDB().WithContext(ctx), id)
}

func fetchInventoryMovementTx(tx *gorm.DB, id int) (*InventoryMovement, error) {
	var movement InventoryMovement
	err := tx.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&movement, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, utils.WrapRemote("fetch inventory movement", err)
	}
	return &movement, nil
}

func ListInventoryMovements(ctx context.Context, filter InventoryMovementFilter) ([]*InventoryMovement, error) {
	query := config.GetDB().WithContext(ctx).
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
	if filter.EventId != nil {
		query = query.Where("event_id = ?", *filter.EventId)
	}
	if filter.Type != nil {
		query = query.Where("type = ?", *filter.Type)
	}
	if filter.State != nil {
		query = query.Where("state = ?", *filter.State)
	}
	var results []*InventoryMovement
	if err := query.Order("id").Find(&results).Error; err != nil {
		return nil, utils.WrapRemote("list inventory movements", err)
	}
	return results, nil
}
