package models

import (
	"context"
	"strings"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Ingredient struct {
	ID          int             `gorm:"primary_key" json:"id"`
	Name        string          `gorm:"size:255;not null;uniqueIndex" json:"name"`
	BaseUnit    BaseUnit        `gorm:"size:10;not null" json:"base_unit"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"cost_per_unit"`
	// mutated only by confirmInventoryMovementTx
	CurrentStock decimal.Decimal      `gorm:"type:decimal(20,4);default:0" json:"current_stock"`
	Suppliers    []IngredientSupplier `json:"suppliers,omitempty"`
	CreatedAt    time.Time            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time            `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIngredient struct {
	Name        string          `json:"name" validate:"required,max=255"`
	BaseUnit    BaseUnit        `json:"base_unit" validate:"required"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
	// recorded as a confirmed Adjustment movement
	InitialStock *decimal.Decimal `json:"initial_stock"`
}

type UpdateIngredientInput struct {
	Name        string          `json:"name" validate:"required,max=255"`
	BaseUnit    BaseUnit        `json:"base_unit" validate:"required"`
	CostPerUnit decimal.Decimal `json:"cost_per_unit"`
}

func validateIngredientFields(name string, unit BaseUnit, cost decimal.Decimal) error {
	if strings.TrimSpace(name) == "" {
		return utils.NewValidationError("ingredient name is required")
	}
	if !unit.IsValid() {
		return utils.NewValidationError("invalid base unit %q", unit)
	}
	if cost.IsNegative() {
		return utils.NewValidationError("cost per unit cannot be negative")
	}
	return nil
}

func (input *NewIngredient) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if err := validateIngredientFields(input.Name, input.BaseUnit, input.CostPerUnit); err != nil {
		return err
	}
	if input.InitialStock != nil && input.InitialStock.IsNegative() {
		return utils.NewValidationError("initial stock cannot be negative")
	}
	return nil
}

func CreateIngredient(ctx context.Context, input *NewIngredient) (result *Ingredient, err error) {
	ctx, span := startSpan(ctx, "CreateIngredient")
	defer func() { endSpan(span, err) }()

	if err := input.validate(); err != nil {
		return nil, err
	}

	ingredient := Ingredient{
		Name:        strings.TrimSpace(input.Name),
		BaseUnit:    input.BaseUnit,
		CostPerUnit: input.CostPerUnit,
	}
	var opening *InventoryMovement
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ingredient).Error; err != nil {
			if utils.IsDuplicateKeyError(err) {
				return utils.NewValidationError("ingredient %q already exists", ingredient.Name)
			}
			return utils.WrapRemote("create ingredient", err)
		}
		if input.InitialStock == nil || input.InitialStock.IsZero() {
			return nil
		}
		opening = &InventoryMovement{
			Type:  MovementTypeAdjustment,
			Notes: "Opening stock",
			Lines: []InventoryMovementLine{{
				IngredientId: ingredient.ID,
				Quantity:     *input.InitialStock,
				UnitCost:     ingredient.CostPerUnit,
			}},
		}
		_, err := createConfirmedMovementTx(ctx, tx, opening)
		return err
	})
	if err != nil {
		return nil, err
	}
	if opening != nil {
		config.MovementsConfirmed.WithLabelValues(string(opening.Type)).Inc()
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients, utils.CacheTagInventoryMovements)
	return GetIngredient(ctx, ingredient.ID)
}

// UpdateIngredient edits catalog fields. Stock is never touched here.
func UpdateIngredient(ctx context.Context, id int, input *UpdateIngredientInput) (result *Ingredient, err error) {
	ctx, span := startSpan(ctx, "UpdateIngredient", attribute.Int("ingredient.id", id))
	defer func() { endSpan(span, err) }()

	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := validateIngredientFields(input.Name, input.BaseUnit, input.CostPerUnit); err != nil {
		return nil, err
	}

	err = utils.WithEntityLock(ctx, "ingredient", id, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			existing, err := utils.FetchModelTx[Ingredient](tx, id, "Suppliers")
			if err != nil {
				return err
			}
			if err := tx.Model(&Ingredient{}).Where("id = ?", id).Updates(map[string]interface{}{
				"name":          strings.TrimSpace(input.Name),
				"base_unit":     input.BaseUnit,
				"cost_per_unit": input.CostPerUnit,
			}).Error; err != nil {
				if utils.IsDuplicateKeyError(err) {
					return utils.NewValidationError("ingredient %q already exists", input.Name)
				}
				return utils.WrapRemote("update ingredient", err)
			}
			if existing.BaseUnit == input.BaseUnit {
				return nil
			}
			// supplier costs are expressed per base unit
			for _, supplier := range existing.Suppliers {
				cost, err := CostPerBaseUnit(supplier.PackagePrice, supplier.PackageQuantity, supplier.PackageUnit, input.BaseUnit)
				if err != nil {
					return err
				}
				if err := tx.Model(&IngredientSupplier{}).Where("id = ?", supplier.ID).
					Update("cost_per_base_unit", cost).Error; err != nil {
					return utils.WrapRemote("update supplier cost", err)
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients)
	return GetIngredient(ctx, id)
}

func GetIngredient(ctx context.Context, id int) (*Ingredient, error) {
	return utils.FetchModel[Ingredient](ctx, id, "Suppliers")
}

func ListIngredients(ctx context.Context) ([]*Ingredient, error) {
	return utils.CacheList(ctx, utils.CacheTagIngredients, "all", func() ([]*Ingredient, error) {
		return utils.FetchAllModels[Ingredient](ctx, "Suppliers")
	})
}

// GetIngredientsByIds is the batch read behind the request-scoped ingredient loader.
func GetIngredientsByIds(ctx context.Context, ids []int) ([]Ingredient, error) {
	var results []Ingredient
	if err := config.GetDB().WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, utils.WrapRemote("load ingredients", err)
	}
	return results, nil
}
