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

type IngredientSupplier struct {
	ID              int             `gorm:"primary_key" json:"id"`
	IngredientId    int             `gorm:"index;not null" json:"ingredient_id"`
	SupplierName    string          `gorm:"size:255;not null" json:"supplier_name"`
	Phone           string          `gorm:"size:32" json:"phone"`
	PackageQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"package_quantity"`
	PackageUnit     PackageUnit     `gorm:"size:10;not null" json:"package_unit"`
	PackagePrice    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"package_price"`
	// packagePrice / packageQuantity converted to the ingredient's base unit
	CostPerBaseUnit decimal.Decimal `gorm:"type:decimal(20,6);default:0" json:"cost_per_base_unit"`
	IsPrimary       *bool           `gorm:"not null;default:false" json:"is_primary"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewIngredientSupplier struct {
	SupplierName    string          `json:"supplier_name" validate:"required,max=255"`
	Phone           string          `json:"phone"`
	PackageQuantity decimal.Decimal `json:"package_quantity"`
	PackageUnit     PackageUnit     `json:"package_unit" validate:"required"`
	PackagePrice    decimal.Decimal `json:"package_price"`
	IsPrimary       *bool           `json:"is_primary"`
}

type unitFactor struct {
	base   BaseUnit
	factor decimal.Decimal
}

var packageUnitFactors = map[PackageUnit]unitFactor{
	PackageUnitMilligram:  {BaseUnitGram, decimal.RequireFromString("0.001")},
	PackageUnitGram:       {BaseUnitGram, decimal.NewFromInt(1)},
	PackageUnitKilogram:   {BaseUnitGram, decimal.NewFromInt(1000)},
	PackageUnitPound:      {BaseUnitGram, decimal.RequireFromString("453.592")},
	PackageUnitMilliliter: {BaseUnitMilliliter, decimal.NewFromInt(1)},
	PackageUnitLiter:      {BaseUnitMilliliter, decimal.NewFromInt(1000)},
	PackageUnitUnit:       {BaseUnitUnit, decimal.NewFromInt(1)},
	PackageUnitDozen:      {BaseUnitUnit, decimal.NewFromInt(12)},
}

// ConvertToBaseUnit converts a package quantity into the ingredient's base unit.
func ConvertToBaseUnit(qty decimal.Decimal, from PackageUnit, to BaseUnit) (decimal.Decimal, error) {
	f, ok := packageUnitFactors[from]
	if !ok {
		return decimal.Zero, utils.NewValidationError("invalid package unit %q", from)
	}
	if f.base != to {
		return decimal.Zero, utils.NewValidationError("cannot convert %s to %s", from, to)
	}
	return qty.Mul(f.factor), nil
}

func CostPerBaseUnit(packagePrice, packageQuantity decimal.Decimal, unit PackageUnit, base BaseUnit) (decimal.Decimal, error) {
	qty, err := ConvertToBaseUnit(packageQuantity, unit, base)
	if err != nil {
		return decimal.Zero, err
	}
	if !qty.IsPositive() {
		return decimal.Zero, utils.NewValidationError("package quantity must be greater than zero")
	}
	return packagePrice.DivRound(qty, 6), nil
}

func (input *NewIngredientSupplier) validate() error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.PackageUnit.IsValid() {
		return utils.NewValidationError("invalid package unit %q", input.PackageUnit)
	}
	if input.PackagePrice.IsNegative() {
		return utils.NewValidationError("package price cannot be negative")
	}
	phone, err := utils.NormalizePhoneNumber(input.Phone, config.PhoneRegion())
	if err != nil {
		return err
	}
	input.Phone = phone
	return nil
}

// demoteOtherSuppliers keeps at most one primary supplier per ingredient.
func demoteOtherSuppliers(tx *gorm.DB, ingredientId, keepId int) error {
	err := tx.Model(&IngredientSupplier{}).
		Where("ingredient_id = ? AND id <> ? AND is_primary = ?", ingredientId, keepId, true).
		Update("is_primary", false).Error
	return utils.WrapRemote("demote suppliers", err)
}

func CreateIngredientSupplier(ctx context.Context, ingredientId int, input *NewIngredientSupplier) (result *IngredientSupplier, err error) {
	ctx, span := startSpan(ctx, "CreateIngredientSupplier", attribute.Int("ingredient.id", ingredientId))
	defer func() { endSpan(span, err) }()

	if err := input.validate(); err != nil {
		return nil, err
	}

	supplier := IngredientSupplier{
		IngredientId:    ingredientId,
		SupplierName:    strings.TrimSpace(input.SupplierName),
		Phone:           input.Phone,
		PackageQuantity: input.PackageQuantity,
		PackageUnit:     input.PackageUnit,
		PackagePrice:    input.PackagePrice,
		IsPrimary:       utils.NewFalse(),
	}
	if input.IsPrimary != nil && *input.IsPrimary {
		supplier.IsPrimary = utils.NewTrue()
	}

	err = utils.WithEntityLock(ctx, "ingredient", ingredientId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ingredient, err := utils.FetchModelTx[Ingredient](tx, ingredientId)
			if err != nil {
				return err
			}
			supplier.CostPerBaseUnit, err = CostPerBaseUnit(supplier.PackagePrice, supplier.PackageQuantity, supplier.PackageUnit, ingredient.BaseUnit)
			if err != nil {
				return err
			}
			if err := tx.Create(&supplier).Error; err != nil {
				return utils.WrapRemote("create supplier", err)
			}
			if *supplier.IsPrimary {
				return demoteOtherSuppliers(tx, ingredientId, supplier.ID)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients)
	return &supplier, nil
}

func UpdateIngredientSupplier(ctx context.Context, id int, input *NewIngredientSupplier) (result *IngredientSupplier, err error) {
	ctx, span := startSpan(ctx, "UpdateIngredientSupplier", attribute.Int("supplier.id", id))
	defer func() { endSpan(span, err) }()

	if err := input.validate(); err != nil {
		return nil, err
	}
	existing, err := utils.FetchModel[IngredientSupplier](ctx, id)
	if err != nil {
		return nil, err
	}

	err = utils.WithEntityLock(ctx, "ingredient", existing.IngredientId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			ingredient, err := utils.FetchModelTx[Ingredient](tx, existing.IngredientId)
			if err != nil {
				return err
			}
			cost, err := CostPerBaseUnit(input.PackagePrice, input.PackageQuantity, input.PackageUnit, ingredient.BaseUnit)
			if err != nil {
				return err
			}
			updates := map[string]interface{}{
				"supplier_name":      strings.TrimSpace(input.SupplierName),
				"phone":              input.Phone,
				"package_quantity":   input.PackageQuantity,
				"package_unit":       input.PackageUnit,
				"package_price":      input.PackagePrice,
				"cost_per_base_unit": cost,
			}
			if input.IsPrimary != nil {
				updates["is_primary"] = *input.IsPrimary
			}
			if err := tx.Model(&IngredientSupplier{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return utils.WrapRemote("update supplier", err)
			}
			if input.IsPrimary != nil && *input.IsPrimary {
				return demoteOtherSuppliers(tx, existing.IngredientId, id)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients)
	return utils.FetchModel[IngredientSupplier](ctx, id)
}

// SetPrimaryIngredientSupplier flags one supplier as primary and clears the flag on the others.
func SetPrimaryIngredientSupplier(ctx context.Context, id int) (result *IngredientSupplier, err error) {
	ctx, span := startSpan(ctx, "SetPrimaryIngredientSupplier", attribute.Int("supplier.id", id))
	defer func() { endSpan(span, err) }()

	existing, err := utils.FetchModel[IngredientSupplier](ctx, id)
	if err != nil {
		return nil, err
	}
	err = utils.WithEntityLock(ctx, "ingredient", existing.IngredientId, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Model(&IngredientSupplier{}).Where("id = ?", id).Update("is_primary", true).Error; err != nil {
				return utils.WrapRemote("set primary supplier", err)
			}
			return demoteOtherSuppliers(tx, existing.IngredientId, id)
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagIngredients)
	return utils.FetchModel[IngredientSupplier](ctx, id)
}
