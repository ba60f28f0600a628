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

// Recipe is a dish. Line quantities are for one batch yielding ServingsPerBatch servings.
type Recipe struct {
	ID               int                    `gorm:"primary_key" json:"id"`
	Name             string                 `gorm:"size:255;not null" json:"name"`
	ServingsPerBatch decimal.Decimal        `gorm:"type:decimal(20,4);not null;default:1" json:"servings_per_recipe_batch"`
	Lines            []RecipeIngredientLine `json:"lines"`
	CreatedAt        time.Time              `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time              `gorm:"autoUpdateTime" json:"updated_at"`
}

type RecipeIngredientLine struct {
	ID               int             `gorm:"primary_key" json:"id"`
	RecipeId         int             `gorm:"index;not null" json:"recipe_id"`
	IngredientId     int             `gorm:"index;not null" json:"ingredient_id"`
	QuantityPerBatch decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity_per_batch"`
}

type NewRecipe struct {
	Name             string          `json:"name" validate:"required,max=255"`
	ServingsPerBatch decimal.Decimal `json:"servings_per_recipe_batch"`
	Lines            []NewRecipeLine `json:"lines" validate:"dive"`
}

type NewRecipeLine struct {
	IngredientId     int             `json:"ingredient_id" validate:"required,gt=0"`
	QuantityPerBatch decimal.Decimal `json:"quantity_per_batch"`
}

func (input *NewRecipe) validate(tx *gorm.DB) error {
	if err := utils.ValidateStruct(input); err != nil {
		return err
	}
	if !input.ServingsPerBatch.IsPositive() {
		return utils.NewValidationError("servings per recipe batch must be greater than zero")
	}
	seen := make(map[int]bool, len(input.Lines))
	ids := make([]int, 0, len(input.Lines))
	for _, line := range input.Lines {
		if seen[line.IngredientId] {
			return utils.NewValidationError("ingredient %d appears twice in recipe", line.IngredientId)
		}
		seen[line.IngredientId] = true
		if !line.QuantityPerBatch.IsPositive() {
			return utils.NewValidationError("quantity for ingredient %d must be greater than zero", line.IngredientId)
		}
		ids = append(ids, line.IngredientId)
	}
	return utils.ValidateResourcesId[Ingredient](tx, ids)
}

func (input *NewRecipe) lines(recipeId int) []RecipeIngredientLine {
	lines := make([]RecipeIngredientLine, 0, len(input.Lines))
	for _, l := range input.Lines {
		lines = append(lines, RecipeIngredientLine{
			RecipeId:         recipeId,
			IngredientId:     l.IngredientId,
			QuantityPerBatch: l.QuantityPerBatch,
		})
	}
	return lines
}

func CreateRecipe(ctx context.Context, input *NewRecipe) (result *Recipe, err error) {
	ctx, span := startSpan(ctx, "CreateRecipe")
	defer func() { endSpan(span, err) }()

	recipe := Recipe{
		Name:             strings.TrimSpace(input.Name),
		ServingsPerBatch: input.ServingsPerBatch,
	}
	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := input.validate(tx); err != nil {
			return err
		}
		recipe.Lines = input.lines(0)
		return utils.WrapRemote("create recipe", tx.Create(&recipe).Error)
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagRecipes)
	return GetRecipe(ctx, recipe.ID)
}

// UpdateRecipe replaces the recipe's fields and its whole line list.
func UpdateRecipe(ctx context.Context, id int, input *NewRecipe) (result *Recipe, err error) {
	ctx, span := startSpan(ctx, "UpdateRecipe", attribute.Int("recipe.id", id))
	defer func() { endSpan(span, err) }()

	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := utils.FetchModelTx[Recipe](tx, id); err != nil {
			return err
		}
		if err := input.validate(tx); err != nil {
			return err
		}
		if err := tx.Model(&Recipe{}).Where("id = ?", id).Updates(map[string]interface{}{
			"name":               strings.TrimSpace(input.Name),
			"servings_per_batch": input.ServingsPerBatch,
		}).Error; err != nil {
			return utils.WrapRemote("update recipe", err)
		}
		if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredientLine{}).Error; err != nil {
			return utils.WrapRemote("delete recipe lines", err)
		}
		lines := input.lines(id)
		if len(lines) == 0 {
			return nil
		}
		return utils.WrapRemote("create recipe lines", tx.Create(&lines).Error)
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagRecipes)
	return GetRecipe(ctx, id)
}

func GetRecipe(ctx context.Context, id int) (*Recipe, error) {
	return utils.FetchModel[Recipe](ctx, id, "Lines")
}

func ListRecipes(ctx context.Context) ([]*Recipe, error) {
	return utils.CacheList(ctx, utils.CacheTagRecipes, "all", func() ([]*Recipe, error) {
		return utils.FetchAllModels[Recipe](ctx, "Lines")
	})
}

// GetRecipesByIds is the batch read behind the request-scoped recipe loader.
func GetRecipesByIds(ctx context.Context, ids []int) ([]Recipe, error) {
	var results []Recipe
	if err := config.GetDB().WithContext(ctx).Where("id IN ?", ids).Find(&results).Error; err != nil {
		return nil, utils.WrapRemote("load recipes", err)
	}
	return results, nil
}
