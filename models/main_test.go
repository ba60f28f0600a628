package models_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
)

// setupTestDB points the package at a fresh in-memory sqlite database without redis.
func setupTestDB(t *testing.T) context.Context {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	conn, err := config.OpenSqlite(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.SetDB(conn)
	config.SetRedis(nil)
	models.MigrateTable()

	ctx := context.Background()
	utils.InvalidateCacheTags(ctx,
		utils.CacheTagIngredients,
		utils.CacheTagRecipes,
		utils.CacheTagEvents,
		utils.CacheTagPurchaseOrders,
		utils.CacheTagInventoryMovements,
		utils.CacheTagStaffAssignments,
	)
	return utils.SetCorrelationIdInContext(ctx, "test-"+name)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func assertDecimal(t *testing.T, label string, got, want decimal.Decimal) {
	t.Helper()
	if !got.Equal(want) {
		t.Fatalf("%s: got %s want %s", label, got, want)
	}
}

func mustCreateIngredient(t *testing.T, ctx context.Context, name string, unit models.BaseUnit, cost, stock string) *models.Ingredient {
	t.Helper()
	input := &models.NewIngredient{Name: name, BaseUnit: unit, CostPerUnit: dec(cost)}
	if stock != "" {
		input.InitialStock = decPtr(stock)
	}
	ingredient, err := models.CreateIngredient(ctx, input)
	if err != nil {
		t.Fatalf("CreateIngredient(%s): %v", name, err)
	}
	return ingredient
}

func ingredientStock(t *testing.T, ctx context.Context, id int) decimal.Decimal {
	t.Helper()
	ingredient, err := models.GetIngredient(ctx, id)
	if err != nil {
		t.Fatalf("GetIngredient(%d): %v", id, err)
	}
	return ingredient.CurrentStock
}

type cateringFixture struct {
	rice    *models.Ingredient
	bread   *models.Ingredient
	recipe  *models.Recipe
	eventId int
}

// newCateringFixture seeds one event for 20 guests planning one batch-scaled dish:
// rice 1000gr per 10 servings (stock 500, cost 2) and bread 2und per 10 servings (no stock, cost 100).
func newCateringFixture(t *testing.T, ctx context.Context) cateringFixture {
	t.Helper()

	rice := mustCreateIngredient(t, ctx, "Rice", models.BaseUnitGram, "2", "500")
	bread := mustCreateIngredient(t, ctx, "Bread", models.BaseUnitUnit, "100", "")

	recipe, err := models.CreateRecipe(ctx, &models.NewRecipe{
		Name:             "Rice with bread",
		ServingsPerBatch: dec("10"),
		Lines: []models.NewRecipeLine{
			{IngredientId: rice.ID, QuantityPerBatch: dec("1000")},
			{IngredientId: bread.ID, QuantityPerBatch: dec("2")},
		},
	})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}

	quotation, err := models.CreateQuotation(ctx, &models.NewQuotation{ClientName: "Acme", NumberOfGuests: 20})
	if err != nil {
		t.Fatalf("CreateQuotation: %v", err)
	}
	event, err := models.CreateEvent(ctx, &models.NewEvent{
		Name:        "Acme launch",
		EventDate:   time.Date(2026, 11, 20, 18, 0, 0, 0, time.UTC),
		QuotationId: &quotation.ID,
		PlannedDishes: []models.NewEventPlannedDish{
			{RecipeId: recipe.ID, PlannedQuantity: dec("1")},
		},
	})
	if err != nil {
		t.Fatalf("CreateEvent: %v", err)
	}
	return cateringFixture{rice: rice, bread: bread, recipe: recipe, eventId: event.ID}
}
