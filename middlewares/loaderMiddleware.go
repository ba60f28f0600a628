package middlewares

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/graph-gophers/dataloader/v7"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
)

type ctxKey string

const (
	loadersKey = ctxKey("dataloaders")
)

// Loaders batch the lookups made while rendering one response.
type Loaders struct {
	ingredientLoader *dataloader.Loader[int, *models.Ingredient]
	recipeLoader     *dataloader.Loader[int, *models.Recipe]
}

// NewLoaders instantiates data loaders for the middleware
func NewLoaders() *Loaders {
	return &Loaders{
		ingredientLoader: dataloader.NewBatchedLoader(getIngredients, dataloader.WithWait[int, *models.Ingredient](time.Millisecond)),
		recipeLoader:     dataloader.NewBatchedLoader(getRecipes, dataloader.WithWait[int, *models.Recipe](time.Millisecond)),
	}
}

// LoaderMiddleware gives every request a fresh set of loaders, so nothing is cached across requests.
func LoaderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithValue(c.Request.Context(), loadersKey, NewLoaders())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// For returns the request's loaders, or a fresh set when the middleware did not run (CLI, tests).
func For(ctx context.Context) *Loaders {
	if loaders, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return loaders
	}
	return NewLoaders()
}

// handleError creates array of result with the same error repeated for as many items requested
func handleError[T any](itemsLength int, err error) []*dataloader.Result[T] {
	result := make([]*dataloader.Result[T], itemsLength)
	for i := 0; i < itemsLength; i++ {
		result[i] = &dataloader.Result[T]{Error: err}
	}
	return result
}

// generateLoaderResults orders results by the requested ids; a missing id yields nil data
func generateLoaderResults[T any](results []T, ids []int, idOf func(*T) int) []*dataloader.Result[*T] {
	resultMap := make(map[int]*T, len(results))
	for i := range results {
		resultMap[idOf(&results[i])] = &results[i]
	}
	loaderResults := make([]*dataloader.Result[*T], 0, len(ids))
	for _, id := range ids {
		loaderResults = append(loaderResults, &dataloader.Result[*T]{Data: resultMap[id]})
	}
	return loaderResults
}

func getIngredients(ctx context.Context, ids []int) []*dataloader.Result[*models.Ingredient] {
	results, err := models.GetIngredientsByIds(ctx, ids)
	if err != nil {
		return handleError[*models.Ingredient](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(i *models.Ingredient) int { return i.ID })
}

func getRecipes(ctx context.Context, ids []int) []*dataloader.Result[*models.Recipe] {
	results, err := models.GetRecipesByIds(ctx, ids)
	if err != nil {
		return handleError[*models.Recipe](len(ids), err)
	}
	return generateLoaderResults(results, ids, func(r *models.Recipe) int { return r.ID })
}

func GetIngredient(ctx context.Context, id int) (*models.Ingredient, error) {
	return For(ctx).ingredientLoader.Load(ctx, id)()
}

func GetIngredients(ctx context.Context, ids []int) ([]*models.Ingredient, []error) {
	return For(ctx).ingredientLoader.LoadMany(ctx, ids)()
}

func GetRecipe(ctx context.Context, id int) (*models.Recipe, error) {
	return For(ctx).recipeLoader.Load(ctx, id)()
}
