package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/middlewares"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/shopspring/decimal"
)

type recipeLineView struct {
	models.RecipeIngredientLine
	IngredientName string          `json:"ingredient_name"`
	Unit           models.BaseUnit `json:"unit"`
}

type recipeView struct {
	*models.Recipe
	Lines []recipeLineView `json:"lines"`
}

type plannedDishView struct {
	models.EventPlannedDish
	RecipeName string `json:"recipe_name"`
}

type eventView struct {
	*models.Event
	PlannedDishes []plannedDishView `json:"planned_dishes"`
}

// recipe lines carry only ingredient ids; names and units come through the request loader
func toRecipeView(ctx context.Context, recipe *models.Recipe) (*recipeView, error) {
	view := &recipeView{Recipe: recipe, Lines: make([]recipeLineView, 0, len(recipe.Lines))}
	for _, line := range recipe.Lines {
		ingredient, err := middlewares.GetIngredient(ctx, line.IngredientId)
		if err != nil {
			return nil, err
		}
		lv := recipeLineView{RecipeIngredientLine: line}
		if ingredient != nil {
			lv.IngredientName = ingredient.Name
			lv.Unit = ingredient.BaseUnit
		}
		view.Lines = append(view.Lines, lv)
	}
	return view, nil
}

func toEventView(ctx context.Context, event *models.Event) (*eventView, error) {
	view := &eventView{Event: event, PlannedDishes: make([]plannedDishView, 0, len(event.PlannedDishes))}
	for _, dish := range event.PlannedDishes {
		recipe, err := middlewares.GetRecipe(ctx, dish.RecipeId)
		if err != nil {
			return nil, err
		}
		dv := plannedDishView{EventPlannedDish: dish}
		if recipe != nil {
			dv.RecipeName = recipe.Name
		}
		view.PlannedDishes = append(view.PlannedDishes, dv)
	}
	return view, nil
}

func createIngredientHandler(c *gin.Context) {
	var input models.NewIngredient
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.CreateIngredient(c.Request.Context(), &input)
	respond(c, http.StatusCreated, result, err)
}

func listIngredientsHandler(c *gin.Context) {
	result, err := models.ListIngredients(c.Request.Context())
	respond(c, http.StatusOK, result, err)
}

func getIngredientHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.GetIngredient(c.Request.Context(), id)
	respond(c, http.StatusOK, result, err)
}

func updateIngredientHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.UpdateIngredientInput
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.UpdateIngredient(c.Request.Context(), id, &input)
	respond(c, http.StatusOK, result, err)
}

func createIngredientSupplierHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.NewIngredientSupplier
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.CreateIngredientSupplier(c.Request.Context(), id, &input)
	respond(c, http.StatusCreated, result, err)
}

func updateIngredientSupplierHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.NewIngredientSupplier
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.UpdateIngredientSupplier(c.Request.Context(), id, &input)
	respond(c, http.StatusOK, result, err)
}

func setPrimaryIngredientSupplierHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.SetPrimaryIngredientSupplier(c.Request.Context(), id)
	respond(c, http.StatusOK, result, err)
}

func createRecipeHandler(c *gin.Context) {
	var input models.NewRecipe
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	recipe, err := models.CreateRecipe(ctx, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := toRecipeView(ctx, recipe)
	respond(c, http.StatusCreated, view, err)
}

func listRecipesHandler(c *gin.Context) {
	ctx := c.Request.Context()
	recipes, err := models.ListRecipes(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]*recipeView, 0, len(recipes))
	for _, r := range recipes {
		view, err := toRecipeView(ctx, r)
		if err != nil {
			respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

func getRecipeHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	recipe, err := models.GetRecipe(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := toRecipeView(ctx, recipe)
	respond(c, http.StatusOK, view, err)
}

func updateRecipeHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input models.NewRecipe
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	recipe, err := models.UpdateRecipe(ctx, id, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := toRecipeView(ctx, recipe)
	respond(c, http.StatusOK, view, err)
}

func createQuotationHandler(c *gin.Context) {
	var input models.NewQuotation
	if !bindJSON(c, &input) {
		return
	}
	result, err := models.CreateQuotation(c.Request.Context(), &input)
	respond(c, http.StatusCreated, result, err)
}

func getQuotationHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	result, err := models.GetQuotation(c.Request.Context(), id)
	respond(c, http.StatusOK, result, err)
}

func createEventHandler(c *gin.Context) {
	var input models.NewEvent
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	event, err := models.CreateEvent(ctx, &input)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := toEventView(ctx, event)
	respond(c, http.StatusCreated, view, err)
}

func listEventsHandler(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := models.ListEvents(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	views := make([]*eventView, 0, len(events))
	for _, e := range events {
		view, err := toEventView(ctx, e)
		if err != nil {
			respondError(c, err)
			return
		}
		views = append(views, view)
	}
	c.JSON(http.StatusOK, views)
}

func getEventHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	event, err := models.GetEvent(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := toEventView(ctx, event)
	respond(c, http.StatusOK, view, err)
}

type plannedDishesRequest struct {
	PlannedDishes []models.NewEventPlannedDish `json:"planned_dishes"`
}

func setEventPlannedDishesHandler(c *gin.Context) {
	id, ok := intParam(c, "id")
	if !ok {
		return
	}
	var input plannedDishesRequest
	if !bindJSON(c, &input) {
		return
	}
	ctx := c.Request.Context()
	event, err := models.SetEventPlannedDishes(ctx, id, input.PlannedDishes)
	if err != nil {
		respondError(c, err)
		return
	}
	view, err := toEventView(ctx, event)
	respond(c, http.StatusOK, view, err)
}

type payCalculationRequest struct {
	BillingModality models.BillingModality `json:"billing_modality" binding:"required"`
	BaseRate        decimal.Decimal        `json:"base_rate"`
	HoursWorked     *decimal.Decimal       `json:"hours_worked"`
	OvertimeRate    *decimal.Decimal       `json:"overtime_rate"`
}

func calculatePayHandler(c *gin.Context) {
	var input payCalculationRequest
	if !bindJSON(c, &input) {
		return
	}
	amount := models.CalculatePay(input.BillingModality, input.BaseRate, input.HoursWorked, input.OvertimeRate)
	c.JSON(http.StatusOK, gin.H{"amount_owed": amount})
}
