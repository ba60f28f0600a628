package models

import (
	"log"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
)

func MigrateTable() {
	db := config.GetDB()

	err := db.AutoMigrate(
		&Ingredient{}, &IngredientSupplier{},
		&Recipe{}, &RecipeIngredientLine{},
		&Quotation{}, &Event{}, &EventPlannedDish{},
		&Staff{}, &StaffAssignment{},
		&PurchaseOrder{}, &PurchaseOrderLine{},
		&InventoryMovement{}, &InventoryMovementLine{},
		&User{},
		&IdempotencyKey{},
	)
	if err != nil {
		log.Fatal(err)
	}
}
