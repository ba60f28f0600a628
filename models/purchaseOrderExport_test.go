package models_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/models"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/xuri/excelize/v2"
)

func TestExportPurchaseOrderXlsx(t *testing.T) {
	ctx := setupTestDB(t)
	fx := newCateringFixture(t, ctx)

	order, err := models.GeneratePurchaseOrder(ctx, fx.eventId)
	if err != nil {
		t.Fatalf("GeneratePurchaseOrder: %v", err)
	}

	var buf bytes.Buffer
	if err := models.ExportPurchaseOrderXlsx(ctx, order.ID, &buf); err != nil {
		t.Fatalf("ExportPurchaseOrderXlsx: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("Sheet1")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected heading, 2 lines and total, got %d rows", len(rows))
	}
	if rows[0][0] != "Ingredient" || rows[0][6] != "Subtotal" {
		t.Fatalf("unexpected headings %v", rows[0])
	}
	if rows[1][0] != "Rice" || rows[1][1] != "gr" || rows[1][4] != "1500" {
		t.Fatalf("unexpected rice row %v", rows[1])
	}
	if rows[2][0] != "Bread" || rows[2][6] != "400" {
		t.Fatalf("unexpected bread row %v", rows[2])
	}
	if rows[3][5] != "Total" || rows[3][6] != "3400" {
		t.Fatalf("unexpected total row %v", rows[3])
	}

	if err := models.ExportPurchaseOrderXlsx(ctx, order.ID+10, &bytes.Buffer{}); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("unknown order: expected not found, got %v", err)
	}
}
