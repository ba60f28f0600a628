package models

import (
	"context"
	"fmt"
	"io"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/xuri/excelize/v2"
)

const purchaseOrderSheet = "Sheet1"

var purchaseOrderHeadings = []string{
	"Ingredient", "Unit", "QuantityNeeded", "QuantityInStock", "QuantityToBuy", "UnitCost", "Subtotal",
}

// ExportPurchaseOrderXlsx writes the order lines as a workbook, closing with a total row.
func ExportPurchaseOrderXlsx(ctx context.Context, orderId int, w io.Writer) error {
	order, err := GetPurchaseOrder(ctx, orderId)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, h := range purchaseOrderHeadings {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(purchaseOrderSheet, cell, h)
	}

	for i, line := range order.Lines {
		row := i + 2
		f.SetCellValue(purchaseOrderSheet, "A"+fmt.Sprint(row), line.IngredientName)
		f.SetCellValue(purchaseOrderSheet, "B"+fmt.Sprint(row), string(line.Unit))
		f.SetCellValue(purchaseOrderSheet, "C"+fmt.Sprint(row), line.QuantityNeeded.InexactFloat64())
		f.SetCellValue(purchaseOrderSheet, "D"+fmt.Sprint(row), line.QuantityInStock.InexactFloat64())
		f.SetCellValue(purchaseOrderSheet, "E"+fmt.Sprint(row), line.QuantityToBuy.InexactFloat64())
		f.SetCellValue(purchaseOrderSheet, "F"+fmt.Sprint(row), line.UnitCost.InexactFloat64())
		f.SetCellValue(purchaseOrderSheet, "G"+fmt.Sprint(row), line.Subtotal.InexactFloat64())
	}

	totalRow := len(order.Lines) + 2
	f.SetCellValue(purchaseOrderSheet, "F"+fmt.Sprint(totalRow), "Total")
	f.SetCellValue(purchaseOrderSheet, "G"+fmt.Sprint(totalRow), order.EstimatedTotal.InexactFloat64())

	if err := f.Write(w); err != nil {
		return utils.WrapRemote("write purchase order workbook", err)
	}
	return nil
}
