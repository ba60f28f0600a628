package models

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

const staffAssignmentSheet = "Sheet1"

// StaffAssignmentImportHeader is the required first row of an import workbook.
var StaffAssignmentImportHeader = []string{
	"event_id", "staff_id", "billing_modality", "base_rate", "hours_worked", "overtime_rate",
}

// cell returns the trimmed value at idx; short rows mean trailing empty cells
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func parseStaffAssignmentRow(row []string, rowNo int) (*StaffAssignment, error) {
	eventId, err := strconv.Atoi(cell(row, 0))
	if err != nil || eventId <= 0 {
		return nil, utils.NewValidationError("row %d: invalid event_id %q", rowNo, cell(row, 0))
	}
	staffId, err := strconv.Atoi(cell(row, 1))
	if err != nil || staffId <= 0 {
		return nil, utils.NewValidationError("row %d: invalid staff_id %q", rowNo, cell(row, 1))
	}
	modality := BillingModality(cell(row, 2))
	if !modality.IsValid() {
		return nil, utils.NewValidationError("row %d: invalid billing_modality %q", rowNo, cell(row, 2))
	}
	baseRate, err := utils.ParseDecimal(cell(row, 3))
	if err != nil {
		return nil, utils.NewValidationError("row %d: invalid base_rate %q", rowNo, cell(row, 3))
	}
	hours, err := utils.ParseOptionalDecimal(cell(row, 4))
	if err != nil {
		return nil, utils.NewValidationError("row %d: invalid hours_worked %q", rowNo, cell(row, 4))
	}
	otRate, err := utils.ParseOptionalDecimal(cell(row, 5))
	if err != nil {
		return nil, utils.NewValidationError("row %d: invalid overtime_rate %q", rowNo, cell(row, 5))
	}
	if err := validatePayInputs(modality, baseRate, hours, otRate); err != nil {
		return nil, utils.NewValidationError("row %d: %v", rowNo, err)
	}

	assignment := &StaffAssignment{
		EventId:         eventId,
		StaffId:         staffId,
		BillingModality: modality,
		BaseRate:        baseRate,
		HoursWorked:     hours,
		OvertimeRate:    otRate,
		IsPaid:          utils.NewFalse(),
	}
	assignment.recomputeAmountOwed()
	return assignment, nil
}

// ImportStaffAssignmentsFromXlsx validates every row first, then inserts all of them in one
// transaction. It returns the number of imported rows.
func ImportStaffAssignmentsFromXlsx(ctx context.Context, r io.Reader) (count int, err error) {
	ctx, span := startSpan(ctx, "ImportStaffAssignmentsFromXlsx")
	defer func() { endSpan(span, err) }()

	f, err := excelize.OpenReader(r)
	if err != nil {
		return 0, utils.NewValidationError("unable to open workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(staffAssignmentSheet)
	if err != nil {
		return 0, utils.NewValidationError("unable to read sheet %s: %v", staffAssignmentSheet, err)
	}
	if len(rows) == 0 {
		return 0, utils.NewValidationError("sheet %s is empty", staffAssignmentSheet)
	}
	for i, h := range StaffAssignmentImportHeader {
		if !strings.EqualFold(cell(rows[0], i), h) {
			return 0, utils.NewValidationError("row 1: expected column %d to be %q, got %q", i+1, h, cell(rows[0], i))
		}
	}

	assignments := make([]*StaffAssignment, 0, len(rows)-1)
	eventIds := make([]int, 0, len(rows)-1)
	staffIds := make([]int, 0, len(rows)-1)
	seen := make(map[[2]int]int)
	for idx, row := range rows[1:] {
		rowNo := idx + 2
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}
		assignment, err := parseStaffAssignmentRow(row, rowNo)
		if err != nil {
			return 0, err
		}
		pair := [2]int{assignment.EventId, assignment.StaffId}
		if prev, ok := seen[pair]; ok {
			return 0, utils.NewValidationError("row %d: staff %d for event %d repeats row %d", rowNo, pair[1], pair[0], prev)
		}
		seen[pair] = rowNo
		assignments = append(assignments, assignment)
		eventIds = append(eventIds, assignment.EventId)
		staffIds = append(staffIds, assignment.StaffId)
	}
	if len(assignments) == 0 {
		return 0, utils.NewValidationError("sheet %s has no data rows", staffAssignmentSheet)
	}

	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := utils.ValidateResourcesId[Event](tx, eventIds); err != nil {
			return err
		}
		if err := utils.ValidateResourcesId[Staff](tx, staffIds); err != nil {
			return err
		}
		for _, a := range assignments {
			if err := insertStaffAssignmentTx(tx, a); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagStaffAssignments)
	return len(assignments), nil
}
