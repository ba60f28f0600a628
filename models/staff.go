package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/jpgomezm1/selecta-eventos-manager-sub001/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"
)

type Staff struct {
	ID              int              `gorm:"primary_key" json:"id"`
	Name            string           `gorm:"size:255;not null" json:"name"`
	Phone           string           `gorm:"size:32" json:"phone"`
	Role            string           `gorm:"size:100" json:"role"`
	BillingModality BillingModality  `gorm:"size:50;not null" json:"billing_modality"`
	BaseRate        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"base_rate"`
	OvertimeRate    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"overtime_rate"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewStaff struct {
	Name            string           `json:"name" validate:"required,max=255"`
	Phone           string           `json:"phone"`
	Role            string           `json:"role" validate:"max=100"`
	BillingModality BillingModality  `json:"billing_modality" validate:"required"`
	BaseRate        decimal.Decimal  `json:"base_rate"`
	OvertimeRate    *decimal.Decimal `json:"overtime_rate"`
}

// StaffAssignment links a staff member to an event. AmountOwed is derived from the other
// pay fields on every write and is never set directly.
type StaffAssignment struct {
	ID              int              `gorm:"primary_key" json:"id"`
	EventId         int              `gorm:"not null;uniqueIndex:idx_event_staff" json:"event_id"`
	StaffId         int              `gorm:"not null;uniqueIndex:idx_event_staff" json:"staff_id"`
	BillingModality BillingModality  `gorm:"size:50;not null" json:"billing_modality"`
	BaseRate        decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"base_rate"`
	HoursWorked     *decimal.Decimal `gorm:"type:decimal(20,4)" json:"hours_worked"`
	OvertimeRate    *decimal.Decimal `gorm:"type:decimal(20,4)" json:"overtime_rate"`
	AmountOwed      decimal.Decimal  `gorm:"type:decimal(20,4);default:0" json:"amount_owed"`
	IsPaid          *bool            `gorm:"not null;default:false" json:"is_paid"`
	CreatedAt       time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

// NewStaffAssignment falls back to the staff member's defaults for modality and rates.
type NewStaffAssignment struct {
	StaffId         int              `json:"staff_id" validate:"required,gt=0"`
	BillingModality *BillingModality `json:"billing_modality"`
	BaseRate        *decimal.Decimal `json:"base_rate"`
	HoursWorked     *decimal.Decimal `json:"hours_worked"`
	OvertimeRate    *decimal.Decimal `json:"overtime_rate"`
	IsPaid          *bool            `json:"is_paid"`
}

// nil fields keep their stored value
type UpdateStaffAssignmentInput struct {
	BillingModality *BillingModality `json:"billing_modality"`
	BaseRate        *decimal.Decimal `json:"base_rate"`
	HoursWorked     *decimal.Decimal `json:"hours_worked"`
	OvertimeRate    *decimal.Decimal `json:"overtime_rate"`
	IsPaid          *bool            `json:"is_paid"`
}

type EventStaffCost struct {
	EventId     int             `json:"event_id"`
	Assignments int             `json:"assignments"`
	TotalOwed   decimal.Decimal `json:"total_owed"`
	TotalPaid   decimal.Decimal `json:"total_paid"`
}

func validatePayInputs(modality BillingModality, baseRate decimal.Decimal, hours, otRate *decimal.Decimal) error {
	if !modality.IsValid() {
		return utils.NewValidationError("invalid billing modality %q", modality)
	}
	if baseRate.IsNegative() {
		return utils.NewValidationError("base rate cannot be negative")
	}
	if hours != nil && hours.IsNegative() {
		return utils.NewValidationError("hours worked cannot be negative")
	}
	if otRate != nil && otRate.IsNegative() {
		return utils.NewValidationError("overtime rate cannot be negative")
	}
	return nil
}

// recomputeAmountOwed is the only writer of AmountOwed.
func (a *StaffAssignment) recomputeAmountOwed() {
	a.AmountOwed = CalculatePay(a.BillingModality, a.BaseRate, a.HoursWorked, a.OvertimeRate)
}

func CreateStaff(ctx context.Context, input *NewStaff) (*Staff, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	if err := validatePayInputs(input.BillingModality, input.BaseRate, nil, input.OvertimeRate); err != nil {
		return nil, err
	}
	phone, err := utils.NormalizePhoneNumber(input.Phone, config.PhoneRegion())
	if err != nil {
		return nil, err
	}
	staff := Staff{
		Name:            strings.TrimSpace(input.Name),
		Phone:           phone,
		Role:            input.Role,
		BillingModality: input.BillingModality,
		BaseRate:        input.BaseRate,
		OvertimeRate:    input.OvertimeRate,
	}
	if err := config.GetDB().WithContext(ctx).Create(&staff).Error; err != nil {
		return nil, utils.WrapRemote("create staff", err)
	}
	return &staff, nil
}

func ListStaff(ctx context.Context) ([]*Staff, error) {
	return utils.FetchAllModels[Staff](ctx)
}

func (input *NewStaffAssignment) toAssignment(tx *gorm.DB, eventId int) (*StaffAssignment, error) {
	if err := utils.ValidateStruct(input); err != nil {
		return nil, err
	}
	staff, err := utils.FetchModelTx[Staff](tx, input.StaffId)
	if err != nil {
		if errors.Is(err, utils.ErrorRecordNotFound) {
			return nil, utils.NewValidationError("staff %d not found", input.StaffId)
		}
		return nil, err
	}
	assignment := &StaffAssignment{
		EventId:         eventId,
		StaffId:         staff.ID,
		BillingModality: utils.DereferencePtr(input.BillingModality, staff.BillingModality),
		BaseRate:        utils.DereferencePtr(input.BaseRate, staff.BaseRate),
		HoursWorked:     input.HoursWorked,
		OvertimeRate:    input.OvertimeRate,
		IsPaid:          utils.NewFalse(),
	}
	if assignment.OvertimeRate == nil {
		assignment.OvertimeRate = staff.OvertimeRate
	}
	if input.IsPaid != nil {
		assignment.IsPaid = input.IsPaid
	}
	if err := validatePayInputs(assignment.BillingModality, assignment.BaseRate, assignment.HoursWorked, assignment.OvertimeRate); err != nil {
		return nil, err
	}
	assignment.recomputeAmountOwed()
	return assignment, nil
}

func insertStaffAssignmentTx(tx *gorm.DB, assignment *StaffAssignment) error {
	if err := tx.Create(assignment).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return utils.NewConflictError("staff %d is already assigned to event %d", assignment.StaffId, assignment.EventId)
		}
		return utils.WrapRemote("create staff assignment", err)
	}
	return nil
}

func CreateStaffAssignment(ctx context.Context, eventId int, input *NewStaffAssignment) (result *StaffAssignment, err error) {
	ctx, span := startSpan(ctx, "CreateStaffAssignment", attribute.Int("event.id", eventId))
	defer func() { endSpan(span, err) }()

	err = config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := utils.FetchModelTx[Event](tx, eventId); err != nil {
			return err
		}
		assignment, err := input.toAssignment(tx, eventId)
		if err != nil {
			return err
		}
		if err := insertStaffAssignmentTx(tx, assignment); err != nil {
			return err
		}
		result = assignment
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagStaffAssignments)
	return result, nil
}

func UpdateStaffAssignment(ctx context.Context, id int, input *UpdateStaffAssignmentInput) (result *StaffAssignment, err error) {
	ctx, span := startSpan(ctx, "UpdateStaffAssignment", attribute.Int("staff_assignment.id", id))
	defer func() { endSpan(span, err) }()

	err = utils.WithEntityLock(ctx, "staff_assignment", id, func() error {
		return config.GetDB().WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			assignment, err := utils.FetchModelTx[StaffAssignment](tx, id)
			if err != nil {
				return err
			}
			if input.BillingModality != nil {
				assignment.BillingModality = *input.BillingModality
			}
			if input.BaseRate != nil {
				assignment.BaseRate = *input.BaseRate
			}
			if input.HoursWorked != nil {
				assignment.HoursWorked = input.HoursWorked
			}
			if input.OvertimeRate != nil {
				assignment.OvertimeRate = input.OvertimeRate
			}
			if input.IsPaid != nil {
				assignment.IsPaid = input.IsPaid
			}
			if err := validatePayInputs(assignment.BillingModality, assignment.BaseRate, assignment.HoursWorked, assignment.OvertimeRate); err != nil {
				return err
			}
			assignment.recomputeAmountOwed()
			if err := tx.Model(&StaffAssignment{}).Where("id = ?", id).Updates(map[string]interface{}{
				"billing_modality": assignment.BillingModality,
				"base_rate":        assignment.BaseRate,
				"hours_worked":     assignment.HoursWorked,
				"overtime_rate":    assignment.OvertimeRate,
				"amount_owed":      assignment.AmountOwed,
				"is_paid":          assignment.IsPaid,
			}).Error; err != nil {
				return utils.WrapRemote("update staff assignment", err)
			}
			result = assignment
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	utils.InvalidateCacheTags(ctx, utils.CacheTagStaffAssignments)
	return result, nil
}

func ListStaffAssignments(ctx context.Context, eventId int) ([]*StaffAssignment, error) {
	return utils.CacheList(ctx, utils.CacheTagStaffAssignments, fmt.Sprintf("event:%d", eventId), func() ([]*StaffAssignment, error) {
		var results []*StaffAssignment
		if err := config.GetDB().WithContext(ctx).Where("event_id = ?", eventId).Order("id").Find(&results).Error; err != nil {
			return nil, utils.WrapRemote("list staff assignments", err)
		}
		return results, nil
	})
}

// GetEventStaffCost sums amountOwed over the event's assignments.
func GetEventStaffCost(ctx context.Context, eventId int) (*EventStaffCost, error) {
	assignments, err := ListStaffAssignments(ctx, eventId)
	if err != nil {
		return nil, err
	}
	cost := &EventStaffCost{EventId: eventId, TotalOwed: decimal.Zero, TotalPaid: decimal.Zero}
	for _, a := range assignments {
		cost.Assignments++
		cost.TotalOwed = cost.TotalOwed.Add(a.AmountOwed)
		if utils.DereferencePtr(a.IsPaid, false) {
			cost.TotalPaid = cost.TotalPaid.Add(a.AmountOwed)
		}
	}
	return cost, nil
}
