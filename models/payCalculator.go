package models

import "github.com/shopspring/decimal"

// overtime starts strictly after this many hours
var overtimeThresholdHours = decimal.NewFromInt(10)

// CalculatePay returns the amount owed for one event assignment.
// Missing optional inputs count as zero, and no rounding is applied.
func CalculatePay(modality BillingModality, baseRate decimal.Decimal, hoursWorked *decimal.Decimal, overtimeRate *decimal.Decimal) decimal.Decimal {
	switch modality {
	case BillingModalityPerHour:
		if hoursWorked == nil {
			return decimal.Zero
		}
		return baseRate.Mul(*hoursWorked)
	case BillingModalityFixedShift9h,
		BillingModalityFixedShift10h,
		BillingModalityNightShift,
		BillingModalityPerEvent:
		return baseRate
	case BillingModalityShiftUpTo10hThenOvertime:
		if hoursWorked == nil || hoursWorked.LessThanOrEqual(overtimeThresholdHours) {
			return baseRate
		}
		if overtimeRate == nil {
			return baseRate
		}
		extra := hoursWorked.Sub(overtimeThresholdHours)
		return baseRate.Add(extra.Mul(*overtimeRate))
	default:
		return decimal.Zero
	}
}
