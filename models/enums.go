package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// closed string enums: unknown values are rejected on JSON decode and on DB scan

func unmarshalEnum[T ~string](data []byte, valid map[T]bool, name string) (T, error) {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return "", fmt.Errorf("%s must be string", name)
	}
	v := T(str)
	if !valid[v] {
		return "", fmt.Errorf("invalid %s %q", name, str)
	}
	return v, nil
}

func scanEnum[T ~string](value interface{}, valid map[T]bool, name string) (T, error) {
	var str string
	switch v := value.(type) {
	case string:
		str = v
	case []byte:
		str = string(v)
	default:
		return "", fmt.Errorf("cannot scan %T into %s", value, name)
	}
	e := T(str)
	if !valid[e] {
		return "", fmt.Errorf("invalid %s %q in database", name, str)
	}
	return e, nil
}

type BillingModality string

const (
	BillingModalityPerHour                  BillingModality = "PerHour"
	BillingModalityFixedShift9h             BillingModality = "FixedShift9h"
	BillingModalityFixedShift10h            BillingModality = "FixedShift10h"
	BillingModalityShiftUpTo10hThenOvertime BillingModality = "ShiftUpTo10hThenOvertime"
	BillingModalityNightShift               BillingModality = "NightShift"
	BillingModalityPerEvent                 BillingModality = "PerEvent"
)

var billingModalities = map[BillingModality]bool{
	BillingModalityPerHour:                  true,
	BillingModalityFixedShift9h:             true,
	BillingModalityFixedShift10h:            true,
	BillingModalityShiftUpTo10hThenOvertime: true,
	BillingModalityNightShift:               true,
	BillingModalityPerEvent:                 true,
}

func (m BillingModality) IsValid() bool { return billingModalities[m] }

func (m *BillingModality) UnmarshalJSON(data []byte) (err error) {
	*m, err = unmarshalEnum(data, billingModalities, "billing modality")
	return err
}

func (m *BillingModality) Scan(value interface{}) (err error) {
	*m, err = scanEnum(value, billingModalities, "billing modality")
	return err
}

func (m BillingModality) Value() (driver.Value, error) { return string(m), nil }

type BaseUnit string

const (
	BaseUnitGram       BaseUnit = "gr"
	BaseUnitMilliliter BaseUnit = "ml"
	BaseUnitUnit       BaseUnit = "und"
)

var baseUnits = map[BaseUnit]bool{
	BaseUnitGram:       true,
	BaseUnitMilliliter: true,
	BaseUnitUnit:       true,
}

func (u BaseUnit) IsValid() bool { return baseUnits[u] }

func (u *BaseUnit) UnmarshalJSON(data []byte) (err error) {
	*u, err = unmarshalEnum(data, baseUnits, "base unit")
	return err
}

func (u *BaseUnit) Scan(value interface{}) (err error) {
	*u, err = scanEnum(value, baseUnits, "base unit")
	return err
}

func (u BaseUnit) Value() (driver.Value, error) { return string(u), nil }

type PackageUnit string

const (
	PackageUnitMilligram  PackageUnit = "mg"
	PackageUnitGram       PackageUnit = "gr"
	PackageUnitKilogram   PackageUnit = "kg"
	PackageUnitPound      PackageUnit = "lb"
	PackageUnitMilliliter PackageUnit = "ml"
	PackageUnitLiter      PackageUnit = "l"
	PackageUnitUnit       PackageUnit = "und"
	PackageUnitDozen      PackageUnit = "docena"
)

var packageUnits = map[PackageUnit]bool{
	PackageUnitMilligram:  true,
	PackageUnitGram:       true,
	PackageUnitKilogram:   true,
	PackageUnitPound:      true,
	PackageUnitMilliliter: true,
	PackageUnitLiter:      true,
	PackageUnitUnit:       true,
	PackageUnitDozen:      true,
}

func (u PackageUnit) IsValid() bool { return packageUnits[u] }

func (u *PackageUnit) UnmarshalJSON(data []byte) (err error) {
	*u, err = unmarshalEnum(data, packageUnits, "package unit")
	return err
}

func (u *PackageUnit) Scan(value interface{}) (err error) {
	*u, err = scanEnum(value, packageUnits, "package unit")
	return err
}

func (u PackageUnit) Value() (driver.Value, error) { return string(u), nil }

type MovementType string

const (
	MovementTypePurchase   MovementType = "Purchase"
	MovementTypeUse        MovementType = "Use"
	MovementTypeAdjustment MovementType = "Adjustment"
	MovementTypeReturn     MovementType = "Return"
)

var movementTypes = map[MovementType]bool{
	MovementTypePurchase:   true,
	MovementTypeUse:        true,
	MovementTypeAdjustment: true,
	MovementTypeReturn:     true,
}

func (t MovementType) IsValid() bool { return movementTypes[t] }

func (t *MovementType) UnmarshalJSON(data []byte) (err error) {
	*t, err = unmarshalEnum(data, movementTypes, "movement type")
	return err
}

func (t *MovementType) Scan(value interface{}) (err error) {
	*t, err = scanEnum(value, movementTypes, "movement type")
	return err
}

func (t MovementType) Value() (driver.Value, error) { return string(t), nil }

type MovementState string

const (
	MovementStateDraft     MovementState = "Draft"
	MovementStateConfirmed MovementState = "Confirmed"
)

var movementStates = map[MovementState]bool{
	MovementStateDraft:     true,
	MovementStateConfirmed: true,
}

func (s MovementState) IsValid() bool { return movementStates[s] }

func (s *MovementState) UnmarshalJSON(data []byte) (err error) {
	*s, err = unmarshalEnum(data, movementStates, "movement state")
	return err
}

func (s *MovementState) Scan(value interface{}) (err error) {
	*s, err = scanEnum(value, movementStates, "movement state")
	return err
}

func (s MovementState) Value() (driver.Value, error) { return string(s), nil }

type PurchaseOrderStatus string

const (
	PurchaseOrderStatusDraft     PurchaseOrderStatus = "Draft"
	PurchaseOrderStatusApproved  PurchaseOrderStatus = "Approved"
	PurchaseOrderStatusPurchased PurchaseOrderStatus = "Purchased"
	PurchaseOrderStatusCancelled PurchaseOrderStatus = "Cancelled"
)

var purchaseOrderStatuses = map[PurchaseOrderStatus]bool{
	PurchaseOrderStatusDraft:     true,
	PurchaseOrderStatusApproved:  true,
	PurchaseOrderStatusPurchased: true,
	PurchaseOrderStatusCancelled: true,
}

func (s PurchaseOrderStatus) IsValid() bool { return purchaseOrderStatuses[s] }

func (s *PurchaseOrderStatus) UnmarshalJSON(data []byte) (err error) {
	*s, err = unmarshalEnum(data, purchaseOrderStatuses, "purchase order status")
	return err
}

func (s *PurchaseOrderStatus) Scan(value interface{}) (err error) {
	*s, err = scanEnum(value, purchaseOrderStatuses, "purchase order status")
	return err
}

func (s PurchaseOrderStatus) Value() (driver.Value, error) { return string(s), nil }

type UserRole string

const (
	UserRoleAdmin    UserRole = "Admin"
	UserRoleOperator UserRole = "Operator"
)

var userRoles = map[UserRole]bool{
	UserRoleAdmin:    true,
	UserRoleOperator: true,
}

func (r UserRole) IsValid() bool { return userRoles[r] }

func (r *UserRole) UnmarshalJSON(data []byte) (err error) {
	*r, err = unmarshalEnum(data, userRoles, "user role")
	return err
}

func (r *UserRole) Scan(value interface{}) (err error) {
	*r, err = scanEnum(value, userRoles, "user role")
	return err
}

func (r UserRole) Value() (driver.Value, error) { return string(r), nil }
