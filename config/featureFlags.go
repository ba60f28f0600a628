package config

import (
	"os"
	"strings"

	"github.com/shopspring/decimal"
)

func boolFromEnv(key string) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return v == "1" || v == "true" || v == "yes" || v == "y"
}

// AuthRequired makes every /api route demand a valid Bearer token.
//
// Set via env:
// - AUTH_REQUIRED=true
func AuthRequired() bool {
	return boolFromEnv("AUTH_REQUIRED")
}

// SkipMigrations disables AutoMigrate at startup.
func SkipMigrations() bool {
	return boolFromEnv("SKIP_MIGRATIONS")
}

// PhoneRegion is the default region used when a phone number has no country prefix.
func PhoneRegion() string {
	return strings.ToUpper(getEnv("PHONE_REGION", "CO"))
}

type RoundingMode string

const (
	RoundingModeHalfUp   RoundingMode = "half_up"
	RoundingModeHalfEven RoundingMode = "half_even"
	RoundingModeDown     RoundingMode = "down"
	RoundingModeNone     RoundingMode = "none"
)

// Rounder applies the configured rounding to ingredient quantities and money amounts.
type Rounder struct {
	QuantityPlaces int32
	MoneyPlaces    int32
	Mode           RoundingMode
}

// GetRounder reads the rounding convention from env on every call.
//
// Set via env:
// - ROUND_QUANTITY_PLACES (default 2)
// - ROUND_MONEY_PLACES (default 0)
// - ROUNDING_MODE=half_up|half_even|down|none (default half_up)
func GetRounder() Rounder {
	mode := RoundingMode(strings.ToLower(getEnv("ROUNDING_MODE", string(RoundingModeHalfUp))))
	switch mode {
	case RoundingModeHalfUp, RoundingModeHalfEven, RoundingModeDown, RoundingModeNone:
	default:
		mode = RoundingModeHalfUp
	}
	return Rounder{
		QuantityPlaces: int32(intFromEnv("ROUND_QUANTITY_PLACES", 2)),
		MoneyPlaces:    int32(intFromEnv("ROUND_MONEY_PLACES", 0)),
		Mode:           mode,
	}
}

func (r Rounder) round(d decimal.Decimal, places int32) decimal.Decimal {
	switch r.Mode {
	case RoundingModeNone:
		return d
	case RoundingModeHalfEven:
		return d.RoundBank(places)
	case RoundingModeDown:
		return d.Truncate(places)
	default:
		return d.Round(places)
	}
}

func (r Rounder) Quantity(d decimal.Decimal) decimal.Decimal {
	return r.round(d, r.QuantityPlaces)
}

func (r Rounder) Money(d decimal.Decimal) decimal.Decimal {
	return r.round(d, r.MoneyPlaces)
}

// QuantityFits reports whether d already has no more decimal places than quantities keep.
// Every quantity fits when rounding is off.
func (r Rounder) QuantityFits(d decimal.Decimal) bool {
	if r.Mode == RoundingModeNone {
		return true
	}
	return d.Equal(d.Truncate(r.QuantityPlaces))
}
