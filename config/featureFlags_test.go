package config_test

import (
	"testing"

	"github.com/jpgomezm1/selecta-eventos-manager-sub001/config"
	"github.com/shopspring/decimal"
)

func TestGetRounderDefaults(t *testing.T) {
	t.Setenv("ROUND_QUANTITY_PLACES", "")
	t.Setenv("ROUND_MONEY_PLACES", "")
	t.Setenv("ROUNDING_MODE", "")

	r := config.GetRounder()
	if r.QuantityPlaces != 2 || r.MoneyPlaces != 0 || r.Mode != config.RoundingModeHalfUp {
		t.Fatalf("unexpected defaults %+v", r)
	}

	t.Setenv("ROUNDING_MODE", "sideways")
	if got := config.GetRounder().Mode; got != config.RoundingModeHalfUp {
		t.Fatalf("unknown mode should fall back to half_up, got %s", got)
	}
}

func TestRounder(t *testing.T) {
	tests := []struct {
		mode     config.RoundingMode
		quantity string
		money    string
		wantQty  string
		wantAmt  string
	}{
		{config.RoundingModeHalfUp, "3.335", "2500.5", "3.34", "2501"},
		{config.RoundingModeHalfEven, "3.345", "2500.5", "3.34", "2500"},
		{config.RoundingModeDown, "3.339", "2500.9", "3.33", "2500"},
		{config.RoundingModeNone, "3.339", "2500.9", "3.339", "2500.9"},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			r := config.Rounder{QuantityPlaces: 2, MoneyPlaces: 0, Mode: tt.mode}
			if got := r.Quantity(decimal.RequireFromString(tt.quantity)); !got.Equal(decimal.RequireFromString(tt.wantQty)) {
				t.Fatalf("quantity: got %s want %s", got, tt.wantQty)
			}
			if got := r.Money(decimal.RequireFromString(tt.money)); !got.Equal(decimal.RequireFromString(tt.wantAmt)) {
				t.Fatalf("money: got %s want %s", got, tt.wantAmt)
			}
		})
	}
}

func TestRounderQuantityFits(t *testing.T) {
	tests := []struct {
		mode config.RoundingMode
		qty  string
		want bool
	}{
		{config.RoundingModeHalfUp, "1.5", true},
		{config.RoundingModeHalfUp, "1.50", true},
		{config.RoundingModeHalfUp, "1.500", true},
		{config.RoundingModeHalfUp, "1.005", false},
		{config.RoundingModeDown, "0.001", false},
		{config.RoundingModeNone, "1.005", true},
	}
	for _, tt := range tests {
		t.Run(string(tt.mode)+"/"+tt.qty, func(t *testing.T) {
			r := config.Rounder{QuantityPlaces: 2, MoneyPlaces: 0, Mode: tt.mode}
			if got := r.QuantityFits(decimal.RequireFromString(tt.qty)); got != tt.want {
				t.Fatalf("QuantityFits(%s): got %v want %v", tt.qty, got, tt.want)
			}
		})
	}
}
