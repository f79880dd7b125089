package domain

import (
	"strings"
	"testing"
)

func TestExtractTaxFromGrossIsInclusiveExtraction(t *testing.T) {
	// 119.00 gross at 19% carries 19.00 tax; gross minus tax is the net 100.00.
	tax := ExtractTaxFromGross(11900, 0.19)
	if tax != 1900 {
		t.Fatalf("expected tax 1900, got %d", tax)
	}
	if net := 11900 - tax; net != 10000 {
		t.Fatalf("expected net 10000, got %d", net)
	}
}

func TestExtractTaxFromGrossNeverAddsOnTop(t *testing.T) {
	gross := int64(10000)
	tax := ExtractTaxFromGross(gross, 0.19)
	if naive := int64(1900); tax == naive {
		t.Fatalf("tax must be extracted from gross, not gross*rate (%d)", naive)
	}
	if tax != 1597 {
		t.Fatalf("expected 1597 (10000*0.19/1.19 rounded), got %d", tax)
	}
}

func TestExtractTaxFromGrossZeroAndNegativeRate(t *testing.T) {
	if tax := ExtractTaxFromGross(0, 0.19); tax != 0 {
		t.Fatalf("expected zero tax on zero gross, got %d", tax)
	}
	if tax := ExtractTaxFromGross(11900, 0); tax != 0 {
		t.Fatalf("expected zero tax at zero rate, got %d", tax)
	}
	if tax := ExtractTaxFromGross(11900, -0.19); tax != 0 {
		t.Fatalf("expected zero tax at negative rate, got %d", tax)
	}
}

func TestComputeShippingThresholdBoundary(t *testing.T) {
	cases := []struct {
		name     string
		subtotal int64
		want     int64
	}{
		{"equality is free", 5000, 0},
		{"above is free", 5001, 0},
		{"one cent below pays flat fee", 4999, 1500},
		{"empty cart pays flat fee", 0, 1500},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeShipping(tc.subtotal, 5000, 1500)
			if got != tc.want {
				t.Fatalf("ComputeShipping(%d) = %d, want %d", tc.subtotal, got, tc.want)
			}
		})
	}
}

func TestFormatMinorUnitsDoesNotFail(t *testing.T) {
	formatted := FormatMinorUnits(11900, "de-DE", "EUR")
	if !strings.Contains(formatted, "€") {
		t.Fatalf("expected euro symbol in %q", formatted)
	}

	if zero := FormatMinorUnits(0, "de-DE", "EUR"); zero == "" {
		t.Fatalf("expected non-empty output for zero amount")
	}

	negative := FormatMinorUnits(-500, "de-DE", "EUR")
	if !strings.Contains(negative, "-") {
		t.Fatalf("expected signed output for negative amount, got %q", negative)
	}
}

func TestFormatMinorUnitsFallsBack(t *testing.T) {
	if got := FormatMinorUnits(100, "not a locale", "???"); got == "" {
		t.Fatalf("expected fallback formatting, got empty string")
	}
}
