package extract

import (
	"fmt"
	"math"
	"strconv"

	clierr "okx-dex-agent/internal/errors"
)

// ToSmallestUnit converts a decimal amount to the token's smallest unit,
// flooring the scaled value: floor(amount * 10^decimals).
func ToSmallestUnit(amount string, decimals int) (string, error) {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil || math.IsNaN(v) {
		return "", clierr.New(clierr.CodeValidation, fmt.Sprintf("Invalid amount value: %s", amount))
	}
	scaled := math.Floor(v * math.Pow(10, float64(decimals)))
	return strconv.FormatFloat(scaled, 'f', -1, 64), nil
}

// FormatUnits renders a smallest-unit amount as a display string with six
// decimal places.
func FormatUnits(raw string, decimals int) string {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		v = 0
	}
	return strconv.FormatFloat(v/math.Pow(10, float64(decimals)), 'f', 6, 64)
}

// ParseDecimal parses a token decimal-count string as reported by the
// aggregator.
func ParseDecimal(decimal string) (int, error) {
	d, err := strconv.Atoi(decimal)
	if err != nil {
		return 0, clierr.New(clierr.CodeService, "Invalid token decimal information")
	}
	return d, nil
}
