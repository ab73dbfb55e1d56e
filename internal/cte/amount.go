package cte

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// amountPrefix is the leading numeric part of a value. Trailing text is
// ignored, so "12.5 kg" reads as 12.5.
var amountPrefix = regexp.MustCompile(`^[+-]?(?:\d+(?:\.\d+)?|\.\d+)(?:[eE]([+-]?\d+))?`)

const (
	// maxAmountExponent bounds scientific notation. Decimals are exact, so a
	// huge exponent would expand into a number with that many digits.
	maxAmountExponent = 18

	// maxAmountLength bounds the numeric prefix itself.
	maxAmountLength = 40
)

// ParseAmount reads a monetary or percentage value as written in a CT-e
// ("1234.56"). A comma decimal separator is accepted when no dot is present.
// Anything unparseable or out of range is zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	m := amountPrefix.FindStringSubmatch(s)
	if m == nil || len(m[0]) > maxAmountLength {
		return decimal.Zero
	}
	if m[1] != "" {
		exp, err := strconv.Atoi(m[1])
		if err != nil || exp > maxAmountExponent || exp < -maxAmountExponent {
			return decimal.Zero
		}
	}
	d, err := decimal.NewFromString(m[0])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatAmount renders d with exactly two decimals and a comma separator,
// the way values are shown in Brazilian reports ("1234,56").
func FormatAmount(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}
