package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a money string such as "1,250.00", "₦500" or "$ 12". Currency symbols,
// letters, separators and spaces are stripped; anything still unparseable is zero.
func ParseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}
	d, err := decimal.NewFromString(sanitizeAmount(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func sanitizeAmount(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.':
			sb.WriteRune(r)
		case r == '-' && sb.Len() == 0:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// FormatAmount rounds to two decimals and always keeps a fractional part, so 2500
// renders as "2500.0" and 12.345 as "12.35".
func FormatAmount(d decimal.Decimal) string {
	s := d.Round(2).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// ParseQuantity reads a line item quantity, defaulting to 1 when it is missing or garbage.
func ParseQuantity(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 1
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 1
	}
	return d.IntPart()
}
