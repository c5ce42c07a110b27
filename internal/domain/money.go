package domain

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type Money struct {
	Amount   decimal.Decimal
	Currency currency.Unit
}

const maxFractionDigits = 3

var maxInt64 = decimal.NewFromInt(math.MaxInt64)

var symbols = map[string]string{
	"INR": "₹",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// String renders the amount the way the storefront shows prices: symbol, locale
// digit grouping and at most three fraction digits, e.g. ₹10,500.
func (m Money) String() string {
	return m.Format(language.English)
}

// Format renders the amount for the given locale. The whole part is formatted
// from its integer value, so amounts beyond float64 precision stay exact.
func (m Money) Format(tag language.Tag) string {
	p := message.NewPrinter(tag)

	amount := m.Amount.Round(maxFractionDigits)
	sign := ""
	if amount.IsNegative() {
		sign = "-"
		amount = amount.Abs()
	}

	whole := amount.Truncate(0)
	digits := whole.String()
	if whole.LessThanOrEqual(maxInt64) {
		digits = p.Sprintf("%v", number.Decimal(whole.IntPart()))
	}

	// the fraction is below one with at most three digits, exact as a float
	if frac := amount.Sub(whole); !frac.IsZero() {
		zero := p.Sprintf("%v", number.Decimal(0))
		formatted := p.Sprintf("%v", number.Decimal(frac.InexactFloat64(), number.MaxFractionDigits(maxFractionDigits)))
		digits += strings.TrimPrefix(formatted, zero)
	}

	return m.symbol() + sign + digits
}

func (m Money) symbol() string {
	code := m.Currency.String()
	if s, ok := symbols[code]; ok {
		return s
	}
	return code + " "
}
