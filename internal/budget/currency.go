// Package budget converts between Brazilian Real currency strings and numbers
// and sums the yearly budget fields of an action.
package budget

import (
	"math"
	"strconv"
	"strings"
)

// Symbol prefixes every formatted amount.
const Symbol = "R$"

// ParseCurrency reads a localized amount such as "R$ 1.234,56".
// Everything except digits and commas is dropped and the first comma becomes the
// decimal point. Input that still does not parse yields 0.
func ParseCurrency(text string) float64 {
	if text == "" {
		return 0
	}
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == ',' {
			b.WriteRune(r)
		}
	}
	s := strings.Replace(b.String(), ",", ".", 1)
	// a second comma group ends the number
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	if s == "" || s == "." {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// FormatCurrency is the input mask used while typing: every digit in text is
// kept and read as an integer number of cents.
func FormatCurrency(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return formatDigits(b.String(), false)
}

// FormatAmount renders v rounded to cents.
func FormatAmount(v float64) string {
	c := ToCents(v)
	neg := c < 0
	if neg {
		c = -c
	}
	return formatDigits(strconv.FormatInt(c, 10), neg)
}

// ToCents rounds v to the nearest integer number of cents.
func ToCents(v float64) int64 {
	return int64(math.Round(v * 100))
}

// FromCents is the inverse of ToCents.
func FromCents(c int64) float64 {
	return float64(c) / 100
}

// SumMultiYear adds the parsed value of every yearly field. Absent fields are
// passed as "" and count as zero. The sum is taken in cents so the result does
// not depend on field order.
func SumMultiYear(values ...string) float64 {
	var total int64
	for _, v := range values {
		total += ToCents(ParseCurrency(v))
	}
	return FromCents(total)
}

func formatDigits(digits string, negative bool) string {
	digits = strings.TrimLeft(digits, "0")
	for len(digits) < 3 {
		digits = "0" + digits
	}
	intPart := digits[:len(digits)-2]
	frac := digits[len(digits)-2:]
	var out strings.Builder
	if negative {
		out.WriteByte('-')
	}
	out.WriteString(Symbol)
	out.WriteByte(' ')
	out.WriteString(groupThousands(intPart))
	out.WriteByte(',')
	out.WriteString(frac)
	return out.String()
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
