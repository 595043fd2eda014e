package budget

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCurrency(t *testing.T) {
	cases := map[string]float64{
		"":                0,
		"abc":             0,
		"R$":              0,
		",":               0,
		"R$ 1.000,00":     1000,
		"R$ 1.234.567,89": 1234567.89,
		"12,5":            12.5,
		"1500":            1500,
		"-R$ 10,00":       10,
		"1,2,3":           1.2,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseCurrency(in), "input %q", in)
	}
}

func TestFormatCurrency(t *testing.T) {
	cases := map[string]string{
		"":            "R$ 0,00",
		"x":           "R$ 0,00",
		"5":           "R$ 0,05",
		"150":         "R$ 1,50",
		"100000":      "R$ 1.000,00",
		"R$ 1.234,56": "R$ 1.234,56",
		"000123":      "R$ 1,23",
		"12345678901": "R$ 123.456.789,01",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatCurrency(in), "input %q", in)
	}
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "R$ 3.000,00", FormatAmount(3000))
	assert.Equal(t, "R$ 0,10", FormatAmount(0.1))
	assert.Equal(t, "-R$ 2,50", FormatAmount(-2.5))
}

func TestCurrencyRoundTrip(t *testing.T) {
	for _, cents := range []int{0, 1, 9, 10, 99, 100, 101, 12345, 100000, 999999, 123456789, 9007199254} {
		formatted := FormatCurrency(strconv.Itoa(cents))
		assert.Equal(t, float64(cents)/100, ParseCurrency(formatted), "cents %d (%s)", cents, formatted)
	}
}

func TestSumMultiYear(t *testing.T) {
	assert.Equal(t, 1000.0, SumMultiYear("R$ 1.000,00", "", "", ""))
	assert.Equal(t, 0.0, SumMultiYear())
	a := SumMultiYear("R$ 0,10", "R$ 0,20", "R$ 0,30", "garbage")
	b := SumMultiYear("garbage", "R$ 0,30", "R$ 0,20", "R$ 0,10")
	assert.Equal(t, 0.6, a)
	assert.Equal(t, a, b)
}
