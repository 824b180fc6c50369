// Package money は検索エンジンが返す価格文字列の解析・整形・換算を行います
package money

import (
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrNoAmount        = errors.New("money: no amount in string")
	ErrInvalidDiscount = errors.New("money: discount must be between 0 and 100")
	ErrUnknownCurrency = errors.New("money: unknown currency")
)

// Currency はISO 4217の通貨コードです
type Currency string

const (
	INR Currency = "INR"
	USD Currency = "USD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
)

var symbols = map[Currency]string{
	INR: "₹",
	USD: "$",
	EUR: "€",
	GBP: "£",
}

var amountRe = regexp.MustCompile(`[0-9][0-9,]*(?:\.[0-9]+)?`)

var hundred = decimal.NewFromInt(100)

// Parse は"₹1,299.00"、"Rs. 500"、"$19.99"のような文字列から最初の金額を取り出します
// 桁区切りは取り除きます
func Parse(s string) (decimal.Decimal, error) {
	m := amountRe.FindString(s)
	if m == "" {
		return decimal.Zero, errors.Wrapf(ErrNoAmount, "%q", s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(m, ",", ""))
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse %q", s)
	}
	return d, nil
}

// Format は通貨記号・桁区切り・小数点以下2桁でdを整形します（例: "₹1,299.00"）
// 未知の通貨はコードを先頭に付けます
func Format(d decimal.Decimal, c Currency) string {
	sym, ok := symbols[c]
	if !ok {
		sym = string(c) + " "
	}

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	fixed := d.StringFixed(2)
	intPart, frac, _ := strings.Cut(fixed, ".")
	return sign + sym + group(intPart) + "." + frac
}

func group(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ApplyDiscount はpercentだけ値引きした価格を小数点以下2桁に丸めて返します
func ApplyDiscount(price, percent decimal.Decimal) (decimal.Decimal, error) {
	if percent.IsNegative() || percent.GreaterThan(hundred) {
		return decimal.Zero, errors.Wrapf(ErrInvalidDiscount, "got %s", percent)
	}
	keep := hundred.Sub(percent)
	return price.Mul(keep).Div(hundred).Round(2), nil
}
