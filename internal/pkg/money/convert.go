package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Converter は固定のレート表で金額を換算します
// 各レートはその通貨1単位が基準通貨でいくらかを表します
type Converter struct {
	base  Currency
	rates map[Currency]decimal.Decimal
}

// NewConverter は換算器を作ります。基準通貨のレートは常に1です
func NewConverter(base Currency, rates map[Currency]decimal.Decimal) *Converter {
	r := make(map[Currency]decimal.Decimal, len(rates)+1)
	for c, v := range rates {
		r[c] = v
	}
	r[base] = decimal.NewFromInt(1)
	return &Converter{base: base, rates: r}
}

// DefaultConverter はストアの価格に合わせてINRを基準にします
func DefaultConverter() *Converter {
	return NewConverter(INR, map[Currency]decimal.Decimal{
		USD: decimal.NewFromInt(83),
		EUR: decimal.NewFromInt(90),
		GBP: decimal.NewFromInt(105),
	})
}

// Convert は金額をある通貨から別の通貨へ換算し、小数点以下2桁に丸めます
func (c *Converter) Convert(amount decimal.Decimal, from, to Currency) (decimal.Decimal, error) {
	fr, ok := c.rates[from]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnknownCurrency, "from %s", from)
	}
	tr, ok := c.rates[to]
	if !ok {
		return decimal.Zero, errors.Wrapf(ErrUnknownCurrency, "to %s", to)
	}
	if from == to {
		return amount, nil
	}
	return amount.Mul(fr).Div(tr).Round(2), nil
}
