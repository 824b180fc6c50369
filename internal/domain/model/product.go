package model

import (
	"github.com/shopspring/decimal"

	"kluret.com/storefront/internal/pkg/money"
)

// Product はリモート検索エンジンが順位付けした検索結果の1件です
// 生成元の検索レスポンスと同じ期間だけ有効です
type Product struct {
	ID                 string
	Name               string
	Price              string // サーバーが送ってきた表示用文字列（例: "₹1,299"）
	PageURL            string // 元のストアページ
	CoverImageURL      string
	DiscountPercentage *float64 // 割引がなければnil
	Color              string
	Size               string
}

// PriceValue は表示価格を数値にします。解析できなければゼロです
func (p Product) PriceValue() decimal.Decimal {
	v, err := money.Parse(p.Price)
	if err != nil {
		return decimal.Zero
	}
	return v
}

// DiscountedPrice は割引後の価格を返します。割引がなければ元の価格です
func (p Product) DiscountedPrice() decimal.Decimal {
	price := p.PriceValue()
	if p.DiscountPercentage == nil {
		return price
	}
	discounted, err := money.ApplyDiscount(price, decimal.NewFromFloat(*p.DiscountPercentage))
	if err != nil {
		return price
	}
	return discounted
}

// PriceRange は検索の価格帯です（両端を含む）
type PriceRange struct {
	Min int64
	Max int64
}

// DefaultPriceRange は価格帯を指定しないときに使います
var DefaultPriceRange = PriceRange{Min: 0, Max: 100000}

// Valid は価格帯が負でなく大小関係が正しいかを返します
func (r PriceRange) Valid() bool {
	return r.Min >= 0 && r.Max >= 0 && r.Min <= r.Max
}

// SearchParams は検索エンジンへの1ページ分のリクエストです
type SearchParams struct {
	Query      string
	Page       int // 1始まり
	PriceRange PriceRange
}
