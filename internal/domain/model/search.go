package model

// SearchState は検索画面のスナップショットです
// Productsはサーバーが付けた順位のまま並びます
type SearchState struct {
	Query      string
	PriceRange PriceRange
	Products   []Product
	Loading    bool
	Error      string
	HasMore    bool
	Page       int // 1始まり。追加読み込みのときだけ進む
}

// Clone は商品スライスを共有しないコピーを返します
func (s SearchState) Clone() SearchState {
	out := s
	if s.Products != nil {
		out.Products = append([]Product(nil), s.Products...)
	}
	return out
}

// LastProductID は最後に描画された商品のIDを返します。なければ""です
func (s SearchState) LastProductID() string {
	if len(s.Products) == 0 {
		return ""
	}
	return s.Products[len(s.Products)-1].ID
}

// SearchPage は検索エンジンから返った1ページです
// Receivedは捨てた不正な結果も含めてサーバーが送ってきた件数です
// 全件が不正なページでもページングを終わらせないために使います
type SearchPage struct {
	Products []Product
	Received int
}
