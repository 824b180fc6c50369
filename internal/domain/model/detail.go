package model

// ProductDetail は3つの独立した取得で埋まっていく商品詳細です
// 途中の状態もすべてそのまま描画できます
type ProductDetail struct {
	ProductID   string
	Name        string
	Price       string
	PageURL     string
	Images      []string // 重複なし。読み込み開始後は空にならない
	Description string
	Specs       []SpecRow // 説明文の表から抜き出した行
	Sizes       []string

	ImagesLoaded      bool
	DescriptionLoaded bool
	SizesLoaded       bool
}

// Description は商品説明と、その中にある仕様表です
type Description struct {
	HTML  string
	Specs []SpecRow
}

// SpecRow は仕様表のラベルと値の1行です
type SpecRow struct {
	Label string
	Value string
}

// Complete は3つの取得がすべて終わったかを返します
func (d ProductDetail) Complete() bool {
	return d.ImagesLoaded && d.DescriptionLoaded && d.SizesLoaded
}

// Clone はディープコピーを返します
// 空でもnilでないスライスはnilにせず、JSONでnullではなく[]になるようにします
func (d ProductDetail) Clone() ProductDetail {
	out := d
	out.Images = cloneStrings(d.Images)
	out.Sizes = cloneStrings(d.Sizes)
	if d.Specs != nil {
		out.Specs = append(make([]SpecRow, 0, len(d.Specs)), d.Specs...)
	}
	return out
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append(make([]string, 0, len(s)), s...)
}
