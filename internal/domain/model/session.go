package model

// Session はブラウザがローカルストレージに持っていた内容です
// UserIDがあることだけが認証済みの印で、自然に期限切れになる項目はありません
type Session struct {
	UserID     string `json:"user_id,omitempty"`
	StoreToken string `json:"store_token,omitempty"`
	StoreID    string `json:"store_id,omitempty"`
	UserUUID   string `json:"user_uuid,omitempty"`
}

// Authenticated は買い物客がログイン済みかを返します
func (s Session) Authenticated() bool {
	return s.UserID != ""
}

// Empty はどのキーも設定されていないかを返します
func (s Session) Empty() bool {
	return s == Session{}
}

// Credentials はログイン・登録フォームが送信する内容です
type Credentials struct {
	Name     string
	Email    string
	Password string
}
