package model

// ChatTurn はチャットサービスが返信ごとに返す会話履歴の1件です
type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatMessage は送信するチャットメッセージです
type ChatMessage struct {
	UserID   string
	Text     string
	History  []ChatTurn
	Image    []byte // 任意
	Filename string
}

// ChatReply はアシスタントの回答とサーバー側の会話履歴です
type ChatReply struct {
	Response string
	History  []ChatTurn
}

// ProductQuestion は1つの商品についてアシスタントに質問します
type ProductQuestion struct {
	Prompt      string
	Name        string
	Description string
}
