package handler

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec はconnectのprotojsonコーデックを置き換え、普通の構造体をメッセージとして使えるようにします
type jsonCodec struct{}

var _ connect.Codec = jsonCodec{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// WithJSONCodec はサービスのクライアント側でも必要なオプションです
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
