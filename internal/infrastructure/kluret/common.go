// Package kluret はリモートのKluret HTTPサービスに対してリポジトリのインターフェースを実装します
// 腐敗防止層として、型の緩いJSONを受け取りドメインモデルを返します
package kluret

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/go-faster/errors"

	"kluret.com/storefront/internal/domain/model"
)

const userAgent = "kluret-storefront/1.0"

// maxErrorBody は失敗したレスポンスのうちエラーに残す最大バイト数です
const maxErrorBody = 4 << 10

// StatusError は2xx以外のレスポンスで返します
// 401はmodel.ErrUnauthorizedにマッチします
type StatusError struct {
	Code    int
	Message string // 本文の"message"フィールド（あれば）
}

func (e *StatusError) Is(target error) bool {
	return target == model.ErrUnauthorized && e.Code == http.StatusUnauthorized
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("status %d: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("status %d", e.Code)
}

// postJSON はinをJSONで送信し、レスポンスをoutにデコードします
// 本文が意味のない応答ならoutはnilでかまいません
func postJSON(ctx context.Context, client *http.Client, url string, header http.Header, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrap(err, "encode request")
	}
	return do(ctx, client, url, "application/json", bytes.NewReader(body), header, out)
}

// formField はmultipartの本文の1パートです
// Fileがnilでなければファイルのパートになります
type formField struct {
	Name     string
	Value    string
	File     []byte
	Filename string
}

// postForm はfieldsをmultipart/form-dataで送信します
func postForm(ctx context.Context, client *http.Client, url string, fields []formField, out any) error {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, f := range fields {
		if f.File != nil {
			fw, err := w.CreateFormFile(f.Name, f.Filename)
			if err != nil {
				return errors.Wrap(err, "create file part")
			}
			if _, err := fw.Write(f.File); err != nil {
				return errors.Wrap(err, "write file part")
			}
			continue
		}
		if err := w.WriteField(f.Name, f.Value); err != nil {
			return errors.Wrapf(err, "write field %s", f.Name)
		}
	}
	if err := w.Close(); err != nil {
		return errors.Wrap(err, "close multipart")
	}
	return do(ctx, client, url, w.FormDataContentType(), &buf, nil, out)
}

// do は共通ヘッダーを付けてリクエストを実行し、
// ステータスを確認してJSONをoutにデコードします
func do(ctx context.Context, client *http.Client, url, contentType string, body io.Reader, header http.Header, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to call remote")
	}
	defer func() {
		if closeErr := res.Body.Close(); closeErr != nil {
			slog.Warn("failed to close response body", "url", url, "error", closeErr)
		}
	}()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return statusError(res)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return errors.Wrapf(model.ErrSchema, "decode %s: %v", url, err)
	}
	return nil
}

func statusError(res *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
	se := &StatusError{Code: res.StatusCode}
	var msg struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if json.Unmarshal(raw, &msg) == nil {
		se.Message = strings.TrimSpace(msg.Message)
		if se.Message == "" {
			se.Message = strings.TrimSpace(msg.Detail)
		}
	}
	return se
}

// flexString はJSONの文字列と数値のどちらも受け付けます
// 検索エンジンはIDも価格も型が一定ではありません
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

func (f flexString) String() string {
	return strings.TrimSpace(string(f))
}

func joinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}
