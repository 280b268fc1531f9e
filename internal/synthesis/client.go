// Package synthesis はテキスト音声合成のワークフローを提供する。
// 合成自体は外部のHTTPエンドポイントが行い、本パッケージは入力の整形、
// 呼び出し、生成音声のブラウザごとの保持を担う。
package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"
)

const (
	defaultContentType = "audio/mpeg"
	maxAudioBytes      = 50 << 20
	maxErrorBodyBytes  = 1 << 10
)

// ErrAudioTooLarge は合成結果が上限サイズを超えた場合のエラー。
var ErrAudioTooLarge = errors.New("synthesized audio exceeds size limit")

// StatusError は合成エンドポイントが2xx以外を返した場合のエラー。
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("synthesis endpoint returned status %d: %s", e.StatusCode, e.Body)
}

// Audio は合成エンドポイントから受け取った音声データ。
type Audio struct {
	Data        []byte
	ContentType string
}

// Generator は音声合成を行う。
type Generator interface {
	Generate(ctx context.Context, text, model string) (*Audio, error)
}

// generateRequest は合成エンドポイントへのリクエストボディ。
type generateRequest struct {
	Text  string `json:"text"`
	Model string `json:"model"`
}

// ClientConfig はClientの設定。
type ClientConfig struct {
	Endpoint   string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client は合成エンドポイントのHTTPクライアント。
type Client struct {
	endpoint string
	client   *http.Client
}

// NewClient はClientを生成する。
func NewClient(config ClientConfig) *Client {
	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}
	return &Client{endpoint: config.Endpoint, client: client}
}

// Generate はテキストとモデルIDを送信し、生成された音声を返す。
// 2xx以外のレスポンスは*StatusErrorを返す。
func (c *Client) Generate(ctx context.Context, text, model string) (*Audio, error) {
	body, err := json.Marshal(generateRequest{Text: text, Model: model})
	if err != nil {
		return nil, fmt.Errorf("failed to encode synthesis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create synthesis request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read synthesis response: %w", err)
	}
	if len(data) > maxAudioBytes {
		return nil, ErrAudioTooLarge
	}

	return &Audio{Data: data, ContentType: audioContentType(resp.Header.Get("Content-Type"))}, nil
}

// audioContentType はレスポンスのContent-Typeを返す。
// 未指定・解析不能・汎用バイナリの場合はaudio/mpegとみなす。
func audioContentType(header string) string {
	if header == "" {
		return defaultContentType
	}
	mediaType, _, err := mime.ParseMediaType(header)
	if err != nil || mediaType == "application/octet-stream" {
		return defaultContentType
	}
	return mediaType
}

// compile-time interface check
var _ Generator = (*Client)(nil)
