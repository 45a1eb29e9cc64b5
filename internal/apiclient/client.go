// Package apiclient はストアフロントAPI（認証・カタログ）を呼び出すJSON HTTPクライアントの共通部分を提供する。
// タイムアウト、レート制限、エラー分類、メトリクス記録をここで一元的に扱う。
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/storefront/internal/model"
)

const (
	// DefaultTimeout はリクエストタイムアウトの既定値。
	DefaultTimeout = 10 * time.Second
	// maxResponseSize はレスポンスボディの最大読み取りサイズ。
	maxResponseSize = 1 << 20
	userAgent       = "Storefront/1.0"
)

// リクエスト結果のメトリクスラベル
const (
	ResultOK          = "ok"
	ResultTimeout     = "timeout"
	ResultNetwork     = "network_error"
	ResultClientError = "client_error"
	ResultServerError = "server_error"
)

// Recorder は外部APIリクエストの結果を記録するインターフェース。
type Recorder interface {
	RecordCollaboratorRequest(collaborator, result string, duration time.Duration)
}

// StatusError はAPIが2xx以外のステータスを返したことを表す。
// 呼び出し側でステータスに応じたAPIErrorに変換する。
type StatusError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned status %d: %s", e.StatusCode, e.Message)
}

// Upstream はUPSTREAM_ERRORのAPIErrorに変換する。
func (e *StatusError) Upstream() *model.APIError {
	return model.NewUpstreamError(e.StatusCode, e.Message)
}

// Options はClientの生成オプション。
type Options struct {
	// Name はメトリクスとログに使う呼び出し先の名前（auth, catalog）。
	Name    string
	BaseURL string
	// HTTPClient が nil の場合はTimeoutを設定した新しいクライアントを使う。
	HTTPClient *http.Client
	Timeout    time.Duration
	// RatePerSecond は1秒あたりの最大リクエスト数。0以下の場合は制限しない。
	RatePerSecond float64
	Recorder      Recorder
	Logger        *slog.Logger
}

// Client はJSON APIクライアント。
type Client struct {
	name       string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	recorder   Recorder
	logger     *slog.Logger
}

// New はClientを生成する。BaseURLが空の場合はエラーを返す。
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, errors.New("api base url is empty")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "api"
	}

	var limiter *rate.Limiter
	if opts.RatePerSecond > 0 {
		burst := int(opts.RatePerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}

	return &Client{
		name:       opts.Name,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		recorder:   opts.Recorder,
		logger:     opts.Logger,
	}, nil
}

// DoJSON はJSONリクエストを送信し、2xxの場合はレスポンスをoutにデコードする。
// tokenが空でなければBearerトークンとして付与する。
// 通信失敗はNETWORK_ERROR、タイムアウトはTIMEOUTのAPIError、2xx以外は*StatusErrorを返す。
func (c *Client) DoJSON(ctx context.Context, method, path, token string, body, out any) error {
	start := time.Now()
	result, err := c.do(ctx, method, path, token, body, out)
	if c.recorder != nil {
		c.recorder.RecordCollaboratorRequest(c.name, result, time.Since(start))
	}
	return err
}

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) (string, error) {
	if c.limiter != nil {
		// 期限内に順番が回らない場合もタイムアウトとして扱う
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				return c.transportFailure(method, path, err)
			}
			return c.transportFailure(method, path, fmt.Errorf("%w: %v", context.DeadlineExceeded, err))
		}
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return ResultClientError, fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return ResultClientError, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.transportFailure(method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return c.transportFailure(method, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn("api returned error status",
			slog.String("collaborator", c.name),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		result := ResultClientError
		if resp.StatusCode >= 500 {
			result = ResultServerError
		}
		return result, &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return ResultServerError, model.NewUpstreamError(resp.StatusCode, "レスポンスの形式が不正です")
		}
	}
	return ResultOK, nil
}

func (c *Client) transportFailure(method, path string, err error) (string, error) {
	c.logger.Error("api request failed",
		slog.String("collaborator", c.name),
		slog.String("method", method),
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
	if isTimeout(err) {
		return ResultTimeout, model.NewTimeoutError()
	}
	return ResultNetwork, model.NewNetworkError(err.Error())
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// errorMessage はエラーレスポンスからmessageまたはerrorフィールドを取り出す。
func errorMessage(data []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
