package api

import (
	"context"
	"crypto/tls"
	stderrors "errors"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/qidianbox/aicreator-client/internal/config"
	"github.com/qidianbox/aicreator-client/internal/errors"
	"github.com/qidianbox/aicreator-client/internal/logger"
	"github.com/qidianbox/aicreator-client/internal/types"
	"github.com/qidianbox/aicreator-client/internal/utils"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenSource 提供当前访问令牌，由会话存储实现
type TokenSource interface {
	AccessToken() string
}

// Client AICreator 后端 REST 客户端
type Client struct {
	cfg    *config.Config
	http   *resty.Client
	tokens TokenSource
}

// NewClient 创建 REST 客户端
func NewClient(cfg *config.Config, tokens TokenSource) *Client {
	return &Client{
		cfg:    cfg,
		http:   newRestyClient(cfg),
		tokens: tokens,
	}
}

// newRestyClient 创建底层 resty 客户端
func newRestyClient(cfg *config.Config) *resty.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.HTTPClient.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.HTTPClient.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.HTTPClient.MaxConnsPerHost,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.API.TLSSkipVerify,
			MinVersion:         tls.VersionTLS12, // 强制使用TLS 1.2+
		},
	}

	client := resty.NewWithClient(&http.Client{
		Transport: transport,
		Timeout:   cfg.API.RequestTimeout,
	}).
		SetBaseURL(cfg.API.BaseURL).
		SetRetryCount(cfg.HTTPClient.RetryCount).
		SetRetryWaitTime(cfg.HTTPClient.RetryWaitTime).
		SetRetryMaxWaitTime(cfg.HTTPClient.RetryMaxWaitTime).
		SetHeaders(map[string]string{
			"Content-Type": "application/json",
			"User-Agent":   "AICreatorClient/1.0 (Go)",
		}).
		OnBeforeRequest(func(c *resty.Client, r *resty.Request) error {
			logger.Debug("发送后端请求",
				zap.String("method", r.Method),
				zap.String("url", r.URL),
				zap.String("authorization", utils.MaskToken(r.Header.Get("Authorization"))),
			)
			return nil
		})

	if cfg.HTTPClient.RetryCount > 0 {
		// 仅网络错误或5xx错误时重试
		client.AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})
	}

	return client
}

// call 发起一次请求并解析统一响应包装，code != 0 时映射为 AppError
func call[T any](ctx context.Context, c *Client, method, path string, body any, requiresAuth bool) (*T, error) {
	req := c.http.R().
		SetContext(ctx).
		SetHeader("X-Request-ID", uuid.New().String())

	if requiresAuth {
		if token := c.tokens.AccessToken(); token != "" {
			req.SetAuthToken(token)
		}
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return nil, classifyTransportError(err)
	}

	return decodeEnvelope[T](resp.Body())
}

// decodeEnvelope 解析 {code, message, data} 包装
func decodeEnvelope[T any](body []byte) (*T, error) {
	var envelope types.APIResponse[T]
	if err := sonic.Unmarshal(body, &envelope); err != nil {
		return nil, errors.NewParseError(err)
	}

	if !envelope.IsSuccess() {
		return nil, errors.FromBackend(envelope.Code, envelope.Message)
	}

	if envelope.Data == nil {
		// 空数据的成功响应（如登出、点赞）
		return new(T), nil
	}
	return envelope.Data, nil
}

// classifyTransportError 将传输层错误归类为网络错误码
func classifyTransportError(err error) *errors.AppError {
	if stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(err, context.Canceled) {
		return errors.NewTimeoutError(err)
	}

	var urlErr *url.Error
	if stderrors.As(err, &urlErr) && urlErr.Timeout() {
		return errors.NewTimeoutError(err)
	}

	var dnsErr *net.DNSError
	if stderrors.As(err, &dnsErr) || strings.Contains(err.Error(), "connection refused") {
		return errors.Wrap(errors.CodeNetworkNoConnection, "无法连接服务器", err)
	}

	return errors.NewNetworkError(err)
}
