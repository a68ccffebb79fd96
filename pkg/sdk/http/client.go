package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
)

type Client struct {
	client *resty.Client
}

type clientOptions struct {
	timeout    time.Duration
	retryCount int
	userAgent  string
}

// Option 客户端选项
type Option func(*clientOptions)

// WithTimeout 单次请求超时
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithRetryCount 传输层重试次数；写请求（下单）应设为 0，由调用方决定是否重试
func WithRetryCount(n int) Option {
	return func(o *clientOptions) { o.retryCount = n }
}

// WithUserAgent 覆盖默认 User-Agent
func WithUserAgent(ua string) Option {
	return func(o *clientOptions) { o.userAgent = ua }
}

func NewClient(host string, opts ...Option) *Client {
	o := clientOptions{timeout: 30 * time.Second, retryCount: 3, userAgent: "copybot/1.0"}
	for _, opt := range opts {
		opt(&o)
	}

	// resty 会自动从环境变量读取代理配置（HTTP_PROXY, HTTPS_PROXY）
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(host, "/")).
		SetTimeout(o.timeout).
		SetRetryCount(o.retryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(10 * time.Second).
		SetHeader("User-Agent", o.userAgent).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return resp.StatusCode() == http.StatusTooManyRequests || resp.StatusCode() >= 500
		}).
		SetRetryAfter(func(_ *resty.Client, resp *resty.Response) (time.Duration, error) {
			// 429 限流时优先使用 Retry-After
			if resp != nil && resp.StatusCode() == http.StatusTooManyRequests {
				if secs, err := strconv.Atoi(resp.Header().Get("Retry-After")); err == nil && secs > 0 {
					return time.Duration(secs) * time.Second, nil
				}
			}
			return 0, nil
		})

	return &Client{client: client}
}

// BaseURL 返回去掉末尾斜杠的主机地址
func (c *Client) BaseURL() string { return c.client.BaseURL }

type RequestOptions struct {
	Headers map[string]string
	Data    any
	Params  map[string]any
}

func (c *Client) newRequest(ctx context.Context) *resty.Request {
	r := c.client.R()
	if ctx != nil {
		r.SetContext(ctx)
	}
	r.SetHeader("Accept", "application/json")
	return r
}

// DoRequest 发送请求；out 非空时按 JSON 解码 2xx 响应
func (c *Client) DoRequest(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) (*resty.Response, error) {
	rc := c.newRequest(ctx)
	if opt != nil {
		for k, v := range opt.Headers {
			rc.SetHeader(k, v)
		}
		if opt.Params != nil {
			rc.SetQueryParamsFromValues(toValues(opt.Params))
		}
		if opt.Data != nil {
			rc.SetHeader("Content-Type", "application/json")
			rc.SetBody(opt.Data)
		}
	}
	if out != nil {
		rc.SetResult(out)
	}

	switch strings.ToUpper(method) {
	case http.MethodGet:
		return rc.Get(endpoint)
	case http.MethodPost:
		return rc.Post(endpoint)
	case http.MethodDelete:
		return rc.Delete(endpoint)
	case http.MethodPut:
		return rc.Put(endpoint)
	default:
		return nil, fmt.Errorf("unsupported method: %s", method)
	}
}

// Do 发送请求并把网络错误与非 2xx 响应统一转换为 error
func (c *Client) Do(ctx context.Context, method, endpoint string, opt *RequestOptions, out any) error {
	resp, err := c.DoRequest(ctx, method, endpoint, opt, out)
	return CheckResponse(resp, err)
}

func toValues(m map[string]any) map[string][]string {
	v := make(map[string][]string, len(m))
	for k, val := range m {
		switch t := val.(type) {
		case []string:
			v[k] = t
		default:
			v[k] = []string{fmt.Sprint(val)}
		}
	}
	return v
}

// StatusError 非 2xx 响应
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Body)
}

// Transient 限流或服务端错误，可以重试
func (e *StatusError) Transient() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CheckResponse 网络错误原样包装返回，非 2xx 返回 *StatusError（响应体尽量提取 error 字段）
func CheckResponse(resp *resty.Response, err error) error {
	if err != nil {
		return errors.Wrap(err, "http request")
	}
	if resp.IsSuccess() {
		return nil
	}
	body := string(resp.Body())
	var payload struct {
		Error    string `json:"error"`
		ErrorMsg string `json:"errorMsg"`
	}
	if json.Unmarshal(resp.Body(), &payload) == nil {
		if payload.Error != "" {
			body = payload.Error
		} else if payload.ErrorMsg != "" {
			body = payload.ErrorMsg
		}
	}
	return errors.WithStack(&StatusError{StatusCode: resp.StatusCode(), Body: body})
}

// IsTransient 网络层错误、429、5xx 视为可重试
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Transient()
	}
	return true
}
