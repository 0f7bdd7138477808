// Package client 路线图服务的HTTP API客户端
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/LENAX/roadmap-engine/pkg/api/dto"
	"github.com/LENAX/roadmap-engine/pkg/core/events"
	"github.com/LENAX/roadmap-engine/pkg/core/roadmap"
	"github.com/LENAX/roadmap-engine/pkg/storage"
	"github.com/gorilla/websocket"
)

// ErrRejected 服务端校验未通过
var ErrRejected = errors.New("路线图校验未通过")

// ErrNotFound 服务端返回404
var ErrNotFound = errors.New("路线图不存在")

// RejectedError 携带服务端返回的校验报告
type RejectedError struct {
	Report *roadmap.Report
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %d 个问题", ErrRejected.Error(), len(e.Report.Issues))
}

func (e *RejectedError) Unwrap() error { return ErrRejected }

// Client HTTP API客户端
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New 创建客户端
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Health 健康检查
func (c *Client) Health(ctx context.Context) (*dto.HealthResponse, error) {
	var resp dto.APIResponse[dto.HealthResponse]
	if err := c.do(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Validate 只校验不保存
func (c *Client) Validate(ctx context.Context, r *roadmap.Roadmap) (*roadmap.Report, error) {
	var resp dto.APIResponse[*roadmap.Report]
	if err := c.do(ctx, http.MethodPost, "/api/v1/roadmaps/validate", r, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Submit 校验并保存路线图，校验失败时返回*RejectedError
func (c *Client) Submit(ctx context.Context, r *roadmap.Roadmap) (*dto.SubmitResponse, error) {
	return c.submit(ctx, "/api/v1/roadmaps", r)
}

// SubmitGenerated 提交生成器输出
func (c *Client) SubmitGenerated(ctx context.Context, content, projectTitle string) (*dto.SubmitResponse, error) {
	return c.submit(ctx, "/api/v1/roadmaps/generated", dto.GeneratedRoadmapRequest{
		Content:      content,
		ProjectTitle: projectTitle,
	})
}

func (c *Client) submit(ctx context.Context, path string, body interface{}) (*dto.SubmitResponse, error) {
	var resp dto.APIResponse[json.RawMessage]
	err := c.do(ctx, http.MethodPost, path, body, &resp)
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusUnprocessableEntity {
		var report roadmap.Report
		if jsonErr := json.Unmarshal(resp.Data, &report); jsonErr != nil {
			return nil, fmt.Errorf("解析校验报告失败: %w", jsonErr)
		}
		return nil, &RejectedError{Report: &report}
	}
	if err != nil {
		return nil, err
	}

	var result dto.SubmitResponse
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}
	return &result, nil
}

// List 分页列出路线图摘要
func (c *Client) List(ctx context.Context, limit, offset int) (*dto.ListResponse[*storage.RoadmapSummary], error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		params.Set("offset", strconv.Itoa(offset))
	}
	path := "/api/v1/roadmaps"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var resp dto.APIResponse[dto.ListResponse[*storage.RoadmapSummary]]
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Get 获取路线图详情
func (c *Client) Get(ctx context.Context, id string) (*roadmap.Roadmap, error) {
	var resp dto.APIResponse[*roadmap.Roadmap]
	if err := c.do(ctx, http.MethodGet, "/api/v1/roadmaps/"+url.PathEscape(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Delete 删除路线图
func (c *Client) Delete(ctx context.Context, id string) error {
	var resp dto.APIResponse[any]
	return c.do(ctx, http.MethodDelete, "/api/v1/roadmaps/"+url.PathEscape(id), nil, &resp)
}

// Order 获取阶段分层拓扑顺序
func (c *Client) Order(ctx context.Context, id string) (*dto.OrderResponse, error) {
	var resp dto.APIResponse[dto.OrderResponse]
	if err := c.do(ctx, http.MethodGet, "/api/v1/roadmaps/"+url.PathEscape(id)+"/order", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Graph 获取阶段依赖图
func (c *Client) Graph(ctx context.Context, id string) (*dto.GraphResponse, error) {
	var resp dto.APIResponse[dto.GraphResponse]
	if err := c.do(ctx, http.MethodGet, "/api/v1/roadmaps/"+url.PathEscape(id)+"/graph", nil, &resp); err != nil {
		return nil, err
	}
	return &resp.Data, nil
}

// Validation 重新校验已存储的路线图
func (c *Client) Validation(ctx context.Context, id string) (*roadmap.Report, error) {
	var resp dto.APIResponse[*roadmap.Report]
	if err := c.do(ctx, http.MethodGet, "/api/v1/roadmaps/"+url.PathEscape(id)+"/validation", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// Export 下载CSV写入w，返回服务端建议的文件名
func (c *Client) Export(ctx context.Context, id string, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/roadmaps/"+url.PathEscape(id)+"/export", nil)
	if err != nil {
		return "", fmt.Errorf("创建请求失败: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiResp dto.APIResponse[any]
		return "", c.parseResponse(resp, &apiResp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("读取CSV失败: %w", err)
	}
	return fileNameFromDisposition(resp.Header.Get("Content-Disposition")), nil
}

// Events 订阅事件流，ctx取消或连接断开时关闭返回的通道
func (c *Client) Events(ctx context.Context, types ...events.EventType) (<-chan *events.Event, error) {
	wsURL, err := url.Parse(c.baseURL + "/api/v1/events")
	if err != nil {
		return nil, fmt.Errorf("解析服务器地址失败: %w", err)
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	if len(types) > 0 {
		names := make([]string, 0, len(types))
		for _, t := range types {
			names = append(names, string(t))
		}
		wsURL.RawQuery = url.Values{"types": {strings.Join(names, ",")}}.Encode()
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("连接事件流失败: %w", err)
	}

	out := make(chan *events.Event)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		for {
			var event events.Event
			if err := conn.ReadJSON(&event); err != nil {
				return
			}
			select {
			case out <- &event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// StatusError 非2xx响应
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求体失败: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	return c.parseResponse(resp, result)
}

// parseResponse 解析统一响应结构，非2xx时返回*StatusError，result仍会被填充
func (c *Client) parseResponse(resp *http.Response, result interface{}) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应体失败: %w", err)
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("解析响应失败: %w, body: %s", err, string(body))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(body, &envelope)
		return &StatusError{StatusCode: resp.StatusCode, Message: envelope.Message}
	}
	return nil
}

func fileNameFromDisposition(header string) string {
	const key = "filename="
	idx := strings.Index(header, key)
	if idx < 0 {
		return ""
	}
	return strings.Trim(header[idx+len(key):], `"`)
}
