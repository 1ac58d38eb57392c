package dewatermark

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"dewatermark-mcp/common"
)

// 默认请求超时时间（调用 Dewatermark 接口）
const defaultDewatermarkTimeout = 60 * time.Second

// Dewatermark 开放平台的默认接入点与操作路径
const (
	defaultBaseURL            = "https://platform.dewatermark.ai/api/object_removal/v1"
	defaultErasePath          = "/erase_watermark"
	defaultSaveLargeImagePath = "/save_large_image"
)

// apiKeyHeader 静态 API Key 的请求头名称。
// 凭证只通过请求头传递，绝不出现在表单字段或查询串中。
const apiKeyHeader = "x-api-key"

// Client Dewatermark 客户端实现，负责调用水印擦除相关的图片接口。
//
// 注意：
// - 具体的 API 路径、请求/响应结构请参照 Dewatermark 开放平台文档：
//   https://dewatermark.ai/api
// - 客户端除构造时注入的只读凭证与路径外不持有任何可变状态，
//   同一实例可以被多个 goroutine 并发使用。
type Client struct {
	httpClient *http.Client

	// 通用配置
	baseURL string
	apiKey  string

	// 两个操作各自的 API 路径
	erasePath          string
	saveLargeImagePath string

	timeout time.Duration
}

// Config Dewatermark 客户端配置。
type Config struct {
	BaseURL string
	APIKey  string

	// 可选：自定义两个操作的 HTTP 路径（相对 BaseURL）
	ErasePath          string
	SaveLargeImagePath string

	Timeout time.Duration
}

// NewDewatermarkClientFromConfig 从通用配置创建 Dewatermark 客户端。
func NewDewatermarkClientFromConfig(cfg *common.Config) (*Client, error) {
	return NewClient(Config{
		BaseURL: cfg.DewatermarkBaseURL,
		APIKey:  cfg.DewatermarkAPIKey,
		Timeout: time.Duration(cfg.DewatermarkTimeoutSeconds) * time.Second,
	})
}

// NewClient 创建 Dewatermark 客户端。
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("dewatermark API key is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDewatermarkTimeout
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:            cfg.BaseURL,
		apiKey:             cfg.APIKey,
		erasePath:          cfg.ErasePath,
		saveLargeImagePath: cfg.SaveLargeImagePath,
		timeout:            timeout,
	}

	// 设置默认接入点与路径
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.erasePath == "" {
		c.erasePath = defaultErasePath
	}
	if c.saveLargeImagePath == "" {
		c.saveLargeImagePath = defaultSaveLargeImagePath
	}

	return c, nil
}

// Close 预留关闭方法，当前未持有需要显式关闭的资源。
func (c *Client) Close() error {
	return nil
}

// EraseWatermark 检测并擦除图片中的水印。
// 响应到结果只做字段改名映射，base64 图片内容原样透传。
// 本地构建失败（含 ErrNoImageSource）原样上抛，不发起网络请求。
func (c *Client) EraseWatermark(ctx context.Context, req *EraseRequest) (*EraseResult, error) {
	if req == nil {
		req = &EraseRequest{}
	}

	common.WithFields(map[string]interface{}{
		"has_image":  req.Image != nil,
		"session_id": req.SessionID,
		"endpoint":   c.baseURL + c.erasePath,
	}).Info("Creating dewatermark erase-watermark request")

	form, err := buildEraseForm(req)
	if err != nil {
		common.WithError(err).Error("Failed to build erase-watermark payload")
		return nil, err
	}

	body, err := c.doRequest(ctx, c.erasePath, form)
	if err != nil {
		return nil, err
	}

	var resp eraseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		common.WithError(err).WithField("body", string(body)).Error("Failed to parse erase-watermark response")
		return nil, fmt.Errorf("failed to parse erase watermark response: %w", err)
	}

	return &EraseResult{
		SessionID:     resp.SessionID,
		ImageBase64:   resp.EditedImage.Image,
		MaskBase:      resp.EditedImage.Mask,
		WatermarkMask: resp.EditedImage.WatermarkMask,
	}, nil
}

// SaveLargeImage 基于先前会话请求渲染高分辨率大图。
// 字段组合是否满足要求由服务端校验，客户端不加本地前置条件。
func (c *Client) SaveLargeImage(ctx context.Context, req *SaveLargeImageRequest) (*SaveLargeImageResult, error) {
	if req == nil {
		req = &SaveLargeImageRequest{}
	}

	common.WithFields(map[string]interface{}{
		"has_original": req.OriginalImage != nil,
		"has_preview":  req.PreviewImageToSave != "",
		"session_id":   req.SessionID,
		"endpoint":     c.baseURL + c.saveLargeImagePath,
	}).Info("Creating dewatermark save-large-image request")

	form, err := buildSaveLargeImageForm(req)
	if err != nil {
		common.WithError(err).Error("Failed to build save-large-image payload")
		return nil, err
	}

	body, err := c.doRequest(ctx, c.saveLargeImagePath, form)
	if err != nil {
		return nil, err
	}

	var resp saveLargeImageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		common.WithError(err).WithField("body", string(body)).Error("Failed to parse save-large-image response")
		return nil, fmt.Errorf("failed to parse save large image response: %w", err)
	}

	return &SaveLargeImageResult{
		LargeImageToSave: resp.LargeImageToSave,
	}, nil
}

// doRequest 统一封装 multipart POST 请求逻辑。
// 非 2xx 响应与网络层失败先记录诊断日志，再统一以 *APIError 返回；
// 日志只是副作用，原始错误信息不会被吞掉。
func (c *Client) doRequest(ctx context.Context, path string, form *formPayload) ([]byte, error) {
	url := c.baseURL + path

	// 为单次请求设置超时
	var cancel context.CancelFunc
	if _, ok := ctx.Deadline(); !ok && c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, form.body)
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", form.contentType)
	req.Header.Set(apiKeyHeader, c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		common.WithError(err).WithField("url", url).Error("Dewatermark request failed at transport layer")
		return nil, newTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		common.WithError(err).WithField("url", url).Error("Failed to read dewatermark response body")
		return nil, newTransportError(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		common.WithFields(map[string]interface{}{
			"status_code": resp.StatusCode,
			"url":         url,
			"body":        string(respBody),
		}).Error("Dewatermark API returned non-success status")
		return nil, newStatusError(resp.StatusCode, resp.Status, respBody)
	}

	return respBody, nil
}

// eraseResponse 用于解析擦除接口的返回结构。
//
// 服务端返回示例：
//
//	{
//	  "session_id": "F1D7AE76-62B7-4E65-B1C7-633312ECD82C",
//	  "edited_image": {
//	    "image": "<base64>",
//	    "mask": "<base64>",
//	    "watermark_mask": "<base64>"
//	  }
//	}
type eraseResponse struct {
	SessionID   string `json:"session_id"`
	EditedImage struct {
		Image         string `json:"image"`
		Mask          string `json:"mask"`
		WatermarkMask string `json:"watermark_mask"`
	} `json:"edited_image"`
}

// saveLargeImageResponse 用于解析高清出图接口的返回结构。
//
// 服务端返回示例：
//
//	{
//	  "large_image_to_save": "<base64>"
//	}
type saveLargeImageResponse struct {
	LargeImageToSave string `json:"large_image_to_save"`
}
