package dewatermark

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNoImageSource 擦除调用既未提供图片也未提供会话标识
var ErrNoImageSource = errors.New("either an image or a session id is required")

// APIError 统一的服务层 / 传输层错误。
// 服务端返回非 2xx 时携带远端状态码、状态文本和原始响应体；
// 网络层失败时 StatusCode 为 0，底层错误保存在 Err 中。
type APIError struct {
	// StatusCode HTTP 状态码，网络层失败时为 0
	StatusCode int
	// Status HTTP 状态行文本，例如 "429 Too Many Requests"
	Status string
	// Body 原始响应体
	Body string
	// Message 人类可读的错误信息，优先取服务端返回的 message 字段
	Message string
	// Err 底层传输错误
	Err error
}

// Error 实现 error 接口
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.StatusCode > 0 && msg != "":
		return fmt.Sprintf("dewatermark api error: status %s: %s", e.Status, msg)
	case e.StatusCode > 0:
		return fmt.Sprintf("dewatermark api error: status %s, body: %s", e.Status, e.Body)
	default:
		return fmt.Sprintf("dewatermark api error: %s", msg)
	}
}

// Unwrap 暴露底层传输错误，支持 errors.Is / errors.As 链式判断
func (e *APIError) Unwrap() error {
	return e.Err
}

// newStatusError 根据非 2xx 响应构造 APIError，
// 服务端错误体通常形如 {"message": "..."}，解析成功时取其中的 message
func newStatusError(statusCode int, status string, body []byte) *APIError {
	apiErr := &APIError{
		StatusCode: statusCode,
		Status:     status,
		Body:       string(body),
	}

	var remote struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &remote); err == nil && remote.Message != "" {
		apiErr.Message = remote.Message
	}

	return apiErr
}

// newTransportError 根据网络层失败构造 APIError
func newTransportError(err error) *APIError {
	return &APIError{
		Message: err.Error(),
		Err:     err,
	}
}
