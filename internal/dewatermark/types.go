package dewatermark

import "os"

// ImageInput 表示一次上传中的图片来源，是三种具体形式的封闭联合：
//   - PathRef:    本地文件路径，构建请求时按流式读取
//   - BinaryData: 原始二进制数据，直接写入请求体
//   - Base64Data: base64 编码的字符串，附加前先解码为二进制
type ImageInput interface {
	isImageInput()
}

// PathRef 本地文件路径形式的图片来源
type PathRef string

// BinaryData 原始二进制形式的图片来源
type BinaryData []byte

// Base64Data base64 字符串形式的图片来源
type Base64Data string

func (PathRef) isImageInput()    {}
func (BinaryData) isImageInput() {}
func (Base64Data) isImageInput() {}

// DetectImageInput 区分字符串形式的图片输入：
// 先检查该字符串是否为存在的文件路径，是则按路径处理，
// 否则一律视为 base64。该判定顺序是对外契约的一部分，调用方
// 依赖"不存在的路径即 base64"这一行为。空串返回 nil。
func DetectImageInput(s string) ImageInput {
	if s == "" {
		return nil
	}
	if _, err := os.Stat(s); err == nil {
		return PathRef(s)
	}
	return Base64Data(s)
}

// EraseRequest 擦除水印请求。
// Image 与 SessionID 至少提供其一：首次处理上传图片，
// 后续细化可改用上次返回的 SessionID，避免重复上传原图。
type EraseRequest struct {
	// Image 待处理的预览图
	Image ImageInput
	// SessionID 先前调用返回的会话标识；提供 Image 时不会附加到表单
	SessionID string
	// MaskBase base64 编码的基础蒙版，总是按 base64 处理，不会被当作路径
	MaskBase string
	// MaskBrush 手动笔刷蒙版的文件路径，总是按路径处理
	MaskBrush string
	// RemoveText 是否同时移除文字，nil 时默认为 true
	RemoveText *bool
}

// EraseResult 擦除水印结果，各图片字段均为服务端返回的 base64 文本。
// SessionID 是不透明句柄，客户端不检查其内容，只在后续调用中原样转发。
type EraseResult struct {
	SessionID     string `json:"sessionId"`
	ImageBase64   string `json:"imageBase64"`
	MaskBase      string `json:"maskBase"`
	WatermarkMask string `json:"watermarkMask"`
}

// SaveLargeImageRequest 高清出图请求。
// 所有字段均为可选；字段组合是否满足要求由服务端校验，
// 客户端不在本地强制。
type SaveLargeImageRequest struct {
	// OriginalImage 原始全分辨率图片
	OriginalImage ImageInput
	// PreviewImageToSave 待放大的预览图（base64）
	PreviewImageToSave string
	// PreviewMaskToSave 预览蒙版（base64）
	PreviewMaskToSave string
	// SessionID 先前擦除调用返回的会话标识
	SessionID string
	// RemoveText 是否同时移除文字，nil 时默认为 true
	RemoveText *bool
}

// SaveLargeImageResult 高清出图结果
type SaveLargeImageResult struct {
	LargeImageToSave string `json:"largeImageToSave"`
}
