package dewatermark

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strconv"
)

// 远端 multipart 表单的固定字段名
const (
	fieldOriginalPreviewImage = "original_preview_image"
	fieldOriginalLargeImage   = "original_large_image"
	fieldPreviewImageToSave   = "preview_image_to_save"
	fieldPreviewMaskToSave    = "preview_mask_to_save"
	fieldSessionID            = "session_id"
	fieldMaskBase             = "mask_base"
	fieldMaskBrush            = "mask_brush"
	fieldRemoveText           = "remove_text"
)

// 输入没有自带文件名时使用的默认上传文件名
const (
	defaultImageFilename = "image.jpg"
	defaultMaskFilename  = "mask.png"
)

// formPayload multipart 表单的构建产物
type formPayload struct {
	body        *bytes.Buffer
	contentType string
}

// buildEraseForm 组装擦除水印请求的 multipart 表单。
// 提供了图片时只附加图片，session_id 不写入表单；
// 未提供图片时附加 session_id；两者都缺失返回 ErrNoImageSource。
func buildEraseForm(req *EraseRequest) (*formPayload, error) {
	if req.Image == nil && req.SessionID == "" {
		return nil, ErrNoImageSource
	}

	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if req.Image != nil {
		if err := attachImageInput(w, fieldOriginalPreviewImage, req.Image); err != nil {
			return nil, err
		}
	} else {
		if err := w.WriteField(fieldSessionID, req.SessionID); err != nil {
			return nil, err
		}
	}

	if req.MaskBase != "" {
		if err := attachBase64Part(w, fieldMaskBase, req.MaskBase, defaultMaskFilename); err != nil {
			return nil, err
		}
	}

	if req.MaskBrush != "" {
		if err := attachFilePart(w, fieldMaskBrush, req.MaskBrush); err != nil {
			return nil, err
		}
	}

	if err := w.WriteField(fieldRemoveText, removeTextValue(req.RemoveText)); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return &formPayload{body: body, contentType: w.FormDataContentType()}, nil
}

// buildSaveLargeImageForm 组装高清出图请求的 multipart 表单。
// 每个字段独立判断，提供了才附加；remove_text 总是写入。
// 字段组合是否足够由服务端校验，这里只负责原样放进表单。
func buildSaveLargeImageForm(req *SaveLargeImageRequest) (*formPayload, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	if req.OriginalImage != nil {
		if err := attachImageInput(w, fieldOriginalLargeImage, req.OriginalImage); err != nil {
			return nil, err
		}
	}

	if req.PreviewImageToSave != "" {
		if err := attachBase64Part(w, fieldPreviewImageToSave, req.PreviewImageToSave, defaultImageFilename); err != nil {
			return nil, err
		}
	}

	if req.PreviewMaskToSave != "" {
		if err := attachBase64Part(w, fieldPreviewMaskToSave, req.PreviewMaskToSave, defaultMaskFilename); err != nil {
			return nil, err
		}
	}

	if req.SessionID != "" {
		if err := w.WriteField(fieldSessionID, req.SessionID); err != nil {
			return nil, err
		}
	}

	if err := w.WriteField(fieldRemoveText, removeTextValue(req.RemoveText)); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return &formPayload{body: body, contentType: w.FormDataContentType()}, nil
}

// attachImageInput 按输入形式把图片写入表单字段：
// 路径按流式读取并以路径末段作为文件名，二进制直接写入，
// base64 先解码再写入；后两种形式使用固定默认文件名。
func attachImageInput(w *multipart.Writer, field string, input ImageInput) error {
	switch v := input.(type) {
	case PathRef:
		return attachFilePart(w, field, string(v))
	case BinaryData:
		return attachBinaryPart(w, field, defaultImageFilename, []byte(v))
	case Base64Data:
		return attachBase64Part(w, field, string(v), defaultImageFilename)
	default:
		return fmt.Errorf("unsupported image input type %T", input)
	}
}

// attachFilePart 以流式方式把本地文件写入表单字段
func attachFilePart(w *multipart.Writer, field, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	part, err := w.CreateFormFile(field, partFilename(path))
	if err != nil {
		return err
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return nil
}

// attachBase64Part 把 base64 字符串解码后写入表单字段
func attachBase64Part(w *multipart.Writer, field, data, filename string) error {
	decoded, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return fmt.Errorf("failed to decode base64 data for field %s: %w", field, err)
	}
	return attachBinaryPart(w, field, filename, decoded)
}

// attachBinaryPart 把二进制数据写入表单字段
func attachBinaryPart(w *multipart.Writer, field, filename string, data []byte) error {
	part, err := w.CreateFormFile(field, filename)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

// partFilename 取路径末段作为上传文件名，末段不带扩展名时退回默认文件名
func partFilename(path string) string {
	name := filepath.Base(path)
	if filepath.Ext(name) == "" {
		return defaultImageFilename
	}
	return name
}

// removeTextValue remove_text 字段的文本值，未设置时默认 "true"
func removeTextValue(v *bool) string {
	if v == nil {
		return "true"
	}
	return strconv.FormatBool(*v)
}
