package dewatermark

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// formPart 解析出的单个表单字段
type formPart struct {
	filename string
	content  string
}

// parseFormParts 解析 multipart 表单，返回字段名到内容与文件名的映射
func parseFormParts(t *testing.T, form *formPayload) map[string]formPart {
	t.Helper()

	_, params, err := mime.ParseMediaType(form.contentType)
	require.NoError(t, err)
	boundary := params["boundary"]
	require.NotEmpty(t, boundary)

	parts := map[string]formPart{}
	mr := multipart.NewReader(bytes.NewReader(form.body.Bytes()), boundary)
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		data, err := io.ReadAll(p)
		require.NoError(t, err)
		parts[p.FormName()] = formPart{filename: p.FileName(), content: string(data)}
	}
	return parts
}

// writeTempFile 在临时目录写入测试文件并返回路径
func writeTempFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, content, 0644))
	return path
}

// TestBuildEraseFormRequiresImageOrSession 图片与会话标识都缺失时本地直接报错
func TestBuildEraseFormRequiresImageOrSession(t *testing.T) {
	_, err := buildEraseForm(&EraseRequest{})
	require.ErrorIs(t, err, ErrNoImageSource)

	// 仅有蒙版不构成有效的图片来源
	_, err = buildEraseForm(&EraseRequest{
		MaskBase: base64.StdEncoding.EncodeToString([]byte("mask")),
	})
	require.ErrorIs(t, err, ErrNoImageSource)
}

// TestBuildEraseFormWithPathRef 路径输入按流式读取，文件名取路径末段
func TestBuildEraseFormWithPathRef(t *testing.T) {
	path := writeTempFile(t, "photo.jpg", []byte("jpeg-bytes"))

	form, err := buildEraseForm(&EraseRequest{Image: PathRef(path), SessionID: "ignored"})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	require.Len(t, parts, 2)

	img, ok := parts["original_preview_image"]
	require.True(t, ok)
	assert.Equal(t, "photo.jpg", img.filename)
	assert.Equal(t, "jpeg-bytes", img.content)

	// 提供图片时不附加 session_id
	_, ok = parts["session_id"]
	assert.False(t, ok)

	assert.Equal(t, "true", parts["remove_text"].content)
}

// TestBuildEraseFormWithSessionID 未提供图片时以纯文本字段附加会话标识
func TestBuildEraseFormWithSessionID(t *testing.T) {
	form, err := buildEraseForm(&EraseRequest{SessionID: "sess-42"})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	require.Len(t, parts, 2)
	assert.Equal(t, "sess-42", parts["session_id"].content)
	assert.Empty(t, parts["session_id"].filename)
	assert.Equal(t, "true", parts["remove_text"].content)
}

// TestBuildEraseFormImageInputForms 三种图片输入形式各自的附加方式
func TestBuildEraseFormImageInputForms(t *testing.T) {
	raw := []byte{0x89, 0x50, 0x4e, 0x47}

	tests := []struct {
		name         string
		image        ImageInput
		wantFilename string
		wantContent  string
	}{
		{
			name:         "binary data with default filename",
			image:        BinaryData(raw),
			wantFilename: "image.jpg",
			wantContent:  string(raw),
		},
		{
			name:         "base64 data decoded before attachment",
			image:        Base64Data(base64.StdEncoding.EncodeToString(raw)),
			wantFilename: "image.jpg",
			wantContent:  string(raw),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := buildEraseForm(&EraseRequest{Image: tt.image})
			require.NoError(t, err)

			parts := parseFormParts(t, form)
			img, ok := parts["original_preview_image"]
			require.True(t, ok)
			assert.Equal(t, tt.wantFilename, img.filename)
			assert.Equal(t, tt.wantContent, img.content)
		})
	}
}

// TestBuildEraseFormPathWithoutExtension 路径末段无扩展名时退回默认文件名
func TestBuildEraseFormPathWithoutExtension(t *testing.T) {
	path := writeTempFile(t, "photo", []byte("raw"))

	form, err := buildEraseForm(&EraseRequest{Image: PathRef(path)})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	assert.Equal(t, "image.jpg", parts["original_preview_image"].filename)
	assert.Equal(t, "raw", parts["original_preview_image"].content)
}

// TestBuildEraseFormMissingFile 路径打不开时错误原样上抛
func TestBuildEraseFormMissingFile(t *testing.T) {
	_, err := buildEraseForm(&EraseRequest{Image: PathRef("/no/such/file.jpg")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open")
}

// TestBuildEraseFormRemoveText remove_text 序列化为文本，未设置时默认 "true"
func TestBuildEraseFormRemoveText(t *testing.T) {
	trueVal, falseVal := true, false

	tests := []struct {
		name  string
		value *bool
		want  string
	}{
		{name: "unset defaults to true", value: nil, want: "true"},
		{name: "explicit true", value: &trueVal, want: "true"},
		{name: "explicit false", value: &falseVal, want: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form, err := buildEraseForm(&EraseRequest{SessionID: "s", RemoveText: tt.value})
			require.NoError(t, err)

			parts := parseFormParts(t, form)
			assert.Equal(t, tt.want, parts["remove_text"].content)
		})
	}
}

// TestBuildEraseFormWithMasks mask_base 恒为 base64，mask_brush 恒为路径
func TestBuildEraseFormWithMasks(t *testing.T) {
	brushPath := writeTempFile(t, "brush.png", []byte("brush-bytes"))
	maskRaw := []byte("mask-bytes")

	form, err := buildEraseForm(&EraseRequest{
		SessionID: "sess",
		MaskBase:  base64.StdEncoding.EncodeToString(maskRaw),
		MaskBrush: brushPath,
	})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	require.Len(t, parts, 4)

	assert.Equal(t, "mask.png", parts["mask_base"].filename)
	assert.Equal(t, string(maskRaw), parts["mask_base"].content)
	assert.Equal(t, "brush.png", parts["mask_brush"].filename)
	assert.Equal(t, "brush-bytes", parts["mask_brush"].content)
}

// TestBuildEraseFormMaskBaseInvalidBase64 mask_base 不会被当作路径，解码失败直接报错
func TestBuildEraseFormMaskBaseInvalidBase64(t *testing.T) {
	_, err := buildEraseForm(&EraseRequest{SessionID: "s", MaskBase: "!!! not base64 !!!"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mask_base")
}

// TestBuildSaveLargeImageFormSessionAndPreview 只设置两个字段时表单恰好三个字段
func TestBuildSaveLargeImageFormSessionAndPreview(t *testing.T) {
	previewRaw := []byte("preview-bytes")

	form, err := buildSaveLargeImageForm(&SaveLargeImageRequest{
		SessionID:          "sess-1",
		PreviewImageToSave: base64.StdEncoding.EncodeToString(previewRaw),
	})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	require.Len(t, parts, 3)
	assert.Equal(t, string(previewRaw), parts["preview_image_to_save"].content)
	assert.Equal(t, "image.jpg", parts["preview_image_to_save"].filename)
	assert.Equal(t, "sess-1", parts["session_id"].content)
	assert.Equal(t, "true", parts["remove_text"].content)
}

// TestBuildSaveLargeImageFormAllFields 所有字段齐备时逐一附加
func TestBuildSaveLargeImageFormAllFields(t *testing.T) {
	origPath := writeTempFile(t, "original.png", []byte("original-bytes"))
	falseVal := false

	form, err := buildSaveLargeImageForm(&SaveLargeImageRequest{
		OriginalImage:      PathRef(origPath),
		PreviewImageToSave: base64.StdEncoding.EncodeToString([]byte("preview")),
		PreviewMaskToSave:  base64.StdEncoding.EncodeToString([]byte("mask")),
		SessionID:          "sess-2",
		RemoveText:         &falseVal,
	})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	require.Len(t, parts, 5)
	assert.Equal(t, "original.png", parts["original_large_image"].filename)
	assert.Equal(t, "original-bytes", parts["original_large_image"].content)
	assert.Equal(t, "preview", parts["preview_image_to_save"].content)
	assert.Equal(t, "mask.png", parts["preview_mask_to_save"].filename)
	assert.Equal(t, "mask", parts["preview_mask_to_save"].content)
	assert.Equal(t, "sess-2", parts["session_id"].content)
	assert.Equal(t, "false", parts["remove_text"].content)
}

// TestBuildSaveLargeImageFormEmptyRequest 字段组合不在本地校验，交给服务端
func TestBuildSaveLargeImageFormEmptyRequest(t *testing.T) {
	form, err := buildSaveLargeImageForm(&SaveLargeImageRequest{})
	require.NoError(t, err)

	parts := parseFormParts(t, form)
	require.Len(t, parts, 1)
	assert.Equal(t, "true", parts["remove_text"].content)
}

// TestDetectImageInput 字符串输入按"存在的路径 / base64"启发式区分
func TestDetectImageInput(t *testing.T) {
	path := writeTempFile(t, "exists.jpg", []byte("x"))

	t.Run("existing path", func(t *testing.T) {
		input := DetectImageInput(path)
		assert.Equal(t, PathRef(path), input)
	})

	t.Run("missing path treated as base64", func(t *testing.T) {
		missing := filepath.Join(t.TempDir(), "missing.jpg")
		input := DetectImageInput(missing)
		assert.Equal(t, Base64Data(missing), input)
	})

	t.Run("empty string", func(t *testing.T) {
		assert.Nil(t, DetectImageInput(""))
	})
}
