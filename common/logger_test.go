package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestInitLoggerSetsLevelAndFormat 日志级别与格式按配置生效
func TestInitLoggerSetsLevelAndFormat(t *testing.T) {
	require.NoError(t, InitLogger(&LogConfig{Level: "debug", Format: "json", Output: "stdout"}))

	assert.Equal(t, logrus.DebugLevel, Logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, Logger.Formatter)
}

// TestInitLoggerFallsBackToInfoOnBadLevel 无法解析的级别退回 info
func TestInitLoggerFallsBackToInfoOnBadLevel(t *testing.T) {
	require.NoError(t, InitLogger(&LogConfig{Level: "verbose", Format: "text", Output: "stdout"}))

	assert.Equal(t, logrus.InfoLevel, Logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, Logger.Formatter)
}

// TestInitLoggerWritesToFile file 输出自动建目录并写入日志文件
func TestInitLoggerWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "app.log")
	require.NoError(t, InitLogger(&LogConfig{Level: "info", Format: "text", Output: "file", FilePath: path}))

	Info("hello from the logger")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the logger")

	// 后续测试恢复 stdout 输出
	require.NoError(t, InitLogger(&LogConfig{Level: "info", Format: "text", Output: "stdout"}))
}

// TestInitLoggerFileOutputWithoutPath 未给文件路径时退回 stdout，不报错
func TestInitLoggerFileOutputWithoutPath(t *testing.T) {
	require.NoError(t, InitLogger(&LogConfig{Level: "info", Format: "text", Output: "file"}))
}

// TestGetLoggerLazyDefault 未初始化时惰性创建默认日志实例
func TestGetLoggerLazyDefault(t *testing.T) {
	old := Logger
	defer func() { Logger = old }()

	Logger = nil
	logger := GetLogger()
	require.NotNil(t, logger)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

// TestWithFieldsReturnsEntry 字段包装方法挂在全局实例上
func TestWithFieldsReturnsEntry(t *testing.T) {
	entry := WithFields(map[string]interface{}{"a": 1, "b": "x"})
	require.NotNil(t, entry)
	assert.Equal(t, 1, entry.Data["a"])

	entry = WithField("k", "v")
	require.NotNil(t, entry)
	assert.Equal(t, "v", entry.Data["k"])
}
