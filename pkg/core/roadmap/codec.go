package roadmap

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format 文档格式
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath 根据文件扩展名推断格式，无法识别时按JSON处理
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Decode 解析路线图文档
func Decode(data []byte, format Format) (*Roadmap, error) {
	var r Roadmap
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("解析YAML失败: %w", err)
		}
	case FormatJSON, "":
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("解析JSON失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的格式: %s", format)
	}
	return &r, nil
}

// Encode 序列化路线图文档
func Encode(r *Roadmap, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return yaml.Marshal(r)
	case FormatJSON, "":
		return json.MarshalIndent(r, "", "  ")
	default:
		return nil, fmt.Errorf("不支持的格式: %s", format)
	}
}
