package config

import (
	"csvsplit/plugins/reader/csvstream"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// 键使用 snake_case；JSON 文件中的未知字段在解析期失败。
type Config struct {
	// Threshold: 单元估算大小上限，支持 "4MiB"/"500KB"/"1048576"。
	Threshold string `koanf:"threshold" json:"threshold" validate:"required"`
	// OutputDir: 输出目录；空则为 <basename>_chunks。
	OutputDir string `koanf:"output_dir" json:"output_dir"`
	// Dialect: csv|tsv；空则按输入扩展名推断，无法推断时为 csv。
	Dialect string  `koanf:"dialect" json:"dialect" validate:"omitempty,oneof=csv tsv"`
	Logging Logging `koanf:"logging" json:"logging"`

	Reader csvstream.Options `koanf:"reader" json:"reader"`
	Writer Writer            `koanf:"writer" json:"writer"`

	// Status: 终端状态提示（stderr）。
	Status bool `koanf:"status" json:"status"`
	// MetricsFile: 运行结束后写出 Prometheus 文本格式指标；空则不写。
	MetricsFile string `koanf:"metrics_file" json:"metrics_file"`
}

// Logging: 等级与输出目录（"-" 为 stderr）。
type Logging struct {
	Level string `koanf:"level" json:"level" validate:"oneof=debug info warn error"`
	Dir   string `koanf:"dir" json:"dir"`
}

// Writer: 输出单元写出选项（映射到 filesystem.Options）。
type Writer struct {
	Atomic  bool `koanf:"atomic" json:"atomic"`
	CRLF    bool `koanf:"crlf" json:"crlf"`
	BufSize int  `koanf:"buf_size" json:"buf_size" validate:"gte=0"`
}
