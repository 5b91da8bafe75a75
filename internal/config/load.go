package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"csvsplit/pkg/contract"
)

// EnvPrefix 为环境变量前缀。
const EnvPrefix = "CSVSPLIT_"

// DefaultThreshold 与原始工具一致：4 MiB。
const DefaultThreshold = "4MiB"

// envKeys: 环境变量 → 配置路径（显式集合；其余 CSVSPLIT_* 忽略）。
var envKeys = map[string]string{
	"CSVSPLIT_THRESHOLD":          "threshold",
	"CSVSPLIT_OUTPUT_DIR":         "output_dir",
	"CSVSPLIT_DIALECT":            "dialect",
	"CSVSPLIT_LOGGING_LEVEL":      "logging.level",
	"CSVSPLIT_LOGGING_DIR":        "logging.dir",
	"CSVSPLIT_READER_BUF_SIZE":    "reader.buf_size",
	"CSVSPLIT_READER_LAZY_QUOTES": "reader.lazy_quotes",
	"CSVSPLIT_WRITER_ATOMIC":      "writer.atomic",
	"CSVSPLIT_WRITER_CRLF":        "writer.crlf",
	"CSVSPLIT_WRITER_BUF_SIZE":    "writer.buf_size",
	"CSVSPLIT_STATUS":             "status",
	"CSVSPLIT_METRICS_FILE":       "metrics_file",
}

// Defaults 返回带有安全默认值的 Config。
func Defaults() Config {
	return Config{
		Threshold: DefaultThreshold,
		Logging:   Logging{Level: "info", Dir: "logs"},
		Reader:    defaultReader(),
		Writer:    Writer{Atomic: true},
		Status:    true,
	}
}

// Sources 描述一次加载的输入；优先级 Flags > ENV > File > Defaults。
type Sources struct {
	// File: JSON 配置文件路径；空则跳过。
	File string
	// Flags: 命令行覆盖，键为配置路径（例如 "logging.level"）。
	Flags map[string]any
}

// Load 依次叠加默认值、JSON 文件、环境变量与命令行覆盖，并做静态校验。
func Load(src Sources) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}
	if strings.TrimSpace(src.File) != "" {
		m, err := readJSONFile(src.File)
		if err != nil {
			return Config{}, err
		}
		if err := k.Load(rawMap(m), nil); err != nil {
			return Config{}, fmt.Errorf("config: apply %s: %w", src.File, err)
		}
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix: EnvPrefix,
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[key]
			if !ok || strings.TrimSpace(value) == "" {
				return "", nil
			}
			return path, strings.TrimSpace(value)
		},
	}), nil); err != nil {
		return Config{}, fmt.Errorf("config: load env: %w", err)
	}
	for key, v := range src.Flags {
		if err := k.Set(key, v); err != nil {
			return Config{}, fmt.Errorf("config: flag %s: %w", key, err)
		}
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段），未出现的键保持默认值。
func LoadJSON(path string, raw []byte) (Config, error) {
	cfg := Defaults()
	var b []byte
	switch {
	case len(raw) > 0:
		b = raw
	case path != "":
		var err error
		if b, err = os.ReadFile(path); err != nil {
			return cfg, err
		}
	default:
		return cfg, errors.New("no config source provided")
	}
	b, err := numericThreshold(b)
	if err != nil {
		return cfg, err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// readJSONFile 严格校验键集合后返回原始 map 供 koanf 叠加。
func readJSONFile(path string) (map[string]any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if b, err = numericThreshold(b); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if _, err := LoadJSON("", b); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return m, nil
}

// numericThreshold 将 JSON 数字形式的 threshold 改写为字符串（1048576 → "1048576"），
// 与环境变量及 -t 的取值形式保持一致。非对象或无数字阈值时原样返回。
func numericThreshold(b []byte) ([]byte, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(b, &m); err != nil {
		return b, nil
	}
	raw := bytes.TrimSpace(m["threshold"])
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return b, nil
	}
	q, err := json.Marshal(string(raw))
	if err != nil {
		return nil, err
	}
	m["threshold"] = q
	return json.Marshal(m)
}

// rawMap 将 map 适配为 koanf.Provider。
type rawMap map[string]any

func (r rawMap) Read() (map[string]any, error) { return r, nil }

func (r rawMap) ReadBytes() ([]byte, error) {
	return nil, errors.New("ReadBytes not implemented")
}

// EnvKeys 返回支持的环境变量名（字典序）。
func EnvKeys() []string {
	out := make([]string, 0, len(envKeys))
	for k := range envKeys {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

var structValidator = validator.New()

// Validate 对最小必要边界做静态校验。
func Validate(cfg Config) error {
	if err := structValidator.Struct(cfg); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := cfg.ThresholdBytes(); err != nil {
		return err
	}
	return nil
}

// ThresholdBytes 解析阈值；解析失败或 <= 0 返回 InvalidThreshold。
func (c Config) ThresholdBytes() (int64, error) {
	s := strings.TrimSpace(c.Threshold)
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, contract.NewError(contract.KindInvalidThreshold, "", fmt.Errorf("parse %q: %w", s, err))
	}
	if n == 0 || n > math.MaxInt64 {
		return 0, contract.NewError(contract.KindInvalidThreshold, "", fmt.Errorf("got %q", s))
	}
	return int64(n), nil
}
