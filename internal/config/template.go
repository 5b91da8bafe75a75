package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"csvsplit/plugins/reader/csvstream"
)

func defaultReader() csvstream.Options {
	return csvstream.Options{BufSize: 64 * 1024}
}

// DefaultTemplateConfig 返回一个“可运行”的默认配置模板：
// 所有键均出现，值为安全中性默认。
func DefaultTemplateConfig() Config {
	cfg := Defaults()
	cfg.Dialect = "csv"
	cfg.Writer.BufSize = 64 * 1024
	return cfg
}

// WriteTemplate 在 dir 下生成 config.json 与 .env 模板；已存在的文件跳过，不覆盖。
// 返回实际写出的文件路径。
func WriteTemplate(fsys afero.Fs, dir string) ([]string, error) {
	if err := fsys.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	b, err := json.MarshalIndent(DefaultTemplateConfig(), "", "  ")
	if err != nil {
		return nil, err
	}
	var written []string
	cfgPath := filepath.Join(dir, "config.json")
	ok, err := createExclusive(fsys, cfgPath, append(b, '\n'))
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, cfgPath)
	}
	envPath := filepath.Join(dir, ".env")
	ok, err = createExclusive(fsys, envPath, []byte(dotEnvTemplate()))
	if err != nil {
		return written, err
	}
	if ok {
		written = append(written, envPath)
	}
	return written, nil
}

func createExclusive(fsys afero.Fs, path string, data []byte) (bool, error) {
	f, err := fsys.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return false, err
	}
	return true, nil
}

// dotEnvTemplate 列出全部支持的环境变量（按键名排序）。
func dotEnvTemplate() string {
	var b strings.Builder
	b.WriteString("# csvsplit .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > JSON > 默认值\n")
	b.WriteString("# 空值表示未设置。\n\n")
	for _, k := range EnvKeys() {
		b.WriteString(k)
		b.WriteString("=\n")
	}
	return b.String()
}
