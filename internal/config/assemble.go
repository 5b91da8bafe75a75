package config

import (
	"strings"

	"github.com/spf13/afero"

	"csvsplit/internal/chunker"
	"csvsplit/internal/diag"
	"csvsplit/internal/pipeline"
	"csvsplit/internal/validate"
	"csvsplit/internal/verify"
	"csvsplit/pkg/contract"
	"csvsplit/pkg/registry"
	"csvsplit/plugins/reader/csvstream"
	wfs "csvsplit/plugins/writer/filesystem"
)

// EffectiveDialect 返回生效方言：显式配置优先；否则按输入扩展名推断；再否则默认方言。
func EffectiveDialect(cfg Config, input string) (contract.Dialect, error) {
	if strings.TrimSpace(cfg.Dialect) != "" {
		return registry.Dialect(cfg.Dialect)
	}
	if d, ok := registry.ByExtension(input); ok {
		return d, nil
	}
	return registry.Dialect(registry.DefaultDialect)
}

// EffectiveOutputDir 返回生效输出目录。
func EffectiveOutputDir(cfg Config, input string) string {
	if d := strings.TrimSpace(cfg.OutputDir); d != "" {
		return d
	}
	return contract.DefaultOutputDir(input)
}

// Assemble 构造 Components 与 Settings。
func Assemble(cfg Config, input string, fsys afero.Fs, logger *diag.Logger) (pipeline.Components, pipeline.Settings, error) {
	if err := Validate(cfg); err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	th, err := cfg.ThresholdBytes()
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	d, err := EffectiveDialect(cfg, input)
	if err != nil {
		return pipeline.Components{}, pipeline.Settings{}, err
	}
	reader := cfg.Reader
	op := csvstream.New(fsys, d, &reader)
	atomic := cfg.Writer.Atomic
	comp := pipeline.Components{
		Validator: validate.New(fsys, d, op),
		Chunker: chunker.New(fsys, d, op, &chunker.Options{
			Writer: wfs.Options{Atomic: &atomic, CRLF: cfg.Writer.CRLF, BufSize: cfg.Writer.BufSize},
			Logger: logger,
		}),
		Verifier: verify.New(fsys, d, op),
	}
	set := pipeline.Settings{
		Input:     input,
		OutputDir: EffectiveOutputDir(cfg, input),
		Threshold: th,
	}
	return comp, set, nil
}
