package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvsplit/pkg/contract"
)

func writeJSON(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// UT-CFG-01: 无任何来源时为默认值
func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Sources{})
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
	th, err := cfg.ThresholdBytes()
	require.NoError(t, err)
	assert.EqualValues(t, 4*1024*1024, th)
}

// UT-CFG-02: JSON < ENV < CLI
func TestLoadLayering(t *testing.T) {
	p := writeJSON(t, `{"threshold":"1KiB","output_dir":"from-file","logging":{"level":"debug"},"writer":{"crlf":true}}`)

	cfg, err := Load(Sources{File: p})
	require.NoError(t, err)
	assert.Equal(t, "1KiB", cfg.Threshold)
	assert.Equal(t, "from-file", cfg.OutputDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Writer.CRLF)
	// 文件未出现的键保持默认
	assert.True(t, cfg.Writer.Atomic)
	assert.Equal(t, "logs", cfg.Logging.Dir)
	assert.Equal(t, 64*1024, cfg.Reader.BufSize)

	t.Setenv("CSVSPLIT_THRESHOLD", "2KiB")
	t.Setenv("CSVSPLIT_WRITER_ATOMIC", "false")
	t.Setenv("CSVSPLIT_READER_LAZY_QUOTES", "true")
	t.Setenv("CSVSPLIT_LOGGING_DIR", "-")
	t.Setenv("CSVSPLIT_UNKNOWN_KEY", "x")
	cfg, err = Load(Sources{File: p})
	require.NoError(t, err)
	assert.Equal(t, "2KiB", cfg.Threshold)
	assert.False(t, cfg.Writer.Atomic)
	assert.True(t, cfg.Reader.LazyQuotes)
	assert.Equal(t, "-", cfg.Logging.Dir)
	assert.Equal(t, "from-file", cfg.OutputDir)

	cfg, err = Load(Sources{File: p, Flags: map[string]any{
		"threshold":     "3KiB",
		"logging.level": "warn",
		"status":        false,
	}})
	require.NoError(t, err)
	assert.Equal(t, "3KiB", cfg.Threshold)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Status)
}

// UT-CFG-03: 含非法字段
func TestLoadJSONUnknown(t *testing.T) {
	_, err := LoadJSON("", []byte(`{"unknown":1}`))
	require.Error(t, err)

	p := writeJSON(t, `{"writer":{"flat":true}}`)
	_, err = Load(Sources{File: p})
	require.Error(t, err)

	_, err = Load(Sources{File: filepath.Join(t.TempDir(), "missing.json")})
	require.Error(t, err)

	_, err = LoadJSON("", nil)
	require.Error(t, err)
}

// JSON 中的数字阈值与字符串形式等价。
func TestLoadNumericThreshold(t *testing.T) {
	p := writeJSON(t, `{"threshold": 1048576, "output_dir": "o"}`)
	cfg, err := Load(Sources{File: p})
	require.NoError(t, err)
	assert.Equal(t, "1048576", cfg.Threshold)
	assert.Equal(t, "o", cfg.OutputDir)
	th, err := cfg.ThresholdBytes()
	require.NoError(t, err)
	assert.EqualValues(t, 1048576, th)

	cfg, err = LoadJSON("", []byte(`{"threshold":2048}`))
	require.NoError(t, err)
	assert.Equal(t, "2048", cfg.Threshold)

	p = writeJSON(t, `{"threshold": 0}`)
	_, err = Load(Sources{File: p})
	require.ErrorIs(t, err, contract.ErrInvalidThreshold)

	p = writeJSON(t, `{"threshold": -5}`)
	_, err = Load(Sources{File: p})
	require.ErrorIs(t, err, contract.ErrInvalidThreshold)

	// 数字改写不放宽未知字段检查
	p = writeJSON(t, `{"threshold": 1024, "bogus": 1}`)
	_, err = Load(Sources{File: p})
	require.Error(t, err)
}

func TestValidateErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Dialect = "xlsx"
	require.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Logging.Level = "loud"
	require.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Threshold = ""
	require.Error(t, Validate(cfg))

	cfg = Defaults()
	cfg.Threshold = "0"
	require.ErrorIs(t, Validate(cfg), contract.ErrInvalidThreshold)

	t.Setenv("CSVSPLIT_THRESHOLD", "-5")
	_, err := Load(Sources{})
	require.ErrorIs(t, err, contract.ErrInvalidThreshold)
}

func TestThresholdBytes(t *testing.T) {
	cases := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"4MiB", 4 * 1024 * 1024, true},
		{"500KB", 500000, true},
		{"1048576", 1048576, true},
		{" 1 KiB ", 1024, true},
		{"0", 0, false},
		{"-1", 0, false},
		{"abc", 0, false},
	}
	for _, tc := range cases {
		got, err := Config{Threshold: tc.in}.ThresholdBytes()
		if !tc.ok {
			require.ErrorIs(t, err, contract.ErrInvalidThreshold, tc.in)
			continue
		}
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

// 模板：生成 config.json 与 .env；重复执行不覆盖。
func TestWriteTemplate(t *testing.T) {
	fsys := afero.NewMemMapFs()
	written, err := WriteTemplate(fsys, "init")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join("init", "config.json"), filepath.Join("init", ".env")}, written)

	b, err := afero.ReadFile(fsys, filepath.Join("init", "config.json"))
	require.NoError(t, err)
	cfg, err := LoadJSON("", b)
	require.NoError(t, err)
	require.NoError(t, Validate(cfg))
	assert.Equal(t, DefaultTemplateConfig(), cfg)

	env, err := afero.ReadFile(fsys, filepath.Join("init", ".env"))
	require.NoError(t, err)
	for _, k := range EnvKeys() {
		assert.Contains(t, string(env), k+"=\n")
	}

	written, err = WriteTemplate(fsys, "init")
	require.NoError(t, err)
	assert.Empty(t, written)
}

func TestEffectiveDialect(t *testing.T) {
	d, err := EffectiveDialect(Defaults(), "data.TSV")
	require.NoError(t, err)
	assert.Equal(t, "tsv", d.Name)

	d, err = EffectiveDialect(Defaults(), "data.txt")
	require.NoError(t, err)
	assert.Equal(t, "csv", d.Name)

	cfg := Defaults()
	cfg.Dialect = "csv"
	d, err = EffectiveDialect(cfg, "data.tsv")
	require.NoError(t, err)
	assert.Equal(t, "csv", d.Name)

	cfg.Dialect = "nope"
	_, err = EffectiveDialect(cfg, "data.csv")
	require.Error(t, err)
}

func TestAssemble(t *testing.T) {
	fsys := afero.NewMemMapFs()
	cfg := Defaults()
	cfg.Threshold = "10"
	comp, set, err := Assemble(cfg, filepath.Join("in", "sales.csv"), fsys, nil)
	require.NoError(t, err)
	assert.NotNil(t, comp.Validator)
	assert.NotNil(t, comp.Chunker)
	assert.NotNil(t, comp.Verifier)
	assert.EqualValues(t, 10, set.Threshold)
	assert.Equal(t, "sales_chunks", set.OutputDir)

	cfg.OutputDir = "custom"
	_, set, err = Assemble(cfg, "sales.csv", fsys, nil)
	require.NoError(t, err)
	assert.Equal(t, "custom", set.OutputDir)

	cfg.Threshold = "0"
	_, _, err = Assemble(cfg, "sales.csv", fsys, nil)
	require.ErrorIs(t, err, contract.ErrInvalidThreshold)
}
