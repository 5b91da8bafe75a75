package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	cfgpkg "csvsplit/internal/config"
	"csvsplit/internal/diag"
	"csvsplit/internal/pipeline"
)

var pipelineRun = pipeline.Run

// 退出码：0 成功（含计数不一致的报告）；1 运行期失败；3 配置或用法错误。
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 3
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// options 为命令行旗标。
type options struct {
	config      string
	outputDir   string
	threshold   string
	dialect     string
	logLevel    string
	status      bool
	metricsFile string
	initDir     string
}

func run(args []string, stdout, stderr io.Writer) int {
	code := exitOK
	var opts options
	cmd := &cobra.Command{
		Use:   "csvsplit [flags] <input>",
		Short: "按估算大小将表格文件切分为多个带表头的单元，并核对行数",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.initDir != "" {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.initDir != "" {
				code = initConfig(opts.initDir, stdout, stderr)
				return nil
			}
			code = runSplit(cmd, args[0], opts, stdout, stderr)
			return nil
		},
	}
	cmd.SetArgs(normalizeInitArg(args))
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	f := cmd.Flags()
	f.StringVar(&opts.config, "config", "", "配置文件路径（JSON）；缺省读取 ./config.json（若存在）")
	f.StringVarP(&opts.outputDir, "output-dir", "o", "", "输出目录（默认 <basename>_chunks）")
	f.StringVarP(&opts.threshold, "threshold", "t", cfgpkg.DefaultThreshold, "单元估算大小上限，例如 4MiB、500KB、1048576")
	f.StringVar(&opts.dialect, "dialect", "", "方言 csv|tsv（默认按扩展名推断）")
	f.StringVar(&opts.logLevel, "log-level", "", "日志等级 debug|info|warn|error")
	f.BoolVar(&opts.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 逐行输出")
	f.StringVar(&opts.metricsFile, "metrics-file", "", "运行结束后写出 Prometheus 文本格式指标")
	f.StringVar(&opts.initDir, "init-config", "", "在指定目录生成默认 config.json 与 .env 模板（不覆盖已存在文件）；不带值时为当前目录")

	if err := cmd.Execute(); err != nil {
		fprintf(stderr, "用法错误: %v\n", err)
		fprintf(stderr, "%s", cmd.UsageString())
		return exitConfig
	}
	return code
}

func initConfig(dir string, stdout, stderr io.Writer) int {
	written, err := cfgpkg.WriteTemplate(afero.NewOsFs(), strings.TrimSpace(dir))
	if err != nil {
		fprintf(stderr, "生成默认配置失败: %v\n", err)
		return exitConfig
	}
	for _, p := range written {
		fprintf(stdout, "已生成 %s\n", p)
	}
	if len(written) == 0 {
		fprintf(stdout, "配置文件已存在，跳过\n")
	}
	return exitOK
}

func runSplit(cmd *cobra.Command, input string, opts options, stdout, stderr io.Writer) int {
	start := time.Now()
	corrID := genCorrID()
	// 在任何 ENV 读取前加载工作目录下的 .env（不覆盖已有 ENV）。
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fprintf(stderr, "提示：.env 读取失败（已跳过）：%v\n", err)
	}

	src := cfgpkg.Sources{File: configPath(opts.config), Flags: flagOverrides(cmd.Flags(), opts)}
	cfg, err := cfgpkg.Load(src)
	if err != nil {
		fprintf(stderr, "配置加载失败: %v\n", err)
		diag.NewLoggerTo(stderr, corrID, "error").Error("config", string(diag.Classify(err)), err.Error(), &start)
		return exitConfig
	}

	logger := diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()
	logger.DebugStart("config", "effective", input, "", map[string]string{
		"threshold":   cfg.Threshold,
		"output_dir":  cfgpkg.EffectiveOutputDir(cfg, input),
		"dialect":     cfg.Dialect,
		"atomic":      strconv.FormatBool(cfg.Writer.Atomic),
		"crlf":        strconv.FormatBool(cfg.Writer.CRLF),
		"lazy_quotes": strconv.FormatBool(cfg.Reader.LazyQuotes),
	})

	comp, set, err := cfgpkg.Assemble(cfg, input, afero.NewOsFs(), logger)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("pipeline", string(diag.Classify(err)), "first error", &start)
		return exitConfig
	}

	term := diag.NewTerminal(stderr, cfg.Status)
	diag.SetTerminal(term)
	defer diag.SetTerminal(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	t := logger.Start("pipeline", "run")
	out, err := pipelineRun(ctx, comp, set, logger)
	defer writeMetrics(cfg.MetricsFile, stderr)
	if err != nil {
		code := diag.Classify(err)
		logger.Error("pipeline", string(code), "first error", &start)
		diag.IncOp("pipeline", "error", "error")
		if code != diag.CodeUnknown {
			diag.IncError("pipeline", string(code))
		}
		if !errors.Is(err, context.Canceled) {
			fprintf(stderr, "Error: %v\n", err)
		}
		return exitRuntime
	}
	t.Finish("run", int64(out.Chunk.Units))
	diag.IncOp("pipeline", "finish", "success")
	diag.ObserveDuration("pipeline", "finish", time.Since(start).Milliseconds())

	renderSummary(stdout, set.OutputDir, out)
	return exitOK
}

// normalizeInitArg: 允许 --init-config 在未提供路径值时采用当前目录 "."。
//
//	--init-config                => 等价于 --init-config .
//	--init-config=out
//	--init-config out
func normalizeInitArg(args []string) []string {
	out := make([]string, 0, len(args)+1)
	for i, a := range args {
		out = append(out, a)
		if a != "--init-config" {
			continue
		}
		if i == len(args)-1 || strings.HasPrefix(args[i+1], "-") {
			out = append(out, ".")
		}
	}
	return out
}

// configPath: --config > CSVSPLIT_CONFIG_FILE > ./config.json（若存在）。
func configPath(flagValue string) string {
	if p := strings.TrimSpace(flagValue); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")); p != "" {
		return p
	}
	if st, err := os.Stat("config.json"); err == nil && st.Mode().IsRegular() {
		return "config.json"
	}
	return ""
}

// flagOverrides 仅收集显式设置的旗标，避免旗标默认值覆盖 ENV/JSON。
func flagOverrides(f *pflag.FlagSet, opts options) map[string]any {
	m := map[string]any{}
	if f.Changed("output-dir") {
		m["output_dir"] = opts.outputDir
	}
	if f.Changed("threshold") {
		m["threshold"] = opts.threshold
	}
	if f.Changed("dialect") {
		m["dialect"] = opts.dialect
	}
	if f.Changed("log-level") {
		m["logging.level"] = opts.logLevel
	}
	if f.Changed("status") {
		m["status"] = opts.status
	}
	if f.Changed("metrics-file") {
		m["metrics_file"] = opts.metricsFile
	}
	return m
}

func writeMetrics(path string, stderr io.Writer) {
	if strings.TrimSpace(path) == "" {
		return
	}
	if err := diag.WriteMetrics(path); err != nil {
		fprintf(stderr, "提示：指标写出失败: %v\n", err)
	}
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

func genCorrID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return ""
	}
	return hex.EncodeToString(b[:])
}
