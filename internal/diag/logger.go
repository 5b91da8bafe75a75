package diag

import (
	"io"
	"os"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Logger 为结构化日志器：每个事件一行 JSON（comp/stage/code/dur_ms/count/file/unit）。
// 底层使用 charmbracelet/log 的 JSON 格式化器；并发安全。
type Logger struct {
	l    *charmlog.Logger
	sink io.Closer
}

// NewLogger 将日志写入 dir 下的轮转文件（10 MiB，保留 5 个归档）；dir 为 "-" 时写 stderr。
func NewLogger(corrID, level, dir string) *Logger {
	d := strings.TrimSpace(dir)
	if d == "-" {
		return NewLoggerTo(os.Stderr, corrID, level)
	}
	if d == "" {
		d = "logs"
	}
	sink := NewRotatingFile(afero.NewOsFs(), d, 10*1024*1024, 5)
	lg := NewLoggerTo(sink, corrID, level)
	lg.sink = sink
	return lg
}

// NewLoggerTo 写入任意 io.Writer（测试或 stderr）。
func NewLoggerTo(w io.Writer, corrID, level string) *Logger {
	if w == nil {
		w = io.Discard
	}
	l := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           parseLevel(level),
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Formatter:       charmlog.JSONFormatter,
	})
	if corrID != "" {
		l = l.With("corr_id", corrID)
	}
	return &Logger{l: l}
}

func parseLevel(s string) charmlog.Level {
	lvl, err := charmlog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return charmlog.InfoLevel
	}
	return lvl
}

// Close 关闭文件 sink（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

// Event 为标准事件结构。
type Event struct {
	Comp  string
	Stage string // start|finish|error|warn
	Code  string
	DurMS int64
	Count int64
	File  string
	Unit  string
	Msg   string
	KV    map[string]string
}

func (ev Event) keyvals() []any {
	kv := []any{"comp", ev.Comp, "stage", ev.Stage}
	if ev.Code != "" {
		kv = append(kv, "code", ev.Code)
	}
	if ev.DurMS != 0 {
		kv = append(kv, "dur_ms", ev.DurMS)
	}
	if ev.Count != 0 {
		kv = append(kv, "count", ev.Count)
	}
	if ev.File != "" {
		kv = append(kv, "file", ev.File)
	}
	if ev.Unit != "" {
		kv = append(kv, "unit", ev.Unit)
	}
	for k, v := range ev.KV {
		kv = append(kv, k, v)
	}
	return kv
}

func (l *Logger) log(lv charmlog.Level, ev Event) {
	if l == nil || l.l == nil {
		return
	}
	l.l.Log(lv, ev.Msg, ev.keyvals()...)
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(charmlog.InfoLevel, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWith 记录带 file/unit 的 start。
func (l *Logger) StartWith(comp, msg, file, unit string) *Timer {
	l.log(charmlog.InfoLevel, Event{Comp: comp, Stage: "start", File: file, Unit: unit, Msg: msg})
	return &Timer{l: l, comp: comp, file: file, unit: unit, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	l.ErrorWith(comp, code, msg, durSince, "", "")
}

// ErrorWith 支持 file/unit。
func (l *Logger) ErrorWith(comp, code, msg string, durSince *time.Time, file, unit string) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(charmlog.ErrorLevel, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg, File: file, Unit: unit})
}

// WarnWithKV 记录非致命异常（例如校验计数不一致）。
func (l *Logger) WarnWithKV(comp, msg, file string, kv map[string]string) {
	l.log(charmlog.WarnLevel, Event{Comp: comp, Stage: "warn", File: file, Msg: msg, KV: kv})
}

// DebugFinish 输出调试级别的 finish 类事件，用于已完成的子步骤。
func (l *Logger) DebugFinish(comp, msg, file, unit string, dur time.Duration, count int64, kv map[string]string) {
	l.log(charmlog.DebugLevel, Event{Comp: comp, Stage: "finish", File: file, Unit: unit, DurMS: dur.Milliseconds(), Count: count, Msg: msg, KV: kv})
}

// DebugStart 输出调试级别的 start 类事件（仅在 level=debug 时生效）。
func (l *Logger) DebugStart(comp, msg, file, unit string, kv map[string]string) {
	l.log(charmlog.DebugLevel, Event{Comp: comp, Stage: "start", File: file, Unit: unit, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	file string
	unit string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(charmlog.InfoLevel, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, File: t.file, Unit: t.unit, Msg: msg})
}

// Since 返回自 start 起的耗时。
func (t *Timer) Since() time.Duration {
	if t == nil {
		return 0
	}
	return time.Since(t.t0)
}
