package diag

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
)

// Terminal: 终端信息提示（非日志）。
// TTY 下以 \r 单行刷新切分进度，非 TTY 下逐单元分行打印。
// 并发安全；任一次写失败后转为 no-op。
type Terminal struct {
	w       io.Writer
	enabled bool
	isTTY   bool
	styles  map[string]lipgloss.Style

	input    string
	units    int
	records  int64
	runStart time.Time

	width     int // 上一次行内刷新的显示宽度
	lastFlush time.Time

	mu sync.Mutex
}

// 进程级终端（可选，全局设置后供 pipeline/chunker 旁路调用）。
var (
	termMu sync.RWMutex
	term   *Terminal
)

// SetTerminal 设置全局终端指针（nil 可清除）。
func SetTerminal(t *Terminal) { termMu.Lock(); term = t; termMu.Unlock() }

// GetTerminal 返回全局终端（可能为 nil）。
func GetTerminal() *Terminal { termMu.RLock(); defer termMu.RUnlock(); return term }

// NewTerminal 构造终端提示器；enabled=false 时总是 no-op。
// 标签颜色按 w 的终端能力渲染，非终端输出纯文本。
func NewTerminal(w io.Writer, enabled bool) *Terminal {
	if w == nil {
		w = os.Stderr
	}
	t := &Terminal{w: w, enabled: enabled}
	// CI 环境视为非 TTY
	if f, ok := w.(*os.File); ok && os.Getenv("CI") == "" {
		t.isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	r := lipgloss.NewRenderer(w)
	t.styles = map[string]lipgloss.Style{
		"run":   r.NewStyle().Foreground(lipgloss.Color("69")).Bold(true),
		"unit":  r.NewStyle().Foreground(lipgloss.Color("245")),
		"chunk": r.NewStyle().Foreground(lipgloss.Color("69")),
		"ok":    r.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true),
		"fail":  r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true),
	}
	return t
}

// RunStart: 一次运行开始（输入与阈值）。
func (t *Terminal) RunStart(input string, threshold int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.input = shortenBase(input, 48)
	t.units, t.records = 0, 0
	t.runStart = time.Now()
	t.emit(t.line("run", safe(t.input), "阈值="+humanBytes(threshold)))
}

// UnitWritten: 一个输出单元已写出。
func (t *Terminal) UnitWritten(name string, records int, estimate int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	t.units++
	t.records += int64(records)
	if !t.isTTY {
		t.emit(t.line("unit", safe(shortenBase(name, 48)),
			fmt.Sprintf("行数=%d", records), "估算="+humanBytes(estimate)))
		return
	}
	// 刷新节流 100ms
	now := time.Now()
	if now.Sub(t.lastFlush) < 100*time.Millisecond {
		return
	}
	t.lastFlush = now
	t.inline(t.line("chunk", safe(t.input), fmt.Sprintf("单元 %d", t.units),
		fmt.Sprintf("行数 %d", t.records), "用时 "+formatDur(time.Since(t.runStart))))
}

// RunFinish: 结束总览。
func (t *Terminal) RunFinish(ok bool, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	tag := "ok"
	if !ok {
		tag = "fail"
	}
	t.emit(t.line(tag, "全部完成", fmt.Sprintf("单元 %d", t.units),
		fmt.Sprintf("行数 %d", t.records), "总用时 "+formatDur(dur)))
}

// line 拼出 "[tag] a | b | c"，仅标签着色。
func (t *Terminal) line(tag string, parts ...string) string {
	label := "[" + tag + "]"
	if st, ok := t.styles[tag]; ok {
		label = st.Render(label)
	}
	return label + " " + strings.Join(parts, " | ")
}

// emit 输出整行；若前面有行内刷新，先换行。
func (t *Terminal) emit(s string) {
	if t.width > 0 {
		s = "\n" + s
	}
	t.width = 0
	t.write(s + "\n")
}

// inline 以 \r 覆盖上一行；新行更短时补空格清尾。
func (t *Terminal) inline(s string) {
	w := lipgloss.Width(s)
	pad := ""
	if t.width > w {
		pad = strings.Repeat(" ", t.width-w)
	}
	if t.write("\r" + s + pad) {
		t.width = w
	}
}

func (t *Terminal) write(s string) bool {
	if _, err := io.WriteString(t.w, s); err != nil {
		t.enabled = false
		return false
	}
	return true
}

// shortenBase: 取基名并按显示宽度截断（尾部省略号）。
func shortenBase(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	base := filepath.Base(strings.TrimSpace(s))
	if lipgloss.Width(base) <= limit {
		return base
	}
	var b strings.Builder
	w := 0
	for _, r := range base {
		rw := lipgloss.Width(string(r))
		if w+rw > limit-1 && w > 0 {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String() + "…"
}

// safe 去除换行，避免污染终端。
func safe(s string) string {
	return strings.NewReplacer("\n", " ", "\r", " ").Replace(s)
}

func humanBytes(n int64) string {
	if n < 0 {
		return fmt.Sprintf("%d B", n)
	}
	return humanize.IBytes(uint64(n))
}

func formatDur(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", max(d.Milliseconds(), 0))
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
