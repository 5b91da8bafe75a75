package diag

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/afero"
)

const (
	logPrefix      = "csvsplit-"
	currentLogName = logPrefix + "current.log"
)

// RotatingFile 为按大小轮转的日志 sink（io.WriteCloser）。
// 当前文件为 <dir>/csvsplit-current.log；写入将超过 maxBytes 时，
// 当前文件改名为 csvsplit-<UTC 时间戳>.log 归档，仅保留最近 keep 个归档（keep<=0 不清理）。
type RotatingFile struct {
	fs       afero.Fs
	dir      string
	maxBytes int64
	keep     int
	now      func() time.Time

	mu   sync.Mutex
	f    afero.File
	size int64
}

// NewRotatingFile 创建 sink；文件在首次写入时才创建。maxBytes<=0 取 10 MiB。
func NewRotatingFile(fsys afero.Fs, dir string, maxBytes int64, keep int) *RotatingFile {
	if maxBytes <= 0 {
		maxBytes = 10 * 1024 * 1024
	}
	return &RotatingFile{fs: fsys, dir: dir, maxBytes: maxBytes, keep: keep, now: time.Now}
}

// Write 实现 io.Writer；一次调用为一条完整日志行，不会跨文件拆分。
func (w *RotatingFile) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		if err := w.open(); err != nil {
			return 0, err
		}
	}
	if w.size > 0 && w.size+int64(len(p)) > w.maxBytes {
		if err := w.rotate(); err != nil {
			return 0, err
		}
	}
	n, err := w.f.Write(p)
	w.size += int64(n)
	return n, err
}

func (w *RotatingFile) open() error {
	if err := w.fs.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	f, err := w.fs.OpenFile(filepath.Join(w.dir, currentLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	w.f = f
	w.size = 0
	if st, err := f.Stat(); err == nil {
		w.size = st.Size()
	}
	return nil
}

func (w *RotatingFile) rotate() error {
	_ = w.f.Close()
	w.f = nil
	// 纳秒精度，避免同秒归档互相覆盖
	ts := w.now().UTC().Format("20060102-150405.000000000")
	archived := filepath.Join(w.dir, fmt.Sprintf("%s%s.log", logPrefix, ts))
	if err := w.fs.Rename(filepath.Join(w.dir, currentLogName), archived); err != nil {
		return fmt.Errorf("rename rotated file: %w", err)
	}
	w.prune()
	return w.open()
}

// prune 删除超出保留数的最旧归档（时间戳字典序即时间序）。
func (w *RotatingFile) prune() {
	if w.keep <= 0 {
		return
	}
	archives, err := w.Archives()
	if err != nil || len(archives) <= w.keep {
		return
	}
	for _, name := range archives[:len(archives)-w.keep] {
		_ = w.fs.Remove(filepath.Join(w.dir, name))
	}
}

// Archives 返回已归档文件名（由旧到新）。
func (w *RotatingFile) Archives() ([]string, error) {
	ents, err := afero.ReadDir(w.fs, w.dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range ents {
		n := e.Name()
		if n == currentLogName || !strings.HasPrefix(n, logPrefix) || !strings.HasSuffix(n, ".log") {
			continue
		}
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

// Close 关闭当前文件；重复调用安全。
func (w *RotatingFile) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.f == nil {
		return nil
	}
	err := w.f.Close()
	w.f = nil
	return err
}
