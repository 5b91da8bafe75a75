package filesystem

import (
	"bufio"
	"cmp"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"csvsplit/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// OutputDir: 输出目录（必需）。
	OutputDir string `koanf:"-" json:"-"`
	// Atomic: 是否使用原子替换（同目录临时文件 + rename）。
	// 默认值：true。未提供该字段时采用原子写；显式 false 可关闭。
	Atomic *bool `koanf:"atomic" json:"atomic,omitempty"`
	// CRLF: 行尾使用 \r\n（默认 \n）。
	CRLF bool `koanf:"crlf" json:"crlf"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现默认。
	PermFile os.FileMode `koanf:"perm_file" json:"perm_file,omitempty"`
	PermDir  os.FileMode `koanf:"perm_dir" json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `koanf:"buf_size" json:"buf_size,omitempty"`
}

// FS 将输出单元写为分隔文本文件。
type FS struct {
	fs      afero.Fs
	root    string
	atomic  bool
	crlf    bool
	comma   rune
	permF   os.FileMode
	permD   os.FileMode
	bufSize int
}

// New 创建写出器；OutputDir 为空返回 os.ErrInvalid。
func New(fsys afero.Fs, d contract.Dialect, opts *Options) (*FS, error) {
	if fsys == nil || opts == nil || strings.TrimSpace(opts.OutputDir) == "" {
		return nil, os.ErrInvalid
	}
	w := &FS{
		fs:      fsys,
		root:    opts.OutputDir,
		atomic:  opts.Atomic == nil || *opts.Atomic,
		crlf:    opts.CRLF,
		comma:   cmp.Or(d.Comma, ','),
		permF:   cmp.Or(opts.PermFile, 0o644),
		permD:   cmp.Or(opts.PermDir, 0o755),
		bufSize: opts.BufSize,
	}
	if w.bufSize <= 0 {
		w.bufSize = 64 * 1024
	}
	return w, nil
}

var _ contract.UnitWriter = (*FS)(nil)

// EnsureRoot 递归创建输出目录；目录已存在时为 no-op。
func (w *FS) EnsureRoot() error {
	return w.fs.MkdirAll(w.root, w.permD)
}

// WriteUnit 写出 header + records 到 <root>/<name>。
func (w *FS) WriteUnit(ctx context.Context, name string, header contract.Record, records []contract.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	dest, err := w.mapPath(name)
	if err != nil {
		return err
	}
	if err := w.EnsureRoot(); err != nil {
		return err
	}
	if w.atomic {
		return w.writeAtomic(ctx, dest, header, records)
	}
	return w.writeOverwrite(ctx, dest, header, records)
}

// mapPath: 仅保留文件名（扁平输出），拒绝空名与父级逃逸。
func (w *FS) mapPath(name string) (string, error) {
	rel := filepath.Clean(name)
	if rel != filepath.Base(rel) {
		return "", contract.ErrPathInvalid
	}
	if rel == "." || rel == ".." || rel == "" {
		return "", contract.ErrPathInvalid
	}
	return filepath.Join(w.root, rel), nil
}

func (w *FS) writeOverwrite(ctx context.Context, dest string, header contract.Record, records []contract.Record) error {
	f, err := w.fs.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, w.permF)
	if err != nil {
		return err
	}
	// 确保及时关闭
	defer f.Close()
	return w.encode(ctx, f, header, records)
}

func (w *FS) writeAtomic(ctx context.Context, dest string, header contract.Record, records []contract.Record) error {
	dir := filepath.Dir(dest)
	tmp, err := afero.TempFile(w.fs, dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	// 目标权限：尽量与期望一致
	_ = w.fs.Chmod(tmpPath, w.permF)

	if err := w.encode(ctx, tmp, header, records); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = w.fs.Remove(tmpPath)
		return err
	}
	if err := w.fs.Rename(tmpPath, dest); err != nil {
		_ = w.fs.Remove(tmpPath)
		return err
	}
	// 最佳努力：同步父目录元数据
	_ = w.syncDir(dir)
	return nil
}

// encode 以方言分隔符编码表头与数据行；每行前检查 ctx。
func (w *FS) encode(ctx context.Context, f afero.File, header contract.Record, records []contract.Record) error {
	bw := bufio.NewWriterSize(f, w.bufSize)
	cw := csv.NewWriter(bw)
	cw.Comma = w.comma
	cw.UseCRLF = w.crlf
	if err := w.writeRecord(bw, cw, header); err != nil {
		return err
	}
	for _, rec := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := w.writeRecord(bw, cw, rec); err != nil {
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

// writeRecord: 仅含一个空字段的记录会被 csv.Writer 写成空行（读取时被跳过），
// 此处显式写出 "" 以保持记录数守恒。
func (w *FS) writeRecord(bw *bufio.Writer, cw *csv.Writer, rec contract.Record) error {
	if len(rec) != 1 || rec[0] != "" {
		return cw.Write(rec)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	eol := "\n"
	if w.crlf {
		eol = "\r\n"
	}
	_, err := bw.WriteString(`""` + eol)
	return err
}

func (w *FS) syncDir(dir string) error {
	d, err := w.fs.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
