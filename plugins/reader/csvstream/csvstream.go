package csvstream

import (
	"bufio"
	"encoding/csv"
	"errors"
	"io"

	"github.com/spf13/afero"

	"csvsplit/pkg/contract"
)

// Options 为记录流的可选配置（最小必要）。
type Options struct {
	// BufSize 为读缓冲区大小（字节）。默认 64KiB。
	BufSize int `koanf:"buf_size" json:"buf_size"`
	// LazyQuotes: 容忍非规范引号（透传给 encoding/csv）。
	LazyQuotes bool `koanf:"lazy_quotes" json:"lazy_quotes"`
}

// Opener 基于 afero.Fs 打开表格文件为惰性记录流。
type Opener struct {
	fs      afero.Fs
	comma   rune
	bufSize int
	lazy    bool
}

// New 创建 Opener。
func New(fsys afero.Fs, d contract.Dialect, opts *Options) *Opener {
	const defaultBuf = 64 * 1024
	b := defaultBuf
	lazy := false
	if opts != nil {
		if opts.BufSize > 0 {
			b = opts.BufSize
		}
		lazy = opts.LazyQuotes
	}
	comma := d.Comma
	if comma == 0 {
		comma = ','
	}
	return &Opener{fs: fsys, comma: comma, bufSize: b, lazy: lazy}
}

var _ contract.StreamOpener = (*Opener)(nil)

// Open 打开 path；底层错误原样返回，由调用方归类。
func (o *Opener) Open(path string) (contract.RecordStream, error) {
	f, err := o.fs.Open(path)
	if err != nil {
		return nil, err
	}
	r := csv.NewReader(bufio.NewReaderSize(f, o.bufSize))
	r.Comma = o.comma
	r.LazyQuotes = o.lazy
	// 不强制各行字段数一致
	r.FieldsPerRecord = -1
	return &Stream{path: path, f: f, r: r}, nil
}

// Stream 为单次、不可重启的记录序列。
// 耗尽或出错后，后续 Next 恒返回同一终止错误。
type Stream struct {
	path string
	f    afero.File
	r    *csv.Reader
	end  error
}

// Next 产出下一条记录；序列结束返回 io.EOF。
// 结构性解析错误归类为 MalformedContent，其余读取错误为 IOFailure。
func (s *Stream) Next() (contract.Record, error) {
	if s.end != nil {
		return nil, s.end
	}
	rec, err := s.r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			s.end = io.EOF
			return nil, io.EOF
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			s.end = contract.NewError(contract.KindMalformedContent, s.path, err)
		} else {
			s.end = contract.NewError(contract.KindIOFailure, s.path, err)
		}
		return nil, s.end
	}
	return contract.Record(rec), nil
}

// Close 关闭底层文件；重复调用安全。
func (s *Stream) Close() error {
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	if s.end == nil {
		s.end = io.EOF
	}
	return err
}
