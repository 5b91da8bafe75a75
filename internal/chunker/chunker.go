// Package chunker 将表格输入按估算大小切分为若干输出单元，每个单元均以表头开头。
package chunker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/spf13/afero"

	"csvsplit/internal/diag"
	"csvsplit/pkg/contract"
	wfs "csvsplit/plugins/writer/filesystem"
)

// Options 为 Chunker 的可选配置。
type Options struct {
	// Writer: 输出单元写出选项（OutputDir 由每次调用提供）。
	Writer wfs.Options
	// Logger: 可为 nil。
	Logger *diag.Logger
}

// Result 为一次切分的结果。
type Result struct {
	// Units: 写出的输出单元数。
	Units int
	// Names: 按写出顺序的单元文件名。
	Names []string
	// Records: 数据行总数（不含表头）。
	Records int64
}

// Chunker 单次线性扫描：累积记录并增量估算大小，超过阈值前冲刷为新单元。
type Chunker struct {
	fs      afero.Fs
	dialect contract.Dialect
	opener  contract.StreamOpener
	wopts   wfs.Options
	logger  *diag.Logger
}

// New 创建 Chunker。
func New(fsys afero.Fs, d contract.Dialect, opener contract.StreamOpener, opts *Options) *Chunker {
	c := &Chunker{fs: fsys, dialect: d, opener: opener}
	if opts != nil {
		c.wopts = opts.Writer
		c.logger = opts.Logger
	}
	return c
}

// buffer 为待冲刷的数据行与累计估算。
type buffer struct {
	records []contract.Record
	size    int64
}

func (b *buffer) reset() {
	b.records = nil
	b.size = 0
}

// Chunk 读取 inputPath 一次，将数据行写入 outputDir 下的 <base>_chunk_<i><ext>。
// 阈值 <= 0 返回 InvalidThreshold（无副作用）；输入无任何记录返回 EmptyContent。
// 失败时已写出的单元保留在磁盘上。
func (c *Chunker) Chunk(ctx context.Context, inputPath, outputDir string, thresholdBytes int64) (Result, error) {
	var res Result
	if thresholdBytes <= 0 {
		return res, contract.NewError(contract.KindInvalidThreshold, "", fmt.Errorf("got %d", thresholdBytes))
	}
	wopts := c.wopts
	wopts.OutputDir = outputDir
	w, err := wfs.New(c.fs, c.dialect, &wopts)
	if err != nil {
		return res, contract.NewError(contract.KindIOFailure, outputDir, err)
	}
	if err := w.EnsureRoot(); err != nil {
		return res, contract.NewError(contract.KindIOFailure, outputDir, err)
	}

	s, err := c.opener.Open(inputPath)
	if err != nil {
		return res, contract.NewError(contract.KindIOFailure, inputPath, err)
	}
	defer s.Close()

	header, err := s.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return res, contract.NewError(contract.KindEmptyContent, inputPath, nil)
		}
		return res, err
	}
	header = header.Clone()
	base := contract.BaseName(inputPath)

	flush := func(buf *buffer) error {
		name := contract.UnitName(base, res.Units, c.dialect.Ext)
		t0 := time.Now()
		if err := w.WriteUnit(ctx, name, header, buf.records); err != nil {
			if ctx.Err() != nil {
				return err
			}
			return contract.NewError(contract.KindIOFailure, name, err)
		}
		c.logger.DebugFinish("chunker", "unit written", inputPath, name, time.Since(t0), int64(len(buf.records)), map[string]string{
			"estimate": strconv.FormatInt(buf.size, 10),
		})
		diag.IncUnits()
		diag.ObserveDuration("writer", "write", time.Since(t0).Milliseconds())
		if t := diag.GetTerminal(); t != nil {
			t.UnitWritten(name, len(buf.records), buf.size)
		}
		res.Units++
		res.Names = append(res.Names, name)
		buf.reset()
		return nil
	}

	var buf buffer
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		rec, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, err
		}
		size := EstimateSize(rec)
		// 仅阻止向非空缓冲追加；单条超限记录独占一个单元
		if buf.size+size > thresholdBytes && len(buf.records) > 0 {
			if err := flush(&buf); err != nil {
				return res, err
			}
		}
		buf.records = append(buf.records, rec)
		buf.size += size
		res.Records++
	}
	if len(buf.records) > 0 {
		if err := flush(&buf); err != nil {
			return res, err
		}
	}
	return res, nil
}
