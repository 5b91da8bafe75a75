// Package verify 重新读取输入与全部输出单元，核对数据行数是否守恒。
package verify

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"sort"

	"github.com/spf13/afero"

	"csvsplit/pkg/contract"
)

// Verifier 只读核对：输入数据行数 == 输出目录内全部同扩展名文件的数据行数之和。
type Verifier struct {
	fs      afero.Fs
	dialect contract.Dialect
	opener  contract.StreamOpener
}

// New 创建 Verifier。
func New(fsys afero.Fs, d contract.Dialect, opener contract.StreamOpener) *Verifier {
	return &Verifier{fs: fsys, dialect: d, opener: opener}
}

// Verify 返回计数报告；计数不一致不是错误（Matched=false）。
// 输出目录中不带方言扩展名的条目与子目录被忽略。
func (v *Verifier) Verify(ctx context.Context, inputPath, outputDir string) (contract.Report, error) {
	var rep contract.Report
	orig, err := v.countData(ctx, inputPath)
	if err != nil {
		return rep, err
	}
	rep.OriginalCount = orig

	ents, err := afero.ReadDir(v.fs, outputDir)
	if err != nil {
		return rep, contract.NewError(contract.KindIOFailure, outputDir, err)
	}
	var names []string
	for _, e := range ents {
		if !e.Mode().IsRegular() || !contract.HasExt(e.Name(), v.dialect.Ext) {
			continue
		}
		names = append(names, e.Name())
	}
	sortUnits(names)
	for _, name := range names {
		n, err := v.countData(ctx, filepath.Join(outputDir, name))
		if err != nil {
			return rep, err
		}
		rep.Units = append(rep.Units, contract.UnitCount{Name: name, Records: n})
		rep.ChunkedCount += n
	}
	rep.Matched = rep.OriginalCount == rep.ChunkedCount
	return rep, nil
}

// countData 统计数据行（不含表头）；无任何记录的文件计为 0。
func (v *Verifier) countData(ctx context.Context, path string) (int64, error) {
	s, err := v.opener.Open(path)
	if err != nil {
		return 0, contract.NewError(contract.KindIOFailure, path, err)
	}
	defer s.Close()
	var n int64 = -1 // 首条为表头
	for {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		_, err := s.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, err
		}
		n++
	}
	if n < 0 {
		return 0, nil
	}
	return n, nil
}

// sortUnits 按单元序号自然排序；不符合命名规则的文件按名称排在其后。
func sortUnits(names []string) {
	sort.SliceStable(names, func(i, j int) bool {
		a, aok := contract.UnitIndex(names[i])
		b, bok := contract.UnitIndex(names[j])
		switch {
		case aok && bok:
			if a != b {
				return a < b
			}
			return names[i] < names[j]
		case aok != bok:
			return aok
		default:
			return names[i] < names[j]
		}
	})
}
