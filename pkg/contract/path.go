package contract

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// BaseName 返回去除目录与最后一个扩展名后的文件名。
// 前导点不视为扩展名分隔符：".csv" 的主干仍为 ".csv"。
func BaseName(p string) string {
	base := filepath.Base(p)
	ext := filepath.Ext(strings.TrimLeft(base, "."))
	return strings.TrimSuffix(base, ext)
}

// UnitName 生成输出单元文件名：<base>_chunk_<index><ext>。
func UnitName(base string, index int, ext string) string {
	return fmt.Sprintf("%s_chunk_%d%s", base, index, ext)
}

// UnitIndex 从单元文件名中解析序号；不符合命名规则时 ok=false。
func UnitIndex(name string) (idx int, ok bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	i := strings.LastIndex(stem, "_chunk_")
	if i < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(stem[i+len("_chunk_"):])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// DefaultOutputDir 推导默认输出目录：<base>_chunks（相对当前工作目录）。
func DefaultOutputDir(input string) string {
	return BaseName(input) + "_chunks"
}

// HasExt 大小写不敏感地判断扩展名。
func HasExt(p, ext string) bool {
	return strings.EqualFold(filepath.Ext(p), ext)
}
