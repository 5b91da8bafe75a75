package chunker

import (
	"unicode/utf8"

	"csvsplit/pkg/contract"
)

// EstimateSize 估算记录序列化后的字节数：各字段字符数之和 + 分隔符数（字段数-1）。
// 忽略引号/转义开销；零字段记录为 0。
func EstimateSize(r contract.Record) int64 {
	if len(r) == 0 {
		return 0
	}
	var n int64
	for _, f := range r {
		n += int64(utf8.RuneCountInString(f))
	}
	return n + int64(len(r)-1)
}
