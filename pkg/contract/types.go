package contract

// Record: 一行表格记录（表头或数据行），按解析顺序排列的字段值。
// 约束：
// - 字段数由解析结果决定，不要求各行一致；
// - 表头同样是 Record，由 Chunker 在一次运行内持有并复制到每个输出单元。
type Record []string

// Clone 返回独立副本（表头复制而非移动）。
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	copy(out, r)
	return out
}

// Equal 逐字段比较。
func (r Record) Equal(o Record) bool {
	if len(r) != len(o) {
		return false
	}
	for i := range r {
		if r[i] != o[i] {
			return false
		}
	}
	return true
}

// Dialect: 表格方言（扩展名 + 字段分隔符）。
type Dialect struct {
	Name  string
	Ext   string // 含前导 "."，小写
	Comma rune
}

// UnitCount: 单个输出单元的数据行计数（不含表头）。
type UnitCount struct {
	Name    string
	Records int64
}

// Report: 校验结果。
// Matched 仅表示计数是否一致；不一致不是错误，由调用方醒目呈现。
type Report struct {
	OriginalCount int64
	ChunkedCount  int64
	Matched       bool
	Units         []UnitCount
}
