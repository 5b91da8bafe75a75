package contract

// RecordStream: 有限、单次、不可重启的记录序列。
// 约束：
// 1) Next 每次产出一条 Record；序列耗尽时返回 io.EOF；
// 2) 源只读取一次，耗尽后不可重置；
// 3) 调用方负责 Close（含错误路径）。
type RecordStream interface {
	Next() (Record, error)
	Close() error
}

// StreamOpener: 打开路径为 RecordStream（每次调用均为独立的一次性读取）。
type StreamOpener interface {
	Open(path string) (RecordStream, error)
}
