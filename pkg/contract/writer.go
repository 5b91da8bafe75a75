package contract

import "context"

// UnitWriter: 将一个输出单元（表头 + 数据行）持久化。
// 约束：
//  1. 同名单元单写者，写出后不再修改；
//  2. 表头按原样写在首行；
//  3. ctx 取消需尽快返回；
//  4. 错误直接上抛（不做重试/回退）。
type UnitWriter interface {
	WriteUnit(ctx context.Context, name string, header Record, records []Record) error
}
