// Package validate 在切分前确认输入为可读、非空、格式正确的表格文件。
package validate

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"csvsplit/pkg/contract"
)

// sniffLimit 为内容嗅探读取的最大字节数。
const sniffLimit = 3072

// Validator 按顺序检查：存在且为文件 → 非空 → 扩展名 → 非二进制且表头可解析。
// 首个违例即返回；只读，无副作用。
type Validator struct {
	fs      afero.Fs
	dialect contract.Dialect
	opener  contract.StreamOpener
}

// New 创建 Validator；opener 用于读取表头记录。
func New(fsys afero.Fs, d contract.Dialect, opener contract.StreamOpener) *Validator {
	return &Validator{fs: fsys, dialect: d, opener: opener}
}

// Validate 返回 nil 或 *contract.Error（NotFound/Empty/WrongExtension/MalformedContent/IOFailure）。
func (v *Validator) Validate(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	st, err := v.fs.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return contract.NewError(contract.KindNotFound, path, nil)
		}
		return contract.NewError(contract.KindIOFailure, path, err)
	}
	if !st.Mode().IsRegular() {
		return contract.NewError(contract.KindNotFound, path, errors.New("not a regular file"))
	}
	if st.Size() == 0 {
		return contract.NewError(contract.KindEmpty, path, nil)
	}
	if !contract.HasExt(path, v.dialect.Ext) {
		return contract.NewError(contract.KindWrongExtension, path, nil)
	}
	if err := v.sniff(path); err != nil {
		return err
	}
	return v.header(path)
}

// sniff 仅凭二进制证据拒绝：头部含 NUL 字节，或 mimetype 无法识别为任何已知类型。
// 文本表头恰好以魔数开头（如 "BMI,"、"GIF87a,"）时 mimetype 会给出二进制类型，不据此拒绝。
func (v *Validator) sniff(path string) error {
	f, err := v.fs.Open(path)
	if err != nil {
		return contract.NewError(contract.KindIOFailure, path, err)
	}
	defer f.Close()
	head := make([]byte, sniffLimit)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return contract.NewError(contract.KindIOFailure, path, err)
	}
	head = head[:n]
	mt := mimetype.Detect(head)
	if bytes.IndexByte(head, 0) >= 0 || mt.Is("application/octet-stream") {
		return contract.NewError(contract.KindMalformedContent, path, errors.New("binary content detected: "+mt.String()))
	}
	return nil
}

// header 读取首条记录；无记录或结构性错误均视为 MalformedContent。
func (v *Validator) header(path string) error {
	s, err := v.opener.Open(path)
	if err != nil {
		return contract.NewError(contract.KindIOFailure, path, err)
	}
	defer s.Close()
	if _, err := s.Next(); err != nil {
		if errors.Is(err, io.EOF) {
			return contract.NewError(contract.KindMalformedContent, path, errors.New("no header record"))
		}
		if contract.KindOf(err) != "" {
			return err
		}
		return contract.NewError(contract.KindMalformedContent, path, err)
	}
	return nil
}
