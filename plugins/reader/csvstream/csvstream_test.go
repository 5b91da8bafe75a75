package csvstream

import (
	"io"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvsplit/pkg/contract"
)

var csvDialect = contract.Dialect{Name: "csv", Ext: ".csv", Comma: ','}

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
}

// TestStreamSequence 逐条产出，耗尽后保持 EOF。
func TestStreamSequence(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "in.csv", "a,b\n1,2\n\"x,y\",3\n")
	s, err := New(fsys, csvDialect, nil).Open("in.csv")
	require.NoError(t, err)
	defer s.Close()

	var got []contract.Record
	for {
		rec, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, rec)
	}
	assert.Equal(t, []contract.Record{{"a", "b"}, {"1", "2"}, {"x,y", "3"}}, got)
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}

// TestStreamRaggedRows 不强制字段数一致。
func TestStreamRaggedRows(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "in.csv", "a,b,c\n1\n1,2,3,4\n")
	s, err := New(fsys, csvDialect, &Options{BufSize: 16}).Open("in.csv")
	require.NoError(t, err)
	defer s.Close()
	n := 0
	for {
		_, err := s.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 3, n)
}

// TestStreamMalformed 结构性错误归类为 MalformedContent，且后续调用返回同一错误。
func TestStreamMalformed(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "bad.csv", "a,b\n\"unterminated,1\n")
	s, err := New(fsys, csvDialect, nil).Open("bad.csv")
	require.NoError(t, err)
	defer s.Close()
	_, err = s.Next()
	require.NoError(t, err)
	_, err = s.Next()
	require.ErrorIs(t, err, contract.ErrMalformedContent)
	_, again := s.Next()
	assert.Equal(t, err, again)
}

// TestStreamLazyQuotes 启用 LazyQuotes 后容忍裸引号。
func TestStreamLazyQuotes(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "q.csv", "a,b\nx\"y,2\n")
	strict, err := New(fsys, csvDialect, nil).Open("q.csv")
	require.NoError(t, err)
	defer strict.Close()
	_, _ = strict.Next()
	_, err = strict.Next()
	require.ErrorIs(t, err, contract.ErrMalformedContent)

	lazy, err := New(fsys, csvDialect, &Options{LazyQuotes: true}).Open("q.csv")
	require.NoError(t, err)
	defer lazy.Close()
	_, _ = lazy.Next()
	rec, err := lazy.Next()
	require.NoError(t, err)
	assert.Equal(t, contract.Record{"x\"y", "2"}, rec)
}

// TestStreamTSV 制表符方言。
func TestStreamTSV(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "in.tsv", "a\tb\n1,5\t2\n")
	s, err := New(fsys, contract.Dialect{Name: "tsv", Ext: ".tsv", Comma: '\t'}, nil).Open("in.tsv")
	require.NoError(t, err)
	defer s.Close()
	_, _ = s.Next()
	rec, err := s.Next()
	require.NoError(t, err)
	assert.Equal(t, contract.Record{"1,5", "2"}, rec)
}

// TestOpenMissing 打开不存在文件返回底层错误；Close 幂等。
func TestOpenMissing(t *testing.T) {
	_, err := New(afero.NewMemMapFs(), contract.Dialect{}, nil).Open("nope.csv")
	require.Error(t, err)

	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "in.csv", "a\n")
	s, err := New(fsys, csvDialect, nil).Open("in.csv")
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	_, err = s.Next()
	assert.Equal(t, io.EOF, err)
}
