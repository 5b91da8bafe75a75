package registry

import (
	"fmt"
	"sort"
	"strings"

	"csvsplit/pkg/contract"
)

// DefaultDialect 为未显式选择时使用的方言名。
const DefaultDialect = "csv"

// Dialects 方言注册表（显式、零反射）。
var Dialects = map[string]contract.Dialect{
	// csv: 逗号分隔
	"csv": {Name: "csv", Ext: ".csv", Comma: ','},
	// tsv: 制表符分隔
	"tsv": {Name: "tsv", Ext: ".tsv", Comma: '\t'},
}

// Dialect 按名称查找方言；空名使用默认方言。
func Dialect(name string) (contract.Dialect, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		n = DefaultDialect
	}
	d, ok := Dialects[n]
	if !ok {
		return contract.Dialect{}, fmt.Errorf("registry: dialect %q not registered (known: %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// ByExtension 按文件扩展名反查方言（大小写不敏感）。
func ByExtension(path string) (contract.Dialect, bool) {
	for _, n := range Names() {
		d := Dialects[n]
		if contract.HasExt(path, d.Ext) {
			return d, true
		}
	}
	return contract.Dialect{}, false
}

// Names 返回已注册方言名（字典序）。
func Names() []string {
	out := make([]string, 0, len(Dialects))
	for n := range Dialects {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
