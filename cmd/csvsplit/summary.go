package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"csvsplit/internal/pipeline"
)

// renderSummary 打印核对报告：逐单元行数、合计与结论行。
// 样式按 w 的终端能力渲染；非终端输出为纯文本。
func renderSummary(w io.Writer, outDir string, out pipeline.Outcome) {
	r := lipgloss.NewRenderer(w)
	title := r.NewStyle().Bold(true)
	dim := r.NewStyle().Foreground(lipgloss.Color("#888888"))
	okStyle := r.NewStyle().Foreground(lipgloss.Color("#2ECC71")).Bold(true)
	badStyle := r.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", title.Render(fmt.Sprintf("已写出 %d 个单元到 %s", out.Chunk.Units, outDir)))
	rep := out.Report
	for _, u := range rep.Units {
		fmt.Fprintf(&b, "  %s %d\n", dim.Render(u.Name+":"), u.Records)
	}
	fmt.Fprintf(&b, "原始数据行: %d\n", rep.OriginalCount)
	fmt.Fprintf(&b, "切分数据行: %d\n", rep.ChunkedCount)
	if rep.Matched {
		fmt.Fprintf(&b, "%s\n", okStyle.Render("核对通过：行数一致"))
	} else {
		fmt.Fprintf(&b, "%s\n", badStyle.Render(fmt.Sprintf("核对失败：行数不一致（原始 %d，切分 %d）", rep.OriginalCount, rep.ChunkedCount)))
	}
	_, _ = io.WriteString(w, b.String())
}
