package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"csvsplit/internal/chunker"
	"csvsplit/internal/diag"
	"csvsplit/pkg/contract"
)

// - 单线程顺序执行：Validate → Chunk → Verify，各阶段同步。
// - 首错终止：任一阶段失败立即返回，已写出的单元保留。
// - 校验失败时不产生任何输出。
// - 计数不一致不是错误：经 Outcome.Report 返回并记录 warn。

// Validator 对输入做只读的前置检查。
type Validator interface {
	Validate(ctx context.Context, path string) error
}

// Chunker 将输入切分为输出单元。
type Chunker interface {
	Chunk(ctx context.Context, inputPath, outputDir string, thresholdBytes int64) (chunker.Result, error)
}

// Verifier 核对输入与输出单元的数据行数。
type Verifier interface {
	Verify(ctx context.Context, inputPath, outputDir string) (contract.Report, error)
}

// Components 聚合运行所需的原子组件。
type Components struct {
	Validator Validator
	Chunker   Chunker
	Verifier  Verifier
}

// Settings 运行期配置（最小必要）。
type Settings struct {
	Input     string
	OutputDir string
	// Threshold: 单元估算大小上限（字节，>0）
	Threshold int64
}

// Outcome 为一次运行的结果。
type Outcome struct {
	Chunk  chunker.Result
	Report contract.Report
}

// Run 执行完整流水线。
func Run(ctx context.Context, comp Components, set Settings, logger *diag.Logger) (Outcome, error) {
	var out Outcome
	if err := sanity(comp, set); err != nil {
		return out, fmt.Errorf("sanity: %w", err)
	}
	runStart := time.Now()
	if t := diag.GetTerminal(); t != nil {
		t.RunStart(set.Input, set.Threshold)
	}
	ok := false
	defer func() {
		if t := diag.GetTerminal(); t != nil {
			t.RunFinish(ok, time.Since(runStart))
		}
	}()

	// 校验
	vt := logger.StartWith("validator", "validate", set.Input, "")
	if err := comp.Validator.Validate(ctx, set.Input); err != nil {
		fail(logger, "validator", "validate", err, set.Input)
		return out, fmt.Errorf("validator validate: %w", err)
	}
	vt.Finish("validate", 0)
	finish("validator", "validate", vt.Since())

	// 切分
	ct := logger.StartWith("chunker", "chunk", set.Input, "")
	res, err := comp.Chunker.Chunk(ctx, set.Input, set.OutputDir, set.Threshold)
	out.Chunk = res
	if err != nil {
		fail(logger, "chunker", "chunk", err, set.Input)
		return out, fmt.Errorf("chunker chunk: %w", err)
	}
	ct.Finish("chunk", int64(res.Units))
	finish("chunker", "chunk", ct.Since())

	// 核对
	rt := logger.StartWith("verifier", "verify", set.Input, "")
	rep, err := comp.Verifier.Verify(ctx, set.Input, set.OutputDir)
	out.Report = rep
	if err != nil {
		fail(logger, "verifier", "verify", err, set.Input)
		return out, fmt.Errorf("verifier verify: %w", err)
	}
	rt.Finish("verify", rep.ChunkedCount)
	finish("verifier", "verify", rt.Since())
	diag.AddRecords("input", rep.OriginalCount)
	diag.AddRecords("chunks", rep.ChunkedCount)
	if !rep.Matched {
		logger.WarnWithKV("verifier", "record count mismatch", set.Input, map[string]string{
			"original": strconv.FormatInt(rep.OriginalCount, 10),
			"chunked":  strconv.FormatInt(rep.ChunkedCount, 10),
		})
	}
	ok = rep.Matched
	return out, nil
}

func sanity(comp Components, set Settings) error {
	if comp.Validator == nil || comp.Chunker == nil || comp.Verifier == nil {
		return errors.New("missing component")
	}
	if set.Input == "" {
		return errors.New("input is required")
	}
	if set.OutputDir == "" {
		return errors.New("output dir is required")
	}
	return nil
}

func finish(comp, stage string, d time.Duration) {
	diag.IncOp(comp, stage, "success")
	diag.ObserveDuration(comp, stage, d.Milliseconds())
}

func fail(logger *diag.Logger, comp, stage string, err error, file string) {
	code := diag.Classify(err)
	logger.ErrorWith(comp, string(code), stage+" failed: "+err.Error(), nil, file, "")
	diag.IncOp(comp, stage, "error")
	if code != diag.CodeUnknown {
		diag.IncError(comp, string(code))
	}
}
