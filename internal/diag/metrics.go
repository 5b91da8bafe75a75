package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 指标（私有注册表，运行结束后可导出为 textfile）：
// - csvsplit_op_total{comp,stage,result}
// - csvsplit_error_total{comp,code}
// - csvsplit_op_duration_ms{comp,stage}
// - csvsplit_units_written_total
// - csvsplit_records_total{source}
var (
	Registry = prometheus.NewRegistry()

	opTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csvsplit",
		Name:      "op_total",
		Help:      "Stage operations by component and result.",
	}, []string{"comp", "stage", "result"})

	errorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csvsplit",
		Name:      "error_total",
		Help:      "Errors by component and classification code.",
	}, []string{"comp", "code"})

	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "csvsplit",
		Name:      "op_duration_ms",
		Help:      "Stage duration in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"comp", "stage"})

	unitsWritten = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "csvsplit",
		Name:      "units_written_total",
		Help:      "Output units flushed to disk.",
	})

	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "csvsplit",
		Name:      "records_total",
		Help:      "Data records seen, by source (input|chunks).",
	}, []string{"source"})
)

func init() {
	Registry.MustRegister(opTotal, errorTotal, opDuration, unitsWritten, recordsTotal)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// IncUnits 记录一个已写出的输出单元。
func IncUnits() { unitsWritten.Inc() }

// AddRecords 累加数据行计数。
func AddRecords(source string, n int64) {
	if n <= 0 {
		return
	}
	recordsTotal.WithLabelValues(source).Add(float64(n))
}

// WriteMetrics 以 Prometheus 文本格式写出全部指标（原子替换）。
func WriteMetrics(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}
