// Package metrics exposes proof-of-work search statistics to prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yiqi-017/powseal/core"
)

const namespace = "powseal"

// 失败原因标签
const (
	ReasonExhausted = "exhausted"
	ReasonCanceled  = "canceled"
	ReasonOther     = "other"
)

// Collector 实现 core.Observer
type Collector struct {
	attempts prometheus.Counter
	sealed   prometheus.Counter
	failed   *prometheus.CounterVec
	duration prometheus.Histogram
}

var _ core.Observer = (*Collector)(nil)

// NewCollector 创建并注册指标；reg 为 nil 时使用默认注册表
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pow",
			Name:      "attempts_total",
			Help:      "Number of candidate nonces hashed.",
		}),
		sealed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_sealed_total",
			Help:      "Number of blocks whose hash met the difficulty target.",
		}),
		failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pow",
			Name:      "failures_total",
			Help:      "Number of searches that ended without a block.",
		}, []string{"reason"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "seal_duration_seconds",
			Help:      "Wall-clock time spent in proof-of-work searches that sealed a block.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}

	for _, col := range []prometheus.Collector{c.attempts, c.sealed, c.failed, c.duration} {
		if err := reg.Register(col); err != nil {
			return nil, errors.Wrap(err, "register pow metrics")
		}
	}
	return c, nil
}

func (c *Collector) BlockSealed(attempts uint64, elapsed time.Duration) {
	c.attempts.Add(float64(attempts))
	c.sealed.Inc()
	c.duration.Observe(elapsed.Seconds())
}

// SearchFailed 只计数；耗时直方图仅统计成功封装的区块
func (c *Collector) SearchFailed(attempts uint64, _ time.Duration, err error) {
	c.attempts.Add(float64(attempts))
	c.failed.WithLabelValues(failureReason(err)).Inc()
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, core.ErrAttemptsExhausted):
		return ReasonExhausted
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ReasonCanceled
	default:
		return ReasonOther
	}
}

// Handler 返回 g 的 /metrics 处理器
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
