package core

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Observer 接收工作量证明搜索的结果，metrics 包提供 prometheus 实现
type Observer interface {
	BlockSealed(attempts uint64, elapsed time.Duration)
	SearchFailed(attempts uint64, elapsed time.Duration, err error)
}

type nopObserver struct{}

func (nopObserver) BlockSealed(uint64, time.Duration)         {}
func (nopObserver) SearchFailed(uint64, time.Duration, error) {}

// Option 调整区块构造行为
type Option func(*options)

type options struct {
	source      NonceSource
	clock       func() time.Time
	newID       func() (uuid.UUID, error)
	maxAttempts uint64
	workers     int
	observer    Observer
	logger      *slog.Logger
}

func newOptions(opts []Option) *options {
	o := &options{
		clock:    time.Now,
		newID:    uuid.NewRandom,
		workers:  1,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithNonceSource 注入 nonce 源（仅限单 worker）
func WithNonceSource(src NonceSource) Option {
	return func(o *options) { o.source = src }
}

// WithClock 注入时间源
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithIDGenerator 注入区块标识生成器
func WithIDGenerator(gen func() (uuid.UUID, error)) Option {
	return func(o *options) { o.newID = gen }
}

// WithMaxAttempts 限制哈希尝试次数，0 表示不限
func WithMaxAttempts(n uint64) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithWorkers 并行搜索的 worker 数
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
