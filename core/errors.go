package core

import "github.com/pkg/errors"

var (
	// ErrNoRecords Merkle 树 / 区块不接受空记录列表
	ErrNoRecords = errors.New("at least one record is required")

	// ErrDifficultyTooHigh 难度超过摘要字节数，搜索永远不会结束
	ErrDifficultyTooHigh = errors.New("difficulty exceeds digest length")

	// ErrClockBeforeEpoch 时钟早于 Unix 纪元，无法编码时间戳
	ErrClockBeforeEpoch = errors.New("clock is before unix epoch")

	ErrNilPrevious = errors.New("previous block is nil")

	// ErrAttemptsExhausted 达到尝试上限仍未找到合格 nonce
	ErrAttemptsExhausted = errors.New("proof-of-work attempts exhausted")

	// ErrNonceSourceExhausted 固定序列的 nonce 已用完
	ErrNonceSourceExhausted = errors.New("nonce source exhausted")

	// ErrSharedNonceSource 多 worker 不能共享同一个自定义 nonce 源
	ErrSharedNonceSource = errors.New("custom nonce source requires a single worker")

	ErrInvalidWorkers = errors.New("workers must be at least 1")
)

// 校验与链接相关
var (
	ErrHashMismatch     = errors.New("stored hash does not match block contents")
	ErrDifficultyNotMet = errors.New("hash does not meet difficulty")
	ErrBrokenLink       = errors.New("previous hash does not match chain tip")
	ErrNotGenesis       = errors.New("chain must start with a genesis block")
)
