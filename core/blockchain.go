package core

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// Chain 维护区块的链式结构（内存切片，只追加）
type Chain struct {
	mu         sync.RWMutex
	blocks     []*Block
	difficulty uint32
}

// NewChain 创建仅包含创世区块的链，后续区块沿用创世难度
func NewChain(genesis *Block) (*Chain, error) {
	if genesis == nil {
		return nil, ErrNilPrevious
	}
	if !genesis.IsGenesis() {
		return nil, ErrNotGenesis
	}
	return &Chain{
		blocks:     []*Block{genesis},
		difficulty: genesis.Difficulty(),
	}, nil
}

// Tip 返回最新区块
func (c *Chain) Tip() *Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.blocks[len(c.blocks)-1]
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

func (c *Chain) Difficulty() uint32 {
	return c.difficulty
}

// Append 将新区块附加到链尾；前块哈希必须等于当前 tip 的哈希
func (c *Chain) Append(block *Block) error {
	if block == nil {
		return errors.New("block is nil")
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tip := c.blocks[len(c.blocks)-1]
	if block.PrevHash() != tip.Hash() {
		return errors.Wrapf(ErrBrokenLink, "block %s links to %s, tip is %s", block.Index(), block.PrevHash(), tip.Hash())
	}
	c.blocks = append(c.blocks, block)
	return nil
}

// MineNext 以当前 tip 为前块挖一个区块并追加。
// 挖矿不持锁；若期间 tip 已变化，Append 返回 ErrBrokenLink。
func (c *Chain) MineNext(ctx context.Context, txs [][]byte, opts ...Option) (*Block, error) {
	block, err := Mine(ctx, txs, c.Tip(), c.difficulty, opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Append(block); err != nil {
		return nil, err
	}
	return block, nil
}

// Blocks 返回当前的区块列表副本
func (c *Chain) Blocks() []*Block {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*Block, len(c.blocks))
	copy(out, c.blocks)
	return out
}
