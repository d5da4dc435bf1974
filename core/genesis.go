package core

import "context"

// 演示用创世交易，cmd/node 未指定 -tx 时使用
var defaultGenesisRecords = []string{
	"Transaction 1",
	"Transaction 2",
	"Transaction 3",
}

// DefaultGenesisRecords 返回演示交易的副本
func DefaultGenesisRecords() [][]byte {
	out := make([][]byte, len(defaultGenesisRecords))
	for i, r := range defaultGenesisRecords {
		out[i] = []byte(r)
	}
	return out
}

// NewGenesisBlock 构造并封装创世块，前块哈希为全零
func NewGenesisBlock(txs [][]byte, difficulty uint32, opts ...Option) (*Block, error) {
	return Mine(context.Background(), txs, nil, difficulty, opts...)
}
