package core

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/yiqi-017/powseal/crypto"
)

// Block 表示一个已封装的区块，构造完成后不可变
type Block struct {
	index        uuid.UUID     // 随机唯一标识，非顺序
	timestamp    time.Time     // 构造时刻，按毫秒参与哈希
	prevHash     crypto.Digest // 前一区块哈希，创世块为全零
	transactions [][]byte      // 交易原始字节（副本）
	merkleTree   *MerkleTree   // 交易列表的 Merkle 树
	nonce        Nonce         // POW 找到的 nonce
	hash         crypto.Digest // 满足难度的区块哈希
	difficulty   uint32        // 要求的前导零字节数
}

// NewBlock 构造并封装 prev 的后继区块
func NewBlock(txs [][]byte, prev *Block, difficulty uint32, opts ...Option) (*Block, error) {
	if prev == nil {
		return nil, ErrNilPrevious
	}
	return Mine(context.Background(), txs, prev, difficulty, opts...)
}

// Mine 组装区块字段并搜索满足难度的 nonce；prev 为 nil 时视作创世块。
// 只会返回完整封装的区块或错误。
func Mine(ctx context.Context, txs [][]byte, prev *Block, difficulty uint32, opts ...Option) (*Block, error) {
	o := newOptions(opts)
	if difficulty > crypto.DigestSize {
		return nil, errors.Wrapf(ErrDifficultyTooHigh, "difficulty %d > %d", difficulty, crypto.DigestSize)
	}
	if o.workers < 1 {
		return nil, errors.Wrapf(ErrInvalidWorkers, "got %d", o.workers)
	}
	if o.workers > 1 && o.source != nil {
		return nil, ErrSharedNonceSource
	}

	records := copyRecords(txs)
	tree, err := NewMerkleTree(records)
	if err != nil {
		return nil, errors.WithMessage(err, "build merkle tree")
	}

	index, err := o.newID()
	if err != nil {
		return nil, errors.Wrap(err, "generate block index")
	}
	timestamp := o.clock()

	var prevHash crypto.Digest
	if prev != nil {
		prevHash = prev.Hash()
	}

	prefix, err := serializeSealPrefix(index, timestamp, prevHash, records, tree.Root())
	if err != nil {
		return nil, err
	}

	start := time.Now()
	nonce, hash, attempts, err := newProofOfWork(prefix, difficulty).seal(ctx, o)
	elapsed := time.Since(start)
	if err != nil {
		o.observer.SearchFailed(attempts, elapsed, err)
		// 只记录消息文本，%+v 会带出 pkg/errors 堆栈
		o.logger.Debug("proof-of-work failed", "index", index, "difficulty", difficulty, "attempts", attempts, "error", err.Error())
		return nil, err
	}
	o.observer.BlockSealed(attempts, elapsed)
	o.logger.Debug("block sealed",
		"index", index,
		"difficulty", difficulty,
		"attempts", attempts,
		"elapsed", elapsed,
		"hash", hash.String(),
	)

	return &Block{
		index:        index,
		timestamp:    timestamp,
		prevHash:     prevHash,
		transactions: records,
		merkleTree:   tree,
		nonce:        nonce,
		hash:         hash,
		difficulty:   difficulty,
	}, nil
}

func copyRecords(txs [][]byte) [][]byte {
	out := make([][]byte, len(txs))
	for i, tx := range txs {
		out[i] = append([]byte(nil), tx...)
	}
	return out
}

func (b *Block) Index() uuid.UUID { return b.index }

func (b *Block) Timestamp() time.Time { return b.timestamp }

func (b *Block) PrevHash() crypto.Digest { return b.prevHash }

// Transactions 返回交易副本，调用方修改不影响区块
func (b *Block) Transactions() [][]byte { return copyRecords(b.transactions) }

func (b *Block) MerkleRoot() crypto.Digest { return b.merkleTree.Root() }

func (b *Block) MerkleTree() *MerkleTree { return b.merkleTree }

func (b *Block) Nonce() Nonce { return b.nonce }

// Hash 纯读取，无副作用
func (b *Block) Hash() crypto.Digest { return b.hash }

func (b *Block) Difficulty() uint32 { return b.difficulty }

// IsGenesis 前块哈希全零即为创世块
func (b *Block) IsGenesis() bool { return b.prevHash.IsZero() }

// Verify 重新计算哈希并校验难度，只检查区块自身一致性
func (b *Block) Verify() error {
	hash, err := SealHash(b.index, b.timestamp, b.prevHash, b.transactions, b.merkleTree.Root(), b.nonce)
	if err != nil {
		return err
	}
	if hash != b.hash {
		return errors.Wrapf(ErrHashMismatch, "block %s", b.index)
	}
	if !CheckDifficulty(hash, b.difficulty) {
		return errors.Wrapf(ErrDifficultyNotMet, "block %s difficulty %d", b.index, b.difficulty)
	}
	return nil
}
