package core

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/yiqi-017/powseal/crypto"
)

// timestampSize 毫秒时间戳按 128 位无符号大端编码
const timestampSize = 16

// ctxCheckInterval 每隔多少次尝试检查一次 context
const ctxCheckInterval = 1024

// CheckDifficulty 判断哈希前 difficulty 个字节是否全为零
func CheckDifficulty(hash crypto.Digest, difficulty uint32) bool {
	if difficulty > crypto.DigestSize {
		return false
	}
	for i := uint32(0); i < difficulty; i++ {
		if hash[i] != 0 {
			return false
		}
	}
	return true
}

// SealHash 按区块字段计算哈希：
// index ++ 毫秒时间戳 ++ prevHash ++ 各交易原始字节 ++ merkleRoot ++ nonce
func SealHash(index uuid.UUID, timestamp time.Time, prevHash crypto.Digest, txs [][]byte, merkleRoot crypto.Digest, nonce Nonce) (crypto.Digest, error) {
	prefix, err := serializeSealPrefix(index, timestamp, prevHash, txs, merkleRoot)
	if err != nil {
		return crypto.Digest{}, err
	}
	return crypto.HashConcat(prefix, nonce[:]), nil
}

// serializeSealPrefix 编码除 nonce 以外的全部哈希输入，搜索期间不变
func serializeSealPrefix(index uuid.UUID, timestamp time.Time, prevHash crypto.Digest, txs [][]byte, merkleRoot crypto.Digest) ([]byte, error) {
	ts, err := encodeTimestamp(timestamp)
	if err != nil {
		return nil, err
	}

	buf := new(bytes.Buffer)
	buf.Write(index[:])
	buf.Write(ts)
	buf.Write(prevHash[:])
	for _, tx := range txs {
		buf.Write(tx)
	}
	buf.Write(merkleRoot[:])
	return buf.Bytes(), nil
}

func encodeTimestamp(t time.Time) ([]byte, error) {
	millis := t.UnixMilli()
	if millis < 0 {
		return nil, errors.Wrapf(ErrClockBeforeEpoch, "timestamp %s", t.UTC().Format(time.RFC3339Nano))
	}
	b := make([]byte, timestampSize)
	binary.BigEndian.PutUint64(b[timestampSize-8:], uint64(millis))
	return b, nil
}

// ProofOfWork 针对固定哈希前缀搜索满足难度的 nonce
type ProofOfWork struct {
	prefix     []byte
	difficulty uint32
}

func newProofOfWork(prefix []byte, difficulty uint32) *ProofOfWork {
	return &ProofOfWork{prefix: prefix, difficulty: difficulty}
}

func (pow *ProofOfWork) hash(n Nonce) crypto.Digest {
	return crypto.HashConcat(pow.prefix, n[:])
}

// Run 单个 worker 的搜索循环；attempts 在多个 worker 间共享，maxAttempts 为总上限
func (pow *ProofOfWork) Run(ctx context.Context, source NonceSource, maxAttempts uint64, attempts *atomic.Uint64) (Nonce, crypto.Digest, error) {
	for tried := 0; ; tried++ {
		if tried%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return Nonce{}, crypto.Digest{}, errors.Wrap(err, "proof-of-work interrupted")
			}
		}
		if maxAttempts > 0 && attempts.Load() >= maxAttempts {
			return Nonce{}, crypto.Digest{}, errors.Wrapf(ErrAttemptsExhausted, "after %d attempts", maxAttempts)
		}

		nonce, err := source.NextNonce()
		if err != nil {
			return Nonce{}, crypto.Digest{}, errors.WithMessage(err, "draw nonce")
		}
		attempts.Add(1)

		hash := pow.hash(nonce)
		if CheckDifficulty(hash, pow.difficulty) {
			return nonce, hash, nil
		}
	}
}

// errFound 用于在某个 worker 成功后取消其余 worker
var errFound = errors.New("nonce found")

// seal 依据 workers 数量执行单路或并行搜索，返回 nonce、哈希和总尝试次数
func (pow *ProofOfWork) seal(ctx context.Context, o *options) (Nonce, crypto.Digest, uint64, error) {
	var attempts atomic.Uint64

	if o.workers == 1 {
		src := o.source
		if src == nil {
			src = NewRandomNonceSource()
		}
		nonce, hash, err := pow.Run(ctx, src, o.maxAttempts, &attempts)
		return nonce, hash, attempts.Load(), err
	}

	var (
		once  sync.Once
		nonce Nonce
		hash  crypto.Digest
		found bool
	)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < o.workers; i++ {
		g.Go(func() error {
			n, h, err := pow.Run(gctx, NewRandomNonceSource(), o.maxAttempts, &attempts)
			if err != nil {
				return err
			}
			once.Do(func() {
				nonce, hash, found = n, h, true
			})
			return errFound
		})
	}
	err := g.Wait()

	total := attempts.Load()
	if found {
		return nonce, hash, total, nil
	}
	return Nonce{}, crypto.Digest{}, total, err
}
