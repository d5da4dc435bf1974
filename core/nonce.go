package core

import (
	"crypto/rand"
	"encoding/binary"
	"math/big"

	"github.com/pkg/errors"
)

// NonceSize nonce 为 128 位有符号整数
const NonceSize = 16

// Nonce 以大端补码保存的 128 位有符号整数
type Nonce [NonceSize]byte

// NonceFromInt64 按符号扩展为 128 位
func NonceFromInt64(v int64) Nonce {
	var n Nonce
	if v < 0 {
		binary.BigEndian.PutUint64(n[:8], ^uint64(0))
	}
	binary.BigEndian.PutUint64(n[8:], uint64(v))
	return n
}

// Bytes 返回写入哈希输入的大端字节
func (n Nonce) Bytes() []byte {
	out := make([]byte, NonceSize)
	copy(out, n[:])
	return out
}

// BigInt 返回带符号的数值，供展示使用
func (n Nonce) BigInt() *big.Int {
	v := new(big.Int).SetBytes(n[:])
	if n[0]&0x80 != 0 {
		v.Sub(v, new(big.Int).Lsh(big.NewInt(1), NonceSize*8))
	}
	return v
}

func (n Nonce) String() string {
	return n.BigInt().String()
}

// NonceSource 为工作量证明搜索提供候选 nonce
type NonceSource interface {
	NextNonce() (Nonce, error)
}

type randomNonceSource struct{}

// NewRandomNonceSource 从 crypto/rand 均匀采样 nonce
func NewRandomNonceSource() NonceSource {
	return randomNonceSource{}
}

func (randomNonceSource) NextNonce() (Nonce, error) {
	var n Nonce
	if _, err := rand.Read(n[:]); err != nil {
		return n, errors.Wrap(err, "read random nonce")
	}
	return n, nil
}

// SequenceNonceSource 按顺序回放固定 nonce，用完后返回 ErrNonceSourceExhausted
type SequenceNonceSource struct {
	nonces []Nonce
	next   int
}

// NewSequenceNonceSource 构造固定序列 nonce 源
func NewSequenceNonceSource(nonces ...Nonce) *SequenceNonceSource {
	cp := make([]Nonce, len(nonces))
	copy(cp, nonces)
	return &SequenceNonceSource{nonces: cp}
}

func (s *SequenceNonceSource) NextNonce() (Nonce, error) {
	if s.next >= len(s.nonces) {
		return Nonce{}, ErrNonceSourceExhausted
	}
	n := s.nonces[s.next]
	s.next++
	return n, nil
}

// Drawn 返回已取出的 nonce 数量
func (s *SequenceNonceSource) Drawn() int {
	return s.next
}
