package crypto

import (
	"encoding/hex"

	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

// DigestSize 摘要长度（字节）
const DigestSize = 32

// Digest 表示 256 位摘要
type Digest [DigestSize]byte

// ZeroDigest 全零摘要，用作创世块的前块哈希
var ZeroDigest Digest

// Hash256 对数据做一次 SHA3-256
func Hash256(data []byte) Digest {
	return sha3.Sum256(data)
}

// HashConcat 依次拼接各段后做一次 SHA3-256，不加分隔符
func HashConcat(parts ...[]byte) Digest {
	h := sha3.New256()
	for _, p := range parts {
		h.Write(p)
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// Bytes 返回摘要的切片视图副本
func (d Digest) Bytes() []byte {
	out := make([]byte, DigestSize)
	copy(out, d[:])
	return out
}

// IsZero 判断是否为全零摘要
func (d Digest) IsZero() bool {
	return d == ZeroDigest
}

func (d Digest) String() string {
	return HexEncode(d[:])
}

// HexEncode 将字节切片编码为十六进制字符串
func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

// HexDecode 将十六进制字符串解码为字节切片
func HexDecode(s string) ([]byte, error) {
	return hex.DecodeString(s)
}

// DigestFromHex 解析 64 位十六进制字符串为摘要
func DigestFromHex(s string) (Digest, error) {
	var d Digest
	b, err := HexDecode(s)
	if err != nil {
		return d, errors.Wrap(err, "decode digest")
	}
	if len(b) != DigestSize {
		return d, errors.Errorf("digest must be %d bytes, got %d", DigestSize, len(b))
	}
	copy(d[:], b)
	return d, nil
}
