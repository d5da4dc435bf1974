package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yiqi-017/powseal/crypto"
)

var (
	fixedIndex = uuid.MustParse("6f1c1a5e-2b7d-4c8e-9a3f-0d4e5b6c7a81")
	fixedTime  = time.UnixMilli(1700000000123)
)

func fixedID() (uuid.UUID, error) { return fixedIndex, nil }

func fixedClock() time.Time { return fixedTime }

// recordingObserver 记录 Observer 回调，供断言尝试次数
type recordingObserver struct {
	mu      sync.Mutex
	sealed  []uint64
	failed  []uint64
	lastErr error
}

func (r *recordingObserver) BlockSealed(attempts uint64, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = append(r.sealed, attempts)
}

func (r *recordingObserver) SearchFailed(attempts uint64, _ time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = append(r.failed, attempts)
	r.lastErr = err
}

func TestCheckDifficulty(t *testing.T) {
	var zero crypto.Digest
	oneZero := crypto.Digest{0, 1}
	noZero := crypto.Digest{1}

	cases := []struct {
		name       string
		hash       crypto.Digest
		difficulty uint32
		want       bool
	}{
		{"zero difficulty always passes", noZero, 0, true},
		{"one leading zero byte", oneZero, 1, true},
		{"needs two zero bytes", oneZero, 2, false},
		{"first byte non-zero", noZero, 1, false},
		{"all zero digest full width", zero, crypto.DigestSize, true},
		{"beyond digest width", zero, crypto.DigestSize + 1, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CheckDifficulty(tc.hash, tc.difficulty))
		})
	}
}

// TestSealHashLayout 哈希输入按 index ++ ts ++ prev ++ txs ++ root ++ nonce 拼接
func TestSealHashLayout(t *testing.T) {
	txs := records("a", "bc")
	root := mustTree(t, "a", "bc").Root()
	prev := crypto.Hash256([]byte("prev"))
	nonce := NonceFromInt64(42)

	ts := make([]byte, 16)
	millis := uint64(fixedTime.UnixMilli())
	for i := 0; i < 8; i++ {
		ts[15-i] = byte(millis >> (8 * i))
	}

	var buf []byte
	buf = append(buf, fixedIndex[:]...)
	buf = append(buf, ts...)
	buf = append(buf, prev[:]...)
	buf = append(buf, "abc"...)
	buf = append(buf, root[:]...)
	buf = append(buf, nonce.Bytes()...)

	got, err := SealHash(fixedIndex, fixedTime, prev, txs, root, nonce)
	require.NoError(t, err)
	assert.Equal(t, crypto.Hash256(buf), got)
}

func TestSealHashRejectsPreEpochClock(t *testing.T) {
	_, err := SealHash(fixedIndex, time.Unix(-10, 0), crypto.ZeroDigest, records("a"), crypto.ZeroDigest, Nonce{})
	assert.ErrorIs(t, err, ErrClockBeforeEpoch)
}

// TestSearchStopsOnExpectedAttempt 固定输入下预先算出第一个合格 nonce，搜索应恰好在该次停止
func TestSearchStopsOnExpectedAttempt(t *testing.T) {
	const difficulty = 1
	txs := records("Transaction 1", "Transaction 2", "Transaction 3")
	root := mustTree(t, "Transaction 1", "Transaction 2", "Transaction 3").Root()

	var candidates []Nonce
	expected := -1
	for i := int64(0); expected < 0; i++ {
		n := NonceFromInt64(i)
		candidates = append(candidates, n)
		h, err := SealHash(fixedIndex, fixedTime, crypto.ZeroDigest, txs, root, n)
		require.NoError(t, err)
		if CheckDifficulty(h, difficulty) {
			expected = int(i)
		}
	}
	// 多放几个，确认不会被继续消耗
	candidates = append(candidates, NonceFromInt64(-1), NonceFromInt64(-2))

	src := NewSequenceNonceSource(candidates...)
	obs := &recordingObserver{}
	block, err := NewGenesisBlock(txs, difficulty,
		WithNonceSource(src), WithClock(fixedClock), WithIDGenerator(fixedID), WithObserver(obs))
	require.NoError(t, err)

	assert.Equal(t, expected+1, src.Drawn())
	assert.Equal(t, NonceFromInt64(int64(expected)), block.Nonce())
	assert.Equal(t, []uint64{uint64(expected + 1)}, obs.sealed)
	require.NoError(t, block.Verify())
}

func TestZeroDifficultyAcceptsFirstAttempt(t *testing.T) {
	src := NewSequenceNonceSource(NonceFromInt64(99))
	obs := &recordingObserver{}
	block, err := NewGenesisBlock(records("tx"), 0, WithNonceSource(src), WithObserver(obs))
	require.NoError(t, err)
	assert.Equal(t, 1, src.Drawn())
	assert.Equal(t, NonceFromInt64(99), block.Nonce())
	assert.Equal(t, []uint64{1}, obs.sealed)
}

func TestPositiveDifficultyNeedsRetries(t *testing.T) {
	obs := &recordingObserver{}
	block, err := NewGenesisBlock(records("tx"), 2, WithObserver(obs))
	require.NoError(t, err)
	require.Len(t, obs.sealed, 1)
	assert.Greater(t, obs.sealed[0], uint64(1))
	assert.Equal(t, byte(0), block.Hash()[0])
	assert.Equal(t, byte(0), block.Hash()[1])
}

func TestMaxAttemptsExhausted(t *testing.T) {
	obs := &recordingObserver{}
	block, err := NewGenesisBlock(records("tx"), crypto.DigestSize,
		WithMaxAttempts(10), WithObserver(obs))
	assert.Nil(t, block)
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
	assert.Equal(t, []uint64{10}, obs.failed)
	assert.ErrorIs(t, obs.lastErr, ErrAttemptsExhausted)
}

func TestSearchHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block, err := Mine(ctx, records("tx"), nil, crypto.DigestSize)
	assert.Nil(t, block)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSearchTimesOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	block, err := Mine(ctx, records("tx"), nil, crypto.DigestSize)
	assert.Nil(t, block)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNonceSourceErrorSurfaces(t *testing.T) {
	src := NewSequenceNonceSource(NonceFromInt64(1), NonceFromInt64(2))
	_, err := NewGenesisBlock(records("tx"), crypto.DigestSize, WithNonceSource(src))
	assert.ErrorIs(t, err, ErrNonceSourceExhausted)
	assert.Equal(t, 2, src.Drawn())
}

func TestParallelWorkersSeal(t *testing.T) {
	obs := &recordingObserver{}
	block, err := NewGenesisBlock(records("tx1", "tx2"), 1, WithWorkers(4), WithObserver(obs))
	require.NoError(t, err)
	require.NoError(t, block.Verify())
	require.Len(t, obs.sealed, 1)
	assert.GreaterOrEqual(t, obs.sealed[0], uint64(1))
}

func TestParallelWorkersShareAttemptCap(t *testing.T) {
	_, err := NewGenesisBlock(records("tx"), crypto.DigestSize, WithWorkers(3), WithMaxAttempts(300))
	assert.ErrorIs(t, err, ErrAttemptsExhausted)
}

func TestWorkerOptionValidation(t *testing.T) {
	_, err := NewGenesisBlock(records("tx"), 0, WithWorkers(0))
	assert.ErrorIs(t, err, ErrInvalidWorkers)

	_, err = NewGenesisBlock(records("tx"), 0, WithWorkers(2), WithNonceSource(NewSequenceNonceSource()))
	assert.ErrorIs(t, err, ErrSharedNonceSource)
}
