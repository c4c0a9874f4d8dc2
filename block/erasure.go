package block

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"

	"github.com/klauspost/reedsolomon"
	"github.com/sharedcode/storeengine"
)

// ErasureStore wraps another Writer and erasure-codes each written block across dataShards +
// parityShards shards with klauspost/reedsolomon. All shards of a block are stored together,
// behind a small header, as one block of the inner Writer, so losing that inner block loses
// every shard. Read verifies parity and attempts reconstruction when verification fails.
type ErasureStore struct {
	inner        Writer
	dataShards   int
	parityShards int
	enc          reedsolomon.Encoder
}

// NewErasureStore wraps inner, splitting each block into dataShards+parityShards shards.
func NewErasureStore(inner Writer, dataShards, parityShards int) (*ErasureStore, error) {
	enc, err := reedsolomon.New(dataShards, parityShards)
	if err != nil {
		return nil, err
	}
	return &ErasureStore{inner: inner, dataShards: dataShards, parityShards: parityShards, enc: enc}, nil
}

// erasureHeader records the original length so shard padding can be stripped on decode.
type erasureHeader struct {
	OrigLen uint32
}

func (e *ErasureStore) Write(ctx context.Context, buf []byte) (Addr, uint32, error) {
	shards, err := e.enc.Split(buf)
	if err != nil {
		return ADDR_INVALID, 0, err
	}
	if err := e.enc.Encode(shards); err != nil {
		return ADDR_INVALID, 0, err
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, erasureHeader{OrigLen: uint32(len(buf))})
	binary.Write(&out, binary.LittleEndian, uint32(len(shards[0])))
	for _, s := range shards {
		out.Write(s)
	}

	addr, _, err := e.inner.Write(ctx, out.Bytes())
	if err != nil {
		return ADDR_INVALID, 0, err
	}
	// The logical size recorded on the page is the pre-encoding length, so byte-exact page
	// accounting is unaffected by shard overhead.
	return addr, uint32(len(buf)), nil
}

func (e *ErasureStore) Read(ctx context.Context, addr Addr, size uint32) ([]byte, error) {
	raw, err := e.inner.Read(ctx, addr, 0)
	if err != nil {
		return nil, err
	}
	r := bytes.NewReader(raw)
	var hdr erasureHeader
	var shardLen uint32
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, storeengine.Error{Code: storeengine.Corruption, Err: err, UserData: addr}
	}
	if err := binary.Read(r, binary.LittleEndian, &shardLen); err != nil {
		return nil, storeengine.Error{Code: storeengine.Corruption, Err: err, UserData: addr}
	}

	total := e.dataShards + e.parityShards
	shards := make([][]byte, total)
	for i := 0; i < total; i++ {
		shard := make([]byte, shardLen)
		if _, err := r.Read(shard); err != nil {
			return nil, fmt.Errorf("erasure: reading shard %d: %w", i, err)
		}
		shards[i] = shard
	}

	ok, err := e.enc.Verify(shards)
	if err != nil || !ok {
		if err := e.enc.Reconstruct(shards); err != nil {
			return nil, storeengine.Error{Code: storeengine.Corruption, Err: err, UserData: addr}
		}
	}

	var joined bytes.Buffer
	if err := e.enc.Join(&joined, shards, int(hdr.OrigLen)); err != nil {
		return nil, err
	}
	return joined.Bytes(), nil
}

func (e *ErasureStore) Free(ctx context.Context, addr Addr, size uint32) error {
	return e.inner.Free(ctx, addr, size)
}
