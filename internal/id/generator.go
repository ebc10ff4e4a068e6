// Package id mints UUIDv7 identifiers whose high 48 bits are a millisecond
// epoch, so lexicographic byte order equals chronological order.
package id

import (
	"encoding/binary"
	"sync"

	"github.com/google/uuid"
)

// Generator 生成单进程内严格单调的 UUIDv7
type Generator struct {
	mu     sync.Mutex
	lastTS int64
	seq    uint16
}

func NewGenerator() *Generator { return &Generator{} }

// Generate 生成一个 UUIDv7。同一毫秒内的并发请求通过递增
// rand_a 序列位保持彼此可比较。
func (g *Generator) Generate() uuid.UUID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u, err := uuid.NewV7()
	if err != nil {
		// NewV7 只在系统随机源耗尽时失败
		panic(err)
	}
	ts := ExtractTimestamp(u)
	if ts > g.lastTS {
		g.lastTS = ts
		g.seq = uint16(u[6]&0x0F)<<8 | uint16(u[7])
		return u
	}

	// 同一毫秒或时钟回拨：rand_a 的 12 位当毫秒内序列，
	// 序列用尽就预借下一毫秒
	g.seq++
	if g.seq > 0x0FFF {
		g.lastTS++
		g.seq = 0
	}
	writeTimestamp(&u, g.lastTS)
	u[6] = 0x70 | byte(g.seq>>8)
	u[7] = byte(g.seq)
	return u
}

// ExtractTimestamp 取 UUIDv7 高 48 位，单位毫秒
func ExtractTimestamp(u uuid.UUID) int64 {
	msb := binary.BigEndian.Uint64(u[0:8])
	return int64(msb >> 16)
}

func writeTimestamp(u *uuid.UUID, ms int64) {
	u[0] = byte(ms >> 40)
	u[1] = byte(ms >> 32)
	u[2] = byte(ms >> 24)
	u[3] = byte(ms >> 16)
	u[4] = byte(ms >> 8)
	u[5] = byte(ms)
}
