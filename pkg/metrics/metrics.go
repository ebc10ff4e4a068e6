// Package metrics is a small in-process counter registry. The handle is
// passed by reference so the admin reset can zero everything at once.
package metrics

import (
	"sync/atomic"
	"time"
)

type Registry struct {
	postsCreated    atomic.Int64
	follows         atomic.Int64
	unfollows       atomic.Int64
	timelineReqs    atomic.Int64
	outboxPublished atomic.Int64
	fanoutCount     atomic.Int64
	fanoutNanos     atomic.Int64
}

func NewRegistry() *Registry { return &Registry{} }

func (r *Registry) IncPostsCreated()         { r.postsCreated.Add(1) }
func (r *Registry) IncFollows()              { r.follows.Add(1) }
func (r *Registry) IncUnfollows()            { r.unfollows.Add(1) }
func (r *Registry) IncTimelineRequests()     { r.timelineReqs.Add(1) }
func (r *Registry) AddOutboxPublished(n int) { r.outboxPublished.Add(int64(n)) }

// RecordFanout 记录一次扇出耗时
func (r *Registry) RecordFanout(fn func()) {
	st := time.Now()
	fn()
	r.fanoutCount.Add(1)
	r.fanoutNanos.Add(int64(time.Since(st)))
}

// Snapshot 当前计数快照
type Snapshot struct {
	PostsCreated        int64   `json:"postsCreated"`
	Follows             int64   `json:"follows"`
	Unfollows           int64   `json:"unfollows"`
	TimelineRequests    int64   `json:"timelineRequests"`
	OutboxPublished     int64   `json:"outboxPublished"`
	FanoutCount         int64   `json:"fanoutCount"`
	FanoutAvgDurationMs float64 `json:"fanoutAvgDurationMs"`
}

func (r *Registry) Snapshot() Snapshot {
	s := Snapshot{
		PostsCreated:     r.postsCreated.Load(),
		Follows:          r.follows.Load(),
		Unfollows:        r.unfollows.Load(),
		TimelineRequests: r.timelineReqs.Load(),
		OutboxPublished:  r.outboxPublished.Load(),
		FanoutCount:      r.fanoutCount.Load(),
	}
	if s.FanoutCount > 0 {
		s.FanoutAvgDurationMs = float64(r.fanoutNanos.Load()) / float64(s.FanoutCount) / float64(time.Millisecond)
	}
	return s
}

// ResetAll 全部计数归零（demo reset 语义）
func (r *Registry) ResetAll() {
	r.postsCreated.Store(0)
	r.follows.Store(0)
	r.unfollows.Store(0)
	r.timelineReqs.Store(0)
	r.outboxPublished.Store(0)
	r.fanoutCount.Store(0)
	r.fanoutNanos.Store(0)
}
