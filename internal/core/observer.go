package core

import (
	"log"
	"sync"
)

// Fallback tiers reported to a FallbackObserver.
const (
	TierUnstructured = "model_unstructured"
	TierStatic       = "fallback"
)

// FallbackObserver is told every time the annotation flow degrades.
type FallbackObserver interface {
	RecordFallback(flow, tier, provider, reason string)
}

// LogObserver logs one key=value line per fallback and keeps counters per flow and tier.
type LogObserver struct {
	mu     sync.Mutex
	counts map[string]int64
}

func NewLogObserver() *LogObserver {
	return &LogObserver{counts: make(map[string]int64)}
}

func (o *LogObserver) RecordFallback(flow, tier, provider, reason string) {
	o.mu.Lock()
	o.counts[flow+"."+tier]++
	o.mu.Unlock()
	log.Printf("event=ai_fallback flow=%s tier=%s provider=%s reason=%q", flow, tier, provider, reason)
}

// Snapshot returns a copy of the counters keyed "flow.tier".
func (o *LogObserver) Snapshot() map[string]int64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make(map[string]int64, len(o.counts))
	for k, v := range o.counts {
		out[k] = v
	}
	return out
}
