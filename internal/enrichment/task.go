package enrichment

import (
	"encoding/json"
	"fmt"

	"memescope/internal/domain"
	"memescope/internal/providers"
)

// Task priorities. Lower sorts first.
const (
	PriorityMigration = 0
	PriorityNormal    = 1
)

// Sort-score tier widths. Priority tiers dominate stage buckets, which
// dominate scheduled time (in seconds, so the tiers never overlap).
const (
	priorityTier = 1e12
	bucketTier   = 0.5e12
)

// Task is one scheduled enrichment step for a token. Serialised as flat
// JSON into the queue's hash; the mint-info and sell-sim carry PRE_SCAN
// results forward to INITIAL, and each stage hands its score to the
// next one.
type Task struct {
	Address        string       `json:"address"`
	Chain          string       `json:"chain"`
	TokenID        int64        `json:"token_id"`
	Stage          domain.Stage `json:"stage"`
	DiscoveredAtMs int64        `json:"discovered_at_ms"`
	ScheduledAtMs  int64        `json:"scheduled_at_ms"`
	Priority       int          `json:"priority"`
	PrevScore      int          `json:"prev_score,omitempty"`

	// PRE_SCAN carry-through
	RiskBoost int                      `json:"risk_boost,omitempty"`
	MintInfo  *providers.MintInfo      `json:"mint_info,omitempty"`
	SellSim   *providers.SellSimResult `json:"sell_sim,omitempty"`
}

// Key is the queue dedup key. At most one task per (address, stage).
func (t *Task) Key() string {
	return t.Address + ":" + string(t.Stage)
}

// SortScore collapses (priority, stage bucket, scheduled time) into one
// number: migrations first, then non-PRE_SCAN stages, then PRE_SCAN,
// FIFO by scheduled time within a bucket. PRE_SCAN sorts last in its
// priority because it is a high-volume cheap gate that would otherwise
// monopolise the workers.
func (t *Task) SortScore() float64 {
	bucket := 0.0
	if t.Stage == domain.StagePreScan {
		bucket = 1.0
	}
	return float64(t.Priority)*priorityTier + bucket*bucketTier + float64(t.ScheduledAtMs)/1000
}

// Encode serialises the task for the queue hash.
func (t *Task) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeTask deserialises and validates a queue hash entry. Malformed
// entries error out and are discarded by the purge.
func DecodeTask(data []byte) (*Task, error) {
	var t Task
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode task: %w", err)
	}
	if t.Address == "" {
		return nil, fmt.Errorf("decode task: empty address")
	}
	if !t.Stage.IsValid() {
		return nil, fmt.Errorf("decode task: unknown stage %q", t.Stage)
	}
	return &t, nil
}
