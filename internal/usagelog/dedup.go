package usagelog

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
)

const dedupShardCount = 16

// Deduper is the seen-key set shared by concurrent file scanners. Keys are
// partitioned across independently locked shards so identical keys arriving
// from different files contend only within one shard and admit exactly one
// event. First seen wins.
type Deduper struct {
	shards     [dedupShardCount]dedupShard
	duplicates atomic.Int64
	mismatches atomic.Int64
}

type dedupShard struct {
	mu   sync.Mutex
	seen map[DedupKey]TokenCounts
}

func NewDeduper() *Deduper {
	d := &Deduper{}
	for i := range d.shards {
		d.shards[i].seen = make(map[DedupKey]TokenCounts)
	}
	return d
}

func (d *Deduper) shardFor(key DedupKey) *dedupShard {
	h := fnv.New32a()
	h.Write([]byte(key.MessageID))
	h.Write([]byte{0})
	h.Write([]byte(key.RequestID))
	return &d.shards[h.Sum32()%dedupShardCount]
}

// Observe reports whether the event is new and should be counted. Events
// without a usable key are always admitted. A key seen again with different
// token counts is a source anomaly: the first event stands, the repeat is
// dropped and flagged.
func (d *Deduper) Observe(ev Event) bool {
	key, ok := ev.Key()
	if !ok {
		return true
	}

	shard := d.shardFor(key)
	shard.mu.Lock()
	prev, seen := shard.seen[key]
	if !seen {
		shard.seen[key] = ev.Tokens
	}
	shard.mu.Unlock()

	if !seen {
		return true
	}

	d.duplicates.Add(1)
	if prev != ev.Tokens {
		if d.mismatches.Add(1) <= mismatchWarnLimit {
			warnf("dedup_mismatch", "message_id=%s request_id=%s", key.MessageID, key.RequestID)
		}
	}
	return false
}

// mismatchWarnLimit caps anomaly warnings per run so a corrupted log cannot
// flood stderr.
const mismatchWarnLimit = 10

// Len returns the number of distinct keys seen.
func (d *Deduper) Len() int {
	n := 0
	for i := range d.shards {
		d.shards[i].mu.Lock()
		n += len(d.shards[i].seen)
		d.shards[i].mu.Unlock()
	}
	return n
}

// Duplicates returns how many events were dropped as already seen.
func (d *Deduper) Duplicates() int64 { return d.duplicates.Load() }

// Mismatches returns how many dropped duplicates carried differing token
// counts from the first-seen event.
func (d *Deduper) Mismatches() int64 { return d.mismatches.Load() }
