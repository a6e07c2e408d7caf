package recorder

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// keyPrefix namespaces every key this recorder writes, so several
// simulation instances can share one Redis database.
const keyPrefix = "schedcore:trail:"

// Entry is one audit record: a decision the scheduler made. What the caller
// reported back to stop() for it is not part of the record.
type Entry struct {
	Seq       uint64    `json:"seq"`
	Pid       int64     `json:"pid"`
	Kind      string    `json:"kind"`
	Timeslice uint64    `json:"timeslice,omitempty"`
	At        time.Time `json:"at"`
}

// Recorder buffers decision entries in memory and flushes them to Redis in
// order. Reads are deduplicated with singleflight so that a burst of
// clients polling the same instance's trail collapse into a single round
// trip to Redis.
type Recorder struct {
	instance uuid.UUID
	log      *zap.Logger
	client   *client

	mu    sync.Mutex
	queue *flushQueue
	seq   uint64

	group singleflight.Group
}

// New creates a Recorder tagged with a fresh instance id, so multiple
// simulation runs against the same Redis database never collide.
func New(addr string, db int, log *zap.Logger) *Recorder {
	log = log.Named("recorder")
	return &Recorder{
		instance: uuid.New(),
		log:      log,
		client:   newClient(addr, db, log),
		queue:    newFlushQueue(),
	}
}

// Instance returns the id this recorder tags its entries with.
func (r *Recorder) Instance() uuid.UUID { return r.instance }

// Record buffers a decision entry. It does not block on Redis; call Flush
// to push buffered entries out.
func (r *Recorder) Record(pid int64, kind string, timeslice uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	e := Entry{Seq: r.seq, Pid: pid, Kind: kind, Timeslice: timeslice, At: time.Now().UTC()}
	buf, err := json.Marshal(e)
	if err != nil {
		r.log.Error("marshal entry failed", zap.Error(err))
		return
	}
	r.queue.push(pid, e.Seq, string(buf))
}

// Flush pushes every buffered entry to the instance's Redis list, in the
// order they were recorded, and clears the buffer.
func (r *Recorder) Flush(ctx context.Context) error {
	r.mu.Lock()
	payloads := r.queue.drain()
	r.mu.Unlock()

	if len(payloads) == 0 {
		return nil
	}

	args := make([]any, len(payloads))
	for i, p := range payloads {
		args[i] = p
	}

	key := r.key()
	if err := r.client.RPush(ctx, key, args...).Err(); err != nil {
		return fmt.Errorf("flush trail: %w", err)
	}
	r.log.Debug("flushed trail entries", zap.Int("count", len(payloads)), zap.String("key", key))
	return nil
}

// Snapshot returns every entry recorded so far for this instance, reading
// through Redis. Concurrent callers during the same instant collapse into
// one Redis round trip via singleflight.
func (r *Recorder) Snapshot(ctx context.Context) ([]Entry, error) {
	v, err, _ := r.group.Do(r.key(), func() (any, error) {
		raw, err := r.client.LRange(ctx, r.key(), 0, -1).Result()
		if err != nil {
			return nil, fmt.Errorf("read trail: %w", err)
		}

		entries := make([]Entry, 0, len(raw))
		for _, s := range raw {
			var e Entry
			if err := json.Unmarshal([]byte(s), &e); err != nil {
				return nil, fmt.Errorf("decode trail entry: %w", err)
			}
			entries = append(entries, e)
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]Entry), nil
}

func (r *Recorder) key() string {
	return keyPrefix + r.instance.String()
}

// CollapseList runs fn at most once across a burst of concurrent callers
// sharing the same key, returning the same result to all of them. It plays
// the same dedup-under-load role the teacher's SummaryService TTL cache
// plays for /api/channels/summary, but without a staleness window: a
// scheduler.List() snapshot has nothing to go stale against between calls,
// so there is nothing to tune a TTL for.
func (r *Recorder) CollapseList(key string, fn func() (any, error)) (any, error) {
	v, err, _ := r.group.Do(key, fn)
	return v, err
}

// Close releases the underlying Redis connection.
func (r *Recorder) Close() error { return r.client.Close() }
