package enrichment

import (
	"container/heap"
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Queue wire keys. The sorted set orders task keys by sort score; the
// hash holds the serialised bodies. The two always move together.
const (
	queueKey = "enrichment:queue"
	tasksKey = "enrichment:tasks"
)

const (
	// maxQueueSize bounds the queue; puts beyond it are dropped.
	maxQueueSize = 5000

	// popGrace tolerates slightly-future scheduled times so a task is
	// not bounced right at its boundary.
	popGrace = 2 * time.Second

	// pollInterval spaces empty-queue retries in Get.
	pollInterval = 500 * time.Millisecond
)

// ErrQueueFull is returned when a put is dropped on a full queue.
var ErrQueueFull = errors.New("enrichment queue full, task dropped")

// Queue is the persistent enrichment task queue.
type Queue interface {
	// Put inserts the task, deduplicating by (address, stage). With
	// allowUpdate the existing entry is overwritten instead.
	Put(ctx context.Context, t *Task, allowUpdate bool) error

	// Get blocks until a ready task is available, removes it and
	// returns it. Returns ctx.Err() on cancellation.
	Get(ctx context.Context) (*Task, error)

	// Size reports the number of queued tasks.
	Size(ctx context.Context) (int64, error)

	// PurgeStale discards tasks past their staleness limit and entries
	// that no longer decode. Returns the number discarded.
	PurgeStale(ctx context.Context) (int, error)

	// MigrateScores rescores every queued task with the current sort
	// formula at migration priority. Returns the number rescored.
	MigrateScores(ctx context.Context) (int, error)
}

// RedisQueue is the primary queue backing. When Redis errors, puts and
// gets degrade transparently to an in-process fallback so enrichment
// keeps flowing.
type RedisQueue struct {
	rdb      *redis.Client
	fallback *MemoryQueue
	log      zerolog.Logger
	now      func() time.Time
}

// NewRedisQueue creates a RedisQueue.
func NewRedisQueue(rdb *redis.Client, log zerolog.Logger) *RedisQueue {
	return &RedisQueue{
		rdb:      rdb,
		fallback: NewMemoryQueue(),
		log:      log.With().Str("component", "enrichment_queue").Logger(),
		now:      time.Now,
	}
}

// Compile-time interface check.
var _ Queue = (*RedisQueue)(nil)

// Put inserts or overwrites the task. The ZADD and HSET are pipelined
// so the sorted set and the hash never diverge.
func (q *RedisQueue) Put(ctx context.Context, t *Task, allowUpdate bool) error {
	size, err := q.rdb.ZCard(ctx, queueKey).Result()
	if err != nil {
		q.log.Warn().Err(err).Msg("redis unavailable, degrading to memory queue")
		return q.fallback.Put(ctx, t, allowUpdate)
	}
	if size >= maxQueueSize {
		q.log.Warn().Str("key", t.Key()).Int64("size", size).Msg("queue full, dropping task")
		return ErrQueueFull
	}

	if !allowUpdate {
		exists, err := q.rdb.HExists(ctx, tasksKey, t.Key()).Result()
		if err != nil {
			return q.fallback.Put(ctx, t, allowUpdate)
		}
		if exists {
			return nil // dedup
		}
	}

	body, err := t.Encode()
	if err != nil {
		return err
	}

	pipe := q.rdb.TxPipeline()
	pipe.ZAdd(ctx, queueKey, redis.Z{Score: t.SortScore(), Member: t.Key()})
	pipe.HSet(ctx, tasksKey, t.Key(), body)
	if _, err := pipe.Exec(ctx); err != nil {
		q.log.Warn().Err(err).Msg("redis put failed, degrading to memory queue")
		return q.fallback.Put(ctx, t, allowUpdate)
	}
	return nil
}

// Get pops the lowest-scored ready task. The candidate is claimed via
// ZREM: whoever removes the member owns the task.
func (q *RedisQueue) Get(ctx context.Context) (*Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		t, ok, err := q.tryPop(ctx)
		if err != nil {
			// Fall back while Redis is down; fallback tasks drain first.
			if ft, ferr := q.fallback.tryPop(q.now()); ferr == nil && ft != nil {
				return ft, nil
			}
		} else if ok {
			return t, nil
		} else if ft, _ := q.fallback.tryPop(q.now()); ft != nil {
			return ft, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// tryPop attempts one pop. ok=false means nothing ready.
func (q *RedisQueue) tryPop(ctx context.Context) (*Task, bool, error) {
	// Upper bound covering every ready task: normal priority, PRE_SCAN
	// bucket, scheduled up to now+grace.
	maxScore := priorityTier + bucketTier + float64(q.now().Add(popGrace).UnixMilli())/1000

	members, err := q.rdb.ZRangeByScore(ctx, queueKey, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatFloat(maxScore, 'f', 3, 64),
		Count: 1,
	}).Result()
	if err != nil {
		return nil, false, err
	}
	if len(members) == 0 {
		return nil, false, nil
	}
	key := members[0]

	body, err := q.rdb.HGet(ctx, tasksKey, key).Bytes()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, false, err
	}

	removed, err := q.rdb.ZRem(ctx, queueKey, key).Result()
	if err != nil {
		return nil, false, err
	}
	if removed == 0 {
		// Lost the claim to a concurrent worker.
		return nil, false, nil
	}
	q.rdb.HDel(ctx, tasksKey, key)

	t, err := DecodeTask(body)
	if err != nil {
		q.log.Warn().Err(err).Str("key", key).Msg("discarding malformed task")
		return nil, false, nil
	}

	// The score bound cannot exclude future-scheduled tasks in lower
	// buckets, so re-check and push back anything not yet due.
	if t.ScheduledAtMs > q.now().Add(popGrace).UnixMilli() {
		if err := q.Put(ctx, t, true); err != nil && !errors.Is(err, ErrQueueFull) {
			return nil, false, err
		}
		return nil, false, nil
	}
	return t, true, nil
}

// Size reports the queued task count, fallback included.
func (q *RedisQueue) Size(ctx context.Context) (int64, error) {
	fallbackSize, _ := q.fallback.Size(ctx)
	n, err := q.rdb.ZCard(ctx, queueKey).Result()
	if err != nil {
		return fallbackSize, err
	}
	return n + fallbackSize, nil
}

// PurgeStale walks the hash, discarding entries that are malformed or
// older than their stage's staleness limit.
func (q *RedisQueue) PurgeStale(ctx context.Context) (int, error) {
	entries, err := q.rdb.HGetAll(ctx, tasksKey).Result()
	if err != nil {
		return 0, err
	}

	nowMs := q.now().UnixMilli()
	purged := 0
	for key, body := range entries {
		t, err := DecodeTask([]byte(body))
		drop := false
		if err != nil {
			drop = true
		} else if limit := StaleAfter(t.Stage); limit > 0 && nowMs-t.ScheduledAtMs > limit.Milliseconds() {
			drop = true
		}
		if !drop {
			continue
		}

		pipe := q.rdb.TxPipeline()
		pipe.ZRem(ctx, queueKey, key)
		pipe.HDel(ctx, tasksKey, key)
		if _, err := pipe.Exec(ctx); err != nil {
			return purged, err
		}
		purged++
	}
	if purged > 0 {
		q.log.Info().Int("purged", purged).Msg("stale tasks purged")
	}
	return purged, nil
}

// MigrateScores rewrites every queued task at migration priority with a
// freshly computed sort score. Run once on startup so formula changes
// across versions never strand old entries behind new ones.
func (q *RedisQueue) MigrateScores(ctx context.Context) (int, error) {
	entries, err := q.rdb.HGetAll(ctx, tasksKey).Result()
	if err != nil {
		return 0, err
	}

	migrated := 0
	for key, body := range entries {
		t, err := DecodeTask([]byte(body))
		if err != nil {
			continue // purge handles these
		}
		t.Priority = PriorityMigration

		encoded, err := t.Encode()
		if err != nil {
			continue
		}
		pipe := q.rdb.TxPipeline()
		pipe.ZAdd(ctx, queueKey, redis.Z{Score: t.SortScore(), Member: key})
		pipe.HSet(ctx, tasksKey, key, encoded)
		if _, err := pipe.Exec(ctx); err != nil {
			return migrated, err
		}
		migrated++
	}
	if migrated > 0 {
		q.log.Info().Int("migrated", migrated).Msg("task scores migrated")
	}
	return migrated, nil
}

// MemoryQueue is the in-process fallback: a mutex-guarded priority heap
// with the same ordering and dedup semantics as the Redis backing.
type MemoryQueue struct {
	mu   sync.Mutex
	h    taskHeap
	keys map[string]*heapItem
}

// NewMemoryQueue creates an empty MemoryQueue.
func NewMemoryQueue() *MemoryQueue {
	return &MemoryQueue{keys: make(map[string]*heapItem)}
}

// Compile-time interface check.
var _ Queue = (*MemoryQueue)(nil)

// Put inserts or overwrites the task by key.
func (q *MemoryQueue) Put(ctx context.Context, t *Task, allowUpdate bool) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if item, ok := q.keys[t.Key()]; ok {
		if !allowUpdate {
			return nil
		}
		item.task = t
		item.score = t.SortScore()
		heap.Fix(&q.h, item.index)
		return nil
	}

	if len(q.h) >= maxQueueSize {
		return ErrQueueFull
	}
	item := &heapItem{task: t, score: t.SortScore()}
	heap.Push(&q.h, item)
	q.keys[t.Key()] = item
	return nil
}

// Get blocks until a ready task is available.
func (q *MemoryQueue) Get(ctx context.Context) (*Task, error) {
	for {
		if t, err := q.tryPop(time.Now()); err == nil && t != nil {
			return t, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// tryPop pops the lowest-scored task when it is due, nil otherwise.
func (q *MemoryQueue) tryPop(now time.Time) (*Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		return nil, nil
	}
	top := q.h[0]
	if top.task.ScheduledAtMs > now.Add(popGrace).UnixMilli() {
		return nil, nil
	}
	heap.Pop(&q.h)
	delete(q.keys, top.task.Key())
	return top.task, nil
}

// Size reports the queued task count.
func (q *MemoryQueue) Size(ctx context.Context) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return int64(len(q.h)), nil
}

// PurgeStale discards tasks past their staleness limit.
func (q *MemoryQueue) PurgeStale(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	nowMs := time.Now().UnixMilli()
	purged := 0
	for key, item := range q.keys {
		limit := StaleAfter(item.task.Stage)
		if limit > 0 && nowMs-item.task.ScheduledAtMs > limit.Milliseconds() {
			heap.Remove(&q.h, item.index)
			delete(q.keys, key)
			purged++
		}
	}
	return purged, nil
}

// MigrateScores rescores every queued task at migration priority.
func (q *MemoryQueue) MigrateScores(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for _, item := range q.keys {
		item.task.Priority = PriorityMigration
		item.score = item.task.SortScore()
	}
	heap.Init(&q.h)
	return len(q.keys), nil
}

// heapItem wraps a task for container/heap.
type heapItem struct {
	task  *Task
	score float64
	index int
}

type taskHeap []*heapItem

func (h taskHeap) Len() int           { return len(h) }
func (h taskHeap) Less(i, j int) bool { return h[i].score < h[j].score }
func (h taskHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *taskHeap) Push(x interface{}) {
	item := x.(*heapItem)
	item.index = len(*h)
	*h = append(*h, item)
}
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}
