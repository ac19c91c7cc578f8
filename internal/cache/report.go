package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smallbiznis/recipecost/internal/clock"
)

// ReportKind names a cached report.
type ReportKind string

const (
	ReportCMV             ReportKind = "cmv"
	ReportPurchaseSummary ReportKind = "purchase_summary"
)

// ReportKey identifies one cached report. Period bounds are truncated to the
// day so equal requests share an entry.
type ReportKey struct {
	OrgID int64
	Kind  ReportKind
	From  string
	To    string
}

func NewReportKey(orgID int64, kind ReportKind, from, to time.Time) ReportKey {
	return ReportKey{OrgID: orgID, Kind: kind, From: dayString(from), To: dayString(to)}
}

func (k ReportKey) String() string {
	return fmt.Sprintf("%d:%s:%s:%s", k.OrgID, k.Kind, k.From, k.To)
}

func dayString(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

// ReportCache stores serialized reports. Invalidation is explicit: every key
// written for an org is tracked and dropped by InvalidateOrg.
type ReportCache interface {
	Get(ctx context.Context, key ReportKey) ([]byte, bool, error)
	Set(ctx context.Context, key ReportKey, payload []byte) error
	InvalidateOrg(ctx context.Context, orgID int64) error
}

type memoryReportCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries Cache[ReportKey, []byte]
	index   map[int64]map[ReportKey]struct{}
}

func NewMemoryReportCache(ttl time.Duration, c clock.Clock) ReportCache {
	return &memoryReportCache{
		ttl:     ttl,
		entries: NewTTLCache[ReportKey, []byte](c),
		index:   make(map[int64]map[ReportKey]struct{}),
	}
}

func (c *memoryReportCache) Get(_ context.Context, key ReportKey) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	payload, ok := c.entries.Get(key)
	if !ok {
		c.forget(key)
	}
	return payload, ok, nil
}

func (c *memoryReportCache) Set(_ context.Context, key ReportKey, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, ok := c.index[key.OrgID]
	if !ok {
		keys = make(map[ReportKey]struct{})
		c.index[key.OrgID] = keys
	}
	// Periods that are never read again would otherwise stay indexed forever.
	for existing := range keys {
		if _, live := c.entries.Get(existing); !live {
			delete(keys, existing)
		}
	}
	keys[key] = struct{}{}
	c.entries.Set(key, payload, c.ttl)
	return nil
}

func (c *memoryReportCache) InvalidateOrg(_ context.Context, orgID int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.index[orgID] {
		c.entries.Delete(key)
	}
	delete(c.index, orgID)
	return nil
}

// forget drops key from the org index. Callers hold c.mu.
func (c *memoryReportCache) forget(key ReportKey) {
	keys, ok := c.index[key.OrgID]
	if !ok {
		return
	}
	delete(keys, key)
	if len(keys) == 0 {
		delete(c.index, key.OrgID)
	}
}

type noopReportCache struct{}

// NoopReportCache never stores anything; every read is a miss.
func NoopReportCache() ReportCache { return noopReportCache{} }

func (noopReportCache) Get(context.Context, ReportKey) ([]byte, bool, error) { return nil, false, nil }
func (noopReportCache) Set(context.Context, ReportKey, []byte) error         { return nil }
func (noopReportCache) InvalidateOrg(context.Context, int64) error           { return nil }
