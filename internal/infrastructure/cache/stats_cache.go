package cache

import (
	"context"
	"sync"
	"time"

	"github.com/LavaJover/shvark-affiliate-ledger/internal/domain"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// MemberLoader загружает авторитетное состояние участника из базы
type MemberLoader func(ctx context.Context, memberID string) (*domain.Member, error)

// StatsCache - ограниченный по времени кэш проекций статистики.
// Никогда не является источником истины: записи инвалидируются после
// каждой записи в леджер и истекают по TTL.
type StatsCache struct {
	entries *expirable.LRU[string, domain.Member]
	group   singleflight.Group

	mu       sync.Mutex
	inflight map[string]*loadGeneration
}

// loadGeneration живёт, пока по ключу идёт хотя бы одна загрузка.
// Invalidate увеличивает gen, и загрузка со старым gen не попадает в кэш.
type loadGeneration struct {
	gen   uint64
	loads int
}

func NewStatsCache(size int, ttl time.Duration) *StatsCache {
	return &StatsCache{
		entries:  expirable.NewLRU[string, domain.Member](size, nil, ttl),
		inflight: make(map[string]*loadGeneration),
	}
}

// GetOrLoad returns a copy of the cached member or loads it once for all
// concurrent callers.
func (c *StatsCache) GetOrLoad(ctx context.Context, memberID string, load MemberLoader) (*domain.Member, error) {
	if m, ok := c.entries.Get(memberID); ok {
		return &m, nil
	}

	v, err, _ := c.group.Do(memberID, func() (interface{}, error) {
		gen := c.beginLoad(memberID)
		var member *domain.Member
		var err error
		defer func() { c.finishLoad(memberID, gen, member, err) }()

		member, err = load(ctx, memberID)
		if err != nil {
			return nil, err
		}
		return *member, nil
	})
	if err != nil {
		return nil, err
	}
	m := v.(domain.Member)
	return &m, nil
}

func (c *StatsCache) Invalidate(memberID string) {
	c.mu.Lock()
	if g, ok := c.inflight[memberID]; ok {
		g.gen++
	}
	c.entries.Remove(memberID)
	c.mu.Unlock()
	c.group.Forget(memberID)
}

func (c *StatsCache) beginLoad(memberID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	g, ok := c.inflight[memberID]
	if !ok {
		g = &loadGeneration{}
		c.inflight[memberID] = g
	}
	g.loads++
	return g.gen
}

// finishLoad кладёт результат в кэш, только если за время загрузки
// не было Invalidate по этому ключу
func (c *StatsCache) finishLoad(memberID string, gen uint64, member *domain.Member, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.inflight[memberID]
	if err == nil && member != nil && g.gen == gen {
		c.entries.Add(memberID, *member)
	}
	g.loads--
	if g.loads == 0 {
		delete(c.inflight, memberID)
	}
}

func (c *StatsCache) Len() int {
	return c.entries.Len()
}
