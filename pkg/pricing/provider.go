package pricing

import (
	"fmt"
	"sync"
	"time"

	"github.com/opscart/server-rightsizer/pkg/catalog"
)

// Provider defines the interface for instance pricing data
type Provider interface {
	HourlyPrice(instanceType string) (float64, error)
	Name() string
}

// CatalogProvider prices instances from the static catalog
type CatalogProvider struct {
	catalog *catalog.Catalog
}

func NewCatalogProvider(cat *catalog.Catalog) *CatalogProvider {
	return &CatalogProvider{catalog: cat}
}

func (p *CatalogProvider) Name() string {
	return "catalog"
}

func (p *CatalogProvider) HourlyPrice(instanceType string) (float64, error) {
	entry, ok := p.catalog.Lookup(instanceType)
	if !ok {
		return 0, fmt.Errorf("no pricing for instance type %q", instanceType)
	}
	return entry.HourlyPrice, nil
}

// CachedProvider wraps a provider with a TTL cache to reduce lookups against
// slow upstream pricing sources.
type CachedProvider struct {
	upstream Provider
	ttl      time.Duration

	mutex sync.RWMutex
	data  map[string]cacheEntry
}

type cacheEntry struct {
	price     float64
	expiresAt time.Time
}

func NewCachedProvider(upstream Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		upstream: upstream,
		ttl:      ttl,
		data:     make(map[string]cacheEntry),
	}
}

func (p *CachedProvider) Name() string {
	return p.upstream.Name()
}

func (p *CachedProvider) HourlyPrice(instanceType string) (float64, error) {
	p.mutex.RLock()
	entry, ok := p.data[instanceType]
	p.mutex.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		return entry.price, nil
	}

	price, err := p.upstream.HourlyPrice(instanceType)
	if err != nil {
		return 0, err
	}

	p.mutex.Lock()
	p.data[instanceType] = cacheEntry{price: price, expiresAt: time.Now().Add(p.ttl)}
	p.mutex.Unlock()

	return price, nil
}
