// Package tenant holds per-tenant policy and the stores that resolve
// it. Policy decides residency restrictions before any provider call
// is made.
package tenant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Policy is the per-tenant compliance posture.
type Policy struct {
	// TenantID identifies the tenant.
	TenantID string `yaml:"tenant_id"`

	// EUOnly restricts the tenant to EU-compliant providers.
	EUOnly bool `yaml:"eu_only"`

	// DPAAccepted records whether a data processing agreement is on
	// file for the tenant.
	DPAAccepted bool `yaml:"dpa_accepted"`
}

// NotFoundError indicates an unknown tenant.
type NotFoundError struct {
	TenantID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("tenant %s is not registered", e.TenantID)
}

// Store resolves tenant policy.
type Store interface {
	Policy(ctx context.Context, tenantID string) (*Policy, error)
}

// StaticStore serves policies from a fixed map.
type StaticStore struct {
	mu       sync.RWMutex
	policies map[string]Policy
}

// NewStaticStore creates a store from an initial policy set.
func NewStaticStore(policies []Policy) *StaticStore {
	m := make(map[string]Policy, len(policies))
	for _, p := range policies {
		m[p.TenantID] = p
	}
	return &StaticStore{policies: m}
}

func (s *StaticStore) Policy(ctx context.Context, tenantID string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[tenantID]
	if !ok {
		return nil, &NotFoundError{TenantID: tenantID}
	}
	out := p
	return &out, nil
}

// Put inserts or replaces a policy. Used by configuration reload.
func (s *StaticStore) Put(p Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.TenantID] = p
}

// Replace swaps the entire policy set atomically.
func (s *StaticStore) Replace(policies []Policy) {
	m := make(map[string]Policy, len(policies))
	for _, p := range policies {
		m[p.TenantID] = p
	}
	s.mu.Lock()
	s.policies = m
	s.mu.Unlock()
}

type cacheEntry struct {
	policy  Policy
	expires time.Time
}

// CachingStore wraps a slower Store with a TTL cache. Concurrent
// misses for the same tenant are collapsed into a single upstream
// lookup.
type CachingStore struct {
	upstream Store
	ttl      time.Duration
	group    singleflight.Group

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewCachingStore wraps upstream with a cache. A non-positive ttl
// defaults to one minute.
func NewCachingStore(upstream Store, ttl time.Duration) *CachingStore {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachingStore{
		upstream: upstream,
		ttl:      ttl,
		cache:    make(map[string]cacheEntry),
	}
}

func (c *CachingStore) Policy(ctx context.Context, tenantID string) (*Policy, error) {
	c.mu.RLock()
	entry, ok := c.cache[tenantID]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expires) {
		out := entry.policy
		return &out, nil
	}

	v, err, _ := c.group.Do(tenantID, func() (interface{}, error) {
		p, err := c.upstream.Policy(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[tenantID] = cacheEntry{policy: *p, expires: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return *p, nil
	})
	if err != nil {
		return nil, err
	}
	p := v.(Policy)
	return &p, nil
}

// Invalidate drops a tenant from the cache.
func (c *CachingStore) Invalidate(tenantID string) {
	c.mu.Lock()
	delete(c.cache, tenantID)
	c.mu.Unlock()
}
