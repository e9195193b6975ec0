package pbclient

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Kind names a cached resource of an event
type Kind string

// Cached resource kinds
const (
	KindList   Kind = "list"
	KindConfig Kind = "config"
	KindFull   Kind = "full"
	KindRoster Kind = "roster"
	KindQR     Kind = "qr"
)

// Default lifetimes
const (
	EventTTL     = 15 * time.Second
	ListTTL      = 30 * time.Second
	ReferenceTTL = 24 * time.Hour
)

// listKey is the event id slot used for the event list
const listKey = ""

var eventKinds = []Kind{KindConfig, KindFull, KindRoster}

// Cache keeps recent reads keyed by (event id, kind). Expired entries read as absent.
type Cache struct {
	store *cache.Cache
}

// NewCache creates an empty cache
func NewCache() *Cache {
	return &Cache{store: cache.New(ListTTL, time.Minute)}
}

func cacheKey(eventID string, kind Kind) string {
	return eventID + "|" + string(kind)
}

// TTL returns the lifetime used for kind
func TTL(kind Kind) time.Duration {
	switch kind {
	case KindList:
		return ListTTL
	case KindQR:
		return ReferenceTTL
	default:
		return EventTTL
	}
}

// Get returns the cached value for (eventID, kind)
func (c *Cache) Get(eventID string, kind Kind) (interface{}, bool) {
	return c.store.Get(cacheKey(eventID, kind))
}

// Set stores value with the kind's lifetime
func (c *Cache) Set(eventID string, kind Kind, value interface{}) {
	c.store.Set(cacheKey(eventID, kind), value, TTL(kind))
}

// InvalidateEvent drops every entry of eventID and the event list. The QR
// code only depends on the id and is kept.
func (c *Cache) InvalidateEvent(eventID string) {
	for _, kind := range eventKinds {
		c.store.Delete(cacheKey(eventID, kind))
	}
	c.InvalidateList()
}

// InvalidateList drops the cached event list
func (c *Cache) InvalidateList() {
	c.store.Delete(cacheKey(listKey, KindList))
}

// Flush drops everything
func (c *Cache) Flush() {
	c.store.Flush()
}

// Len returns the number of entries, including expired ones not yet evicted
func (c *Cache) Len() int {
	return c.store.ItemCount()
}

// Forget drops every entry of eventID, including reference data, and the list
func (c *Cache) Forget(eventID string) {
	c.store.Delete(cacheKey(eventID, KindQR))
	c.InvalidateEvent(eventID)
}
