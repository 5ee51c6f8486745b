package redisclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/clinicdesk/clinic-booking/internal/clinic"
)

const slotGenKey = "slots:gen"

// SlotCache caches slot listings per filter under a generation counter; any
// write that can change a listing bumps the generation, orphaning every
// cached entry at once. Entries expire on their own TTL so orphans never
// accumulate. A cache failure is a miss, never an error: the booking
// correctness argument lives entirely in the store's uniqueness constraint.
type SlotCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSlotCache(client *redis.Client, ttl time.Duration) *SlotCache {
	return &SlotCache{client: client, ttl: ttl}
}

var _ clinic.SlotListCache = (*SlotCache)(nil)

func (c *SlotCache) key(ctx context.Context, f clinic.SlotFilter) (string, error) {
	gen, err := c.client.Get(ctx, slotGenKey).Result()
	if err != nil {
		if err != redis.Nil {
			return "", err
		}
		gen = "0"
	}
	return fmt.Sprintf("slots:g%s:doctor=%s:date=%s", gen, f.DoctorID, f.Date), nil
}

func (c *SlotCache) GetSlots(ctx context.Context, f clinic.SlotFilter) ([]clinic.SlotView, bool) {
	key, err := c.key(ctx, f)
	if err != nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var views []clinic.SlotView
	if err := json.Unmarshal(raw, &views); err != nil {
		log.Printf("slot cache: bad entry for %s: %v", key, err)
		return nil, false
	}
	return views, true
}

func (c *SlotCache) SetSlots(ctx context.Context, f clinic.SlotFilter, views []clinic.SlotView) {
	key, err := c.key(ctx, f)
	if err != nil {
		return
	}

	raw, err := json.Marshal(views)
	if err != nil {
		log.Printf("slot cache: marshal for %s: %v", key, err)
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("slot cache: set %s: %v", key, err)
	}
}

// Invalidate bumps the generation counter. Best effort: a failed bump only
// extends staleness until the entry TTLs expire.
func (c *SlotCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, slotGenKey).Err(); err != nil {
		log.Printf("slot cache: invalidate: %v", err)
	}
}
