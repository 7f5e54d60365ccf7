package distributor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/eunomia-project/eunomia/core"
)

// RedisCachedDiscovery is an alternative to CachedDiscovery's in-memory TTL
// cache: it stores the whole-fleet instance list as JSON under a single
// Redis key with its own expiry, so multiple distributor processes share
// one freshly-discovered list instead of each hitting the backing source.
// The distributor owns its state and assumes no persistence layer by
// default — this is the opt-in exception.
type RedisCachedDiscovery struct {
	inner  Discovery
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisCachedDiscovery wraps inner with a Redis-backed cache at key,
// expiring after ttl.
func NewRedisCachedDiscovery(inner Discovery, client redis.UniversalClient, key string, ttl time.Duration) *RedisCachedDiscovery {
	return &RedisCachedDiscovery{inner: inner, client: client, key: key, ttl: ttl}
}

func (d *RedisCachedDiscovery) load(ctx context.Context) ([]core.Instance, bool) {
	data, err := d.client.Get(ctx, d.key).Bytes()
	if err != nil {
		return nil, false
	}
	var instances []core.Instance
	if err := json.Unmarshal(data, &instances); err != nil {
		return nil, false
	}
	return instances, true
}

func (d *RedisCachedDiscovery) store(ctx context.Context, instances []core.Instance) error {
	data, err := json.Marshal(instances)
	if err != nil {
		return errors.Wrap(err, "distributor: marshalling discovery cache entry")
	}
	return d.client.Set(ctx, d.key, data, d.ttl).Err()
}

func (d *RedisCachedDiscovery) refreshed(ctx context.Context) ([]core.Instance, error) {
	all, err := d.inner.AllInstances(ctx)
	if err != nil {
		return nil, err
	}
	if err := d.store(ctx, all); err != nil {
		return nil, errors.Wrap(err, "distributor: populating redis discovery cache")
	}
	return all, nil
}

func (d *RedisCachedDiscovery) Discover(ctx context.Context, service string) ([]core.Instance, error) {
	all, ok := d.load(ctx)
	if !ok {
		var err error
		all, err = d.refreshed(ctx)
		if err != nil {
			return nil, err
		}
	}
	var out []core.Instance
	for _, inst := range all {
		if inst.Metadata.ServiceTag == "" || inst.Metadata.ServiceTag == service {
			out = append(out, inst.Clone())
		}
	}
	return out, nil
}

func (d *RedisCachedDiscovery) AllInstances(ctx context.Context) ([]core.Instance, error) {
	if all, ok := d.load(ctx); ok {
		return all, nil
	}
	return d.refreshed(ctx)
}

func (d *RedisCachedDiscovery) Refresh(ctx context.Context) error {
	_, err := d.refreshed(ctx)
	return err
}
