package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"

	"KoordeDHT/internal/domain"
)

// CoreDNSConfig carries the etcd/CoreDNS parameters a caller needs to
// supply, independent of which package's YAML config struct they were
// parsed into.
type CoreDNSConfig struct {
	Endpoints []string
	BasePath  string
	TTL       int64
}

// CoreDNSBootstrap discovers and publishes ring membership as SRV-style
// records in an etcd tree served by the CoreDNS etcd plugin.
type CoreDNSBootstrap struct {
	client   *clientv3.Client
	basePath string
	ttl      int64
}

// NewCoreDNSBootstrap dials etcd and returns a Bootstrap backed by it.
func NewCoreDNSBootstrap(cfg CoreDNSConfig) (*CoreDNSBootstrap, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Endpoints,
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("etcd dial: %w", err)
	}
	return &CoreDNSBootstrap{
		client:   cli,
		basePath: strings.TrimSuffix(cfg.BasePath, "/"),
		ttl:      cfg.TTL,
	}, nil
}

// record mirrors the JSON shape the CoreDNS etcd plugin expects for an
// SRV-style entry.
type record struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Priority int    `json:"priority"`
	Weight   int    `json:"weight"`
	TTL      int64  `json:"ttl,omitempty"`
}

func (c *CoreDNSBootstrap) key(nodeID string) string {
	return fmt.Sprintf("%s/_dht/_tcp/%s", c.basePath, nodeID)
}

// Discover lists every record under the node tree and resolves each one
// to a dialable address.
func (c *CoreDNSBootstrap) Discover(ctx context.Context) ([]string, error) {
	resp, err := c.client.Get(ctx, c.basePath+"/_dht/_tcp/", clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("etcd get: %w", err)
	}

	var endpoints []string
	for _, kv := range resp.Kvs {
		var rec record
		if err := json.Unmarshal(kv.Value, &rec); err != nil {
			continue
		}
		endpoints = append(endpoints, net.JoinHostPort(rec.Host, fmt.Sprintf("%d", rec.Port)))
	}
	return endpoints, nil
}

// Register publishes node as a lease-backed record that expires if this
// process stops renewing it.
func (c *CoreDNSBootstrap) Register(ctx context.Context, node *domain.Node) error {
	host, port, err := net.SplitHostPort(node.Addr)
	if err != nil {
		return err
	}
	var p int
	if _, err := fmt.Sscanf(port, "%d", &p); err != nil {
		return fmt.Errorf("invalid port in %q: %w", node.Addr, err)
	}

	rec := record{Host: host, Port: p, Priority: 10, Weight: 100, TTL: c.ttl}
	val, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	lease, err := c.client.Grant(ctx, c.ttl)
	if err != nil {
		return fmt.Errorf("grant lease: %w", err)
	}
	_, err = c.client.Put(ctx, c.key(node.ID.ToHexString()), string(val), clientv3.WithLease(lease.ID))
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	// Renew the lease for as long as the etcd client stays open; ctx only
	// bounds the registration calls above.
	ka, err := c.client.KeepAlive(context.Background(), lease.ID)
	if err != nil {
		return fmt.Errorf("keep lease alive: %w", err)
	}
	go func() {
		for range ka {
		}
	}()
	return nil
}

// Deregister removes the node's record from etcd.
func (c *CoreDNSBootstrap) Deregister(ctx context.Context, node *domain.Node) error {
	_, err := c.client.Delete(ctx, c.key(node.ID.ToHexString()))
	return err
}
