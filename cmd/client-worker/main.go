package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"log"
	"math/big"
	"time"

	"KoordeDHT/internal/client"
)

func randomHexBits(bits int) string {
	bytes := (bits + 7) / 8
	b := make([]byte, bytes)
	rand.Read(b)
	rem := bits % 8
	if rem != 0 {
		mask := byte((1<<rem - 1) << (8 - rem))
		b[0] &= mask
	}
	return hex.EncodeToString(b)
}

func pickRandom(nodes []string) string {
	n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(nodes))))
	return nodes[n.Int64()]
}

// fetchPeers connects to addr and asks for its status snapshot, returning
// every address it knows about (itself, its predecessor, its successors) as
// candidates for the next round of lookups.
func fetchPeers(addr string, timeout time.Duration) ([]string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c, conn, err := client.Connect(addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	resp, _, err := client.GetStatus(ctx, c)
	if err != nil {
		return nil, err
	}

	var nodes []string
	if resp.Self.Addr != "" {
		nodes = append(nodes, resp.Self.Addr)
	}
	if resp.Predecessor != nil {
		nodes = append(nodes, resp.Predecessor.Addr)
	}
	for _, s := range resp.Successors {
		nodes = append(nodes, s.Addr)
	}
	return nodes, nil
}

func main() {
	bootstrap := flag.String("bootstrap", "127.0.0.1:5000", "bootstrap node address")
	bits := flag.Int("bits", 128, "ID length in bits, used only to size random lookup keys")
	rate := flag.Float64("rate", 1.0, "lookup requests per second")
	timeout := flag.Duration("timeout", 2*time.Second, "per-request timeout")
	refresh := flag.Duration("refresh", 30*time.Second, "refresh peer list interval")
	flag.Parse()

	nodes, err := fetchPeers(*bootstrap, *timeout)
	if err != nil || len(nodes) == 0 {
		log.Fatalf("Failed to fetch peer list from bootstrap %s: %v", *bootstrap, err)
	}
	log.Printf("Bootstrap succeeded, discovered %d nodes", len(nodes))

	interval := time.Duration(float64(time.Second) / *rate)
	ticker := time.NewTicker(*refresh)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// refresh with a random node
			n := pickRandom(nodes)
			newNodes, err := fetchPeers(n, *timeout)
			if err == nil && len(newNodes) > 0 {
				nodes = newNodes
				log.Printf("Refreshed node list, now have %d nodes", len(nodes))
			}
		default:
			// perform one lookup against a random known node, using a random
			// raw key of the configured bit length
			key := randomHexBits(*bits)
			n := pickRandom(nodes)

			ctx, cancel := context.WithTimeout(context.Background(), *timeout)
			start := time.Now()
			c, conn, err := client.Connect(n)
			if err != nil {
				log.Printf("dial %s failed: %v", n, err)
				cancel()
				time.Sleep(interval)
				continue
			}
			_, _, err = client.Lookup(ctx, c, key)
			if err != nil {
				log.Printf("[lookup] key=%s via %s ERROR: %v latency=%s", key, n, err, time.Since(start))
			} else {
				log.Printf("[lookup] key=%s via %s OK latency=%s", key, n, time.Since(start))
			}
			conn.Close()
			cancel()

			time.Sleep(interval)
		}
	}
}
