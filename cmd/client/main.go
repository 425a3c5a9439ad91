package main

import (
	"KoordeDHT/internal/client"
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/peterh/liner"
)

func main() {
	addr := flag.String("addr", "bootstrap:4000", "Address of a ring node (entry point)")
	timeout := flag.Duration("timeout", 5*time.Second, "Request timeout (e.g., 5s)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	api, conn, err := client.Connect(*addr)
	if err != nil {
		log.Fatalf("failed to connect to node at %s: %v", *addr, err)
	}
	defer conn.Close()

	currentAddr := *addr
	fmt.Printf("Ring interactive client. Connected to %s\n", currentAddr)
	fmt.Println("Available commands: put/get/delete/status/lookup/use/exit")

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	for {
		input, err := line.Prompt(fmt.Sprintf("dht[%s]> ", currentAddr))
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			break
		}
		line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}
		cmd := args[0]

		ctx, cancel := context.WithTimeout(context.Background(), *timeout)

		switch cmd {

		case "put":
			if len(args) < 3 {
				fmt.Println("Usage: put <key> <value>")
				cancel()
				continue
			}
			key, value := args[1], args[2]
			delay, err := client.Put(ctx, api, key, value)
			if err != nil {
				fmt.Printf("Put failed (%v) | latency=%s\n", err, delay)
			} else {
				fmt.Printf("Put succeeded (key=%s, value=%s) | latency=%s\n", key, value, delay)
			}

		case "get":
			if len(args) < 2 {
				fmt.Println("Usage: get <key>")
				cancel()
				continue
			}
			key := args[1]
			val, delay, err := client.Get(ctx, api, key)
			switch {
			case err == nil:
				fmt.Printf("Get succeeded (key=%s, value=%s) | latency=%s\n", key, val, delay)
			case errors.Is(err, client.ErrNotFound):
				fmt.Printf("Key not found: %s | latency=%s\n", key, delay)
			default:
				fmt.Printf("Get failed: %v | latency=%s\n", err, delay)
			}

		case "delete":
			if len(args) < 2 {
				fmt.Println("Usage: delete <key>")
				cancel()
				continue
			}
			key := args[1]
			delay, err := client.Delete(ctx, api, key)
			switch {
			case err == nil:
				fmt.Printf("Delete succeeded (key=%s) | latency=%s\n", key, delay)
			case errors.Is(err, client.ErrNotFound):
				fmt.Printf("Key not found: %s | latency=%s\n", key, delay)
			default:
				fmt.Printf("Delete failed: %v | latency=%s\n", err, delay)
			}

		case "status":
			resp, delay, err := client.GetStatus(ctx, api)
			if err != nil {
				fmt.Printf("GetStatus failed: %v | latency=%s\n", err, delay)
				cancel()
				continue
			}
			fmt.Printf("Self: %s (%s)\n", hex.EncodeToString(resp.Self.ID), resp.Self.Addr)
			if resp.Predecessor != nil {
				fmt.Printf("Predecessor: %s (%s)\n", hex.EncodeToString(resp.Predecessor.ID), resp.Predecessor.Addr)
			} else {
				fmt.Println("Predecessor: (none)")
			}
			fmt.Println("Successors:")
			for i, s := range resp.Successors {
				fmt.Printf("  [%d] %s (%s)\n", i, hex.EncodeToString(s.ID), s.Addr)
			}
			fmt.Printf("Fingers: %d | stored keys: %d | uptime: %ds | latency=%s\n",
				resp.FingerCount, resp.StoredKeys, resp.UptimeSeconds, delay)

		case "lookup":
			if len(args) < 2 {
				fmt.Println("Usage: lookup <key>")
				cancel()
				continue
			}
			key := args[1]
			node, delay, err := client.Lookup(ctx, api, key)
			if err != nil {
				fmt.Printf("Lookup failed: %v | latency=%s\n", err, delay)
			} else {
				fmt.Printf("Lookup result: successor=%s (%s) | latency=%s\n",
					hex.EncodeToString(node.ID), node.Addr, delay)
			}

		case "use":
			if len(args) < 2 {
				fmt.Println("Usage: use <addr>")
				cancel()
				continue
			}
			newAddr := args[1]
			newClient, newConn, err := client.Connect(newAddr)
			if err != nil {
				fmt.Printf("Failed to connect to %s: %v\n", newAddr, err)
				cancel()
				continue
			}
			conn.Close()
			api = newClient
			conn = newConn
			currentAddr = newAddr
			fmt.Printf("Switched connection to %s\n", currentAddr)

		case "exit", "quit":
			fmt.Println("Bye!")
			cancel()
			return

		default:
			fmt.Printf("Unknown command: %s\n", cmd)
		}

		cancel()
	}
}
