package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/keyserve/keyserve/internal/secrets"
)

type output struct {
	Key     string   `json:"key"`
	Secrets []string `json:"secrets"`
}

// rotate-api-secret writes the shared API secret list to Redis, where
// running instances pick it up on their next cache refresh. With no
// -secrets flag a fresh random secret is generated and printed.
func main() {
	var (
		redisURL    = flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection string")
		key         = flag.String("key", secrets.DefaultRedisKey, "Redis key holding the secret list")
		secretsFlag = flag.String("secrets", "", "Comma-separated secrets to install (default: generate one)")
		format      = flag.String("format", "plain", "Output format: plain or json")
	)
	flag.Parse()

	if *redisURL == "" {
		fmt.Fprintln(os.Stderr, "REDIS_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	list := secrets.ParseStatic(*secretsFlag)
	if len(list) == 0 {
		generated, err := generateSecret()
		if err != nil {
			fmt.Fprintln(os.Stderr, "generate secret:", err)
			os.Exit(1)
		}
		list = secrets.StaticSource{generated}
	}

	src, err := secrets.NewRedisSource(ctx, *redisURL, *key)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect redis:", err)
		os.Exit(1)
	}
	defer src.Close()

	if err := src.Client().Set(ctx, *key, strings.Join(list, ","), 0).Err(); err != nil {
		fmt.Fprintln(os.Stderr, "install secrets:", err)
		os.Exit(1)
	}

	out := output{
		Key:     *key,
		Secrets: list,
	}

	switch strings.ToLower(*format) {
	case "plain":
		for _, s := range out.Secrets {
			fmt.Println(s)
		}
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(out)
	default:
		fmt.Fprintln(os.Stderr, "invalid format; use plain or json")
		os.Exit(1)
	}
}

func generateSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return "ks_" + hex.EncodeToString(buf), nil
}
