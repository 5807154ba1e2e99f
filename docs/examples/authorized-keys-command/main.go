// Keyserve AuthorizedKeysCommand Example
//
// This is a minimal example of using keyserve as an sshd
// AuthorizedKeysCommand: it fetches the target user's public keys from
// the machine-lookup endpoint and prints them in authorized_keys
// format.
//
// Usage:
//   export KEYSERVE_URL="https://keyserve.internal:8080"
//   export KEYSERVE_API_KEY="your-shared-secret"
//   go build -o /usr/local/bin/keyserve-authorized-keys .
//
// Then in sshd_config:
//   AuthorizedKeysCommand /usr/local/bin/keyserve-authorized-keys %u@example.com
//   AuthorizedKeysCommandUser nobody

package main

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"
)

func main() {
	baseURL := os.Getenv("KEYSERVE_URL")
	if baseURL == "" {
		log.Fatal("KEYSERVE_URL environment variable is required")
	}
	apiKey := os.Getenv("KEYSERVE_API_KEY")
	if apiKey == "" {
		log.Fatal("KEYSERVE_API_KEY environment variable is required")
	}

	if len(os.Args) != 2 {
		log.Fatalf("usage: %s <email>", os.Args[0])
	}
	email := os.Args[1]

	// sshd waits synchronously on this command; keep the timeout short
	// so a keyserve outage degrades to key-not-found instead of
	// hanging the login.
	client := &http.Client{Timeout: 5 * time.Second}

	endpoint := baseURL + "/api/v1/users/" + url.PathEscape(email) + "/keys"
	req, err := http.NewRequest(http.MethodGet, endpoint, nil)
	if err != nil {
		log.Fatalf("build request: %v", err)
	}
	req.Header.Set("x-api-key", apiKey)

	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("lookup failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Fatalf("lookup returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("read response: %v", err)
	}

	// An unknown email yields an empty body; printing nothing means
	// sshd simply finds no keys.
	if len(body) > 0 {
		fmt.Println(string(body))
	}
}
