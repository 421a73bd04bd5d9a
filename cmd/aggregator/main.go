// jobmate-aggregator-service
//
// Pulls job postings from public boards (Remotive, RemoteOK, Arbeitnow),
// merges them into one deduplicated feed and stores new postings in
// PostgreSQL. Exposes a REST API for searching the feed and triggering runs.
// Publishes EVENT_JOBS_SCRAPED to Redis when a run finishes.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
