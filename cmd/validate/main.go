// Command validate smoke-tests a running dashboard by calling every API
// route once and checking status, content type and body.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
)

type endpoint struct {
	path        string
	contentType string
	contains    []string
}

const jsonType = "application/json"

var endpoints = []endpoint{
	// Volume
	{path: "/api/volume/faxes", contentType: jsonType, contains: []string{`"total"`, `"period"`}},
	{path: "/api/volume/pages", contentType: jsonType, contains: []string{`"total_pages"`}},
	{path: "/api/volume/categories", contentType: jsonType, contains: []string{`"data"`}},
	{path: "/api/volume/time-of-day", contentType: jsonType, contains: []string{`"data"`}},

	// Cycle time
	{path: "/api/cycle-time/received-to-open", contentType: jsonType, contains: []string{`"overall_avg_minutes"`}},
	{path: "/api/cycle-time/processing", contentType: jsonType, contains: []string{`"overall_avg_minutes"`}},
	{path: "/api/cycle-time/state-distribution", contentType: jsonType, contains: []string{`"total"`}},

	// Productivity
	{path: "/api/productivity/by-individual", contentType: jsonType, contains: []string{`"unique_individuals"`}},
	{path: "/api/productivity/daily-average", contentType: jsonType, contains: []string{`"unique_individuals"`}},
	{path: "/api/productivity/by-individual-processing-time", contentType: jsonType, contains: []string{`"unique_individuals"`}},
	{path: "/api/productivity/category-breakdown", contentType: jsonType, contains: []string{`"data"`}},

	// Accuracy
	{path: "/api/accuracy/per-field", contentType: jsonType, contains: []string{`"overall_accuracy_pct"`}},
	{path: "/api/accuracy/document-level", contentType: jsonType, contains: []string{`"accuracy_pct"`}},
	{path: "/api/accuracy/trend", contentType: jsonType, contains: []string{`"overall_accuracy_pct"`}},
	{path: "/api/accuracy/field-level-trend", contentType: jsonType, contains: []string{`"overall_accuracy_pct"`}},

	// Rosters and selection
	{path: "/api/suppliers/", contentType: jsonType, contains: []string{`"total"`}},
	{path: "/api/suppliers/organizations", contentType: jsonType, contains: []string{`"total"`}},
	{path: "/api/suppliers/ai-enabled-count", contentType: jsonType, contains: []string{`"ai_enabled_count"`}},
	{path: "/api/organizations/active", contentType: jsonType, contains: []string{`"mode"`}},
	{path: "/api/filters", contentType: jsonType, contains: []string{`"start_date"`}},

	// Charts, summary and export
	{path: "/api/charts/volume", contentType: jsonType, contains: []string{`"data"`}},
	{path: "/api/charts/accuracy_trend", contentType: jsonType, contains: []string{`"data"`}},
	{path: "/api/summary", contentType: jsonType, contains: []string{`"mode"`, `"data"`}},
	{path: "/api/export/volume.csv", contentType: "text/csv", contains: []string{"date,count"}},

	// Service
	{path: "/api/version", contentType: jsonType, contains: []string{`"version"`}},
	{path: "/health", contentType: jsonType, contains: []string{`"status"`}},
}

type result struct {
	endpoint endpoint
	status   int
	duration time.Duration
	err      error
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the server to validate")
	verbose := flag.Bool("v", false, "Verbose output")
	timeout := flag.Duration("timeout", 10*time.Second, "Per-request timeout")
	parallel := flag.Int("parallel", 4, "Requests in flight at once")
	start := flag.String("start", "", "start_date for every request (YYYY-MM-DD)")
	end := flag.String("end", "", "end_date for every request (YYYY-MM-DD)")
	flag.Parse()

	query := url.Values{}
	if *start != "" {
		query.Set("start_date", *start)
	}
	if *end != "" {
		query.Set("end_date", *end)
	}

	client := &http.Client{Timeout: *timeout}

	fmt.Printf("Validating server at %s\n", *baseURL)
	fmt.Printf("Testing %d endpoints...\n\n", len(endpoints))

	results := make([]result, len(endpoints))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(*parallel)
	for i, ep := range endpoints {
		i, ep := i, ep
		g.Go(func() error {
			results[i] = validateEndpoint(ctx, client, *baseURL, ep, query)
			return nil
		})
	}
	g.Wait()

	var passed, failed int
	for _, r := range results {
		switch {
		case r.err != nil:
			failed++
			fmt.Printf("FAIL GET %s\n", r.endpoint.path)
			fmt.Printf("     Error: %v\n", r.err)
		case r.status != http.StatusOK:
			failed++
			fmt.Printf("FAIL GET %s\n", r.endpoint.path)
			fmt.Printf("     Status: %d (expected 200)\n", r.status)
		default:
			passed++
			if *verbose {
				fmt.Printf("PASS GET %s (%v)\n", r.endpoint.path, r.duration)
			}
		}
	}

	fmt.Printf("\n========================================\n")
	fmt.Printf("Results: %d passed, %d failed\n", passed, failed)

	if failed > 0 {
		os.Exit(1)
	}
}

func validateEndpoint(ctx context.Context, client *http.Client, baseURL string, ep endpoint, query url.Values) result {
	start := time.Now()

	u := baseURL + ep.path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to create request: %w", err)}
	}

	resp, err := client.Do(req)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return result{endpoint: ep, err: fmt.Errorf("failed to read body: %w", err)}
	}

	r := result{endpoint: ep, status: resp.StatusCode, duration: time.Since(start)}
	if resp.StatusCode != http.StatusOK {
		return r
	}
	r.err = checkBody(ep, resp.Header.Get("Content-Type"), body)
	return r
}

// checkBody validates content type, JSON well-formedness and required content
func checkBody(ep endpoint, contentType string, body []byte) error {
	if !strings.Contains(contentType, ep.contentType) {
		return fmt.Errorf("wrong content type: got %q, expected %q", contentType, ep.contentType)
	}

	if ep.contentType == jsonType {
		var js interface{}
		if err := json.Unmarshal(body, &js); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	}

	for _, needle := range ep.contains {
		if !strings.Contains(string(body), needle) {
			return fmt.Errorf("missing expected content: %q", needle)
		}
	}
	return nil
}
