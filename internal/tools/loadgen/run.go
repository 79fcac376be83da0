// Package loadgen drives synthetic traffic against a running admin API so
// dashboards and rate-limit behavior can be checked with realistic load.
package loadgen

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL string
	// Profile selects the request mix: health, contact, auth or mixed.
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int64
	Failures      int64
	StatusClasses map[string]int64
	Throttled     int64
}

type target struct {
	method string
	path   string
	body   string
}

var profiles = map[string][]target{
	"health": {
		{http.MethodGet, "/health/live", ""},
		{http.MethodGet, "/health/ready", ""},
	},
	"contact": {
		{http.MethodPost, "/api/v1/contact", `{"name":"loadgen","email":"loadgen@example.com","message":"synthetic traffic"}`},
	},
	"auth": {
		{http.MethodPost, "/api/v1/auth/verify", `{"token":"synthetic-invalid-credential"}`},
		{http.MethodGet, "/api/v1/auth/status", ""},
	},
}

func normalizeProfile(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "mixed"
	}
	return p
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func targetsFor(profile string) ([]target, error) {
	if profile == "mixed" {
		var all []target
		for _, ts := range profiles {
			all = append(all, ts...)
		}
		return all, nil
	}
	ts, ok := profiles[profile]
	if !ok {
		return nil, fmt.Errorf("unknown load profile %q", profile)
	}
	return ts, nil
}

// Run fires requests at the configured rate until the duration elapses.
// Failures are transport errors and 5xx responses; 429 is counted
// separately because the throttles are expected to engage under load.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	profile := normalizeProfile(cfg.Profile)
	targets, err := targetsFor(profile)
	if err != nil {
		return nil, err
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	rng := rand.New(rand.NewSource(cfg.Seed))
	var mu sync.Mutex
	pick := func() target {
		mu.Lock()
		defer mu.Unlock()
		return targets[rng.Intn(len(targets))]
	}

	client := &http.Client{Timeout: 10 * time.Second}
	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()

	var total, failures, throttled int64
	classCounts := make(map[string]*int64, 5)
	for _, c := range []string{"2xx", "3xx", "4xx", "5xx", "other"} {
		classCounts[c] = new(int64)
	}

	sem := make(chan struct{}, cfg.Concurrency)
	var wg sync.WaitGroup

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
		}
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break loop
		}
		wg.Add(1)
		go func(tg target) {
			defer wg.Done()
			defer func() { <-sem }()

			var body *bytes.Reader
			if tg.body != "" {
				body = bytes.NewReader([]byte(tg.body))
			} else {
				body = bytes.NewReader(nil)
			}
			req, err := http.NewRequestWithContext(ctx, tg.method, cfg.BaseURL+tg.path, body)
			if err != nil {
				atomic.AddInt64(&failures, 1)
				return
			}
			if tg.body != "" {
				req.Header.Set("Content-Type", "application/json")
			}
			atomic.AddInt64(&total, 1)
			resp, err := client.Do(req)
			if err != nil {
				if ctx.Err() == nil {
					atomic.AddInt64(&failures, 1)
				}
				return
			}
			_ = resp.Body.Close()
			atomic.AddInt64(classCounts[classifyStatusClass(resp.StatusCode)], 1)
			if resp.StatusCode == http.StatusTooManyRequests {
				atomic.AddInt64(&throttled, 1)
			}
			if resp.StatusCode >= 500 {
				atomic.AddInt64(&failures, 1)
			}
		}(pick())
	}
	wg.Wait()

	res := &Result{
		TotalRequests: atomic.LoadInt64(&total),
		Failures:      atomic.LoadInt64(&failures),
		Throttled:     atomic.LoadInt64(&throttled),
		StatusClasses: make(map[string]int64, len(classCounts)),
	}
	for class, n := range classCounts {
		res.StatusClasses[class] = atomic.LoadInt64(n)
	}
	return res, nil
}
