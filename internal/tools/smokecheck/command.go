// Package smokecheck verifies a deployed admin API from the outside: health
// probes, the admin gate, security headers and the login throttle.
package smokecheck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/villarosa/admin-api/internal/tools/common"
	"github.com/villarosa/admin-api/internal/tools/loadgen"
)

type options struct {
	baseURL  string
	timeout  time.Duration
	loginMax int
	ci       bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "smokecheck", Short: "Verify a running admin API deployment"}
	cmd.PersistentFlags().StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall check timeout")
	cmd.PersistentFlags().IntVar(&opts.loginMax, "login-max", 5, "configured login attempts per window")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newLoadCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full smoke suite",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			checks := []struct {
				name string
				fn   func(context.Context, *options) ([]string, error)
			}{
				{"health", checkHealth},
				{"admin gate", checkGate},
				{"security headers", checkSecurityHeaders},
				{"login throttle", checkLoginThrottle},
			}
			failed := false
			for _, c := range checks {
				details, err := c.fn(ctx, opts)
				if opts.ci {
					common.PrintCIResult(err == nil, c.name, details, err)
				} else if err != nil {
					fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", c.name, err)
				} else {
					fmt.Printf("ok   %s\n", c.name)
				}
				if err != nil {
					failed = true
				}
			}
			if failed {
				os.Exit(4)
			}
			return nil
		},
	}
}

func newLoadCommand(opts *options) *cobra.Command {
	var profile string
	var duration time.Duration
	var rps int
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Generate synthetic traffic",
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := loadgen.Run(cmd.Context(), loadgen.Config{
				BaseURL:     opts.baseURL,
				Profile:     profile,
				Duration:    duration,
				RPS:         rps,
				Concurrency: 6,
				Seed:        42,
			})
			if err != nil {
				return err
			}
			details := []string{
				fmt.Sprintf("total=%d failures=%d throttled=%d", res.TotalRequests, res.Failures, res.Throttled),
			}
			if opts.ci {
				common.PrintCIResult(res.Failures == 0, "load", details, nil)
			} else {
				fmt.Println(details[0])
			}
			if res.Failures > 0 {
				os.Exit(4)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&profile, "profile", "mixed", "traffic profile: health, contact, auth or mixed")
	cmd.Flags().DurationVar(&duration, "duration", 10*time.Second, "traffic duration")
	cmd.Flags().IntVar(&rps, "rps", 20, "requests per second")
	return cmd
}

func get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	return (&http.Client{Timeout: 20 * time.Second}).Do(req)
}

func checkHealth(ctx context.Context, opts *options) ([]string, error) {
	var details []string
	for _, path := range []string{"/health/live", "/health/ready"} {
		resp, err := get(ctx, opts.baseURL+path)
		if err != nil {
			return details, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return details, fmt.Errorf("%s returned %d", path, resp.StatusCode)
		}
		details = append(details, path+": ok")
	}
	return details, nil
}

// checkGate confirms the admin surface denies anonymous callers: JSON 401
// on the API, a login redirect on the pages.
func checkGate(ctx context.Context, opts *options) ([]string, error) {
	resp, err := get(ctx, opts.baseURL+"/api/v1/users")
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		return nil, fmt.Errorf("anonymous /api/v1/users returned %d, want 401", resp.StatusCode)
	}
	details := []string{"api gate: 401"}

	client := &http.Client{
		Timeout: 20 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.baseURL+"/admin", nil)
	if err != nil {
		return details, err
	}
	pageResp, err := client.Do(req)
	if err != nil {
		return details, err
	}
	_ = pageResp.Body.Close()
	if pageResp.StatusCode != http.StatusSeeOther {
		return details, fmt.Errorf("anonymous /admin returned %d, want 303", pageResp.StatusCode)
	}
	details = append(details, "page gate: 303 to "+pageResp.Header.Get("Location"))
	return details, nil
}

func checkSecurityHeaders(ctx context.Context, opts *options) ([]string, error) {
	resp, err := get(ctx, opts.baseURL+"/health/live")
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
	} {
		if got := resp.Header.Get(header); got != want {
			return nil, fmt.Errorf("%s = %q, want %q", header, got, want)
		}
	}
	return []string{"nosniff: ok", "frame deny: ok"}, nil
}

// checkLoginThrottle hammers the credential exchange with garbage until the
// limiter answers 429. The attempts are invalid on purpose; no session is
// ever created.
func checkLoginThrottle(ctx context.Context, opts *options) ([]string, error) {
	payload := []byte(`{"token":"smokecheck-invalid-credential"}`)
	for i := 0; i < opts.loginMax+1; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			opts.baseURL+"/api/v1/auth/verify", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := (&http.Client{Timeout: 20 * time.Second}).Do(req)
		if err != nil {
			return nil, err
		}
		body, _ := decodeEnvelope(resp)
		_ = resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			return []string{fmt.Sprintf("throttled after %d attempts", i+1)}, nil
		}
		if resp.StatusCode != http.StatusUnauthorized {
			return nil, fmt.Errorf("attempt %d: got %d (%s), want 401", i+1, resp.StatusCode, body)
		}
	}
	return nil, fmt.Errorf("no 429 after %d invalid attempts", opts.loginMax+1)
}

func decodeEnvelope(resp *http.Response) (string, error) {
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	return payload.Error.Code, nil
}
