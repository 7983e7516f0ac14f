package identity

import (
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"brokerage_site/internal/adapters/observability"
	"brokerage_site/internal/domain"
)

// Client resolves access tokens against a Supabase-compatible auth endpoint
// (GET {base}/auth/v1/user).
type Client struct {
	base string
	hc   *http.Client
	key  string
	rl   *rate.Limiter
}

var _ domain.IdentityVerifier = (*Client)(nil)

func New(base, anonKey string, rps int) (*Client, error) {
	if base == "" {
		return nil, fmt.Errorf("auth base URL is required")
	}
	if anonKey == "" {
		return nil, fmt.Errorf("auth API key is required")
	}
	if rps <= 0 {
		rps = 20
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 10 * time.Second},
		key:  anonKey,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (c *Client) Verify(ctx context.Context, token string) (domain.Identity, error) {
	if token == "" {
		return domain.Identity{}, domain.ErrUnauthorized
	}
	var u userPayload
	if err := c.get(ctx, c.base+"/auth/v1/user", token, &u); err != nil {
		return domain.Identity{}, err
	}
	if u.ID == "" {
		return domain.Identity{}, fmt.Errorf("%w: no user in response", domain.ErrUnauthorized)
	}
	return domain.Identity{ID: u.ID, Email: u.Email, Role: u.Role}, nil
}

// get performs a GET with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) get(ctx context.Context, url, token string, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < 3; i++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "brokerage-api/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("auth", "user", 0, time.Since(start))
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			if i < 2 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr
		}
		observability.ObserveExternal("auth", "user", resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("decode auth response: %w", err)
			}
			return nil

		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			// expired, malformed or revoked token; the user endpoint answers any of these
			io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: auth status %d", domain.ErrUnauthorized, resp.StatusCode)

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("auth remote %d", resp.StatusCode)
			if i < 2 && sleepCtx(ctx, wait) {
				continue
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return lastErr

		default:
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("auth bad status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	if lastErr == nil {
		lastErr = errors.New("auth: no attempt succeeded")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff doubles from 100ms with up to +50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 100 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
