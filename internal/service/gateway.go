package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"wellmind/internal/config"
	"wellmind/internal/logging"
	"wellmind/internal/model"
)

const maxResponseBytes = 4 << 20

var (
	ErrBackendDisabled = errors.New("backend disabled")
	ErrBackendBusy     = errors.New("backend at capacity")
)

// StatusError is returned when a backend answers with a 4xx/5xx status
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}

// Gateway wraps one remote ML backend: health state, bounded dispatch and timeouts.
// It never retries; a failed call is the caller's cue to use its local fallback.
type Gateway struct {
	name   model.BackendName
	cfg    config.BackendConfig
	client *http.Client
	sem    *semaphore.Weighted
	log    *slog.Logger

	mu     sync.RWMutex
	health model.BackendHealth
}

// NewGateway creates a gateway from explicit configuration
func NewGateway(name model.BackendName, cfg config.BackendConfig) *Gateway {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ResponseHeaderTimeout: cfg.ReadTimeout,
		MaxIdleConnsPerHost:   cfg.MaxInFlight,
		IdleConnTimeout:       90 * time.Second,
	}
	maxInFlight := int64(cfg.MaxInFlight)
	if maxInFlight < 1 {
		maxInFlight = 1
	}
	return &Gateway{
		name: name,
		cfg:  cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.ConnectTimeout + cfg.ReadTimeout,
		},
		sem: semaphore.NewWeighted(maxInFlight),
		log: logging.New("gateway").With(slog.String("backend", string(name))),
		health: model.BackendHealth{
			Name:    name,
			Enabled: cfg.IsEnabled(),
		},
	}
}

// Name returns the backend identity
func (g *Gateway) Name() model.BackendName {
	return g.name
}

// Enabled reports whether the gateway will attempt remote calls
func (g *Gateway) Enabled() bool {
	return g.cfg.IsEnabled()
}

// Health returns the result of the most recent probe
func (g *Gateway) Health() model.BackendHealth {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.health
}

// HealthCheck probes the backend. Any failure, including a disabled backend, yields false.
func (g *Gateway) HealthCheck(ctx context.Context) bool {
	start := time.Now()
	ok := false
	if g.Enabled() {
		err := g.do(ctx, http.MethodGet, g.cfg.HealthPath, nil, nil)
		if err != nil {
			g.log.Debug("health probe failed", "error", err)
		}
		ok = err == nil
	}

	g.mu.Lock()
	g.health = model.BackendHealth{
		Name:            g.name,
		Enabled:         g.Enabled(),
		LastCheckResult: ok,
		LastCheckedAt:   time.Now(),
		LatencyMS:       time.Since(start).Milliseconds(),
	}
	g.mu.Unlock()
	return ok
}

// do performs one JSON round trip. in and out may be nil.
func (g *Gateway) do(ctx context.Context, method, path string, in, out any) error {
	if !g.Enabled() {
		return ErrBackendDisabled
	}

	// Waiting for a slot is bounded by the connect timeout
	acquireCtx, cancel := context.WithTimeout(ctx, g.cfg.ConnectTimeout)
	err := g.sem.Acquire(acquireCtx, 1)
	cancel()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendBusy, err)
	}
	defer g.sem.Release(1)

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.Endpoint(path), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", g.cfg.APIKey)
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	latency := time.Since(start)
	if err != nil {
		g.log.Warn("request failed", "method", method, "path", path, "latency", latency, "error", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		g.log.Warn("failed to read response", "method", method, "path", path, "latency", latency, "error", err)
		return fmt.Errorf("failed to read response body: %w", err)
	}

	g.log.Debug("request completed", "method", method, "path", path, "status", resp.StatusCode, "latency", latency)

	if resp.StatusCode >= 400 {
		g.log.Warn("backend error status", "method", method, "path", path, "status", resp.StatusCode, "latency", latency)
		return &StatusError{Code: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse %s response: %w", path, err)
		}
	}
	return nil
}

// callWithFallback posts req to path. On any failure, or when check rejects the
// decoded response, it returns fallback(req) and usedFallback=true.
func callWithFallback[Req, Resp any](
	ctx context.Context,
	g *Gateway,
	path string,
	req Req,
	check func(Resp) error,
	fallback func(Req) Resp,
) (Resp, bool) {
	var resp Resp
	err := g.do(ctx, http.MethodPost, path, req, &resp)
	if err == nil && check != nil {
		err = check(resp)
	}
	if err != nil {
		g.log.Warn("using local fallback", "path", path, "error", err)
		return fallback(req), true
	}
	return resp, false
}
