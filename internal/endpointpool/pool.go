// Package endpointpool maintains one logical ledger connection on top of a
// static list of unreliable JSON-RPC endpoints.
package endpointpool

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"plaza-social/go-client/internal/jsonrpc"
	"plaza-social/go-client/pkg/models"
)

const (
	HealthUnknown = "unknown"
	HealthHealthy = "healthy"
	HealthFailed  = "failed"

	StateConnecting = "connecting"
	StateReady      = "ready"
	StateDegraded   = "degraded"
	StateClosed     = "closed"
)

// ProbeMethod is the cheap read used as the startup health probe.
const ProbeMethod = "condenser_api.get_dynamic_global_properties"

var (
	ErrNoEndpoints = errors.New("no endpoints configured")
	// ErrAllEndpointsUnavailable means every attempted endpoint failed at
	// the transport level. Retryable after backoff.
	ErrAllEndpointsUnavailable = errors.New("all endpoints unavailable")
	// ErrDegraded signals that the startup probe exhausted its retries;
	// reads and writes are still attempted against the pool.
	ErrDegraded = errors.New("endpoint pool is degraded")
	ErrClosed   = errors.New("endpoint pool is closed")
)

// Caller abstracts the JSON-RPC transport; satisfied by *jsonrpc.Client.
type Caller interface {
	Call(ctx context.Context, url, method string, params any) (json.RawMessage, error)
}

type Config struct {
	Endpoints       []string      `yaml:"endpoints"`
	CallTimeout     time.Duration `yaml:"callTimeout"`
	MaxAttempts     int           `yaml:"maxAttempts"`
	ProbeRetries    int           `yaml:"probeRetries"`
	ProbeRetryDelay time.Duration `yaml:"probeRetryDelay"`
}

func DefaultConfig() Config {
	return Config{
		CallTimeout:     10 * time.Second,
		MaxAttempts:     0, // 0 means one attempt per configured endpoint
		ProbeRetries:    3,
		ProbeRetryDelay: 2 * time.Second,
	}
}

func normalizeConfig(cfg Config) Config {
	def := DefaultConfig()
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = def.CallTimeout
	}
	if cfg.MaxAttempts < 0 {
		cfg.MaxAttempts = 0
	}
	if cfg.ProbeRetries <= 0 {
		cfg.ProbeRetries = def.ProbeRetries
	}
	if cfg.ProbeRetryDelay <= 0 {
		cfg.ProbeRetryDelay = def.ProbeRetryDelay
	}
	return cfg
}

type endpoint struct {
	url                 string
	health              string
	consecutiveFailures int
	lastUsed            time.Time
}

// Pool tracks endpoint health and exposes a single logical Call. The health
// table is the only shared mutable state; every read-modify-write on it
// happens under the pool mutex.
type Pool struct {
	mu        sync.Mutex
	cfg       Config
	caller    Caller
	endpoints []*endpoint
	state     string
	lastProbe time.Time
	probes    int
	logger    *slog.Logger
	metrics   *Metrics
}

func New(cfg Config, caller Caller, logger *slog.Logger) (*Pool, error) {
	cfg = normalizeConfig(cfg)
	if len(cfg.Endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	if caller == nil {
		caller = jsonrpc.NewClient()
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	eps := make([]*endpoint, 0, len(cfg.Endpoints))
	for _, u := range cfg.Endpoints {
		eps = append(eps, &endpoint{url: u, health: HealthUnknown})
	}
	return &Pool{
		cfg:       cfg,
		caller:    caller,
		endpoints: eps,
		state:     StateConnecting,
		logger:    logger,
	}, nil
}

// SetMetrics attaches prometheus instrumentation; nil metrics are allowed.
func (p *Pool) SetMetrics(m *Metrics) {
	p.mu.Lock()
	p.metrics = m
	p.mu.Unlock()
}

// Start runs the startup health probe. On the first success the pool is
// ready; after the initial pass the whole pool is retried up to
// ProbeRetries more times with a fixed delay before the pool settles into
// degraded mode.
func (p *Pool) Start(ctx context.Context) error {
	passes := p.cfg.ProbeRetries + 1
	for attempt := 1; attempt <= passes; attempt++ {
		p.mu.Lock()
		p.probes = attempt
		p.lastProbe = time.Now().UTC()
		p.mu.Unlock()

		if _, err := p.Call(ctx, ProbeMethod, nil); err == nil {
			p.setState(StateReady)
			p.logger.Info("endpoint pool ready", "probe_attempts", attempt)
			return nil
		} else if ctx.Err() != nil {
			p.setState(StateDegraded)
			return ctx.Err()
		} else {
			p.logger.Warn("endpoint pool probe failed", "attempt", attempt, "error", err)
		}

		if attempt < passes {
			select {
			case <-ctx.Done():
				p.setState(StateDegraded)
				return ctx.Err()
			case <-time.After(p.cfg.ProbeRetryDelay):
			}
		}
	}
	p.setState(StateDegraded)
	p.logger.Warn("endpoint pool degraded after probe retries", "retries", p.cfg.ProbeRetries)
	return ErrDegraded
}

// Call tries endpoints in health-biased order until one answers. Transport
// failures mark the endpoint failed and move on; an RPC error object means
// the endpoint is reachable and is returned to the caller unchanged.
func (p *Pool) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	ordered, maxAttempts, m, err := p.callPlan()
	if err != nil {
		return nil, err
	}

	attempts := 0
	for _, ep := range ordered {
		if attempts >= maxAttempts {
			break
		}
		attempts++

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
		result, callErr := p.caller.Call(callCtx, ep, method, params)
		cancel()

		if callErr == nil {
			p.markSuccess(ep)
			m.recordCall(method, true)
			return result, nil
		}

		var rpcErr *jsonrpc.RPCError
		if errors.As(callErr, &rpcErr) {
			// The endpoint answered; the ledger refused the call.
			p.markSuccess(ep)
			m.recordCall(method, true)
			return nil, callErr
		}

		if ctx.Err() != nil {
			// Caller deadline or cancellation, not an endpoint fault.
			m.recordCall(method, false)
			return nil, ctx.Err()
		}

		p.markFailure(ep)
		m.recordCall(method, false)
		m.recordFailover()
		p.logger.Warn("endpoint call failed, trying next",
			"endpoint", ep, "method", method, "error", callErr)
	}
	m.recordExhausted()
	return nil, ErrAllEndpointsUnavailable
}

// callPlan snapshots the endpoint order for one call: healthy and unknown
// endpoints in configuration order first, failed ones as last resort.
func (p *Pool) callPlan() ([]string, int, *Metrics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == StateClosed {
		return nil, 0, nil, ErrClosed
	}
	idx := make([]int, len(p.endpoints))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return healthRank(p.endpoints[idx[a]].health) < healthRank(p.endpoints[idx[b]].health)
	})
	ordered := make([]string, len(idx))
	for i, j := range idx {
		ordered[i] = p.endpoints[j].url
	}
	maxAttempts := p.cfg.MaxAttempts
	if maxAttempts <= 0 || maxAttempts > len(ordered) {
		maxAttempts = len(ordered)
	}
	return ordered, maxAttempts, p.metrics, nil
}

func healthRank(health string) int {
	switch health {
	case HealthHealthy:
		return 0
	case HealthUnknown:
		return 1
	default:
		return 2
	}
}

func (p *Pool) markSuccess(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.health = HealthHealthy
			ep.consecutiveFailures = 0
			ep.lastUsed = time.Now().UTC()
			return
		}
	}
}

func (p *Pool) markFailure(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ep := range p.endpoints {
		if ep.url == url {
			ep.health = HealthFailed
			ep.consecutiveFailures++
			ep.lastUsed = time.Now().UTC()
			return
		}
	}
}

func (p *Pool) setState(next string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state != StateClosed {
		p.state = next
	}
}

func (p *Pool) Close() {
	p.mu.Lock()
	p.state = StateClosed
	p.mu.Unlock()
}

func (p *Pool) Status() models.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	healthy := 0
	for _, ep := range p.endpoints {
		if ep.health == HealthHealthy {
			healthy++
		}
	}
	return models.PoolStatus{
		State:            p.state,
		HealthyEndpoints: healthy,
		TotalEndpoints:   len(p.endpoints),
		LastProbe:        p.lastProbe,
		ProbeAttempts:    p.probes,
	}
}

func (p *Pool) Endpoints() []models.EndpointStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]models.EndpointStatus, 0, len(p.endpoints))
	for _, ep := range p.endpoints {
		out = append(out, models.EndpointStatus{
			URL:                 ep.url,
			Health:              ep.health,
			ConsecutiveFailures: ep.consecutiveFailures,
			LastUsed:            ep.lastUsed,
		})
	}
	return out
}
