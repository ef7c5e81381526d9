// Package ledger queries block explorers for token transfers used to
// reconcile crypto payments.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"

	"carpool/internal/domain"
)

var (
	// ErrUnavailable is returned when an explorer cannot be reached or
	// refuses the request. Callers should treat it as retryable.
	ErrUnavailable = errors.New("explorer unavailable")

	// ErrMalformedResponse is returned when an explorer answers with data
	// that cannot be interpreted.
	ErrMalformedResponse = errors.New("malformed explorer response")

	// ErrUnknownChain is returned when no explorer is configured for a chain.
	ErrUnknownChain = errors.New("no explorer configured for chain")
)

// TransferQuery selects transfers received by Address within [From, To].
type TransferQuery struct {
	Address       string
	TokenContract string // empty for native coin transfers
	TokenDecimals int
	From          time.Time
	To            time.Time
}

// Explorer lists transfers for one chain.
type Explorer interface {
	Chain() domain.Chain
	Transfers(ctx context.Context, q TransferQuery) ([]domain.LedgerTransfer, error)
}

// Registry resolves explorers by chain.
type Registry struct {
	explorers map[domain.Chain]Explorer
}

// NewRegistry creates a registry from the given explorers.
func NewRegistry(explorers ...Explorer) *Registry {
	r := &Registry{explorers: make(map[domain.Chain]Explorer, len(explorers))}
	for _, e := range explorers {
		r.explorers[e.Chain()] = e
	}
	return r
}

// Get returns the explorer for a chain.
func (r *Registry) Get(chain domain.Chain) (Explorer, error) {
	e, ok := r.explorers[chain]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChain, chain)
	}
	return e, nil
}

// SameAddress compares two addresses the way the chain treats them.
// EVM addresses are hex and case-insensitive; Tron base58 addresses are not.
func SameAddress(chain domain.Chain, a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if chain == domain.ChainTron {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// ToDisplayUnits converts an integer amount in base units to a decimal value.
func ToDisplayUnits(baseUnits string, decimals int) (float64, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(baseUnits), 10)
	if !ok {
		return 0, fmt.Errorf("%w: invalid amount %q", ErrMalformedResponse, baseUnits)
	}
	if decimals <= 0 {
		f, _ := new(big.Float).SetInt(v).Float64()
		return f, nil
	}
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(v), new(big.Float).SetInt(scale)).Float64()
	return f, nil
}

// NewHTTPClient returns an HTTP client whose requests are reported to New
// Relic as external segments when the context carries a transaction.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: newrelic.NewRoundTripper(nil),
	}
}

// retry runs fn up to attempts times while it fails with ErrUnavailable.
func retry(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	backoff := 250 * time.Millisecond

	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, ErrUnavailable) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return err
}

// classifyStatus turns an HTTP status code into an error, if any.
func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	case resp.StatusCode >= 300:
		return fmt.Errorf("explorer: unexpected status %s", resp.Status)
	}
	return nil
}
