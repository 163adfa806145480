/*
Package instrumented wraps a swapkit ledger with Prometheus metrics.

Metrics:
  - swapkit_ledger_calls_total{method,result} counts calls by outcome
  - swapkit_ledger_call_duration_seconds{method} measures call latency
  - swapkit_ledger_broadcasts_total counts accepted transactions

Errors of the wrapped ledger are returned unchanged.
*/
package instrumented

import (
	"context"
	"time"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/iov-one/swapkit"
	"github.com/iov-one/swapkit/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var _ swapkit.Ledger = (*Ledger)(nil)

// Metrics holds the collectors of an instrumented ledger.
type Metrics struct {
	Calls      *prometheus.CounterVec
	Duration   *prometheus.HistogramVec
	Broadcasts prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Calls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "swapkit",
				Subsystem: "ledger",
				Name:      "calls_total",
				Help:      "Total number of ledger calls by method and result",
			},
			[]string{"method", "result"},
		),
		Duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "swapkit",
				Subsystem: "ledger",
				Name:      "call_duration_seconds",
				Help:      "Duration of ledger calls in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method"},
		),
		Broadcasts: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "swapkit",
				Subsystem: "ledger",
				Name:      "broadcasts_total",
				Help:      "Total number of transactions accepted by the ledger",
			},
		),
	}
}

// Ledger records metrics around every call of the wrapped ledger.
type Ledger struct {
	next    swapkit.Ledger
	metrics *Metrics
}

// New wraps the ledger.
func New(next swapkit.Ledger, m *Metrics) *Ledger {
	return &Ledger{next: next, metrics: m}
}

// observe records a finished call. It returns err unchanged.
func (l *Ledger) observe(ctx context.Context, method string, start time.Time, err error) error {
	l.metrics.Duration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	l.metrics.Calls.WithLabelValues(method, result(err)).Inc()
	if err != nil {
		swapkit.GetLogger(ctx).Error("ledger call failed", "module", "ledger", "method", method, "err", err)
	}
	return err
}

func result(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.ErrLedger.Is(err):
		return "ledger_error"
	default:
		return "error"
	}
}

func (l *Ledger) Tip(ctx context.Context) (swapkit.ChainTip, error) {
	start := time.Now()
	tip, err := l.next.Tip(ctx)
	return tip, l.observe(ctx, "tip", start, err)
}

func (l *Ledger) GetBalance(ctx context.Context, addr btcutil.Address) (btcutil.Amount, error) {
	start := time.Now()
	amount, err := l.next.GetBalance(ctx, addr)
	return amount, l.observe(ctx, "get_balance", start, err)
}

func (l *Ledger) ListUnspent(ctx context.Context, addr btcutil.Address) ([]swapkit.UTXO, error) {
	start := time.Now()
	utxos, err := l.next.ListUnspent(ctx, addr)
	return utxos, l.observe(ctx, "list_unspent", start, err)
}

func (l *Ledger) GetFundingEvidence(ctx context.Context, op wire.OutPoint) (*wire.MsgTx, error) {
	start := time.Now()
	tx, err := l.next.GetFundingEvidence(ctx, op)
	return tx, l.observe(ctx, "get_funding_evidence", start, err)
}

func (l *Ledger) IsUnspent(ctx context.Context, op wire.OutPoint) (bool, error) {
	start := time.Now()
	ok, err := l.next.IsUnspent(ctx, op)
	return ok, l.observe(ctx, "is_unspent", start, err)
}

func (l *Ledger) Broadcast(ctx context.Context, tx *wire.MsgTx) (chainhash.Hash, error) {
	start := time.Now()
	hash, err := l.next.Broadcast(ctx, tx)
	if err == nil {
		l.metrics.Broadcasts.Inc()
	}
	return hash, l.observe(ctx, "broadcast", start, err)
}
