// Package monitor periodically reads the escrow contract's order counter
// and exports it as a gauge, as a cheap cross-check that the bridge keeps
// up with on-chain activity.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/stxbridge/bridger/pkg/clarity"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/metrics"
)

const orderCountFunction = "get-order-count"

// ReadOnlyCaller executes read-only functions on the escrow contract.
type ReadOnlyCaller interface {
	CallReadOnly(ctx context.Context, function string, args []string) (clarity.Value, error)
}

// Monitor polls the contract order counter on a fixed interval. It has an
// explicit lifecycle: Start launches the loop, Stop blocks until it exits.
type Monitor struct {
	caller   ReadOnlyCaller
	interval time.Duration
	logger   logger.Logger

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a monitor over a read-only contract caller.
func New(caller ReadOnlyCaller, interval time.Duration, log logger.Logger) *Monitor {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Monitor{
		caller:   caller,
		interval: interval,
		logger:   log,
	}
}

// Start launches the polling loop. Starting an already running monitor is
// a no-op.
func (m *Monitor) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return
	}
	m.started = true
	m.stopCh = make(chan struct{})
	m.doneCh = make(chan struct{})

	go m.run(ctx, m.stopCh, m.doneCh)
	m.logger.InfoWithChain("stacks", "Order count monitor started, polling every %s", m.interval)
}

// Stop halts the polling loop and waits for it to exit. Stopping a monitor
// that is not running is a no-op.
func (m *Monitor) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started {
		return
	}
	close(m.stopCh)
	<-m.doneCh
	m.started = false
	m.logger.InfoWithChain("stacks", "Order count monitor stopped")
}

func (m *Monitor) run(ctx context.Context, stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.poll(ctx)
	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.poll(ctx)
		}
	}
}

// poll reads the order counter once and updates the gauge. Failures are
// logged and retried on the next tick.
func (m *Monitor) poll(ctx context.Context) {
	val, err := m.caller.CallReadOnly(ctx, orderCountFunction, nil)
	if err != nil {
		m.logger.ErrorWithChain("stacks", "Order count poll failed: %v", err)
		return
	}

	count, ok := orderCount(val)
	if !ok {
		m.logger.NoticeWithChain("stacks", "Order count call returned unexpected value: %s", val)
		return
	}

	metrics.ContractOrderCount.Set(float64(count))
	m.logger.DebugWithChain("stacks", "Contract reports %d orders", count)
}

// orderCount digs the counter out of the call result, unwrapping the
// response envelope contracts typically return.
func orderCount(v clarity.Value) (uint64, bool) {
	for {
		switch t := v.(type) {
		case clarity.UInt:
			if !t.Val.IsUint64() {
				return 0, false
			}
			return t.Val.Uint64(), true
		case clarity.Response:
			if !t.Ok {
				return 0, false
			}
			v = t.Val
		case clarity.Optional:
			if t.Val == nil {
				return 0, false
			}
			v = t.Val
		default:
			return 0, false
		}
	}
}
