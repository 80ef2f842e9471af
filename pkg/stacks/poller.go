package stacks

import (
	"context"
	"errors"
	"time"

	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/metrics"
)

// ErrConfirmationTimeout reports that a source transaction did not finalize
// within the configured polling budget.
var ErrConfirmationTimeout = errors.New("source transaction confirmation timed out")

// ErrTransactionRejected reports that the source chain settled the
// transaction with a non-success status, so no amount of further polling
// can finalize it.
var ErrTransactionRejected = errors.New("source transaction rejected by the chain")

// Poller waits for source transactions to reach finality by polling the
// indexer at a fixed interval.
type Poller struct {
	client   *Client
	interval time.Duration
	attempts int
	logger   logger.Logger
}

// NewPoller creates a confirmation poller over an indexer client.
func NewPoller(client *Client, interval time.Duration, attempts int, log logger.Logger) *Poller {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Poller{
		client:   client,
		interval: interval,
		attempts: attempts,
		logger:   log,
	}
}

// BroadcastAndConfirm submits a signed transaction and then waits for it to
// finalize. The transaction ID is known as soon as the broadcast is
// accepted; the returned TxInfo carries it either way.
func (p *Poller) BroadcastAndConfirm(ctx context.Context, rawTx []byte) (*TxInfo, error) {
	txID, err := p.client.BroadcastTransaction(ctx, rawTx)
	if err != nil {
		return nil, err
	}
	return p.WaitForConfirmation(ctx, txID)
}

// WaitForConfirmation polls the indexer until the transaction succeeds, the
// chain rejects it, the attempt budget runs out, or the context is
// cancelled. Transient fetch failures consume an attempt but are not fatal.
// On success the returned TxInfo carries the decoded intent, if any.
func (p *Poller) WaitForConfirmation(ctx context.Context, txID string) (*TxInfo, error) {
	metrics.PendingSourceTxs.Inc()
	defer metrics.PendingSourceTxs.Dec()

	var last *TxInfo
	for attempt := 1; attempt <= p.attempts; attempt++ {
		info, err := p.client.GetTransaction(ctx, txID)
		if err != nil {
			metrics.SourceTxPolls.WithLabelValues("error").Inc()
			p.logger.ErrorWithChain("stacks", "Confirmation poll %d/%d for %s failed: %v", attempt, p.attempts, txID, err)
		} else {
			last = info
			if info.Finalized {
				metrics.SourceTxPolls.WithLabelValues("success").Inc()
				p.logger.InfoWithChain("stacks", "Transaction %s finalized at height %d after %d polls", txID, info.BlockHeight, attempt)
				return info, nil
			}
			if rejected(info.Status) {
				metrics.SourceTxPolls.WithLabelValues("rejected").Inc()
				p.logger.ErrorWithChain("stacks", "Transaction %s settled with status %q", txID, info.Status)
				return info, ErrTransactionRejected
			}
			metrics.SourceTxPolls.WithLabelValues("pending").Inc()
			p.logger.DebugWithChain("stacks", "Transaction %s not finalized yet, poll %d/%d", txID, attempt, p.attempts)
		}

		if attempt == p.attempts {
			break
		}
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-time.After(p.interval):
		}
	}

	metrics.SourceTxPolls.WithLabelValues("timeout").Inc()
	return last, ErrConfirmationTimeout
}

// rejected reports whether a transaction status is a terminal failure.
func rejected(status string) bool {
	switch status {
	case "abort_by_response", "abort_by_post_condition", "dropped_replace_by_fee",
		"dropped_replace_across_fork", "dropped_too_expensive", "dropped_stale_garbage_collect":
		return true
	}
	return false
}
