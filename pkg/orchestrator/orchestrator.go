// Package orchestrator drives a swap order through its lifecycle: confirm
// the source transaction, persist the order, execute the destination payout,
// and settle on a terminal status.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/metrics"
	"github.com/stxbridge/bridger/pkg/models"
	"github.com/stxbridge/bridger/pkg/stacks"
	"github.com/stxbridge/bridger/pkg/store"
)

// TransactionSource fetches the current state of a source transaction.
type TransactionSource interface {
	GetTransaction(ctx context.Context, txID string) (*stacks.TxInfo, error)
}

// Executor pays out one swap on a destination chain.
type Executor interface {
	// ChainName identifies the chain for dispatch. An intent routes to the
	// first executor whose name appears within its destination chain value.
	ChainName() string

	// ExecuteSwap sends the payout and returns the destination tx hash.
	ExecuteSwap(ctx context.Context, token, toAddress, amountDisplay string) (string, error)
}

// CreateResult is the outcome of a create-order request.
type CreateResult struct {
	Order *models.SwapOrder

	// Pending is set when the source transaction has not finalized yet.
	// Nothing is persisted; the caller retries later.
	Pending bool

	// Duplicate is set when the order already existed and was returned
	// unchanged.
	Duplicate bool
}

// Orchestrator coordinates the swap pipeline. It holds no per-order state;
// concurrent CreateOrder calls are safe and the store arbitrates duplicates.
type Orchestrator struct {
	source    TransactionSource
	store     store.OrderStore
	executors []Executor
	feeBps    int
	logger    logger.Logger
}

// New creates an orchestrator over a transaction source, an order store,
// and one executor per supported destination chain.
func New(source TransactionSource, orderStore store.OrderStore, executors []Executor, feeBps int, log logger.Logger) *Orchestrator {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Orchestrator{
		source:    source,
		store:     orderStore,
		executors: executors,
		feeBps:    feeBps,
		logger:    log,
	}
}

// CreateOrder processes a source transaction. The source is read exactly
// once: an unfinalized transaction yields a Pending result with nothing
// persisted, and the caller re-submits later. From the moment the pending
// order lands in the store every further failure is recorded on the order
// rather than lost.
func (o *Orchestrator) CreateOrder(ctx context.Context, txID string) (*CreateResult, error) {
	start := time.Now()

	info, err := o.source.GetTransaction(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transaction %s: %w", txID, err)
	}
	if !info.Finalized {
		o.logger.InfoWithChain("stacks", "Transaction %s still pending (status %q)", txID, info.Status)
		return &CreateResult{Pending: true}, nil
	}

	intent := info.Intent
	if intent == nil {
		return nil, &ValidationError{TxID: txID}
	}
	if missing := intent.MissingFields(); len(missing) > 0 {
		return nil, &ValidationError{TxID: txID, Missing: missing, Intent: intent}
	}

	now := time.Now().UTC()
	order := &models.SwapOrder{
		OrderID:            intent.OrderID,
		User:               intent.Sender,
		StxAmount:          formatMicro(intent.StxAmount),
		DestinationChain:   intent.DestinationChain,
		DestinationAddress: intent.DestinationAddress,
		DestinationToken:   intent.DestinationToken,
		ExpectedAmount:     strconv.FormatUint(intent.ExpectedAmount, 10),
		Status:             models.StatusPending,
		ExternalTxHash:     txID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	if err := o.store.Insert(ctx, order); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			metrics.DuplicateSubmissions.Inc()
			existing, getErr := o.store.Get(ctx, order.OrderID)
			if getErr != nil {
				return nil, &StoreError{Op: "get", Err: getErr}
			}
			o.logger.Info("Order %s already exists with status %s, returning unchanged", order.OrderID, existing.Status)
			return &CreateResult{Order: existing, Duplicate: true}, nil
		}
		return nil, &StoreError{Op: "insert", Err: err}
	}
	// The fee is withheld from the transfer only; the order keeps the raw
	// expected amount from the log.
	net := netAmount(intent.ExpectedAmount, o.feeBps)
	o.logger.Info("Order %s created pending for %s %s on %s (net %s after fee)",
		order.OrderID, order.ExpectedAmount, order.DestinationToken, order.DestinationChain, net)

	executor := o.executorFor(intent.DestinationChain)
	if executor == nil {
		return o.settle(ctx, order, start, "", fmt.Sprintf("Unsupported chain: %s", intent.DestinationChain))
	}

	txHash, err := executor.ExecuteSwap(ctx, intent.DestinationToken, intent.DestinationAddress, net)
	if err != nil {
		o.logger.ErrorWithChain(executor.ChainName(), "Payout for order %s failed: %v", order.OrderID, err)
		return o.settle(ctx, order, start, "", err.Error())
	}
	return o.settle(ctx, order, start, txHash, "")
}

// settle moves a pending order to its terminal status and returns the
// updated record.
func (o *Orchestrator) settle(ctx context.Context, order *models.SwapOrder, start time.Time, destTxHash, errorMessage string) (*CreateResult, error) {
	status := models.StatusCompleted
	if errorMessage != "" {
		status = models.StatusFailed
	}

	if err := o.store.UpdateStatus(ctx, order.OrderID, status, destTxHash, errorMessage); err != nil {
		return nil, &StoreError{Op: "update", Err: err}
	}

	updated, err := o.store.Get(ctx, order.OrderID)
	if err != nil {
		return nil, &StoreError{Op: "get", Err: err}
	}

	metrics.OrdersCreated.WithLabelValues(string(status)).Inc()
	metrics.SwapProcessingTime.WithLabelValues(strings.ToLower(order.DestinationChain)).Observe(time.Since(start).Seconds())
	o.logger.Info("Order %s settled as %s", order.OrderID, status)

	return &CreateResult{Order: updated}, nil
}

// executorFor picks the executor whose chain name appears within the
// intent's destination chain value, so "Electroneum Testnet" still routes
// to the electroneum executor.
func (o *Orchestrator) executorFor(destinationChain string) Executor {
	needle := strings.ToLower(destinationChain)
	for _, ex := range o.executors {
		if strings.Contains(needle, strings.ToLower(ex.ChainName())) {
			return ex
		}
	}
	return nil
}

// GetOrder fetches an order by its order ID.
func (o *Orchestrator) GetOrder(ctx context.Context, orderID string) (*models.SwapOrder, error) {
	return o.store.Get(ctx, orderID)
}

// PollStatus reports the current lifecycle status of an order alongside the
// full record. It is a pure read.
func (o *Orchestrator) PollStatus(ctx context.Context, orderID string) (models.Status, *models.SwapOrder, error) {
	order, err := o.store.Get(ctx, orderID)
	if err != nil {
		return "", nil, err
	}
	return order.Status, order, nil
}

// netAmount applies the protocol fee to an expected amount in smallest
// units and renders the result as a display string. The math is exact
// integer arithmetic, rounding down.
func netAmount(expected uint64, feeBps int) string {
	net := new(big.Int).SetUint64(expected)
	net.Mul(net, big.NewInt(int64(10000-feeBps)))
	net.Div(net, big.NewInt(10000))
	return formatMicro(net.Uint64())
}

// formatMicro renders a smallest-unit amount as a decimal display string
// with trailing zeros trimmed, e.g. 4975000 -> "4.975". Contract log
// amounts carry six decimals.
func formatMicro(micro uint64) string {
	const scale = 1000000
	whole := micro / scale
	frac := micro % scale
	if frac == 0 {
		return fmt.Sprintf("%d", whole)
	}
	s := fmt.Sprintf("%d.%06d", whole, frac)
	return strings.TrimRight(s, "0")
}
