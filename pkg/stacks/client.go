// Package stacks talks to a Stacks blockchain indexer. It fetches
// transactions, decodes swap intents out of escrow contract logs, and
// executes read-only contract calls.
package stacks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/stxbridge/bridger/pkg/clarity"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/models"
)

// TxInfo describes a source-chain transaction as seen by the indexer.
type TxInfo struct {
	TxID        string
	Status      string
	Finalized   bool
	Sender      string
	BlockHeight uint64

	// Intent is the decoded swap intent from the escrow contract log,
	// nil when the transaction carries no decodable intent log.
	Intent *models.SwapIntent

	// TransferAmount is the microSTX moved by the transaction's STX
	// transfer event, zero when absent. Diagnostic only.
	TransferAmount uint64
}

// Client is an HTTP client for a Stacks indexer node.
type Client struct {
	baseURL         string
	contractAddress string
	contractName    string
	httpClient      *http.Client
	logger          logger.Logger
}

// NewClient creates a Stacks indexer client scoped to one escrow contract.
func NewClient(baseURL, contractAddress, contractName string, log logger.Logger) *Client {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &Client{
		baseURL:         baseURL,
		contractAddress: contractAddress,
		contractName:    contractName,
		httpClient:      &http.Client{Timeout: 15 * time.Second},
		logger:          log,
	}
}

// contractID returns the fully qualified contract identifier.
func (c *Client) contractID() string {
	return c.contractAddress + "." + c.contractName
}

// txResponse mirrors the indexer's /extended/v1/tx/{txid} payload, trimmed
// to the fields the bridge reads.
type txResponse struct {
	TxID          string    `json:"tx_id"`
	TxStatus      string    `json:"tx_status"`
	SenderAddress string    `json:"sender_address"`
	BlockHeight   uint64    `json:"block_height"`
	Events        []txEvent `json:"events"`
}

type txEvent struct {
	EventType   string `json:"event_type"`
	ContractLog *struct {
		ContractID string `json:"contract_id"`
		Topic      string `json:"topic"`
		Value      struct {
			Hex string `json:"hex"`
		} `json:"value"`
	} `json:"contract_log,omitempty"`
	Asset *struct {
		AssetEventType string `json:"asset_event_type"`
		Sender         string `json:"sender"`
		Recipient      string `json:"recipient"`
		Amount         string `json:"amount"`
	} `json:"asset,omitempty"`
}

// GetTransaction fetches a transaction from the indexer and decodes any swap
// intent logged by the escrow contract. A transaction the indexer does not
// know yet, or a transient fetch failure, reports as not finalized rather
// than as an error so callers can keep polling.
func (c *Client) GetTransaction(ctx context.Context, txID string) (*TxInfo, error) {
	url := fmt.Sprintf("%s/extended/v1/tx/%s", c.baseURL, txID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugWithChain("stacks", "Transaction fetch failed for %s: %v", txID, err)
		return &TxInfo{TxID: txID}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.logger.DebugWithChain("stacks", "Transaction %s not indexed yet", txID)
		return &TxInfo{TxID: txID}, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.ErrorWithChain("stacks", "Indexer returned status %d for %s: %s", resp.StatusCode, txID, string(body))
		return &TxInfo{TxID: txID}, nil
	}

	var tx txResponse
	if err := json.NewDecoder(resp.Body).Decode(&tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	info := &TxInfo{
		TxID:        txID,
		Status:      tx.TxStatus,
		Finalized:   tx.TxStatus == "success",
		Sender:      tx.SenderAddress,
		BlockHeight: tx.BlockHeight,
	}

	for _, ev := range tx.Events {
		switch ev.EventType {
		case "smart_contract_log":
			if ev.ContractLog == nil || ev.ContractLog.ContractID != c.contractID() {
				continue
			}
			intent, err := c.decodeIntentLog(ev.ContractLog.Value.Hex)
			if err != nil {
				c.logger.NoticeWithChain("stacks", "Skipping undecodable contract log on %s: %v", txID, err)
				continue
			}
			// When a transaction carries several intent logs the last
			// decodable one wins.
			info.Intent = intent
		case "stx_asset":
			if ev.Asset == nil || ev.Asset.AssetEventType != "transfer" {
				continue
			}
			if amount, err := strconv.ParseUint(ev.Asset.Amount, 10, 64); err == nil {
				info.TransferAmount = amount
			}
		}
	}

	// The escrow contract does not log the sender; it is the transaction's
	// own sender address. A log value, when present, wins.
	if info.Intent != nil && info.Intent.Sender == "" {
		info.Intent.Sender = tx.SenderAddress
	}

	return info, nil
}

// broadcastError is the node's rejection payload for a broadcast.
type broadcastError struct {
	Error  string `json:"error"`
	Reason string `json:"reason"`
}

// BroadcastTransaction submits a signed transaction to the node and returns
// its transaction ID immediately, without waiting for confirmation.
func (c *Client) BroadcastTransaction(ctx context.Context, rawTx []byte) (string, error) {
	url := fmt.Sprintf("%s/v2/transactions", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(rawTx))
	if err != nil {
		return "", fmt.Errorf("failed to build broadcast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("broadcast failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("failed to read broadcast response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var rejection broadcastError
		if json.Unmarshal(body, &rejection) == nil && rejection.Reason != "" {
			return "", fmt.Errorf("transaction rejected by the node: %s", rejection.Reason)
		}
		return "", fmt.Errorf("broadcast returned status %d: %s", resp.StatusCode, string(body))
	}

	// The node answers with the txid as a JSON string.
	var txID string
	if err := json.Unmarshal(body, &txID); err != nil {
		return "", fmt.Errorf("failed to decode broadcast response: %w", err)
	}
	if !strings.HasPrefix(txID, "0x") {
		txID = "0x" + txID
	}

	c.logger.InfoWithChain("stacks", "Broadcast transaction %s", txID)
	return txID, nil
}

// decodeIntentLog parses the serialized Clarity payload of one escrow
// contract print event into a swap intent. Fields the log does not carry
// stay at their zero values.
func (c *Client) decodeIntentLog(hexPayload string) (*models.SwapIntent, error) {
	val, err := clarity.DecodeHex(hexPayload)
	if err != nil {
		return nil, err
	}

	tuple, ok := unwrapTuple(val)
	if !ok {
		return nil, fmt.Errorf("contract log is not a tuple: %s", val)
	}

	intent := &models.SwapIntent{}
	if v, ok := tuple.StringField("order-id"); ok {
		intent.OrderID = v
	}
	if v, ok := tuple.StringField("sender"); ok {
		intent.Sender = v
	}
	if v, ok := tuple.UintField("stx-amount"); ok {
		intent.StxAmount = v
	}
	if v, ok := tuple.StringField("destination-chain"); ok {
		intent.DestinationChain = v
	}
	if v, ok := tuple.StringField("destination-address"); ok {
		intent.DestinationAddress = v
	}
	if v, ok := tuple.StringField("destination-token"); ok {
		intent.DestinationToken = v
	}
	if v, ok := tuple.UintField("expected-amount"); ok {
		intent.ExpectedAmount = v
	}
	return intent, nil
}

// unwrapTuple digs a tuple out of the response/optional wrappers contracts
// commonly print.
func unwrapTuple(v clarity.Value) (clarity.Tuple, bool) {
	for {
		switch t := v.(type) {
		case clarity.Tuple:
			return t, true
		case clarity.Response:
			v = t.Val
		case clarity.Optional:
			if t.Val == nil {
				return clarity.Tuple{}, false
			}
			v = t.Val
		default:
			return clarity.Tuple{}, false
		}
	}
}

// callReadRequest is the body of a read-only contract call.
type callReadRequest struct {
	Sender    string   `json:"sender"`
	Arguments []string `json:"arguments"`
}

// callReadResponse is the indexer's read-only call result envelope.
type callReadResponse struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result"`
	Cause  string `json:"cause"`
}

// CallReadOnly executes a read-only function on the escrow contract and
// returns the decoded Clarity result. Arguments are hex-encoded serialized
// Clarity values.
func (c *Client) CallReadOnly(ctx context.Context, function string, args []string) (clarity.Value, error) {
	url := fmt.Sprintf("%s/v2/contracts/call-read/%s/%s/%s", c.baseURL, c.contractAddress, c.contractName, function)

	if args == nil {
		args = []string{}
	}
	body, err := json.Marshal(callReadRequest{Sender: c.contractAddress, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal read-only call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build read-only call request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("read-only call %s failed: %w", function, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("read-only call %s returned status %d: %s", function, resp.StatusCode, string(respBody))
	}

	var out callReadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode read-only call response: %w", err)
	}
	if !out.Okay {
		return nil, fmt.Errorf("read-only call %s rejected: %s", function, out.Cause)
	}

	return clarity.DecodeHex(out.Result)
}
