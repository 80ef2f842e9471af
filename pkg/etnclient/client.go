// Package etnclient executes swap payouts on the Electroneum chain, either
// as native ETN transfers or as ERC-20 token transfers.
package etnclient

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/stxbridge/bridger/pkg/circuitbreaker"
	"github.com/stxbridge/bridger/pkg/contracts"
	"github.com/stxbridge/bridger/pkg/logger"
	"github.com/stxbridge/bridger/pkg/metrics"
	"github.com/stxbridge/bridger/pkg/registry"
)

const (
	nativeTransferGasLimit = 21000
	decimalsCacheTTL       = 30 * time.Minute
)

// Client sends swap payouts from a single funded wallet. Sends are
// serialized so concurrent orders cannot race on the wallet nonce.
type Client struct {
	client      *ethclient.Client
	auth        *bind.TransactOpts
	privateKey  *ecdsa.PrivateKey
	fromAddress common.Address
	chainID     *big.Int
	registry    *registry.Registry
	breaker     *circuitbreaker.CircuitBreaker
	execTimeout time.Duration
	logger      logger.Logger
	decimals    *decimalsCache
	sendMu      sync.Mutex
}

// NewClient connects to the Electroneum RPC endpoint and prepares the
// payout wallet.
func NewClient(rpcURL string, chainID int64, privateKeyHex string, reg *registry.Registry, breaker *circuitbreaker.CircuitBreaker, execTimeout time.Duration, log logger.Logger) (*Client, error) {
	if log == nil {
		log = &logger.EmptyLogger{}
	}

	privateKey, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	id := big.NewInt(chainID)
	auth, err := bind.NewKeyedTransactorWithChainID(privateKey, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	c := &Client{
		client:      client,
		auth:        auth,
		privateKey:  privateKey,
		fromAddress: crypto.PubkeyToAddress(privateKey.PublicKey),
		chainID:     id,
		registry:    reg,
		breaker:     breaker,
		execTimeout: execTimeout,
		logger:      log,
		decimals:    newDecimalsCache(decimalsCacheTTL),
	}

	log.InfoWithChain("electroneum", "Payout wallet %s ready on chain %d", c.fromAddress.Hex(), chainID)
	return c, nil
}

// ChainName identifies the chain this executor serves. Dispatch matches it
// against the intent's destination chain value.
func (c *Client) ChainName() string {
	return "electroneum"
}

// Address returns the payout wallet address.
func (c *Client) Address() common.Address {
	return c.fromAddress
}

// ExecuteSwap pays out one swap and returns the destination transaction
// hash. The token is resolved against the asset registry and the amount is
// the decimal display string; both are validated before any network call.
func (c *Client) ExecuteSwap(ctx context.Context, token, toAddress, amountDisplay string) (string, error) {
	entry, ok := c.registry.Lookup(token)
	if !ok {
		return "", &UnsupportedAssetError{Token: token}
	}

	if !common.IsHexAddress(toAddress) {
		return "", &ExecutionError{Stage: "validate", Err: fmt.Errorf("invalid destination address %q", toAddress)}
	}
	to := common.HexToAddress(toAddress)

	amount, err := ParseUnits(amountDisplay, entry.Decimals)
	if err != nil {
		return "", &ExecutionError{Stage: "validate", Err: err}
	}

	if c.breaker != nil && c.breaker.IsOpen() {
		metrics.ExecutionErrors.WithLabelValues("circuit_open").Inc()
		return "", &ExecutionError{Stage: "circuit", Err: fmt.Errorf("circuit breaker is open, refusing to send")}
	}

	ctx, cancel := context.WithTimeout(ctx, c.execTimeout)
	defer cancel()

	// One send at a time: the wallet nonce is fetched fresh per payout and
	// two in-flight sends would collide on it.
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	var txHash string
	if entry.Native() {
		txHash, err = c.sendNative(ctx, to, amount)
	} else {
		txHash, err = c.sendToken(ctx, entry, to, amount)
	}
	if err != nil {
		if c.breaker != nil {
			c.breaker.RecordFailure()
		}
		return "", err
	}

	c.logger.InfoWithChain("electroneum", "Sent %s %s to %s in tx %s", amountDisplay, entry.Symbol, toAddress, txHash)
	return txHash, nil
}

// sendNative transfers native ETN with a plain value transaction.
func (c *Client) sendNative(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	nonce, err := c.client.PendingNonceAt(ctx, c.fromAddress)
	if err != nil {
		metrics.ExecutionErrors.WithLabelValues("nonce").Inc()
		return "", &ExecutionError{Stage: "nonce", Err: err}
	}

	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		metrics.ExecutionErrors.WithLabelValues("gas_price").Inc()
		return "", &ExecutionError{Stage: "gas_price", Err: err}
	}
	metrics.GasPrice.Set(float64(gasPrice.Int64()) / 1e9)

	tx := types.NewTransaction(nonce, to, amount, nativeTransferGasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(c.chainID), c.privateKey)
	if err != nil {
		metrics.ExecutionErrors.WithLabelValues("sign").Inc()
		return "", &ExecutionError{Stage: "sign", Err: err}
	}

	if err := c.client.SendTransaction(ctx, signed); err != nil {
		metrics.ExecutionErrors.WithLabelValues("send").Inc()
		return "", &ExecutionError{Stage: "send", Err: err}
	}

	return c.waitMined(ctx, signed)
}

// sendToken transfers an ERC-20 token through its contract binding.
func (c *Client) sendToken(ctx context.Context, entry registry.Entry, to common.Address, amount *big.Int) (string, error) {
	token, err := contracts.NewERC20(common.HexToAddress(entry.Address), c.client)
	if err != nil {
		metrics.ExecutionErrors.WithLabelValues("bind").Inc()
		return "", &ExecutionError{Stage: "bind", Err: err}
	}

	c.verifyDecimals(ctx, entry, token)

	opts := *c.auth
	opts.Context = ctx
	tx, err := token.Transfer(&opts, to, amount)
	if err != nil {
		metrics.ExecutionErrors.WithLabelValues("send").Inc()
		return "", &ExecutionError{Stage: "send", Err: err}
	}

	return c.waitMined(ctx, tx)
}

// verifyDecimals cross-checks the registry's decimal precision against the
// token contract. The registry stays authoritative; a mismatch is only
// logged. Results are cached so the check costs one RPC per token per TTL.
func (c *Client) verifyDecimals(ctx context.Context, entry registry.Entry, token *contracts.ERC20) {
	if _, ok := c.decimals.Get(entry.Address); ok {
		return
	}

	onChain, err := token.Decimals(&bind.CallOpts{Context: ctx})
	if err != nil {
		c.logger.DebugWithChain("electroneum", "Could not read decimals for %s: %v", entry.Symbol, err)
		return
	}
	c.decimals.Set(entry.Address, onChain)

	if onChain != entry.Decimals {
		c.logger.NoticeWithChain("electroneum", "Decimals mismatch for %s: registry says %d, contract says %d; using registry value",
			entry.Symbol, entry.Decimals, onChain)
	}
}

// TokenBalance reads the payout wallet's balance for a registered asset.
// It returns the balance in smallest units along with the on-chain symbol,
// falling back to the registry symbol when the contract does not answer.
func (c *Client) TokenBalance(ctx context.Context, symbol string) (*big.Int, string, error) {
	entry, ok := c.registry.Lookup(symbol)
	if !ok {
		return nil, "", &UnsupportedAssetError{Token: symbol}
	}

	if entry.Native() {
		balance, err := c.client.BalanceAt(ctx, c.fromAddress, nil)
		if err != nil {
			return nil, "", &ExecutionError{Stage: "balance", Err: err}
		}
		return balance, entry.Symbol, nil
	}

	token, err := contracts.NewERC20(common.HexToAddress(entry.Address), c.client)
	if err != nil {
		return nil, "", &ExecutionError{Stage: "bind", Err: err}
	}

	opts := &bind.CallOpts{Context: ctx}
	balance, err := token.BalanceOf(opts, c.fromAddress)
	if err != nil {
		return nil, "", &ExecutionError{Stage: "balance", Err: err}
	}

	name := entry.Symbol
	if onChain, err := token.Symbol(opts); err == nil && onChain != "" {
		name = onChain
	}
	return balance, name, nil
}

// waitMined blocks until the transaction is mined and checks its receipt.
func (c *Client) waitMined(ctx context.Context, tx *types.Transaction) (string, error) {
	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		metrics.ExecutionErrors.WithLabelValues("mine").Inc()
		return "", &ExecutionError{Stage: "mine", Err: err}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.ExecutionErrors.WithLabelValues("revert").Inc()
		return "", &ExecutionError{Stage: "mine", Err: fmt.Errorf("transaction %s reverted", tx.Hash().Hex())}
	}
	return tx.Hash().Hex(), nil
}

// Close releases the RPC connection.
func (c *Client) Close() {
	c.client.Close()
}
