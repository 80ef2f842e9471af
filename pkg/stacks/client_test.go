package stacks

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stxbridge/bridger/pkg/clarity"
)

const (
	testContractAddress = "ST23JSMGR5933QJ329PKPNNQJV6QG8Z9D33QBYDNX"
	testContractName    = "escrow-swap-v2"
)

// intentLogHex serializes an intent tuple the way the escrow contract prints it.
func intentLogHex(t *testing.T, fields map[string]clarity.Value) string {
	t.Helper()
	hex, err := clarity.EncodeHex(clarity.Tuple{Val: fields})
	require.NoError(t, err)
	return hex
}

func completeIntentFields() map[string]clarity.Value {
	return map[string]clarity.Value{
		"order-id":            clarity.NewUInt(7),
		"sender":              clarity.StringASCII{Val: "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG"},
		"stx-amount":          clarity.NewUInt(10000000),
		"destination-chain":   clarity.StringASCII{Val: "electroneum"},
		"destination-address": clarity.StringASCII{Val: "0x1111111111111111111111111111111111111111"},
		"destination-token":   clarity.StringASCII{Val: "sUSDC"},
		"expected-amount":     clarity.NewUInt(5000000),
	}
}

// txJSON builds an indexer transaction payload with the given status and
// contract log hex values.
func txJSON(status string, logHexes ...string) map[string]interface{} {
	events := make([]map[string]interface{}, 0, len(logHexes))
	for _, h := range logHexes {
		events = append(events, map[string]interface{}{
			"event_type": "smart_contract_log",
			"contract_log": map[string]interface{}{
				"contract_id": testContractAddress + "." + testContractName,
				"topic":       "print",
				"value":       map[string]interface{}{"hex": h},
			},
		})
	}
	return map[string]interface{}{
		"tx_id":          "0xabc",
		"tx_status":      status,
		"sender_address": "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG",
		"block_height":   1234,
		"events":         events,
	}
}

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := NewClient(srv.URL, testContractAddress, testContractName, nil)
	return client, srv
}

func TestGetTransaction(t *testing.T) {
	t.Run("decodes intent from finalized transaction", func(t *testing.T) {
		logHex := intentLogHex(t, completeIntentFields())
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/extended/v1/tx/0xabc", r.URL.Path)
			json.NewEncoder(w).Encode(txJSON("success", logHex))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.True(t, info.Finalized)
		assert.Equal(t, uint64(1234), info.BlockHeight)
		require.NotNil(t, info.Intent)
		assert.Equal(t, "7", info.Intent.OrderID)
		assert.Equal(t, uint64(10000000), info.Intent.StxAmount)
		assert.Equal(t, "electroneum", info.Intent.DestinationChain)
		assert.Equal(t, "sUSDC", info.Intent.DestinationToken)
		assert.Equal(t, uint64(5000000), info.Intent.ExpectedAmount)
		assert.True(t, info.Intent.Complete())
	})

	t.Run("pending transaction is not finalized", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(txJSON("pending"))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.False(t, info.Finalized)
		assert.Nil(t, info.Intent)
	})

	t.Run("unknown transaction reports not finalized without error", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xmissing")
		require.NoError(t, err)
		assert.False(t, info.Finalized)
	})

	t.Run("unreachable indexer reports not finalized without error", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
		srv.Close() // connection refused from here on

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.False(t, info.Finalized)
	})

	t.Run("skips undecodable log and keeps later decodable one", func(t *testing.T) {
		goodHex := intentLogHex(t, completeIntentFields())
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(txJSON("success", "0xff00", goodHex))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		require.NotNil(t, info.Intent)
		assert.Equal(t, "7", info.Intent.OrderID)
	})

	t.Run("last decodable log wins", func(t *testing.T) {
		first := completeIntentFields()
		first["order-id"] = clarity.NewUInt(1)
		second := completeIntentFields()
		second["order-id"] = clarity.NewUInt(2)
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(txJSON("success", intentLogHex(t, first), intentLogHex(t, second)))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		require.NotNil(t, info.Intent)
		assert.Equal(t, "2", info.Intent.OrderID)
	})

	t.Run("ignores logs from other contracts", func(t *testing.T) {
		logHex := intentLogHex(t, completeIntentFields())
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			payload := txJSON("success")
			payload["events"] = []map[string]interface{}{{
				"event_type": "smart_contract_log",
				"contract_log": map[string]interface{}{
					"contract_id": testContractAddress + ".some-other-contract",
					"topic":       "print",
					"value":       map[string]interface{}{"hex": logHex},
				},
			}}
			json.NewEncoder(w).Encode(payload)
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Nil(t, info.Intent)
	})

	t.Run("sender defaults to the transaction sender", func(t *testing.T) {
		fields := completeIntentFields()
		delete(fields, "sender")
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(txJSON("success", intentLogHex(t, fields)))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		require.NotNil(t, info.Intent)
		assert.Equal(t, "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG", info.Intent.Sender)
		assert.True(t, info.Intent.Complete())
	})

	t.Run("logged sender wins over the transaction sender", func(t *testing.T) {
		fields := completeIntentFields()
		fields["sender"] = clarity.StringASCII{Val: "ST3AM1A56AK2C1XAFJ4115ZSV26EB49BVQ10MGCS0"}
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(txJSON("success", intentLogHex(t, fields)))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		require.NotNil(t, info.Intent)
		assert.Equal(t, "ST3AM1A56AK2C1XAFJ4115ZSV26EB49BVQ10MGCS0", info.Intent.Sender)
	})

	t.Run("partial intent keeps decoded fields", func(t *testing.T) {
		fields := completeIntentFields()
		delete(fields, "destination-address")
		delete(fields, "expected-amount")
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(txJSON("success", intentLogHex(t, fields)))
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		require.NotNil(t, info.Intent)
		assert.False(t, info.Intent.Complete())
		assert.ElementsMatch(t, []string{"destination-address", "expected-amount"}, info.Intent.MissingFields())
		assert.Equal(t, "electroneum", info.Intent.DestinationChain)
	})

	t.Run("records stx transfer amount", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			payload := txJSON("success")
			payload["events"] = []map[string]interface{}{{
				"event_type": "stx_asset",
				"asset": map[string]interface{}{
					"asset_event_type": "transfer",
					"sender":           "ST2CY5V39NHDPWSXMW9QDT3HC3GD6Q6XX4CFRK9AG",
					"recipient":        testContractAddress,
					"amount":           "10000000",
				},
			}}
			json.NewEncoder(w).Encode(payload)
		})
		defer srv.Close()

		info, err := client.GetTransaction(context.Background(), "0xabc")
		require.NoError(t, err)
		assert.Equal(t, uint64(10000000), info.TransferAmount)
	})
}

func TestCallReadOnly(t *testing.T) {
	t.Run("decodes read-only call result", func(t *testing.T) {
		resultHex, err := clarity.EncodeHex(clarity.Response{Ok: true, Val: clarity.NewUInt(42)})
		require.NoError(t, err)

		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			expected := fmt.Sprintf("/v2/contracts/call-read/%s/%s/get-order-count", testContractAddress, testContractName)
			assert.Equal(t, expected, r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)

			var req callReadRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, testContractAddress, req.Sender)
			assert.NotNil(t, req.Arguments)

			json.NewEncoder(w).Encode(callReadResponse{Okay: true, Result: resultHex})
		})
		defer srv.Close()

		val, err := client.CallReadOnly(context.Background(), "get-order-count", nil)
		require.NoError(t, err)
		resp, ok := val.(clarity.Response)
		require.True(t, ok)
		assert.True(t, resp.Ok)
		assert.Equal(t, "u42", resp.Val.String())
	})

	t.Run("rejected call surfaces the cause", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(callReadResponse{Okay: false, Cause: "Unchecked(NoSuchContract)"})
		})
		defer srv.Close()

		_, err := client.CallReadOnly(context.Background(), "get-order-count", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "NoSuchContract")
	})

	t.Run("non-200 status is an error", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})
		defer srv.Close()

		_, err := client.CallReadOnly(context.Background(), "get-order-count", nil)
		require.Error(t, err)
	})
}

func TestBroadcastTransaction(t *testing.T) {
	t.Run("returns the txid immediately", func(t *testing.T) {
		var gotBody []byte
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v2/transactions", r.URL.Path)
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/octet-stream", r.Header.Get("Content-Type"))
			gotBody, _ = io.ReadAll(r.Body)
			json.NewEncoder(w).Encode("abc123")
		})
		defer srv.Close()

		txID, err := client.BroadcastTransaction(context.Background(), []byte{0xca, 0xfe})
		require.NoError(t, err)
		assert.Equal(t, "0xabc123", txID)
		assert.Equal(t, []byte{0xca, 0xfe}, gotBody)
	})

	t.Run("node rejection surfaces the reason", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(broadcastError{Error: "transaction rejected", Reason: "BadNonce"})
		})
		defer srv.Close()

		_, err := client.BroadcastTransaction(context.Background(), []byte{0x00})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "BadNonce")
	})

	t.Run("unreachable node is an error", func(t *testing.T) {
		client, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {})
		srv.Close()

		_, err := client.BroadcastTransaction(context.Background(), []byte{0x00})
		require.Error(t, err)
	})
}
