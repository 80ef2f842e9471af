package models

import (
	"time"
)

// Status is the lifecycle state of a swap order.
type Status string

const (
	// StatusPending means the order is persisted and awaiting execution on the
	// destination chain.
	StatusPending Status = "pending"
	// StatusCompleted means the destination transfer was mined successfully.
	StatusCompleted Status = "completed"
	// StatusFailed means the destination transfer failed or the chain was not
	// supported; ErrorMessage carries the reason.
	StatusFailed Status = "failed"
)

// SwapOrder is the persisted record tracking one intent's fulfillment.
// It is created once in pending and updated exactly once more to a terminal
// status; orders are never deleted.
type SwapOrder struct {
	OrderID            string    `json:"orderId" bson:"orderId"`
	User               string    `json:"user" bson:"user"`
	StxAmount          string    `json:"stxAmount" bson:"stxAmount"` // display STX from the log
	DestinationChain   string    `json:"destinationChain" bson:"destinationChain"`
	DestinationAddress string    `json:"destinationAddress" bson:"destinationAddress"`
	DestinationToken   string    `json:"destinationToken" bson:"destinationToken"`
	ExpectedAmount     string    `json:"expectedAmount" bson:"expectedAmount"`
	Status             Status    `json:"status" bson:"status"`
	ExternalTxHash     string    `json:"externalTxHash" bson:"externalTxHash"` // Stacks tx
	DestinationTxHash  string    `json:"destinationTxHash,omitempty" bson:"destinationTxHash,omitempty"`
	ErrorMessage       string    `json:"errorMessage,omitempty" bson:"errorMessage,omitempty"`
	CreatedAt          time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}
