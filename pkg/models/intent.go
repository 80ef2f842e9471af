package models

// SwapIntent is the structured description of a requested swap, decoded from
// the escrow contract's print event on the source transaction. It is ephemeral
// and never persisted directly; a complete intent becomes a SwapOrder.
type SwapIntent struct {
	OrderID            string `json:"order_id"`
	Sender             string `json:"sender"`
	StxAmount          uint64 `json:"stx_amount"` // microSTX from the contract log
	DestinationChain   string `json:"destination_chain"`
	DestinationAddress string `json:"destination_address"`
	DestinationToken   string `json:"destination_token"`
	ExpectedAmount     uint64 `json:"expected_amount"` // smallest unit, 6-decimal scale
}

// MissingFields returns the names of required intent fields that were not
// found in the contract log. An intent with no missing fields is complete.
func (i *SwapIntent) MissingFields() []string {
	var missing []string
	if i.OrderID == "" {
		missing = append(missing, "order-id")
	}
	if i.Sender == "" {
		missing = append(missing, "sender")
	}
	if i.StxAmount == 0 {
		missing = append(missing, "stx-amount")
	}
	if i.DestinationChain == "" {
		missing = append(missing, "destination-chain")
	}
	if i.DestinationAddress == "" {
		missing = append(missing, "destination-address")
	}
	if i.DestinationToken == "" {
		missing = append(missing, "destination-token")
	}
	if i.ExpectedAmount == 0 {
		missing = append(missing, "expected-amount")
	}
	return missing
}

// Complete reports whether all seven intent fields were decoded.
func (i *SwapIntent) Complete() bool {
	return len(i.MissingFields()) == 0
}
