package model

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/sugawarayuuta/sonnet"
)

const (
	SwapKindSingle = "swap"
	SwapKindTwoHop = "two_hop_swap"

	SwapStatusOK     = "ok"
	SwapStatusFailed = "failed"
)

// SwapRecord is one journal line describing an executed or rejected swap leg.
// Two-hop swaps produce one record per hop sharing a TxID.
type SwapRecord struct {
	TxID                   string      `json:"tx_id"`
	Kind                   string      `json:"kind"`
	Hop                    int         `json:"hop,omitempty"`
	Whirlpool              common.Hash `json:"whirlpool"`
	AToB                   bool        `json:"a_to_b"`
	AmountSpecifiedIsInput bool        `json:"amount_specified_is_input"`
	Amount                 uint64      `json:"amount"`
	OtherAmountThreshold   uint64      `json:"other_amount_threshold"`
	SqrtPriceLimit         string      `json:"sqrt_price_limit"`
	AmountA                uint64      `json:"amount_a"`
	AmountB                uint64      `json:"amount_b"`
	SqrtPriceBefore        string      `json:"sqrt_price_before"`
	SqrtPriceAfter         string      `json:"sqrt_price_after,omitempty"`
	TickBefore             int32       `json:"tick_before"`
	TickAfter              int32       `json:"tick_after"`
	LiquidityBefore        string      `json:"liquidity_before"`
	LiquidityAfter         string      `json:"liquidity_after,omitempty"`
	Status                 string      `json:"status"`
	ErrorCode              string      `json:"error_code,omitempty"`
	Error                  string      `json:"error,omitempty"`
	Timestamp              uint64      `json:"timestamp"`
	RecordedAt             string      `json:"recorded_at"`
}

// Failed reports whether the record describes a rejected swap.
func (r SwapRecord) Failed() bool {
	return r.Status == SwapStatusFailed
}

// MarshalJSON keeps field names stable across encoders.
func (r SwapRecord) MarshalJSON() ([]byte, error) {
	type Alias SwapRecord
	return sonnet.Marshal(Alias(r))
}

// UnmarshalJSON decodes a SwapRecord from JSON.
func (r *SwapRecord) UnmarshalJSON(data []byte) error {
	type Alias SwapRecord
	var a Alias
	if err := sonnet.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = SwapRecord(a)
	return nil
}
