package errcode

import "errors"

// Code is a typed failure reason returned by pool operations.
type Code string

func (c Code) Error() string {
	return string(c)
}

const (
	InvalidStartTick               Code = "InvalidStartTick"
	TickArrayIndexOutofBounds      Code = "TickArrayIndexOutofBounds"
	InvalidTickSpacing             Code = "InvalidTickSpacing"
	DivideByZero                   Code = "DivideByZero"
	TickNotFound                   Code = "TickNotFound"
	SqrtPriceOutOfBounds           Code = "SqrtPriceOutOfBounds"
	LiquidityOverflow              Code = "LiquidityOverflow"
	TokenMaxExceeded               Code = "TokenMaxExceeded"
	TokenMinSubceeded              Code = "TokenMinSubceeded"
	InvalidTickArraySequence       Code = "InvalidTickArraySequence"
	MultiplicationOverflow         Code = "MultiplicationOverflow"
	InvalidSqrtPriceLimitDirection Code = "InvalidSqrtPriceLimitDirection"
	ZeroTradableAmount             Code = "ZeroTradableAmount"
	AmountOutBelowMinimum          Code = "AmountOutBelowMinimum"
	AmountInAboveMaximum           Code = "AmountInAboveMaximum"
	TickArraySequenceInvalidIndex  Code = "TickArraySequenceInvalidIndex"
	AmountCalcOverflow             Code = "AmountCalcOverflow"
	AmountRemainingOverflow        Code = "AmountRemainingOverflow"
	InvalidIntermediaryMint        Code = "InvalidIntermediaryMint"
	DuplicateTwoHopPool            Code = "DuplicateTwoHopPool"

	// Account constraint failures raised by the executor.
	TickArrayOwnerMismatch  Code = "TickArrayOwnerMismatch"
	InvalidTokenAccountMint Code = "InvalidTokenAccountMint"
	InvalidVault            Code = "InvalidVault"
	InsufficientFunds       Code = "InsufficientFunds"
)

// Of returns the Code wrapped in err, if any.
func Of(err error) (Code, bool) {
	var code Code
	if errors.As(err, &code) {
		return code, true
	}
	return "", false
}
