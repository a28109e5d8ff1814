package main

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"lukechampine.com/uint128"

	"whirlpools/internal/clmath"
	"whirlpools/internal/model"
)

func parseHash(name, value string) (common.Hash, error) {
	if value == "" {
		return common.Hash{}, fmt.Errorf("%s is required", name)
	}
	raw, err := hexutil.Decode(value)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid %s %q: %w", name, value, err)
	}
	if len(raw) > common.HashLength {
		return common.Hash{}, fmt.Errorf("invalid %s %q: longer than %d bytes", name, value, common.HashLength)
	}
	return common.BytesToHash(raw), nil
}

func parseHashes(name string, values []string) ([]common.Hash, error) {
	out := make([]common.Hash, 0, len(values))
	for _, value := range values {
		h, err := parseHash(name, value)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}

// parseLimit reads a sqrt price limit. Empty means no limit in the swap
// direction.
func parseLimit(value string, aToB bool) (uint128.Uint128, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "":
		if aToB {
			return clmath.MinSqrtPriceX64, nil
		}
		return clmath.MaxSqrtPriceX64, nil
	case "min":
		return clmath.MinSqrtPriceX64, nil
	case "max":
		return clmath.MaxSqrtPriceX64, nil
	}
	limit, err := model.ParseU128(value)
	if err != nil {
		return uint128.Zero, fmt.Errorf("invalid sqrt price limit %q: %w", value, err)
	}
	return limit, nil
}
