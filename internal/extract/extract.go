// Package extract parses swap parameters out of free-text messages: amount,
// source token, and destination token, in that rough shape, with a fallback
// scan when no full pattern matches.
package extract

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	clierr "okx-dex-agent/internal/errors"
)

// NativeAssetAddress is the placeholder address used for native SOL.
const NativeAssetAddress = "11111111111111111111111111111111"

const exampleUsage = "Example: 'quote for 300 EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v to 6p6xgHyF7AeE6TZkSmFsko444wqoP15icUSqi2jfGiPN'"

// swapPatterns are tried in order; fromFirst flags the patterns whose capture
// groups are (fromToken, toToken, amount) rather than (amount, from, to).
var swapPatterns = []struct {
	re        *regexp.Regexp
	fromFirst bool
}{
	// "quote for 300 <address> to <address>"
	{regexp.MustCompile(`(?i)(?:quote|swap)?\s*(?:for)?\s*([+-]?\d*\.?\d+(?:e[+-]?\d+)?)\s*([\w.-]+)\s*(?:to|for|->|=>)\s*([\w.-]+)`), false},
	// "from <address> to <address> amount 300"
	{regexp.MustCompile(`(?i)from\s*([\w.-]+)\s*(?:to|for|->|=>)\s*([\w.-]+)\s*(?:amount|quantity)?\s*([+-]?\d*\.?\d+(?:e[+-]?\d+)?)`), true},
	// legacy "from_token: X to_token: Y amount: 300"
	{regexp.MustCompile(`(?i)from_token:\s*([\w.-]+)\s*to_token:\s*([\w.-]+)\s*amount:\s*([+-]?\d*\.?\d+(?:e[+-]?\d+)?)`), true},
}

var (
	addressPattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)
	numberPattern  = regexp.MustCompile(`([+-]?\d*\.?\d+(?:e[+-]?\d+)?)`)
	fromPattern    = regexp.MustCompile(`(?i)from\s*([\w.-]+)`)
	wordPattern    = regexp.MustCompile(`(?:^|\s)([\w.-]+)(?:\s|$)`)
	toPattern      = regexp.MustCompile(`(?i)to\s*([\w.-]+)`)
)

// RawParams are the extracted tokens and amount before address normalization
// and unit conversion.
type RawParams struct {
	FromToken string
	ToToken   string
	Amount    string
}

// SwapParams are fully resolved: validated addresses and the amount in the
// source token's smallest unit.
type SwapParams struct {
	FromTokenAddress string
	ToTokenAddress   string
	Amount           string
}

// DecimalsSource resolves the decimal count of the source token of a pair.
type DecimalsSource interface {
	FromTokenDecimals(ctx context.Context, fromToken, toToken string) (int, error)
}

// Parse scans a message for swap parameters. Each field left empty by the
// ordered patterns is filled independently from fallback scans; fields can
// still come back empty.
func Parse(message string) RawParams {
	message = strings.TrimSpace(message)

	var raw RawParams
	for _, pattern := range swapPatterns {
		match := pattern.re.FindStringSubmatch(message)
		if match == nil {
			continue
		}
		if pattern.fromFirst {
			raw.FromToken, raw.ToToken, raw.Amount = match[1], match[2], match[3]
		} else {
			raw.Amount, raw.FromToken, raw.ToToken = match[1], match[2], match[3]
		}
		break
	}

	if raw.Amount == "" || raw.FromToken == "" || raw.ToToken == "" {
		if raw.Amount == "" {
			if m := numberPattern.FindStringSubmatch(message); m != nil {
				raw.Amount = m[1]
			}
		}
		if raw.FromToken == "" {
			if m := fromPattern.FindStringSubmatch(message); m != nil {
				raw.FromToken = m[1]
			} else if m := wordPattern.FindStringSubmatch(message); m != nil {
				raw.FromToken = m[1]
			}
		}
		if raw.ToToken == "" {
			if m := toPattern.FindStringSubmatch(message); m != nil {
				raw.ToToken = m[1]
			}
		}
	}

	return raw
}

// NormalizeAddress validates a Solana address. "sol" and the all-ones literal
// map to the native placeholder; anything else must be base58 of length
// 32-44.
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	lower := strings.ToLower(address)
	if lower == NativeAssetAddress || lower == "sol" {
		return NativeAssetAddress, nil
	}
	if !addressPattern.MatchString(address) {
		return "", clierr.New(clierr.CodeValidation, fmt.Sprintf("Invalid Solana address format: %s", address))
	}
	return address, nil
}

// SwapParamsFromMessage extracts, validates, and converts swap parameters
// from a free-text message. The token decimal count is resolved through the
// given source and the amount converted to the smallest unit.
func SwapParamsFromMessage(ctx context.Context, message string, decimals DecimalsSource) (SwapParams, error) {
	raw := Parse(message)

	if raw.FromToken == "" {
		return SwapParams{}, clierr.New(clierr.CodeValidation,
			"Could not determine the source token address. Please provide a valid Solana token address. "+exampleUsage)
	}
	if raw.ToToken == "" {
		return SwapParams{}, clierr.New(clierr.CodeValidation,
			"Could not determine the target token address. Please provide a valid Solana token address. "+exampleUsage)
	}
	if raw.Amount == "" {
		return SwapParams{}, clierr.New(clierr.CodeValidation,
			"Could not determine the amount to swap. Please specify the amount. "+exampleUsage)
	}

	fromToken, err := NormalizeAddress(raw.FromToken)
	if err != nil {
		return SwapParams{}, clierr.Wrap(clierr.CodeValidation, "Address format error", err)
	}
	toToken, err := NormalizeAddress(raw.ToToken)
	if err != nil {
		return SwapParams{}, clierr.Wrap(clierr.CodeValidation, "Address format error", err)
	}

	fromDecimals, err := decimals.FromTokenDecimals(ctx, fromToken, toToken)
	if err != nil {
		return SwapParams{}, wrapProcessing(err)
	}

	amount, err := ToSmallestUnit(raw.Amount, fromDecimals)
	if err != nil {
		return SwapParams{}, wrapProcessing(err)
	}

	return SwapParams{
		FromTokenAddress: fromToken,
		ToTokenAddress:   toToken,
		Amount:           amount,
	}, nil
}

func wrapProcessing(err error) error {
	code := clierr.CodeService
	if cErr, ok := clierr.As(err); ok {
		code = cErr.Code
	}
	return clierr.Wrap(code, "Failed to process swap parameters", err)
}
