package okx

import (
	"context"
	"math"
	"net/url"
	"strconv"

	clierr "okx-dex-agent/internal/errors"
)

const (
	pathBridgeTokens     = "/api/v5/dex/cross-chain/supported/tokens"
	pathBridges          = "/api/v5/dex/cross-chain/supported/bridges"
	pathBridgeTokenPairs = "/api/v5/dex/cross-chain/supported/bridge-tokens-pairs"
	pathCrossChainQuote  = "/api/v5/dex/cross-chain/quote"
	pathCrossChainBuild  = "/api/v5/dex/cross-chain/build-tx"
)

// BridgeAPI is the cross-chain facade over the OKX bridge aggregator.
type BridgeAPI struct {
	http HTTPClient
}

func NewBridgeAPI(http HTTPClient) *BridgeAPI {
	return &BridgeAPI{http: http}
}

func (b *BridgeAPI) GetSupportedTokens(ctx context.Context, chainID string) (Response[BridgeToken], error) {
	params := url.Values{}
	params.Set("chainId", chainID)

	var resp Response[BridgeToken]
	if err := b.http.Get(ctx, pathBridgeTokens, params, &resp); err != nil {
		return Response[BridgeToken]{}, err
	}
	return resp, nil
}

func (b *BridgeAPI) GetSupportedBridges(ctx context.Context, chainID string) (Response[BridgeInfo], error) {
	params := url.Values{}
	params.Set("chainId", chainID)

	var resp Response[BridgeInfo]
	if err := b.http.Get(ctx, pathBridges, params, &resp); err != nil {
		return Response[BridgeInfo]{}, err
	}
	return resp, nil
}

func (b *BridgeAPI) GetBridgeTokenPairs(ctx context.Context, fromChainID string) (Response[BridgeTokenPair], error) {
	params := url.Values{}
	params.Set("fromChainId", fromChainID)

	var resp Response[BridgeTokenPair]
	if err := b.http.Get(ctx, pathBridgeTokenPairs, params, &resp); err != nil {
		return Response[BridgeTokenPair]{}, err
	}
	return resp, nil
}

// GetCrossChainQuote quotes a cross-chain swap. Bridge slippage is bounded to
// [0.002, 0.5] before any network call.
func (b *BridgeAPI) GetCrossChainQuote(ctx context.Context, p CrossChainQuoteParams) (Response[CrossChainQuote], error) {
	if err := validateBridgeSlippage(p.Slippage); err != nil {
		return Response[CrossChainQuote]{}, err
	}

	params := url.Values{}
	params.Set("fromChainId", p.FromChainID)
	params.Set("toChainId", p.ToChainID)
	params.Set("fromTokenAddress", p.FromTokenAddress)
	params.Set("toTokenAddress", p.ToTokenAddress)
	params.Set("amount", p.Amount)
	params.Set("slippage", p.Slippage)

	var resp Response[CrossChainQuote]
	if err := b.http.Get(ctx, pathCrossChainQuote, params, &resp); err != nil {
		return Response[CrossChainQuote]{}, err
	}
	return resp, nil
}

// BuildCrossChainSwap builds the cross-chain swap transaction. A wallet
// address is required; slippage is optional but bounded like the quote's
// when provided.
func (b *BridgeAPI) BuildCrossChainSwap(ctx context.Context, p BuildCrossChainTxParams) (Response[CrossChainTx], error) {
	if p.UserWalletAddress == "" {
		return Response[CrossChainTx]{}, clierr.New(clierr.CodeValidation, "userWalletAddress is required")
	}
	if p.Slippage != "" {
		if err := validateBridgeSlippage(p.Slippage); err != nil {
			return Response[CrossChainTx]{}, err
		}
	}

	params := url.Values{}
	params.Set("fromChainId", p.FromChainID)
	params.Set("toChainId", p.ToChainID)
	params.Set("fromTokenAddress", p.FromTokenAddress)
	params.Set("toTokenAddress", p.ToTokenAddress)
	params.Set("amount", p.Amount)
	params.Set("slippage", p.Slippage)
	params.Set("userWalletAddress", p.UserWalletAddress)
	params.Set("receiveAddress", p.ReceiveAddress)

	var resp Response[CrossChainTx]
	if err := b.http.Get(ctx, pathCrossChainBuild, params, &resp); err != nil {
		return Response[CrossChainTx]{}, err
	}
	return resp, nil
}

func validateBridgeSlippage(slippage string) error {
	v, err := strconv.ParseFloat(slippage, 64)
	if err != nil || math.IsNaN(v) || v < 0.002 || v > 0.5 {
		return clierr.New(clierr.CodeValidation, "Slippage must be between 0.002 and 0.5")
	}
	return nil
}
