package okx

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"

	clierr "okx-dex-agent/internal/errors"
	"okx-dex-agent/internal/model"
)

const (
	pathQuote          = "/api/v5/dex/aggregator/quote"
	pathLiquidity      = "/api/v5/dex/aggregator/get-liquidity"
	pathSupportedChain = "/api/v5/dex/aggregator/supported/chain"
	pathSwap           = "/api/v5/dex/aggregator/swap"
	pathAllTokens      = "/api/v5/dex/aggregator/all-tokens"
)

// HTTPClient is the signed request surface the facades depend on, satisfied
// by httpx.Client and mockable in tests.
type HTTPClient interface {
	Get(ctx context.Context, path string, params url.Values, out any) error
}

// SwapExecutor broadcasts a prepared swap on one chain.
type SwapExecutor interface {
	ExecuteSwap(ctx context.Context, data SwapData, params SwapParams, network NetworkConfig) (model.SwapResult, error)
}

// DexAPI is the aggregator facade: quotes, liquidity sources, chain and token
// catalogs, swap transaction building, and swap execution dispatch.
type DexAPI struct {
	http      HTTPClient
	networks  map[string]NetworkConfig
	executors map[string]SwapExecutor
}

func NewDexAPI(http HTTPClient, networks map[string]NetworkConfig) *DexAPI {
	if networks == nil {
		networks = DefaultNetworks()
	}
	return &DexAPI{
		http:      http,
		networks:  networks,
		executors: map[string]SwapExecutor{},
	}
}

// RegisterExecutor wires a chain-specific executor into ExecuteSwap dispatch.
func (d *DexAPI) RegisterExecutor(chainID string, executor SwapExecutor) {
	d.executors[chainID] = executor
}

// Network resolves the per-chain configuration; a missing entry is a
// configuration error.
func (d *DexAPI) Network(chainID string) (NetworkConfig, error) {
	cfg, ok := d.networks[chainID]
	if !ok {
		return NetworkConfig{}, clierr.New(clierr.CodeConfig, fmt.Sprintf("Network configuration not found for chain %s", chainID))
	}
	return cfg, nil
}

func (d *DexAPI) GetQuote(ctx context.Context, p QuoteParams) (Response[QuoteData], error) {
	params := url.Values{}
	params.Set("chainId", p.ChainID)
	params.Set("fromTokenAddress", p.FromTokenAddress)
	params.Set("toTokenAddress", p.ToTokenAddress)
	params.Set("amount", p.Amount)
	params.Set("slippage", p.Slippage)
	params.Set("userWalletAddress", p.UserWalletAddress)

	var resp Response[QuoteData]
	if err := d.http.Get(ctx, pathQuote, params, &resp); err != nil {
		return Response[QuoteData]{}, err
	}
	return resp, nil
}

func (d *DexAPI) GetLiquidity(ctx context.Context, chainID string) (Response[LiquidityProvider], error) {
	params := url.Values{}
	params.Set("chainId", chainID)

	var resp Response[LiquidityProvider]
	if err := d.http.Get(ctx, pathLiquidity, params, &resp); err != nil {
		return Response[LiquidityProvider]{}, err
	}
	return resp, nil
}

func (d *DexAPI) GetChainData(ctx context.Context, chainID string) (Response[ChainData], error) {
	params := url.Values{}
	params.Set("chainId", chainID)

	var resp Response[ChainData]
	if err := d.http.Get(ctx, pathSupportedChain, params, &resp); err != nil {
		return Response[ChainData]{}, err
	}
	return resp, nil
}

func (d *DexAPI) GetTokens(ctx context.Context, chainID string) (Response[Token], error) {
	params := url.Values{}
	params.Set("chainId", chainID)

	var resp Response[Token]
	if err := d.http.Get(ctx, pathAllTokens, params, &resp); err != nil {
		return Response[Token]{}, err
	}
	return resp, nil
}

// GetSwapData builds the swap transaction for the given parameters. Slippage
// is validated before any network call: either a fixed slippage in [0, 1] or
// auto-slippage with an explicit upper bound.
func (d *DexAPI) GetSwapData(ctx context.Context, p SwapParams) (Response[SwapData], error) {
	if p.Slippage == "" && !p.AutoSlippage {
		return Response[SwapData]{}, clierr.New(clierr.CodeValidation, "Either slippage or autoSlippage must be provided")
	}
	if p.Slippage != "" {
		slippage, err := strconv.ParseFloat(p.Slippage, 64)
		if err != nil || math.IsNaN(slippage) || slippage < 0 || slippage > 1 {
			return Response[SwapData]{}, clierr.New(clierr.CodeValidation, "Slippage must be between 0 and 1")
		}
	}
	if p.AutoSlippage && p.MaxAutoSlippage == "" {
		return Response[SwapData]{}, clierr.New(clierr.CodeValidation, "maxAutoSlippageBps must be provided when autoSlippage is enabled")
	}

	params := url.Values{}
	params.Set("chainId", p.ChainID)
	params.Set("fromTokenAddress", p.FromTokenAddress)
	params.Set("toTokenAddress", p.ToTokenAddress)
	params.Set("amount", p.Amount)
	params.Set("slippage", p.Slippage)
	if p.AutoSlippage {
		params.Set("autoSlippage", "true")
		params.Set("maxAutoSlippage", p.MaxAutoSlippage)
	}
	params.Set("userWalletAddress", p.UserWalletAddress)

	var resp Response[SwapData]
	if err := d.http.Get(ctx, pathSwap, params, &resp); err != nil {
		return Response[SwapData]{}, err
	}
	return resp, nil
}

// ExecuteSwap builds the swap transaction and dispatches it to the executor
// registered for the chain. Chains without an executor are unsupported.
func (d *DexAPI) ExecuteSwap(ctx context.Context, p SwapParams) (model.SwapResult, error) {
	resp, err := d.GetSwapData(ctx, p)
	if err != nil {
		return model.SwapResult{}, err
	}

	executor, ok := d.executors[p.ChainID]
	if !ok {
		return model.SwapResult{}, clierr.New(clierr.CodeUnsupported, fmt.Sprintf("Chain %s not supported for swap execution", p.ChainID))
	}

	data, ok := resp.First()
	if !ok {
		return model.SwapResult{}, clierr.New(clierr.CodeService, "Invalid swap data: missing router result")
	}

	network, err := d.Network(p.ChainID)
	if err != nil {
		return model.SwapResult{}, err
	}
	return executor.ExecuteSwap(ctx, data, p, network)
}
