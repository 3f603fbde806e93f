package okx

import (
	"context"
	"encoding/json"
	"net/url"
	"testing"

	clierr "okx-dex-agent/internal/errors"
	"okx-dex-agent/internal/model"
)

type fakeHTTP struct {
	paths    []string
	params   []url.Values
	response string
	err      error
}

func (f *fakeHTTP) Get(ctx context.Context, path string, params url.Values, out any) error {
	f.paths = append(f.paths, path)
	f.params = append(f.params, params)
	if f.err != nil {
		return f.err
	}
	if out == nil || f.response == "" {
		return nil
	}
	return json.Unmarshal([]byte(f.response), out)
}

type recordingExecutor struct {
	called  bool
	data    SwapData
	network NetworkConfig
	result  model.SwapResult
	err     error
}

func (r *recordingExecutor) ExecuteSwap(ctx context.Context, data SwapData, params SwapParams, network NetworkConfig) (model.SwapResult, error) {
	r.called = true
	r.data = data
	r.network = network
	return r.result, r.err
}

const swapDataResponse = `{"code":"0","msg":"","data":[{
	"routerResult":{
		"chainId":"501",
		"fromToken":{"tokenSymbol":"USDC","decimal":"6","tokenUnitPrice":"1"},
		"toToken":{"tokenSymbol":"WSOL","decimal":"9","tokenUnitPrice":"150"},
		"fromTokenAmount":"300000000",
		"toTokenAmount":"2000000000",
		"priceImpactPercentage":"0.12",
		"estimateGasFee":"5000",
		"quoteCompareList":[{"dexName":"Orca","amountOut":"2000000000","tradeFee":"0.3"}]
	},
	"tx":{"data":"payload"}
}]}`

func TestGetSwapDataRequiresSlippageOrAutoSlippage(t *testing.T) {
	http := &fakeHTTP{}
	dex := NewDexAPI(http, nil)

	_, err := dex.GetSwapData(context.Background(), SwapParams{ChainID: SolanaChainID})
	if err == nil {
		t.Fatal("expected validation error")
	}
	cErr, ok := clierr.As(err)
	if !ok || cErr.Code != clierr.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if cErr.Message != "Either slippage or autoSlippage must be provided" {
		t.Fatalf("unexpected message: %q", cErr.Message)
	}
	if len(http.paths) != 0 {
		t.Fatal("expected no network call before validation")
	}
}

func TestGetSwapDataRejectsOutOfRangeSlippage(t *testing.T) {
	dex := NewDexAPI(&fakeHTTP{}, nil)
	for _, slippage := range []string{"-0.1", "1.5", "abc"} {
		_, err := dex.GetSwapData(context.Background(), SwapParams{ChainID: SolanaChainID, Slippage: slippage})
		cErr, ok := clierr.As(err)
		if !ok || cErr.Message != "Slippage must be between 0 and 1" {
			t.Fatalf("slippage %q: unexpected error %v", slippage, err)
		}
	}
}

func TestGetSwapDataAcceptsBoundarySlippage(t *testing.T) {
	for _, slippage := range []string{"0", "1", "0.5"} {
		http := &fakeHTTP{response: swapDataResponse}
		dex := NewDexAPI(http, nil)
		if _, err := dex.GetSwapData(context.Background(), SwapParams{ChainID: SolanaChainID, Slippage: slippage}); err != nil {
			t.Fatalf("slippage %q: unexpected error %v", slippage, err)
		}
	}
}

func TestGetSwapDataAutoSlippageRequiresMaxBound(t *testing.T) {
	dex := NewDexAPI(&fakeHTTP{}, nil)
	_, err := dex.GetSwapData(context.Background(), SwapParams{ChainID: SolanaChainID, AutoSlippage: true})
	cErr, ok := clierr.As(err)
	if !ok || cErr.Message != "maxAutoSlippageBps must be provided when autoSlippage is enabled" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGetSwapDataEncodesAutoSlippage(t *testing.T) {
	http := &fakeHTTP{response: swapDataResponse}
	dex := NewDexAPI(http, nil)
	_, err := dex.GetSwapData(context.Background(), SwapParams{
		ChainID:         SolanaChainID,
		AutoSlippage:    true,
		MaxAutoSlippage: "1000",
	})
	if err != nil {
		t.Fatalf("GetSwapData failed: %v", err)
	}
	params := http.params[0]
	if params.Get("autoSlippage") != "true" {
		t.Fatalf("autoSlippage not encoded: %v", params)
	}
	if params.Get("maxAutoSlippage") != "1000" {
		t.Fatalf("maxAutoSlippage not encoded: %v", params)
	}
}

func TestGetQuoteHitsAggregatorQuotePath(t *testing.T) {
	http := &fakeHTTP{response: `{"code":"0","msg":"","data":[{"chainId":"501","fromToken":{"tokenSymbol":"USDC","decimal":"6"},"toToken":{"tokenSymbol":"WSOL","decimal":"9"},"fromTokenAmount":"1","toTokenAmount":"2","priceImpactPercentage":"0.1","quoteCompareList":[]}]}`}
	dex := NewDexAPI(http, nil)

	resp, err := dex.GetQuote(context.Background(), QuoteParams{
		ChainID:          SolanaChainID,
		FromTokenAddress: "from",
		ToTokenAddress:   "to",
		Amount:           "1000000",
		Slippage:         "0.1",
	})
	if err != nil {
		t.Fatalf("GetQuote failed: %v", err)
	}
	if http.paths[0] != "/api/v5/dex/aggregator/quote" {
		t.Fatalf("unexpected path: %s", http.paths[0])
	}
	quote, ok := resp.First()
	if !ok || quote.FromToken.TokenSymbol != "USDC" {
		t.Fatalf("unexpected quote: %+v", resp)
	}
}

func TestExecuteSwapRejectsUnsupportedChain(t *testing.T) {
	http := &fakeHTTP{response: swapDataResponse}
	dex := NewDexAPI(http, map[string]NetworkConfig{"999": {ID: "999"}})

	_, err := dex.ExecuteSwap(context.Background(), SwapParams{ChainID: "999", Slippage: "0.5"})
	cErr, ok := clierr.As(err)
	if !ok || cErr.Code != clierr.CodeUnsupported {
		t.Fatalf("expected unsupported error, got %v", err)
	}
	if cErr.Message != "Chain 999 not supported for swap execution" {
		t.Fatalf("unexpected message: %q", cErr.Message)
	}
}

func TestExecuteSwapDispatchesToRegisteredExecutor(t *testing.T) {
	http := &fakeHTTP{response: swapDataResponse}
	dex := NewDexAPI(http, nil)
	executor := &recordingExecutor{result: model.SwapResult{Success: true, TransactionID: "sig"}}
	dex.RegisterExecutor(SolanaChainID, executor)

	result, err := dex.ExecuteSwap(context.Background(), SwapParams{ChainID: SolanaChainID, Slippage: "0.5"})
	if err != nil {
		t.Fatalf("ExecuteSwap failed: %v", err)
	}
	if !executor.called {
		t.Fatal("executor was not invoked")
	}
	if executor.data.RouterResult.FromToken.TokenSymbol != "USDC" {
		t.Fatalf("executor received wrong swap data: %+v", executor.data)
	}
	if executor.network.Explorer != "https://solscan.io/tx" {
		t.Fatalf("executor received wrong network config: %+v", executor.network)
	}
	if result.TransactionID != "sig" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestNetworkMissingEntryIsConfigError(t *testing.T) {
	dex := NewDexAPI(&fakeHTTP{}, nil)
	_, err := dex.Network("1")
	cErr, ok := clierr.As(err)
	if !ok || cErr.Code != clierr.CodeConfig {
		t.Fatalf("expected config error, got %v", err)
	}
	if cErr.Message != "Network configuration not found for chain 1" {
		t.Fatalf("unexpected message: %q", cErr.Message)
	}
}

func TestDefaultSolanaNetworkConfig(t *testing.T) {
	dex := NewDexAPI(&fakeHTTP{}, nil)
	cfg, err := dex.Network(SolanaChainID)
	if err != nil {
		t.Fatalf("Network failed: %v", err)
	}
	if cfg.Explorer != "https://solscan.io/tx" || cfg.DefaultSlippage != "0.5" || cfg.MaxSlippage != "1" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ComputeUnits != 300000 || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestMergeNetworksOverridesDefaults(t *testing.T) {
	merged := MergeNetworks(map[string]NetworkConfig{
		SolanaChainID: {Explorer: "https://example.com/tx", ComputeUnits: 400000},
	})
	if merged[SolanaChainID].Explorer != "https://example.com/tx" {
		t.Fatalf("override not applied: %+v", merged[SolanaChainID])
	}
	if merged[SolanaChainID].ID != SolanaChainID {
		t.Fatalf("id not backfilled: %+v", merged[SolanaChainID])
	}
}
