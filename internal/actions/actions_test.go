package actions

import (
	"context"
	"encoding/json"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"okx-dex-agent/internal/cache"
	"okx-dex-agent/internal/config"
	"okx-dex-agent/internal/model"
	"okx-dex-agent/internal/okx"
)

const (
	usdcMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	destMint = "6p6xgHyF7AeE6TZkSmFsko444wqoP15icUSqi2jfGiPN"
)

type fakeHTTP struct {
	responses map[string]string
	params    map[string]url.Values
	calls     map[string]int
}

func newFakeHTTP() *fakeHTTP {
	return &fakeHTTP{
		responses: map[string]string{},
		params:    map[string]url.Values{},
		calls:     map[string]int{},
	}
}

func (f *fakeHTTP) Get(ctx context.Context, path string, params url.Values, out any) error {
	f.params[path] = params
	f.calls[path]++
	body, ok := f.responses[path]
	if !ok {
		body = `{"code":"0","msg":"","data":[]}`
	}
	return json.Unmarshal([]byte(body), out)
}

type stubDecimals struct {
	decimals int
}

func (s stubDecimals) FromTokenDecimals(ctx context.Context, fromToken, toToken string) (int, error) {
	return s.decimals, nil
}

type stubExecutor struct {
	result model.SwapResult
}

func (s stubExecutor) ExecuteSwap(ctx context.Context, data okx.SwapData, params okx.SwapParams, network okx.NetworkConfig) (model.SwapResult, error) {
	return s.result, nil
}

func fullSettings() config.Settings {
	return config.Settings{
		APIKey:           "k",
		SecretKey:        "s",
		Passphrase:       "p",
		ProjectID:        "pr",
		SolanaRPCURL:     "https://rpc.example.com",
		WalletPrivateKey: "key",
	}
}

func newService(http *fakeHTTP) (*Service, *okx.DexAPI) {
	dex := okx.NewDexAPI(http, nil)
	service := NewService(dex, stubDecimals{decimals: 6}, "wallet-address", nil, zerolog.Nop())
	return service, dex
}

const swapResponse = `{"code":"0","msg":"","data":[{
	"routerResult": {
		"chainId": "501",
		"fromToken": {"tokenSymbol": "USDC", "decimal": "6", "tokenUnitPrice": "1.00"},
		"toToken": {"tokenSymbol": "WSOL", "decimal": "9", "tokenUnitPrice": "150.00"},
		"fromTokenAmount": "300000000",
		"toTokenAmount": "2000000000",
		"priceImpactPercentage": "0.12",
		"estimateGasFee": "5000",
		"quoteCompareList": [{"dexName": "Raydium", "amountOut": "2.0", "tradeFee": "0.01"}]
	},
	"tx": {"data": "base58-tx-bytes", "from": "wallet-address", "to": "router", "gas": "0", "gasPrice": "0", "value": "0"}
}]}`

func TestAvailableEmptyWhenCredentialsMissing(t *testing.T) {
	service, _ := newService(newFakeHTTP())
	settings := fullSettings()
	settings.SecretKey = ""
	if actions := Available(settings, service); len(actions) != 0 {
		t.Fatalf("expected no actions, got %d", len(actions))
	}
}

func TestAvailableExposesSixActions(t *testing.T) {
	service, _ := newService(newFakeHTTP())
	actions := Available(fullSettings(), service)
	want := []string{
		ActionGetChainData,
		ActionGetLiquidityProviders,
		ActionGetSwapQuote,
		ActionGetSwapTransactionData,
		ActionGetAvailableTokens,
		ActionExecuteSwap,
	}
	if len(actions) != len(want) {
		t.Fatalf("expected %d actions, got %d", len(want), len(actions))
	}
	for i, name := range want {
		if actions[i].Name != name {
			t.Fatalf("actions[%d] = %q, want %q", i, actions[i].Name, name)
		}
		if actions[i].Handler == nil {
			t.Fatalf("action %q has no handler", name)
		}
	}
}

func TestChainDataMapsToChainInfo(t *testing.T) {
	http := newFakeHTTP()
	http.responses["/api/v5/dex/aggregator/supported/chain"] = `{"code":"0","msg":"","data":[
		{"chainId": "501", "chainName": "Solana", "dexTokenApproveAddress": ""}
	]}`
	service, _ := newService(http)

	result, err := service.Run(context.Background(), ActionGetChainData, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	payload, ok := result.(map[string]any)
	if !ok {
		t.Fatalf("unexpected payload type %T", result)
	}
	chains, ok := payload["chains"].([]model.ChainInfo)
	if !ok || len(chains) != 1 {
		t.Fatalf("unexpected chains payload: %+v", payload)
	}
	if chains[0].ID != "501" || chains[0].Name != "Solana" {
		t.Fatalf("unexpected chain info: %+v", chains[0])
	}
}

func TestSwapQuoteFormatsSummary(t *testing.T) {
	http := newFakeHTTP()
	http.responses["/api/v5/dex/aggregator/quote"] = `{"code":"0","msg":"","data":[{
		"chainId": "501",
		"fromToken": {"tokenSymbol": "USDC", "decimal": "6", "tokenUnitPrice": "1.00"},
		"toToken": {"tokenSymbol": "WSOL", "decimal": "9", "tokenUnitPrice": "150.00"},
		"fromTokenAmount": "300000000",
		"toTokenAmount": "2000000000",
		"priceImpactPercentage": "0.12",
		"quoteCompareList": [{"dexName": "Raydium", "amountOut": "2.0", "tradeFee": "0.01"}]
	}]}`
	service, _ := newService(http)

	result, err := service.Run(context.Background(), ActionGetSwapQuote, "quote for 300 "+usdcMint+" to "+destMint)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	summary, ok := result.(model.QuoteSummary)
	if !ok {
		t.Fatalf("unexpected payload type %T", result)
	}
	wantSummary := "Quote for 300.000000 USDC to WSOL:\nExpected output: 2.000000 WSOL\nPrice impact: 0.12%"
	if summary.Summary != wantSummary {
		t.Fatalf("unexpected summary:\n%s", summary.Summary)
	}
	if summary.Quote.PriceImpact != "0.12%" {
		t.Fatalf("unexpected price impact: %q", summary.Quote.PriceImpact)
	}
	if len(summary.Quote.DexRoutes) != 1 || summary.Quote.DexRoutes[0].Dex != "Raydium" {
		t.Fatalf("unexpected routes: %+v", summary.Quote.DexRoutes)
	}

	params := http.params["/api/v5/dex/aggregator/quote"]
	if params.Get("slippage") != "0.1" {
		t.Fatalf("quote slippage = %q, want 0.1", params.Get("slippage"))
	}
	if params.Get("amount") != "300000000" {
		t.Fatalf("amount not converted to smallest unit: %q", params.Get("amount"))
	}
	if params.Get("userWalletAddress") != "wallet-address" {
		t.Fatalf("wallet address missing: %q", params.Get("userWalletAddress"))
	}
}

func TestSwapTransactionDataIncludesTransaction(t *testing.T) {
	http := newFakeHTTP()
	http.responses["/api/v5/dex/aggregator/swap"] = swapResponse
	service, _ := newService(http)

	result, err := service.Run(context.Background(), ActionGetSwapTransactionData, "quote for 300 "+usdcMint+" to "+destMint)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	payload, ok := result.(swapDataResult)
	if !ok {
		t.Fatalf("unexpected payload type %T", result)
	}
	if payload.Transaction.ChainID != "501" || payload.Transaction.EstimateGasFee != "5000" {
		t.Fatalf("unexpected transaction detail: %+v", payload.Transaction)
	}
	if payload.Transaction.Tx == nil {
		t.Fatal("transaction payload missing")
	}
	if !payload.Success {
		t.Fatal("expected formatted quote success")
	}

	params := http.params["/api/v5/dex/aggregator/swap"]
	if params.Get("slippage") != "0.5" {
		t.Fatalf("swap slippage = %q, want 0.5", params.Get("slippage"))
	}
}

func TestExecuteSwapBuildsExecutedPayload(t *testing.T) {
	http := newFakeHTTP()
	http.responses["/api/v5/dex/aggregator/swap"] = swapResponse
	service, dex := newService(http)
	dex.RegisterExecutor(okx.SolanaChainID, stubExecutor{result: model.SwapResult{
		Success:       true,
		TransactionID: "sig123",
		ExplorerURL:   "https://solscan.io/tx/sig123",
	}})

	result, err := service.Run(context.Background(), ActionExecuteSwap, "swap 300 "+usdcMint+" to "+destMint)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	executed, ok := result.(model.ExecutedSwap)
	if !ok {
		t.Fatalf("unexpected payload type %T", result)
	}
	if !executed.Success || executed.Transaction.ID != "sig123" {
		t.Fatalf("unexpected transaction: %+v", executed.Transaction)
	}
	if executed.SwapDetails.Route != "Raydium" {
		t.Fatalf("unexpected route: %q", executed.SwapDetails.Route)
	}
	if executed.SwapDetails.TxData != "base58-tx-bytes" {
		t.Fatalf("unexpected tx data: %q", executed.SwapDetails.TxData)
	}
	if executed.SwapDetails.PriceImpact != "0.12%" {
		t.Fatalf("unexpected price impact: %q", executed.SwapDetails.PriceImpact)
	}
	if !strings.HasPrefix(executed.Summary, "Swap executed successfully!") {
		t.Fatalf("unexpected summary:\n%s", executed.Summary)
	}
	if !strings.Contains(executed.Summary, "Transaction ID: sig123") {
		t.Fatalf("summary missing transaction id:\n%s", executed.Summary)
	}
}

func TestHandlerDeliversErrorToCallback(t *testing.T) {
	service, _ := newService(newFakeHTTP())
	handler := service.handler(ActionGetSwapQuote)

	var gotText string
	var gotContent any
	ok := handler(context.Background(), "swap tokens now", func(text string, content any) {
		gotText = text
		gotContent = content
	})
	if ok {
		t.Fatal("expected handler to report failure")
	}
	payload, isMap := gotContent.(map[string]any)
	if !isMap {
		t.Fatalf("unexpected content type %T", gotContent)
	}
	msg, _ := payload["error"].(string)
	if !strings.Contains(msg, "Could not determine the amount to swap") {
		t.Fatalf("unexpected error content: %q", msg)
	}
	if !strings.HasPrefix(gotText, "Error: ") {
		t.Fatalf("unexpected text: %q", gotText)
	}
}

func TestHandlerDeliversResultToCallback(t *testing.T) {
	http := newFakeHTTP()
	http.responses["/api/v5/dex/aggregator/supported/chain"] = `{"code":"0","msg":"","data":[
		{"chainId": "501", "chainName": "Solana", "dexTokenApproveAddress": ""}
	]}`
	service, _ := newService(http)
	handler := service.handler(ActionGetChainData)

	var called bool
	ok := handler(context.Background(), "", func(text string, content any) {
		called = true
		if content == nil || text == "" {
			t.Fatalf("empty callback delivery: text=%q content=%v", text, content)
		}
	})
	if !ok || !called {
		t.Fatalf("expected successful delivery, ok=%v called=%v", ok, called)
	}
}

func TestQuoteDecimalsCachesProbeResult(t *testing.T) {
	http := newFakeHTTP()
	http.responses["/api/v5/dex/aggregator/quote"] = `{"code":"0","msg":"","data":[{
		"fromToken": {"tokenSymbol": "USDC", "decimal": "6"},
		"toToken": {"tokenSymbol": "WSOL", "decimal": "9"},
		"fromTokenAmount": "10000000000",
		"toTokenAmount": "1",
		"quoteCompareList": []
	}]}`
	dex := okx.NewDexAPI(http, nil)

	tmp := t.TempDir()
	store, err := cache.Open(filepath.Join(tmp, "decimals.db"), filepath.Join(tmp, "decimals.lock"))
	if err != nil {
		t.Fatalf("Open cache failed: %v", err)
	}
	defer store.Close()

	source := NewQuoteDecimals(dex, store, time.Hour, "wallet-address", zerolog.Nop())

	for i := 0; i < 2; i++ {
		decimals, err := source.FromTokenDecimals(context.Background(), usdcMint, destMint)
		if err != nil {
			t.Fatalf("FromTokenDecimals failed: %v", err)
		}
		if decimals != 6 {
			t.Fatalf("unexpected decimals: %d", decimals)
		}
	}
	if http.calls["/api/v5/dex/aggregator/quote"] != 1 {
		t.Fatalf("expected one probe request, got %d", http.calls["/api/v5/dex/aggregator/quote"])
	}

	params := http.params["/api/v5/dex/aggregator/quote"]
	if params.Get("amount") != decimalsProbeAmount {
		t.Fatalf("probe amount = %q, want %q", params.Get("amount"), decimalsProbeAmount)
	}
	if params.Get("slippage") != "0.1" {
		t.Fatalf("probe slippage = %q, want 0.1", params.Get("slippage"))
	}
}

func TestQuoteDecimalsEmptyDataIsServiceError(t *testing.T) {
	http := newFakeHTTP()
	dex := okx.NewDexAPI(http, nil)
	source := NewQuoteDecimals(dex, nil, time.Hour, "wallet-address", zerolog.Nop())

	_, err := source.FromTokenDecimals(context.Background(), usdcMint, destMint)
	if err == nil || !strings.Contains(err.Error(), "Failed to get token information") {
		t.Fatalf("unexpected error: %v", err)
	}
}
