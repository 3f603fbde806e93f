package actions

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"okx-dex-agent/internal/config"
	clierr "okx-dex-agent/internal/errors"
	"okx-dex-agent/internal/extract"
	"okx-dex-agent/internal/model"
	"okx-dex-agent/internal/okx"
)

const (
	ActionGetChainData           = "GET_CHAIN_DATA"
	ActionGetLiquidityProviders  = "GET_LIQUIDITY_PROVIDERS"
	ActionGetSwapQuote           = "GET_SWAP_QUOTE"
	ActionGetSwapTransactionData = "GET_SWAP_TRANSACTION_DATA"
	ActionGetAvailableTokens     = "GET_AVAILABLE_TOKENS"
	ActionExecuteSwap            = "EXECUTE_SWAP"
)

const (
	quoteSlippage = "0.1"
	swapSlippage  = "0.5"
)

// Callback receives the action outcome: a text rendering plus the structured
// payload (or {"error": message} on failure).
type Callback func(text string, content any)

// Summarizer turns a structured result into conversational text. A nil
// summarizer falls back to the JSON rendering of the payload.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Handler runs one action against a natural-language message. The returned
// bool reports whether the action succeeded; failures are also delivered to
// the callback so the conversation surface always gets a response.
type Handler func(ctx context.Context, message string, callback Callback) bool

type Action struct {
	Name        string
	Description string
	Examples    []string
	Handler     Handler
}

func (a Action) Info() model.ActionInfo {
	return model.ActionInfo{Name: a.Name, Description: a.Description, Examples: a.Examples}
}

// Service binds the aggregator facade and parameter extraction into the
// action handlers.
type Service struct {
	dex        *okx.DexAPI
	decimals   extract.DecimalsSource
	wallet     string
	summarizer Summarizer
	log        zerolog.Logger
}

func NewService(dex *okx.DexAPI, decimals extract.DecimalsSource, walletAddress string, summarizer Summarizer, log zerolog.Logger) *Service {
	return &Service{
		dex:        dex,
		decimals:   decimals,
		wallet:     walletAddress,
		summarizer: summarizer,
		log:        log,
	}
}

// Available returns the action set for the given settings. Any missing
// required credential disables the whole surface rather than exposing
// actions that would fail at request time.
func Available(settings config.Settings, service *Service) []Action {
	if missing := settings.MissingRequired(); len(missing) > 0 {
		service.log.Warn().Strs("missing", missing).Msg("required settings absent, no actions registered")
		return nil
	}
	return service.Actions()
}

func (s *Service) Actions() []Action {
	definitions := []struct {
		name        string
		description string
		examples    []string
	}{
		{ActionGetChainData, "Get Solana chain data from OKX DEX", nil},
		{ActionGetLiquidityProviders, "Get liquidity providers on Solana from OKX DEX", nil},
		{ActionGetSwapQuote, "Get a swap quote for tokens on Solana", []string{
			"Get quote from_token: SOL123 to_token: USDC456 amount: 1.5",
			"Get quote from SOL123 to USDC456 amount 1.5",
		}},
		{ActionGetSwapTransactionData, "Get swap transaction data for tokens on Solana", []string{
			"Get swap transaction data from_token: SOL123 to_token: USDC456 amount: 1.5",
		}},
		{ActionGetAvailableTokens, "Get available tokens for swapping on Solana", nil},
		{ActionExecuteSwap, "Execute a token swap on Solana using OKX DEX", []string{
			"Swap from_token: SOL123 to_token: USDC456 amount: 1.5",
			"Swap 1.5 from SOL123 to USDC456",
		}},
	}

	actions := make([]Action, 0, len(definitions))
	for _, def := range definitions {
		actions = append(actions, Action{
			Name:        def.name,
			Description: def.description,
			Examples:    def.examples,
			Handler:     s.handler(def.name),
		})
	}
	return actions
}

func (s *Service) handler(name string) Handler {
	return func(ctx context.Context, message string, callback Callback) bool {
		result, err := s.Run(ctx, name, message)
		if err != nil {
			msg := err.Error()
			s.log.Error().Str("action", name).Str("error", msg).Msg("action failed")
			if callback != nil {
				callback(s.render(ctx, "Error: "+msg), map[string]any{"error": msg})
			}
			return false
		}
		if callback != nil {
			callback(s.render(ctx, marshalResult(result)), result)
		}
		return true
	}
}

// Run executes one action by name and returns its structured payload.
func (s *Service) Run(ctx context.Context, name, message string) (any, error) {
	switch name {
	case ActionGetChainData:
		return s.chainData(ctx)
	case ActionGetLiquidityProviders:
		return s.dex.GetLiquidity(ctx, okx.SolanaChainID)
	case ActionGetSwapQuote:
		return s.swapQuote(ctx, message)
	case ActionGetSwapTransactionData:
		return s.swapTransactionData(ctx, message)
	case ActionGetAvailableTokens:
		return s.dex.GetTokens(ctx, okx.SolanaChainID)
	case ActionExecuteSwap:
		return s.executeSwap(ctx, message)
	default:
		return nil, clierr.New(clierr.CodeUsage, fmt.Sprintf("Unknown action: %s", name))
	}
}

func (s *Service) chainData(ctx context.Context) (any, error) {
	resp, err := s.dex.GetChainData(ctx, okx.SolanaChainID)
	if err != nil {
		return nil, err
	}
	chains := make([]model.ChainInfo, 0, len(resp.Data))
	for _, chain := range resp.Data {
		chains = append(chains, model.ChainInfo{
			ID:                 chain.ChainID,
			Name:               chain.ChainName,
			DexApprovalAddress: chain.DexTokenApproveAddress,
		})
	}
	return map[string]any{"chains": chains}, nil
}

func (s *Service) swapQuote(ctx context.Context, message string) (any, error) {
	params, err := extract.SwapParamsFromMessage(ctx, message, s.decimals)
	if err != nil {
		return nil, err
	}

	resp, err := s.dex.GetQuote(ctx, okx.QuoteParams{
		ChainID:           okx.SolanaChainID,
		FromTokenAddress:  params.FromTokenAddress,
		ToTokenAddress:    params.ToTokenAddress,
		Amount:            params.Amount,
		Slippage:          quoteSlippage,
		UserWalletAddress: s.wallet,
	})
	if err != nil {
		return nil, err
	}
	quote, ok := resp.First()
	if !ok {
		return nil, clierr.New(clierr.CodeService, firstNonEmpty(resp.Msg, "Failed to get quote"))
	}
	return formatQuote(quote)
}

// swapDataResult pairs the formatted quote with the transaction the
// aggregator built.
type swapDataResult struct {
	model.QuoteSummary
	Transaction model.TransactionDetail `json:"transaction"`
}

func (s *Service) swapTransactionData(ctx context.Context, message string) (any, error) {
	params, err := extract.SwapParamsFromMessage(ctx, message, s.decimals)
	if err != nil {
		return nil, err
	}

	resp, err := s.dex.GetSwapData(ctx, okx.SwapParams{
		ChainID:           okx.SolanaChainID,
		FromTokenAddress:  params.FromTokenAddress,
		ToTokenAddress:    params.ToTokenAddress,
		Amount:            params.Amount,
		Slippage:          swapSlippage,
		UserWalletAddress: s.wallet,
	})
	if err != nil {
		return nil, err
	}
	data, ok := resp.First()
	if !ok {
		return nil, clierr.New(clierr.CodeService, firstNonEmpty(resp.Msg, "Failed to get swap transaction data"))
	}

	summary, err := formatQuote(data.RouterResult)
	if err != nil {
		return nil, err
	}
	var tx any
	if data.Tx != nil {
		tx = data.Tx
	}
	return swapDataResult{
		QuoteSummary: summary,
		Transaction: model.TransactionDetail{
			ChainID:        data.RouterResult.ChainID,
			EstimateGasFee: data.RouterResult.EstimateGasFee,
			Tx:             tx,
		},
	}, nil
}

func (s *Service) executeSwap(ctx context.Context, message string) (any, error) {
	params, err := extract.SwapParamsFromMessage(ctx, message, s.decimals)
	if err != nil {
		return nil, err
	}

	swapParams := okx.SwapParams{
		ChainID:           okx.SolanaChainID,
		FromTokenAddress:  params.FromTokenAddress,
		ToTokenAddress:    params.ToTokenAddress,
		Amount:            params.Amount,
		Slippage:          swapSlippage,
		UserWalletAddress: s.wallet,
	}

	resp, err := s.dex.GetSwapData(ctx, swapParams)
	if err != nil {
		return nil, err
	}
	data, ok := resp.First()
	if !ok {
		return nil, clierr.New(clierr.CodeService, firstNonEmpty(resp.Msg, "Failed to get swap data"))
	}

	router := data.RouterResult
	if router.FromToken.Decimal == "" || router.ToToken.Decimal == "" {
		return nil, clierr.New(clierr.CodeService, "Invalid token decimal information")
	}
	fromDecimals, err := extract.ParseDecimal(router.FromToken.Decimal)
	if err != nil {
		return nil, err
	}
	toDecimals, err := extract.ParseDecimal(router.ToToken.Decimal)
	if err != nil {
		return nil, err
	}
	displayFrom := extract.FormatUnits(router.FromTokenAmount, fromDecimals)
	displayTo := extract.FormatUnits(router.ToTokenAmount, toDecimals)

	s.log.Info().
		Str("fromToken", router.FromToken.TokenSymbol).
		Str("toToken", router.ToToken.TokenSymbol).
		Str("fromAmount", displayFrom).
		Str("expectedOutput", displayTo).
		Str("priceImpact", router.PriceImpactPercentage).
		Msg("executing swap")

	executed, err := s.dex.ExecuteSwap(ctx, swapParams)
	if err != nil {
		return nil, err
	}

	route := "Unknown"
	if len(router.QuoteCompareList) > 0 && router.QuoteCompareList[0].DexName != "" {
		route = router.QuoteCompareList[0].DexName
	}
	var txData string
	if data.Tx != nil {
		txData = data.Tx.Data
	}

	return model.ExecutedSwap{
		Success: executed.Success,
		Transaction: model.ExecutedTransaction{
			ID:          executed.TransactionID,
			ExplorerURL: executed.ExplorerURL,
		},
		SwapDetails: model.ExecutedSwapDetail{
			FromToken: model.TokenAmount{
				Symbol:  router.FromToken.TokenSymbol,
				Amount:  displayFrom,
				Decimal: router.FromToken.Decimal,
			},
			ToToken: model.TokenAmount{
				Symbol:  router.ToToken.TokenSymbol,
				Amount:  displayTo,
				Decimal: router.ToToken.Decimal,
			},
			PriceImpact: router.PriceImpactPercentage + "%",
			Route:       route,
			TxData:      txData,
		},
		Summary: fmt.Sprintf(
			"Swap executed successfully!\nSwapped %s %s for approximately %s %s\nPrice Impact: %s%%\nTransaction ID: %s\nView on Explorer: %s",
			displayFrom, router.FromToken.TokenSymbol,
			displayTo, router.ToToken.TokenSymbol,
			router.PriceImpactPercentage,
			executed.TransactionID, executed.ExplorerURL,
		),
	}, nil
}

// formatQuote converts a routing outcome into the display payload: amounts
// scaled to decimals, price impact with a percent suffix, and the per-DEX
// comparison.
func formatQuote(quote okx.RouterResult) (model.QuoteSummary, error) {
	fromDecimals, err := extract.ParseDecimal(quote.FromToken.Decimal)
	if err != nil {
		return model.QuoteSummary{}, err
	}
	toDecimals, err := extract.ParseDecimal(quote.ToToken.Decimal)
	if err != nil {
		return model.QuoteSummary{}, err
	}
	displayFrom := extract.FormatUnits(quote.FromTokenAmount, fromDecimals)
	displayTo := extract.FormatUnits(quote.ToTokenAmount, toDecimals)

	routes := make([]model.RouteSummary, 0, len(quote.QuoteCompareList))
	for _, route := range quote.QuoteCompareList {
		routes = append(routes, model.RouteSummary{
			Dex:       route.DexName,
			AmountOut: route.AmountOut,
			Fee:       route.TradeFee,
		})
	}

	return model.QuoteSummary{
		Success: true,
		Quote: model.QuoteDetails{
			FromToken: model.TokenAmount{
				Symbol:    quote.FromToken.TokenSymbol,
				Amount:    displayFrom,
				Decimal:   quote.FromToken.Decimal,
				UnitPrice: quote.FromToken.TokenUnitPrice,
			},
			ToToken: model.TokenAmount{
				Symbol:    quote.ToToken.TokenSymbol,
				Amount:    displayTo,
				Decimal:   quote.ToToken.Decimal,
				UnitPrice: quote.ToToken.TokenUnitPrice,
			},
			PriceImpact: quote.PriceImpactPercentage + "%",
			DexRoutes:   routes,
		},
		Summary: fmt.Sprintf(
			"Quote for %s %s to %s:\nExpected output: %s %s\nPrice impact: %s%%",
			displayFrom, quote.FromToken.TokenSymbol, quote.ToToken.TokenSymbol,
			displayTo, quote.ToToken.TokenSymbol,
			quote.PriceImpactPercentage,
		),
	}, nil
}

func (s *Service) render(ctx context.Context, prompt string) string {
	if s.summarizer == nil {
		return prompt
	}
	text, err := s.summarizer.Summarize(ctx, prompt)
	if err != nil {
		s.log.Debug().Err(err).Msg("summarizer failed, falling back to raw payload")
		return prompt
	}
	return text
}

func marshalResult(result any) string {
	buf, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf("%v", result)
	}
	return string(buf)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
