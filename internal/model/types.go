package model

import "time"

const EnvelopeVersion = "v1"

type Envelope struct {
	Version  string       `json:"version"`
	Success  bool         `json:"success"`
	Data     any          `json:"data,omitempty"`
	Error    *ErrorBody   `json:"error"`
	Warnings []string     `json:"warnings,omitempty"`
	Meta     EnvelopeMeta `json:"meta"`
}

type ErrorBody struct {
	Code    int    `json:"code"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

type EnvelopeMeta struct {
	RequestID string      `json:"request_id"`
	Timestamp time.Time   `json:"timestamp"`
	Command   string      `json:"command"`
	Action    string      `json:"action,omitempty"`
	Cache     CacheStatus `json:"cache"`
}

type CacheStatus struct {
	Status string `json:"status"`
	AgeMS  int64  `json:"age_ms"`
	Stale  bool   `json:"stale"`
}

// TokenAmount is a display-formatted amount of one token (6 decimal places).
type TokenAmount struct {
	Symbol    string `json:"symbol"`
	Amount    string `json:"amount"`
	Decimal   string `json:"decimal"`
	UnitPrice string `json:"unitPrice,omitempty"`
}

// QuoteSummary is the formatted quote payload delivered to the action
// callback: display amounts, price impact, and the per-DEX route comparison.
type QuoteSummary struct {
	Success bool         `json:"success"`
	Quote   QuoteDetails `json:"quote"`
	Summary string       `json:"summary"`
}

type QuoteDetails struct {
	FromToken   TokenAmount    `json:"fromToken"`
	ToToken     TokenAmount    `json:"toToken"`
	PriceImpact string         `json:"priceImpact"`
	DexRoutes   []RouteSummary `json:"dexRoutes"`
}

type RouteSummary struct {
	Dex       string `json:"dex"`
	AmountOut string `json:"amountOut"`
	Fee       string `json:"fee"`
}

// TransactionDetail is attached to the swap-data action payload alongside the
// formatted quote.
type TransactionDetail struct {
	ChainID        string `json:"chainId"`
	EstimateGasFee string `json:"estimateGasFee"`
	Tx             any    `json:"tx"`
}

// SwapResult is the terminal outcome of a broadcast swap.
type SwapResult struct {
	Success       bool        `json:"success"`
	TransactionID string      `json:"transactionId"`
	ExplorerURL   string      `json:"explorerUrl"`
	Details       SwapDetails `json:"details"`
}

type SwapDetails struct {
	FromToken   TokenAmount `json:"fromToken"`
	ToToken     TokenAmount `json:"toToken"`
	PriceImpact string      `json:"priceImpact"`
}

// ExecutedSwap is the EXECUTE_SWAP action payload: the broadcast outcome plus
// the route and raw transaction data the swap was built from.
type ExecutedSwap struct {
	Success     bool                `json:"success"`
	Transaction ExecutedTransaction `json:"transaction"`
	SwapDetails ExecutedSwapDetail  `json:"swapDetails"`
	Summary     string              `json:"summary"`
}

type ExecutedTransaction struct {
	ID          string `json:"id"`
	ExplorerURL string `json:"explorerUrl"`
}

type ExecutedSwapDetail struct {
	FromToken   TokenAmount `json:"fromToken"`
	ToToken     TokenAmount `json:"toToken"`
	PriceImpact string      `json:"priceImpact"`
	Route       string      `json:"route"`
	TxData      string      `json:"txData,omitempty"`
}

// ChainInfo is the GET_CHAIN_DATA action payload entry.
type ChainInfo struct {
	ID                 string `json:"id"`
	Name               string `json:"name"`
	DexApprovalAddress string `json:"dexApprovalAddress"`
}

// ActionInfo describes one action exposed by the plugin surface.
type ActionInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Examples    []string `json:"examples,omitempty"`
}
