package okx

// Response is the OKX service envelope. Code "0" is the success sentinel;
// anything else is a service-level error regardless of HTTP status (the HTTP
// client enforces that before a Response reaches callers).
type Response[T any] struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []T    `json:"data"`
}

// First returns the first data item, if any.
func (r Response[T]) First() (T, bool) {
	if len(r.Data) == 0 {
		var zero T
		return zero, false
	}
	return r.Data[0], true
}

type TokenInfo struct {
	TokenSymbol          string `json:"tokenSymbol"`
	TokenUnitPrice       string `json:"tokenUnitPrice"`
	Decimal              string `json:"decimal"`
	TokenContractAddress string `json:"tokenContractAddress"`
	IsHoneyPot           bool   `json:"isHoneyPot,omitempty"`
	TaxRate              string `json:"taxRate,omitempty"`
}

type DexRoute struct {
	DexName   string `json:"dexName"`
	DexLogo   string `json:"dexLogo,omitempty"`
	AmountOut string `json:"amountOut"`
	TradeFee  string `json:"tradeFee"`
}

// RouterResult is the aggregator routing outcome shared by the quote and swap
// endpoints.
type RouterResult struct {
	ChainID               string     `json:"chainId"`
	FromToken             TokenInfo  `json:"fromToken"`
	ToToken               TokenInfo  `json:"toToken"`
	FromTokenAmount       string     `json:"fromTokenAmount"`
	ToTokenAmount         string     `json:"toTokenAmount"`
	PriceImpactPercentage string     `json:"priceImpactPercentage"`
	EstimateGasFee        string     `json:"estimateGasFee"`
	TradeFee              string     `json:"tradeFee,omitempty"`
	QuoteCompareList      []DexRoute `json:"quoteCompareList"`
}

// QuoteData is the /quote response item: router fields at the top level.
type QuoteData = RouterResult

// TxInfo is the transaction payload built by the aggregator. For Solana the
// Data field is a base58-encoded serialized transaction.
type TxInfo struct {
	Data                 string `json:"data"`
	From                 string `json:"from"`
	To                   string `json:"to"`
	Gas                  string `json:"gas"`
	GasPrice             string `json:"gasPrice"`
	MaxPriorityFeePerGas string `json:"maxPriorityFeePerGas,omitempty"`
	MinReceiveAmount     string `json:"minReceiveAmount,omitempty"`
	Value                string `json:"value"`
}

// SwapData is the /swap response item: routing outcome plus the transaction
// to sign and broadcast.
type SwapData struct {
	RouterResult RouterResult `json:"routerResult"`
	Tx           *TxInfo      `json:"tx"`
}

type ChainData struct {
	ChainID                string `json:"chainId"`
	ChainName              string `json:"chainName"`
	DexTokenApproveAddress string `json:"dexTokenApproveAddress"`
}

type LiquidityProvider struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo"`
}

type Token struct {
	Decimals             string `json:"decimals"`
	TokenContractAddress string `json:"tokenContractAddress"`
	TokenLogoURL         string `json:"tokenLogoUrl"`
	TokenName            string `json:"tokenName"`
	TokenSymbol          string `json:"tokenSymbol"`
}

type QuoteParams struct {
	ChainID           string
	FromTokenAddress  string
	ToTokenAddress    string
	Amount            string
	Slippage          string
	UserWalletAddress string
}

type SwapParams struct {
	ChainID           string
	FromTokenAddress  string
	ToTokenAddress    string
	Amount            string
	Slippage          string
	AutoSlippage      bool
	MaxAutoSlippage   string
	UserWalletAddress string
}

// Bridge (cross-chain) types.

type BridgeToken struct {
	ChainID              string `json:"chainId"`
	Decimals             string `json:"decimals"`
	TokenContractAddress string `json:"tokenContractAddress"`
	TokenName            string `json:"tokenName"`
	TokenSymbol          string `json:"tokenSymbol"`
}

type BridgeInfo struct {
	BridgeID              int      `json:"bridgeId"`
	BridgeName            string   `json:"bridgeName"`
	RequireOtherNativeFee bool     `json:"requireOtherNativeFee"`
	Logo                  string   `json:"logo"`
	SupportedChains       []string `json:"supportedChains"`
}

type BridgeTokenPair struct {
	FromChainID      string `json:"fromChainId"`
	ToChainID        string `json:"toChainId"`
	FromTokenAddress string `json:"fromTokenAddress"`
	ToTokenAddress   string `json:"toTokenAddress"`
	FromTokenSymbol  string `json:"fromTokenSymbol"`
	ToTokenSymbol    string `json:"toTokenSymbol"`
}

type CrossChainQuoteParams struct {
	FromChainID      string
	ToChainID        string
	FromTokenAddress string
	ToTokenAddress   string
	Amount           string
	Slippage         string
}

type CrossChainRouter struct {
	BridgeID                int    `json:"bridgeId"`
	BridgeName              string `json:"bridgeName"`
	CrossChainFee           string `json:"crossChainFee"`
	OtherNativeFee          string `json:"otherNativeFee"`
	EstimatedProcessingTime string `json:"estimateTime"`
}

type CrossChainQuote struct {
	FromChainID     string             `json:"fromChainId"`
	ToChainID       string             `json:"toChainId"`
	FromTokenAmount string             `json:"fromTokenAmount"`
	ToTokenAmount   string             `json:"toTokenAmount"`
	FromToken       TokenInfo          `json:"fromToken"`
	ToToken         TokenInfo          `json:"toToken"`
	RouterList      []CrossChainRouter `json:"routerList"`
}

type BuildCrossChainTxParams struct {
	FromChainID       string
	ToChainID         string
	FromTokenAddress  string
	ToTokenAddress    string
	Amount            string
	Slippage          string
	UserWalletAddress string
	ReceiveAddress    string
}

type CrossChainTx struct {
	FromTokenAmount string           `json:"fromTokenAmount"`
	ToTokenAmount   string           `json:"toTokenAmount"`
	MinimumReceived string           `json:"minmumReceive"`
	Router          CrossChainRouter `json:"router"`
	Tx              *TxInfo          `json:"tx"`
}
