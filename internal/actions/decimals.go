package actions

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"okx-dex-agent/internal/cache"
	clierr "okx-dex-agent/internal/errors"
	"okx-dex-agent/internal/extract"
	"okx-dex-agent/internal/okx"
)

// decimalsProbeAmount is the dummy amount used for the pre-quote that
// discovers a token's decimal count. The value itself does not matter, only
// the token metadata the quote carries back.
const decimalsProbeAmount = "10000000000"

// QuoteDecimals resolves a source token's decimal count by issuing a
// throwaway quote, caching results so repeated swaps skip the round trip.
// A nil cache store disables caching.
type QuoteDecimals struct {
	dex    *okx.DexAPI
	cache  *cache.Store
	ttl    time.Duration
	wallet string
	log    zerolog.Logger
}

var _ extract.DecimalsSource = (*QuoteDecimals)(nil)

func NewQuoteDecimals(dex *okx.DexAPI, store *cache.Store, ttl time.Duration, walletAddress string, log zerolog.Logger) *QuoteDecimals {
	return &QuoteDecimals{
		dex:    dex,
		cache:  store,
		ttl:    ttl,
		wallet: walletAddress,
		log:    log,
	}
}

func (q *QuoteDecimals) FromTokenDecimals(ctx context.Context, fromToken, toToken string) (int, error) {
	if decimals, ok, err := q.cache.GetDecimals(okx.SolanaChainID, fromToken, q.ttl); err == nil && ok {
		return decimals, nil
	} else if err != nil {
		q.log.Debug().Err(err).Msg("decimals cache read failed")
	}

	resp, err := q.dex.GetQuote(ctx, okx.QuoteParams{
		ChainID:           okx.SolanaChainID,
		FromTokenAddress:  fromToken,
		ToTokenAddress:    toToken,
		Amount:            decimalsProbeAmount,
		Slippage:          quoteSlippage,
		UserWalletAddress: q.wallet,
	})
	if err != nil {
		return 0, err
	}
	quote, ok := resp.First()
	if !ok {
		return 0, clierr.New(clierr.CodeService, "Failed to get token information")
	}

	decimals, err := extract.ParseDecimal(quote.FromToken.Decimal)
	if err != nil {
		return 0, err
	}
	if err := q.cache.SetDecimals(okx.SolanaChainID, fromToken, decimals); err != nil {
		q.log.Debug().Err(err).Msg("decimals cache write failed")
	}
	return decimals, nil
}
