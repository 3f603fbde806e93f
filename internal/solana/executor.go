package solana

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	bin "github.com/gagliardetto/binary"
	solana "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/rs/zerolog"

	clierr "okx-dex-agent/internal/errors"
	"okx-dex-agent/internal/extract"
	"okx-dex-agent/internal/model"
	"okx-dex-agent/internal/okx"
)

// Executor signs and broadcasts aggregator-built swap transactions on Solana
// and waits for confirmation.
type Executor struct {
	rpc          *rpc.Client
	wallet       *Wallet
	log          zerolog.Logger
	pollInterval time.Duration
}

func NewExecutor(rpcURL string, wallet *Wallet, log zerolog.Logger) *Executor {
	return &Executor{
		rpc:          rpc.New(rpcURL),
		wallet:       wallet,
		log:          log,
		pollInterval: 2 * time.Second,
	}
}

// ExecuteSwap decodes the base58 transaction payload, refreshes the
// blockhash, signs with the wallet key, broadcasts with the network's retry
// bound, and polls until the transaction reaches confirmed commitment.
// Missing preconditions (signing key, token decimals, transaction payload)
// fail before any RPC call.
func (e *Executor) ExecuteSwap(ctx context.Context, data okx.SwapData, params okx.SwapParams, network okx.NetworkConfig) (model.SwapResult, error) {
	if e.wallet == nil {
		return model.SwapResult{}, clierr.New(clierr.CodeConfig, "Solana configuration required")
	}

	router := data.RouterResult
	if router.FromToken.Decimal == "" || router.ToToken.Decimal == "" {
		return model.SwapResult{}, clierr.New(clierr.CodeChain, fmt.Sprintf(
			"Missing decimal information for tokens: %s -> %s",
			router.FromToken.TokenSymbol, router.ToToken.TokenSymbol,
		))
	}
	if data.Tx == nil || data.Tx.Data == "" {
		return model.SwapResult{}, clierr.New(clierr.CodeChain, "Missing transaction data")
	}

	fromDecimals, err := extract.ParseDecimal(router.FromToken.Decimal)
	if err != nil {
		return model.SwapResult{}, err
	}
	toDecimals, err := extract.ParseDecimal(router.ToToken.Decimal)
	if err != nil {
		return model.SwapResult{}, err
	}

	latest, err := e.rpc.GetLatestBlockhash(ctx, rpc.CommitmentConfirmed)
	if err != nil {
		return model.SwapResult{}, clierr.Wrap(clierr.CodeChain, "fetch latest blockhash", err)
	}

	raw, err := base58.Decode(data.Tx.Data)
	if err != nil {
		return model.SwapResult{}, clierr.Wrap(clierr.CodeChain, "decode transaction payload", err)
	}
	tx, err := solana.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return model.SwapResult{}, clierr.Wrap(clierr.CodeChain, "unmarshal transaction", err)
	}

	if tx.Message.GetVersion() == solana.MessageVersionLegacy {
		// The wallet must already be the fee payer: compiled messages carry
		// it as account 0 and rewriting the account list would invalidate
		// every instruction index.
		if len(tx.Message.AccountKeys) == 0 || !tx.Message.AccountKeys[0].Equals(e.wallet.Address()) {
			return model.SwapResult{}, clierr.New(clierr.CodeChain, "transaction fee payer does not match wallet")
		}
		appendComputeUnitLimit(tx, network.ComputeUnits)
	}
	tx.Message.RecentBlockhash = latest.Value.Blockhash

	if _, err := tx.Sign(e.wallet.signerFor); err != nil {
		return model.SwapResult{}, clierr.Wrap(clierr.CodeChain, "sign transaction", err)
	}

	maxRetries := network.MaxRetries
	sig, err := e.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		SkipPreflight:       false,
		MaxRetries:          &maxRetries,
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return model.SwapResult{}, clierr.Wrap(clierr.CodeChain, "broadcast transaction", err)
	}

	e.log.Info().
		Str("signature", sig.String()).
		Str("from", router.FromToken.TokenSymbol).
		Str("to", router.ToToken.TokenSymbol).
		Msg("swap transaction sent")

	if err := e.waitForConfirmation(ctx, sig, network.ConfirmationTimeout); err != nil {
		return model.SwapResult{}, err
	}

	return model.SwapResult{
		Success:       true,
		TransactionID: sig.String(),
		ExplorerURL:   network.Explorer + "/" + sig.String(),
		Details: model.SwapDetails{
			FromToken: model.TokenAmount{
				Symbol:  router.FromToken.TokenSymbol,
				Amount:  extract.FormatUnits(router.FromTokenAmount, fromDecimals),
				Decimal: router.FromToken.Decimal,
			},
			ToToken: model.TokenAmount{
				Symbol:  router.ToToken.TokenSymbol,
				Amount:  extract.FormatUnits(router.ToTokenAmount, toDecimals),
				Decimal: router.ToToken.Decimal,
			},
			PriceImpact: router.PriceImpactPercentage,
		},
	}, nil
}

func (e *Executor) waitForConfirmation(ctx context.Context, sig solana.Signature, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		statuses, err := e.rpc.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return clierr.New(clierr.CodeChain, fmt.Sprintf("Transaction failed: %v", status.Err))
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		if time.Now().After(deadline) {
			return clierr.New(clierr.CodeChain, "Transaction confirmation timed out")
		}
		select {
		case <-ctx.Done():
			return clierr.Wrap(clierr.CodeChain, "confirmation cancelled", ctx.Err())
		case <-time.After(e.pollInterval):
		}
	}
}

// appendComputeUnitLimit adds a SetComputeUnitLimit instruction to a compiled
// legacy message. The compute-budget program id is appended as a trailing
// read-only unsigned account so existing instruction indices stay valid.
func appendComputeUnitLimit(tx *solana.Transaction, units uint32) {
	data := make([]byte, 5)
	data[0] = 2 // SetComputeUnitLimit instruction tag
	binary.LittleEndian.PutUint32(data[1:], units)

	programIndex := uint16(len(tx.Message.AccountKeys))
	tx.Message.AccountKeys = append(tx.Message.AccountKeys, computebudget.ProgramID)
	tx.Message.Header.NumReadonlyUnsignedAccounts++
	tx.Message.Instructions = append(tx.Message.Instructions, solana.CompiledInstruction{
		ProgramIDIndex: programIndex,
		Data:           solana.Base58(data),
	})
}
