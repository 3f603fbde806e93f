package okx

import "time"

// SolanaChainID is the OKX chain index for Solana mainnet.
const SolanaChainID = "501"

// NetworkConfig holds per-chain execution parameters. A built-in default
// exists for Solana and is overridden by any caller-supplied entry with the
// same key.
type NetworkConfig struct {
	ID                  string
	Explorer            string
	DefaultSlippage     string
	MaxSlippage         string
	ComputeUnits        uint32
	ConfirmationTimeout time.Duration
	MaxRetries          uint
}

func DefaultNetworks() map[string]NetworkConfig {
	return map[string]NetworkConfig{
		SolanaChainID: {
			ID:                  SolanaChainID,
			Explorer:            "https://solscan.io/tx",
			DefaultSlippage:     "0.5",
			MaxSlippage:         "1",
			ComputeUnits:        300000,
			ConfirmationTimeout: 60 * time.Second,
			MaxRetries:          3,
		},
	}
}

// MergeNetworks layers caller overrides on top of the built-in defaults.
// Fields the override leaves unset keep the default's value for that chain.
func MergeNetworks(overrides map[string]NetworkConfig) map[string]NetworkConfig {
	merged := DefaultNetworks()
	for id, cfg := range overrides {
		if cfg.ID == "" {
			cfg.ID = id
		}
		if base, ok := merged[id]; ok {
			if cfg.Explorer == "" {
				cfg.Explorer = base.Explorer
			}
			if cfg.DefaultSlippage == "" {
				cfg.DefaultSlippage = base.DefaultSlippage
			}
			if cfg.MaxSlippage == "" {
				cfg.MaxSlippage = base.MaxSlippage
			}
			if cfg.ComputeUnits == 0 {
				cfg.ComputeUnits = base.ComputeUnits
			}
			if cfg.ConfirmationTimeout == 0 {
				cfg.ConfirmationTimeout = base.ConfirmationTimeout
			}
			if cfg.MaxRetries == 0 {
				cfg.MaxRetries = base.MaxRetries
			}
		}
		merged[id] = cfg
	}
	return merged
}
