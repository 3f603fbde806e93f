package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"okx-dex-agent/internal/actions"
	"okx-dex-agent/internal/cache"
	"okx-dex-agent/internal/config"
	clierr "okx-dex-agent/internal/errors"
	"okx-dex-agent/internal/httpx"
	"okx-dex-agent/internal/model"
	"okx-dex-agent/internal/okx"
	"okx-dex-agent/internal/out"
	sol "okx-dex-agent/internal/solana"
	"okx-dex-agent/internal/version"
)

type Runner struct {
	stdout io.Writer
	stderr io.Writer
	now    func() time.Time
}

func NewRunner() *Runner {
	return NewRunnerWithWriters(os.Stdout, os.Stderr)
}

func NewRunnerWithWriters(stdout, stderr io.Writer) *Runner {
	return &Runner{
		stdout: stdout,
		stderr: stderr,
		now:    time.Now,
	}
}

type runtimeState struct {
	runner      *Runner
	flags       config.GlobalFlags
	settings    config.Settings
	log         zerolog.Logger
	cache       *cache.Store
	root        *cobra.Command
	lastCommand string
	lastAction  string

	dex      *okx.DexAPI
	bridge   *okx.BridgeAPI
	service  *actions.Service
	executor bool
}

func (r *Runner) Run(args []string) int {
	state := &runtimeState{runner: r}
	root := state.newRootCommand()
	state.root = root
	root.SetArgs(args)
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)
	root.SilenceUsage = true
	root.SilenceErrors = true

	err := root.Execute()
	err = normalizeRunError(err)
	if state.cache != nil {
		_ = state.cache.Close()
	}
	if err == nil {
		return 0
	}

	state.renderError("", err)
	return clierr.ExitCode(err)
}

func (s *runtimeState) newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   version.CLIName,
		Short: "OKX DEX aggregation CLI for Solana swaps",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			settings, err := config.Load(s.flags)
			if err != nil {
				return clierr.Wrap(clierr.CodeUsage, "load configuration", err)
			}
			s.settings = settings
			s.log = newLogger(s.runner.stderr, settings.LogLevel)

			path := trimRootPath(cmd.CommandPath())
			s.lastCommand = path

			if s.dex == nil {
				creds := httpx.Credentials{
					APIKey:     settings.APIKey,
					SecretKey:  settings.SecretKey,
					Passphrase: settings.Passphrase,
					ProjectID:  settings.ProjectID,
				}
				client := httpx.New(settings.BaseURL, creds, settings.Timeout, settings.Retries, s.log)
				s.dex = okx.NewDexAPI(client, settings.Networks)
				s.bridge = okx.NewBridgeAPI(client)
			}

			if settings.CacheEnabled && needsDecimalsCache(path) && s.cache == nil {
				store, err := cache.Open(settings.CachePath, settings.CacheLockPath)
				if err != nil {
					return clierr.Wrap(clierr.CodeInternal, "open cache", err)
				}
				if err := store.Prune(settings.DecimalsTTL); err != nil {
					s.log.Debug().Err(err).Msg("cache prune failed")
				}
				s.cache = store
			}

			if s.service == nil {
				decimals := actions.NewQuoteDecimals(s.dex, s.cache, settings.DecimalsTTL, settings.WalletAddress, s.log)
				s.service = actions.NewService(s.dex, decimals, settings.WalletAddress, nil, s.log)
			}
			return nil
		},
	}
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return clierr.Wrap(clierr.CodeUsage, "parse flags", err)
	})

	cmd.PersistentFlags().BoolVar(&s.flags.JSON, "json", false, "Output JSON (default)")
	cmd.PersistentFlags().BoolVar(&s.flags.Plain, "plain", false, "Output plain text")
	cmd.PersistentFlags().StringVar(&s.flags.Timeout, "timeout", "", "API request timeout")
	cmd.PersistentFlags().IntVar(&s.flags.Retries, "retries", 0, "Attempts per API request")
	cmd.PersistentFlags().BoolVar(&s.flags.NoCache, "no-cache", false, "Disable the token decimals cache")
	cmd.PersistentFlags().StringVar(&s.flags.LogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&s.flags.ConfigPath, "config", "", "Path to config file")

	cmd.AddCommand(s.newChainsCommand())
	cmd.AddCommand(s.newLiquidityCommand())
	cmd.AddCommand(s.newTokensCommand())
	cmd.AddCommand(s.newQuoteCommand())
	cmd.AddCommand(s.newSwapDataCommand())
	cmd.AddCommand(s.newSwapCommand())
	cmd.AddCommand(s.newActionsCommand())
	cmd.AddCommand(s.newBridgeCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func newVersionCommand() *cobra.Command {
	var long bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print CLI version",
		Run: func(cmd *cobra.Command, args []string) {
			if long {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.Long())
				return
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), version.CLIVersion)
		},
	}
	cmd.Flags().BoolVar(&long, "long", false, "Print extended build metadata")
	return cmd
}

func (s *runtimeState) newChainsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "chains",
		Short: "List supported chain data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.dex.GetChainData(ctx, okx.SolanaChainID)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
}

func (s *runtimeState) newLiquidityCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "liquidity",
		Short: "List liquidity providers on Solana",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.dex.GetLiquidity(ctx, okx.SolanaChainID)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
}

func (s *runtimeState) newTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens",
		Short: "List tokens available for swapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.dex.GetTokens(ctx, okx.SolanaChainID)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
}

func (s *runtimeState) newQuoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "quote <message>",
		Short: "Get a swap quote from a natural-language message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runAction(trimRootPath(cmd.CommandPath()), actions.ActionGetSwapQuote, strings.Join(args, " "))
		},
	}
}

func (s *runtimeState) newSwapDataCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "swap-data <message>",
		Short: "Build swap transaction data from a natural-language message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return s.runAction(trimRootPath(cmd.CommandPath()), actions.ActionGetSwapTransactionData, strings.Join(args, " "))
		},
	}
}

func (s *runtimeState) newSwapCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "swap <message>",
		Short: "Execute a swap on Solana from a natural-language message",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.ensureExecutor(); err != nil {
				return err
			}
			return s.runAction(trimRootPath(cmd.CommandPath()), actions.ActionExecuteSwap, strings.Join(args, " "))
		},
	}
}

func (s *runtimeState) newActionsCommand() *cobra.Command {
	root := &cobra.Command{Use: "actions", Short: "Plugin action surface"}

	list := &cobra.Command{
		Use:   "list",
		Short: "List available actions (empty when required settings are missing)",
		RunE: func(cmd *cobra.Command, args []string) error {
			available := actions.Available(s.settings, s.service)
			infos := make([]model.ActionInfo, 0, len(available))
			for _, action := range available {
				infos = append(infos, action.Info())
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", infos, nil)
		},
	}

	run := &cobra.Command{
		Use:   "run <action> [message]",
		Short: "Run one action by name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToUpper(strings.TrimSpace(args[0]))
			if missing := s.settings.MissingRequired(); len(missing) > 0 {
				return clierr.New(clierr.CodeConfig, fmt.Sprintf("Missing required settings: %s", strings.Join(missing, ", ")))
			}
			if name == actions.ActionExecuteSwap {
				if err := s.ensureExecutor(); err != nil {
					return err
				}
			}
			return s.runAction(trimRootPath(cmd.CommandPath()), name, strings.Join(args[1:], " "))
		},
	}

	root.AddCommand(list)
	root.AddCommand(run)
	return root
}

func (s *runtimeState) newBridgeCommand() *cobra.Command {
	root := &cobra.Command{Use: "bridge", Short: "Cross-chain bridge commands"}

	var tokensChain string
	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "List tokens supported for cross-chain swaps",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.bridge.GetSupportedTokens(ctx, tokensChain)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
	tokensCmd.Flags().StringVar(&tokensChain, "chain", okx.SolanaChainID, "Chain index")

	var bridgesChain string
	bridgesCmd := &cobra.Command{
		Use:   "bridges",
		Short: "List supported bridges",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.bridge.GetSupportedBridges(ctx, bridgesChain)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
	bridgesCmd.Flags().StringVar(&bridgesChain, "chain", okx.SolanaChainID, "Chain index")

	var pairsFromChain string
	pairsCmd := &cobra.Command{
		Use:   "pairs",
		Short: "List supported cross-chain token pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.bridge.GetBridgeTokenPairs(ctx, pairsFromChain)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
	pairsCmd.Flags().StringVar(&pairsFromChain, "from-chain", okx.SolanaChainID, "Source chain index")
	_ = pairsCmd.MarkFlagRequired("from-chain")

	var quoteParams okx.CrossChainQuoteParams
	quoteCmd := &cobra.Command{
		Use:   "quote",
		Short: "Get a cross-chain swap quote",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.bridge.GetCrossChainQuote(ctx, quoteParams)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
	quoteCmd.Flags().StringVar(&quoteParams.FromChainID, "from-chain", "", "Source chain index")
	quoteCmd.Flags().StringVar(&quoteParams.ToChainID, "to-chain", "", "Destination chain index")
	quoteCmd.Flags().StringVar(&quoteParams.FromTokenAddress, "from-token", "", "Source token address")
	quoteCmd.Flags().StringVar(&quoteParams.ToTokenAddress, "to-token", "", "Destination token address")
	quoteCmd.Flags().StringVar(&quoteParams.Amount, "amount", "", "Amount in smallest units")
	quoteCmd.Flags().StringVar(&quoteParams.Slippage, "slippage", "0.01", "Slippage (0.002 to 0.5)")
	_ = quoteCmd.MarkFlagRequired("from-chain")
	_ = quoteCmd.MarkFlagRequired("to-chain")
	_ = quoteCmd.MarkFlagRequired("from-token")
	_ = quoteCmd.MarkFlagRequired("to-token")
	_ = quoteCmd.MarkFlagRequired("amount")

	var buildParams okx.BuildCrossChainTxParams
	buildCmd := &cobra.Command{
		Use:   "build",
		Short: "Build a cross-chain swap transaction",
		RunE: func(cmd *cobra.Command, args []string) error {
			if buildParams.UserWalletAddress == "" {
				buildParams.UserWalletAddress = s.settings.WalletAddress
			}
			ctx, cancel := s.commandContext()
			defer cancel()
			resp, err := s.bridge.BuildCrossChainSwap(ctx, buildParams)
			if err != nil {
				return err
			}
			return s.emitSuccess(trimRootPath(cmd.CommandPath()), "", resp.Data, nil)
		},
	}
	buildCmd.Flags().StringVar(&buildParams.FromChainID, "from-chain", "", "Source chain index")
	buildCmd.Flags().StringVar(&buildParams.ToChainID, "to-chain", "", "Destination chain index")
	buildCmd.Flags().StringVar(&buildParams.FromTokenAddress, "from-token", "", "Source token address")
	buildCmd.Flags().StringVar(&buildParams.ToTokenAddress, "to-token", "", "Destination token address")
	buildCmd.Flags().StringVar(&buildParams.Amount, "amount", "", "Amount in smallest units")
	buildCmd.Flags().StringVar(&buildParams.Slippage, "slippage", "0.01", "Slippage (0.002 to 0.5)")
	buildCmd.Flags().StringVar(&buildParams.UserWalletAddress, "wallet", "", "Wallet address (defaults to configured wallet)")
	buildCmd.Flags().StringVar(&buildParams.ReceiveAddress, "receive", "", "Receive address on the destination chain")
	_ = buildCmd.MarkFlagRequired("from-chain")
	_ = buildCmd.MarkFlagRequired("to-chain")
	_ = buildCmd.MarkFlagRequired("from-token")
	_ = buildCmd.MarkFlagRequired("to-token")
	_ = buildCmd.MarkFlagRequired("amount")

	root.AddCommand(tokensCmd)
	root.AddCommand(bridgesCmd)
	root.AddCommand(pairsCmd)
	root.AddCommand(quoteCmd)
	root.AddCommand(buildCmd)
	return root
}

// ensureExecutor wires the Solana swap executor the first time an execution
// path runs. Non-execution commands never touch the signing key.
func (s *runtimeState) ensureExecutor() error {
	if s.executor {
		return nil
	}
	if s.settings.WalletPrivateKey == "" || s.settings.SolanaRPCURL == "" {
		return clierr.New(clierr.CodeConfig, "Solana configuration required")
	}
	wallet, err := sol.WalletFromBase58(s.settings.WalletPrivateKey)
	if err != nil {
		return err
	}
	s.dex.RegisterExecutor(okx.SolanaChainID, sol.NewExecutor(s.settings.SolanaRPCURL, wallet, s.log))
	s.executor = true
	return nil
}

func (s *runtimeState) runAction(commandPath, action, message string) error {
	s.lastAction = action
	ctx, cancel := s.commandContext()
	defer cancel()
	result, err := s.service.Run(ctx, action, message)
	if err != nil {
		return err
	}
	return s.emitSuccess(commandPath, action, result, nil)
}

func (s *runtimeState) commandContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.settings.Timeout)
}

func (s *runtimeState) emitSuccess(commandPath, action string, data any, warnings []string) error {
	env := model.Envelope{
		Version:  model.EnvelopeVersion,
		Success:  true,
		Data:     data,
		Error:    nil,
		Warnings: warnings,
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Action:    action,
			Cache:     s.cacheMeta(),
		},
	}
	return out.Render(s.runner.stdout, env, s.settings)
}

func (s *runtimeState) renderError(commandPath string, err error) {
	if strings.TrimSpace(commandPath) == "" {
		commandPath = s.lastCommand
		if commandPath == "" {
			commandPath = version.CLIName
		}
	}
	code := clierr.ExitCode(err)
	typ := "internal_error"
	message := err.Error()
	if cErr, ok := clierr.As(err); ok {
		message = cErr.Message
		if cErr.Cause != nil {
			message = fmt.Sprintf("%s: %v", cErr.Message, cErr.Cause)
		}
		switch cErr.Code {
		case clierr.CodeUsage:
			typ = "usage_error"
		case clierr.CodeValidation:
			typ = "validation_error"
		case clierr.CodeService:
			typ = "service_error"
		case clierr.CodeTransport:
			typ = "transport_error"
		case clierr.CodeChain:
			typ = "chain_error"
		case clierr.CodeConfig:
			typ = "config_error"
		case clierr.CodeUnsupported:
			typ = "unsupported"
		}
	}

	settings := s.settings
	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	env := model.Envelope{
		Version: model.EnvelopeVersion,
		Success: false,
		Data:    []any{},
		Error: &model.ErrorBody{
			Code:    code,
			Type:    typ,
			Message: message,
		},
		Meta: model.EnvelopeMeta{
			RequestID: newRequestID(),
			Timestamp: s.runner.now().UTC(),
			Command:   commandPath,
			Action:    s.lastAction,
			Cache:     s.cacheMeta(),
		},
	}
	_ = out.Render(s.runner.stderr, env, settings)
}

func (s *runtimeState) cacheMeta() model.CacheStatus {
	if s.cache == nil {
		return model.CacheStatus{Status: "bypass"}
	}
	return model.CacheStatus{Status: "enabled"}
}

func newLogger(w io.Writer, level string) zerolog.Logger {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(parsed).With().Timestamp().Logger()
}

func newRequestID() string {
	buf := make([]byte, 16)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func trimRootPath(path string) string {
	parts := strings.Fields(path)
	if len(parts) <= 1 {
		return path
	}
	return strings.Join(parts[1:], " ")
}

func normalizeRunError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := clierr.As(err); ok {
		return err
	}
	if isLikelyUsageError(err) {
		return clierr.Wrap(clierr.CodeUsage, "invalid command input", err)
	}
	return clierr.Wrap(clierr.CodeInternal, "execute command", err)
}

func isLikelyUsageError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	patterns := []string{
		"unknown command",
		"unknown flag",
		"required flag(s)",
		"flag needs an argument",
		"requires at least",
		"requires exactly",
		"accepts ",
		"invalid argument",
		"invalid args",
	}
	for _, p := range patterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// needsDecimalsCache reports whether the command parses swap messages and
// therefore resolves token decimals.
func needsDecimalsCache(commandPath string) bool {
	switch normalizeCommandPath(commandPath) {
	case "quote", "swap-data", "swap", "actions run":
		return true
	default:
		return false
	}
}

func normalizeCommandPath(commandPath string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.TrimSpace(commandPath))), " ")
}
