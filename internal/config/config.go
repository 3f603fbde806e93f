package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"okx-dex-agent/internal/okx"
)

type GlobalFlags struct {
	ConfigPath string
	JSON       bool
	Plain      bool
	Timeout    string
	Retries    int
	NoCache    bool
	LogLevel   string
}

type Settings struct {
	APIKey           string
	SecretKey        string
	Passphrase       string
	ProjectID        string
	BaseURL          string
	SolanaRPCURL     string
	WSEndpoint       string
	WalletAddress    string
	WalletPrivateKey string
	MaxAutoSlippage  string

	OutputMode    string
	Timeout       time.Duration
	Retries       int
	LogLevel      string
	CacheEnabled  bool
	CachePath     string
	CacheLockPath string
	DecimalsTTL   time.Duration
	Networks      map[string]okx.NetworkConfig
}

type fileConfig struct {
	Output   string `yaml:"output"`
	Timeout  string `yaml:"timeout"`
	Retries  *int   `yaml:"retries"`
	LogLevel string `yaml:"log_level"`
	OKX      struct {
		APIKey        string `yaml:"api_key"`
		APIKeyEnv     string `yaml:"api_key_env"`
		SecretKey     string `yaml:"secret_key"`
		SecretKeyEnv  string `yaml:"secret_key_env"`
		Passphrase    string `yaml:"passphrase"`
		PassphraseEnv string `yaml:"passphrase_env"`
		ProjectID     string `yaml:"project_id"`
		ProjectIDEnv  string `yaml:"project_id_env"`
		BaseURL       string `yaml:"base_url"`
	} `yaml:"okx"`
	Solana struct {
		RPCURL          string `yaml:"rpc_url"`
		RPCURLEnv       string `yaml:"rpc_url_env"`
		WSEndpoint      string `yaml:"ws_endpoint"`
		WalletAddress   string `yaml:"wallet_address"`
		PrivateKey      string `yaml:"private_key"`
		PrivateKeyEnv   string `yaml:"private_key_env"`
		MaxAutoSlippage string `yaml:"max_auto_slippage"`
	} `yaml:"solana"`
	Cache struct {
		Enabled     *bool  `yaml:"enabled"`
		Path        string `yaml:"path"`
		LockPath    string `yaml:"lock_path"`
		DecimalsTTL string `yaml:"decimals_ttl"`
	} `yaml:"cache"`
	Networks map[string]struct {
		Explorer            string `yaml:"explorer"`
		DefaultSlippage     string `yaml:"default_slippage"`
		MaxSlippage         string `yaml:"max_slippage"`
		ComputeUnits        uint32 `yaml:"compute_units"`
		ConfirmationTimeout string `yaml:"confirmation_timeout"`
		MaxRetries          uint   `yaml:"max_retries"`
	} `yaml:"networks"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}

	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.OutputMode == "" {
		settings.OutputMode = "json"
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Retries < 1 {
		settings.Retries = 1
	}
	if settings.DecimalsTTL <= 0 {
		settings.DecimalsTTL = 24 * time.Hour
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	cachePath, lockPath, err := defaultCachePaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		BaseURL:       "https://www.okx.com",
		OutputMode:    "json",
		Timeout:       30 * time.Second,
		Retries:       3,
		LogLevel:      "info",
		CacheEnabled:  true,
		CachePath:     cachePath,
		CacheLockPath: lockPath,
		DecimalsTTL:   24 * time.Hour,
		Networks:      okx.DefaultNetworks(),
	}, nil
}

// MissingRequired reports which of the credentials needed for signed
// requests and swap execution are absent, named by their environment
// variables.
func (s Settings) MissingRequired() []string {
	var missing []string
	checks := []struct {
		value string
		env   string
	}{
		{s.APIKey, "OKX_API_KEY"},
		{s.SecretKey, "OKX_SECRET_KEY"},
		{s.Passphrase, "OKX_API_PASSPHRASE"},
		{s.ProjectID, "OKX_PROJECT_ID"},
		{s.SolanaRPCURL, "OKX_SOLANA_RPC_URL"},
		{s.WalletPrivateKey, "OKX_WALLET_PRIVATE_KEY"},
	}
	for _, check := range checks {
		if strings.TrimSpace(check.value) == "" {
			missing = append(missing, check.env)
		}
	}
	return missing
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "okxdex", "config.yaml"), nil
}

func defaultCachePaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "okxdex")
	return filepath.Join(dir, "decimals.db"), filepath.Join(dir, "decimals.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Output != "" {
		settings.OutputMode = strings.ToLower(cfg.Output)
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.LogLevel != "" {
		settings.LogLevel = cfg.LogLevel
	}

	if cfg.OKX.APIKey != "" {
		settings.APIKey = cfg.OKX.APIKey
	}
	if cfg.OKX.APIKeyEnv != "" {
		settings.APIKey = os.Getenv(cfg.OKX.APIKeyEnv)
	}
	if cfg.OKX.SecretKey != "" {
		settings.SecretKey = cfg.OKX.SecretKey
	}
	if cfg.OKX.SecretKeyEnv != "" {
		settings.SecretKey = os.Getenv(cfg.OKX.SecretKeyEnv)
	}
	if cfg.OKX.Passphrase != "" {
		settings.Passphrase = cfg.OKX.Passphrase
	}
	if cfg.OKX.PassphraseEnv != "" {
		settings.Passphrase = os.Getenv(cfg.OKX.PassphraseEnv)
	}
	if cfg.OKX.ProjectID != "" {
		settings.ProjectID = cfg.OKX.ProjectID
	}
	if cfg.OKX.ProjectIDEnv != "" {
		settings.ProjectID = os.Getenv(cfg.OKX.ProjectIDEnv)
	}
	if cfg.OKX.BaseURL != "" {
		settings.BaseURL = cfg.OKX.BaseURL
	}

	if cfg.Solana.RPCURL != "" {
		settings.SolanaRPCURL = cfg.Solana.RPCURL
	}
	if cfg.Solana.RPCURLEnv != "" {
		settings.SolanaRPCURL = os.Getenv(cfg.Solana.RPCURLEnv)
	}
	if cfg.Solana.WSEndpoint != "" {
		settings.WSEndpoint = cfg.Solana.WSEndpoint
	}
	if cfg.Solana.WalletAddress != "" {
		settings.WalletAddress = cfg.Solana.WalletAddress
	}
	if cfg.Solana.PrivateKey != "" {
		settings.WalletPrivateKey = cfg.Solana.PrivateKey
	}
	if cfg.Solana.PrivateKeyEnv != "" {
		settings.WalletPrivateKey = os.Getenv(cfg.Solana.PrivateKeyEnv)
	}
	if cfg.Solana.MaxAutoSlippage != "" {
		settings.MaxAutoSlippage = cfg.Solana.MaxAutoSlippage
	}

	if cfg.Cache.Enabled != nil {
		settings.CacheEnabled = *cfg.Cache.Enabled
	}
	if cfg.Cache.Path != "" {
		settings.CachePath = cfg.Cache.Path
	}
	if cfg.Cache.LockPath != "" {
		settings.CacheLockPath = cfg.Cache.LockPath
	}
	if cfg.Cache.DecimalsTTL != "" {
		d, err := time.ParseDuration(cfg.Cache.DecimalsTTL)
		if err != nil {
			return fmt.Errorf("config cache.decimals_ttl: %w", err)
		}
		settings.DecimalsTTL = d
	}

	if len(cfg.Networks) > 0 {
		overrides := make(map[string]okx.NetworkConfig, len(cfg.Networks))
		for id, network := range cfg.Networks {
			override := okx.NetworkConfig{
				ID:              id,
				Explorer:        network.Explorer,
				DefaultSlippage: network.DefaultSlippage,
				MaxSlippage:     network.MaxSlippage,
				ComputeUnits:    network.ComputeUnits,
				MaxRetries:      network.MaxRetries,
			}
			if network.ConfirmationTimeout != "" {
				d, err := time.ParseDuration(network.ConfirmationTimeout)
				if err != nil {
					return fmt.Errorf("config networks.%s.confirmation_timeout: %w", id, err)
				}
				override.ConfirmationTimeout = d
			}
			overrides[id] = override
		}
		settings.Networks = okx.MergeNetworks(overrides)
	}

	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("OKX_API_KEY"); v != "" {
		settings.APIKey = v
	}
	if v := os.Getenv("OKX_SECRET_KEY"); v != "" {
		settings.SecretKey = v
	}
	if v := os.Getenv("OKX_API_PASSPHRASE"); v != "" {
		settings.Passphrase = v
	}
	if v := os.Getenv("OKX_PROJECT_ID"); v != "" {
		settings.ProjectID = v
	}
	if v := os.Getenv("OKX_BASE_URL"); v != "" {
		settings.BaseURL = v
	}
	if v := os.Getenv("OKX_SOLANA_RPC_URL"); v != "" {
		settings.SolanaRPCURL = v
	}
	if v := os.Getenv("OKX_WS_ENDPOINT"); v != "" {
		settings.WSEndpoint = v
	}
	if v := os.Getenv("OKX_WALLET_ADDRESS"); v != "" {
		settings.WalletAddress = v
	}
	if v := os.Getenv("OKX_WALLET_PRIVATE_KEY"); v != "" {
		settings.WalletPrivateKey = v
	}
	if v := os.Getenv("OKX_MAX_AUTO_SLIPPAGE"); v != "" {
		settings.MaxAutoSlippage = v
	}
	if v := os.Getenv("OKX_OUTPUT"); v != "" {
		settings.OutputMode = strings.ToLower(v)
	}
	if v := os.Getenv("OKX_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("OKX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("OKX_LOG_LEVEL"); v != "" {
		settings.LogLevel = v
	}
	if v := os.Getenv("OKX_NO_CACHE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.CacheEnabled = !b
		}
	}
	if v := os.Getenv("OKX_CACHE_PATH"); v != "" {
		settings.CachePath = v
	}
	if v := os.Getenv("OKX_CACHE_LOCK_PATH"); v != "" {
		settings.CacheLockPath = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.JSON && flags.Plain {
		return fmt.Errorf("cannot use --json and --plain together")
	}
	if flags.JSON {
		settings.OutputMode = "json"
	}
	if flags.Plain {
		settings.OutputMode = "plain"
	}
	if flags.Timeout != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("parse --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries >= 1 {
		settings.Retries = flags.Retries
	}
	if flags.NoCache {
		settings.CacheEnabled = false
	}
	if flags.LogLevel != "" {
		settings.LogLevel = flags.LogLevel
	}

	if settings.OutputMode != "json" && settings.OutputMode != "plain" {
		return fmt.Errorf("output must be json or plain")
	}

	return nil
}
