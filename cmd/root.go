package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/ai/gemini"
	"github.com/spigell/talent-scout/internal/screening"
	"github.com/spigell/talent-scout/internal/secrets"
	"github.com/spigell/talent-scout/internal/transcript"
	"go.uber.org/zap"
)

const (
	app = "talent-scout"

	fallbackNone   = "none"
	fallbackStatic = "static"
)

type Config struct {
	AI          *AIConfig         `mapstructure:"ai"`
	Screening   *ScreeningConfig  `mapstructure:"screening"`
	Transcripts *TranscriptConfig `mapstructure:"transcripts"`
	Server      *ServerConfig     `mapstructure:"server"`
}

type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	Gemini   *GeminiConfig `mapstructure:"gemini"`
}

type GeminiConfig struct {
	APIKey            string        `mapstructure:"api-key"`
	APIKeyFile        string        `mapstructure:"api-key-file"`
	Model             string        `mapstructure:"model"`
	Temperature       float64       `mapstructure:"temperature"`
	SystemInstruction string        `mapstructure:"system-instruction"`
	MaxRetries        int           `mapstructure:"max-retries"`
	MaxLogLength      int           `mapstructure:"max-log-length"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

type ScreeningConfig struct {
	MinQuestions int    `mapstructure:"min-questions"`
	MaxQuestions int    `mapstructure:"max-questions"`
	Fallback     string `mapstructure:"fallback"`
}

type TranscriptConfig struct {
	File string `mapstructure:"file"`
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	// Used for flags.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   app,
		Short: "talent-scout is a hiring assistant that screens candidates with LLM generated questions",
	}
)

// Execute executes the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	bindEnv := map[string]string{
		"ai.gemini.api-key":      "GEMINI_API_KEY",
		"ai.gemini.api-key-file": "GEMINI_API_KEY_FILE",
		"transcripts.file":       "TALENT_SCOUT_TRANSCRIPTS_FILE",
		"server.addr":            "TALENT_SCOUT_ADDR",
	}
	for key, env := range bindEnv {
		if err := viper.BindEnv(key, env); err != nil {
			log.Fatalf("binding %s environment variable: %v", env, err)
		}
	}

	setDefaults(viper.GetViper())

	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "a config file (default is talent-scout.yaml in current directory)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "verbose/debug output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "json format for logging")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.gemini.model", ai.DefaultModel)
	v.SetDefault("ai.gemini.temperature", ai.DefaultTemperature)
	v.SetDefault("ai.gemini.max-retries", 3)
	v.SetDefault("ai.gemini.max-log-length", 200)
	v.SetDefault("ai.gemini.timeout", 30*time.Second)
	v.SetDefault("screening.min-questions", screening.DefaultMinQuestions)
	v.SetDefault("screening.max-questions", screening.DefaultMaxQuestions)
	v.SetDefault("screening.fallback", fallbackNone)
	v.SetDefault("server.addr", ":8080")
}

func initConfig() {
	// .env is optional; real environment variables take precedence.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("loading .env: %v", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(app)
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// The config file is optional unless given explicitly.
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Fatal(err)
		}
	}
}

// bindFlags binds command flags to config keys. Keys shared by several
// commands are bound when the command runs, so the running command's flag wins.
func bindFlags(cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		flag := cmd.Flags().Lookup(name)
		if flag == nil {
			return fmt.Errorf("command %s has no flag %q", cmd.Name(), name)
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("binding flag %q: %w", name, err)
		}
	}
	return nil
}

func getConfig() (*Config, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (*Config, error) {
	var config *Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config == nil {
		config = &Config{}
	}
	if config.AI == nil {
		config.AI = &AIConfig{}
	}
	if config.AI.Gemini == nil {
		config.AI.Gemini = &GeminiConfig{}
	}
	if config.Screening == nil {
		config.Screening = &ScreeningConfig{}
	}
	if config.Transcripts == nil {
		config.Transcripts = &TranscriptConfig{}
	}
	if config.Server == nil {
		config.Server = &ServerConfig{}
	}

	return config, nil
}

// resolveAPIKey loads the Gemini credential from the key file, the inline
// value or GEMINI_API_KEY, in that order.
func resolveAPIKey(cfg *GeminiConfig) (string, error) {
	if cfg == nil {
		return "", errors.New("gemini configuration is required")
	}

	return secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
}

func newCompleter(ctx context.Context, cfg *AIConfig, logger *zap.Logger) (ai.Completer, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}

	apiKey, err := resolveAPIKey(cfg.Gemini)
	if err != nil {
		return nil, err
	}

	settings := ai.Settings{
		Model:             cfg.Gemini.Model,
		Temperature:       cfg.Gemini.Temperature,
		SystemInstruction: cfg.Gemini.SystemInstruction,
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, settings, cfg.Gemini.MaxRetries, cfg.Gemini.Timeout, logger)
	if err != nil {
		return nil, err
	}

	return generator, nil
}

func screeningOptions(config *Config) (screening.Options, error) {
	opts := screening.Options{
		MinQuestions: config.Screening.MinQuestions,
		MaxQuestions: config.Screening.MaxQuestions,
		MaxLogLength: config.AI.Gemini.MaxLogLength,
	}

	switch strings.TrimSpace(strings.ToLower(config.Screening.Fallback)) {
	case "", fallbackNone:
	case fallbackStatic:
		opts.Fallback = screening.StaticFallback(opts.MaxQuestions)
	default:
		return opts, fmt.Errorf("unsupported screening fallback %q (use %s or %s)", config.Screening.Fallback, fallbackNone, fallbackStatic)
	}

	return opts, nil
}

// newController builds the screening controller from the config. The missing
// credential is reported here so commands can fail before talking to anyone.
func newController(ctx context.Context, config *Config, logger *zap.Logger) (*screening.Controller, error) {
	opts, err := screeningOptions(config)
	if err != nil {
		return nil, err
	}

	completer, err := newCompleter(ctx, config.AI, logger)
	if err != nil {
		return nil, err
	}

	return screening.NewController(completer, opts, logger), nil
}

func saveTranscript(path string, snap screening.Snapshot, logger *zap.Logger) {
	if strings.TrimSpace(path) == "" {
		return
	}

	if err := transcript.Save(path, snap); err != nil {
		logger.Error("saving transcript", zap.Error(err), zap.String("file", path))
		return
	}

	logger.Info("transcript saved", zap.String("file", path), zap.String("session_id", snap.ID))
}
