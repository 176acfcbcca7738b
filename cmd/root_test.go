package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/screening"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDecodeConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "gemini", config.AI.Provider)
	assert.Equal(t, ai.DefaultModel, config.AI.Gemini.Model)
	assert.InDelta(t, ai.DefaultTemperature, config.AI.Gemini.Temperature, 1e-9)
	assert.Equal(t, 30*time.Second, config.AI.Gemini.Timeout)
	assert.Equal(t, screening.DefaultMinQuestions, config.Screening.MinQuestions)
	assert.Equal(t, screening.DefaultMaxQuestions, config.Screening.MaxQuestions)
	assert.Equal(t, fallbackNone, config.Screening.Fallback)
	assert.Equal(t, ":8080", config.Server.Addr)
	assert.Empty(t, config.Transcripts.File)
}

func TestDecodeConfigFromYAML(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	yaml := `
ai:
  gemini:
    model: gemini-2.5-pro
    timeout: 5s
    api-key-file: /run/secrets/gemini
screening:
  max-questions: 4
  fallback: static
transcripts:
  file: screenings.json
`
	require.NoError(t, v.ReadConfig(strings.NewReader(yaml)))

	config, err := decodeConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.5-pro", config.AI.Gemini.Model)
	assert.Equal(t, 5*time.Second, config.AI.Gemini.Timeout)
	assert.Equal(t, "/run/secrets/gemini", config.AI.Gemini.APIKeyFile)
	assert.Equal(t, 4, config.Screening.MaxQuestions)
	assert.Equal(t, "screenings.json", config.Transcripts.File)

	opts, err := screeningOptions(config)
	require.NoError(t, err)
	assert.Equal(t, 4, opts.MaxQuestions)
	assert.NotNil(t, opts.Fallback)
}

func TestScreeningOptionsRejectsUnknownFallback(t *testing.T) {
	config, err := decodeConfig(viper.New())
	require.NoError(t, err)
	config.Screening.Fallback = "random"

	_, err = screeningOptions(config)
	assert.ErrorContains(t, err, "unsupported screening fallback")
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := resolveAPIKey(&GeminiConfig{})
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	t.Setenv("GEMINI_API_KEY", " from-env ")
	key, err := resolveAPIKey(&GeminiConfig{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	key, err = resolveAPIKey(&GeminiConfig{APIKey: "inline"})
	require.NoError(t, err)
	assert.Equal(t, "inline", key)

	file := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(file, []byte("from-file\n"), 0o600))
	key, err = resolveAPIKey(&GeminiConfig{APIKey: "inline", APIKeyFile: file})
	require.NoError(t, err)
	assert.Equal(t, "from-file", key)

	_, err = resolveAPIKey(nil)
	assert.Error(t, err)
}

func TestNewCompleterRejectsUnknownProvider(t *testing.T) {
	_, err := newCompleter(context.Background(), &AIConfig{Provider: "bedrock", Gemini: &GeminiConfig{}}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported ai provider")
}

type scriptedCompleter struct{}

func (scriptedCompleter) GenerateContent(context.Context, string) (string, error) {
	return `{"questions": ["Why Go?", "What is a channel?", "How do you test?"]}`, nil
}

func (scriptedCompleter) Model() string { return "scripted" }

func scriptedReader(lines ...string) lineReader {
	return func(string) (string, error) {
		if len(lines) == 0 {
			return "", errors.New("no more input")
		}
		line := lines[0]
		lines = lines[1:]
		return line, nil
	}
}

func TestConverseUntilEnd(t *testing.T) {
	controller := screening.NewController(scriptedCompleter{}, screening.Options{}, zap.NewNop())
	session := screening.NewSession("terminal")
	var out bytes.Buffer

	err := converse(context.Background(), controller, session,
		scriptedReader("Alice", "role: backend, stack: Go", "NEXT", "a1", "a2", "a3"), &out)
	require.NoError(t, err)

	snap := session.Snapshot()
	assert.Equal(t, screening.StateEnd, snap.State)
	assert.Len(t, snap.Answers, 3)
	assert.Contains(t, out.String(), "Question 1: Why Go?")
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out.String()), screening.ClosingMessage))
}

func TestConverseExitWord(t *testing.T) {
	controller := screening.NewController(scriptedCompleter{}, screening.Options{}, zap.NewNop())
	session := screening.NewSession("terminal")
	var out bytes.Buffer

	err := converse(context.Background(), controller, session, scriptedReader("Alice", "quit"), &out)
	require.NoError(t, err)

	snap := session.Snapshot()
	assert.True(t, snap.Closed)
	assert.Equal(t, screening.StateGatherInfo, snap.State)
	assert.Contains(t, out.String(), screening.ClosingMessage)
}

func TestConverseReadError(t *testing.T) {
	controller := screening.NewController(scriptedCompleter{}, screening.Options{}, zap.NewNop())
	session := screening.NewSession("terminal")

	err := converse(context.Background(), controller, session, scriptedReader(), &bytes.Buffer{})
	assert.EqualError(t, err, "no more input")
	assert.True(t, session.Snapshot().Closed)
}

func TestTranscriptsFlagFollowsRunningCommand(t *testing.T) {
	t.Cleanup(func() {
		require.NoError(t, chatCmd.Flags().Set("transcripts-file", ""))
		require.NoError(t, serveCmd.Flags().Set("transcripts-file", ""))
	})

	require.NoError(t, serveCmd.Flags().Set("transcripts-file", "serve.json"))
	require.NoError(t, chatCmd.Flags().Set("transcripts-file", "chat.json"))

	require.NoError(t, chatCmd.PreRunE(chatCmd, nil))
	config, err := getConfig()
	require.NoError(t, err)
	assert.Equal(t, "chat.json", config.Transcripts.File)

	require.NoError(t, serveCmd.PreRunE(serveCmd, nil))
	config, err = getConfig()
	require.NoError(t, err)
	assert.Equal(t, "serve.json", config.Transcripts.File)
}

func TestBindFlagsUnknownFlag(t *testing.T) {
	err := bindFlags(versionCmd, map[string]string{"server.addr": "addr"})
	assert.ErrorContains(t, err, `no flag "addr"`)
}
