package gemini

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/logger"
	"github.com/spigell/talent-scout/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	provider = "gemini"

	defaultMaxRetries = 3
	defaultTimeout    = 30 * time.Second
	baseBackoff       = 500 * time.Millisecond
	maxBackoff        = 8 * time.Second
	// Quota errors asking to wait longer than this are returned to the caller.
	maxQuotaDelay = 10 * time.Second
)

var retryDelayPattern = regexp.MustCompile(`(?i)retry (?:after|in) ([0-9]+(?:\.[0-9]+)?)\s*(?:s|sec|secs|seconds?)\b`)

// sleep waits between attempts. Replaced in tests.
var sleep = utils.WaitFor

type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator wraps the Google GenAI client to provide simple prompt-based interactions.
type Generator struct {
	models      contentModels
	model       string
	temperature float64
	system      string
	maxRetries  int
	timeout     time.Duration
	logger      *zap.Logger
}

// NewGenerator creates a new Generator configured for the Gemini API backend.
func NewGenerator(ctx context.Context, apiKey string, settings ai.Settings, maxRetries int, timeout time.Duration, log *zap.Logger) (*Generator, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	model := strings.TrimSpace(settings.Model)
	if model == "" {
		model = ai.DefaultModel
	}

	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Generator{
		models:      client.Models,
		model:       model,
		temperature: settings.Temperature,
		system:      strings.TrimSpace(settings.SystemInstruction),
		maxRetries:  maxRetries,
		timeout:     timeout,
		logger:      logger.WithCommonFields(log, provider, model),
	}, nil
}

// GenerateContent sends the prompt to Gemini and returns the textual response.
// Transient failures are retried with backoff; quota errors only when the
// requested delay is short.
func (g *Generator) GenerateContent(ctx context.Context, prompt string) (string, error) {
	if g == nil || g.models == nil {
		return "", errors.New("gemini generator is not initialized")
	}

	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	log := g.logger
	if log == nil {
		log = zap.NewNop()
	}

	config := g.contentConfig()
	attempts := max(g.maxRetries, 1)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		output, err := g.generateOnce(ctx, prompt, config)
		if err == nil {
			return output, nil
		}
		lastErr = err

		delay, retry := retryDelay(err, attempt)
		if !retry || attempt == attempts {
			break
		}

		log.Warn("gemini request failed, retrying",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := sleep(ctx, delay); err != nil {
			return "", err
		}
	}

	return "", lastErr
}

func (g *Generator) Model() string {
	if g == nil {
		return ""
	}
	return g.model
}

func (g *Generator) contentConfig() *genai.GenerateContentConfig {
	temperature := float32(g.temperature)
	config := &genai.GenerateContentConfig{Temperature: &temperature}
	if g.system != "" {
		config.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: g.system}}}
	}
	return config
}

func (g *Generator) generateOnce(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (string, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt), config)
	if err != nil {
		return "", classifyError(err)
	}

	output := responseText(resp)
	if output == "" {
		return "", &ai.Error{Kind: ai.KindPermanent, Provider: provider, Message: "gemini api returned empty response"}
	}

	return output, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part == nil {
				continue
			}
			text := strings.TrimSpace(part.Text)
			if text == "" {
				continue
			}
			if builder.Len() > 0 {
				builder.WriteString("\n")
			}
			builder.WriteString(text)
		}
	}

	return strings.TrimSpace(builder.String())
}

// classifyError maps provider errors onto ai.Error kinds.
func classifyError(err error) error {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		return err
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyAPIError(apiErr)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &ai.Error{Kind: ai.KindTransient, Provider: provider, Message: "request timed out", Cause: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ai.Error{Kind: ai.KindTransient, Provider: provider, Message: netErr.Error(), Cause: err}
	}

	return &ai.Error{Kind: ai.KindPermanent, Provider: provider, Message: err.Error(), Cause: err}
}

func classifyAPIError(apiErr genai.APIError) *ai.Error {
	message := strings.TrimSpace(apiErr.Message)
	if message == "" {
		message = strings.TrimSpace(apiErr.Status)
	}

	result := &ai.Error{Kind: ai.KindPermanent, Provider: provider, Message: message, Cause: apiErr}

	switch {
	case apiErr.Code == http.StatusTooManyRequests || strings.EqualFold(apiErr.Status, "RESOURCE_EXHAUSTED"):
		result.Kind = ai.KindRateLimited
		result.RetryAfter = quotaDelay(apiErr)
	case apiErr.Code == http.StatusRequestTimeout,
		apiErr.Code == http.StatusInternalServerError,
		apiErr.Code == http.StatusBadGateway,
		apiErr.Code == http.StatusServiceUnavailable,
		apiErr.Code == http.StatusGatewayTimeout:
		result.Kind = ai.KindTransient
	}

	return result
}

// quotaDelay extracts the retry delay from RetryInfo details or the message text.
func quotaDelay(apiErr genai.APIError) time.Duration {
	for _, detail := range apiErr.Details {
		raw, ok := detail["retryDelay"].(string)
		if !ok {
			continue
		}
		if d, err := time.ParseDuration(strings.TrimSpace(raw)); err == nil {
			return d
		}
	}

	match := retryDelayPattern.FindStringSubmatch(apiErr.Message)
	if len(match) < 2 {
		return 0
	}

	seconds, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0
	}

	return time.Duration(seconds * float64(time.Second))
}

func retryDelay(err error, attempt int) (time.Duration, bool) {
	var aiErr *ai.Error
	if !errors.As(err, &aiErr) {
		return 0, false
	}

	backoff := min(baseBackoff<<(attempt-1), maxBackoff)

	switch aiErr.Kind {
	case ai.KindTransient:
		return backoff, true
	case ai.KindRateLimited:
		if aiErr.RetryAfter > maxQuotaDelay {
			return 0, false
		}
		return max(aiErr.RetryAfter, backoff), true
	default:
		return 0, false
	}
}
