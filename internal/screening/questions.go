package screening

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/talent-scout/internal/utils"
	"go.uber.org/zap"
)

const (
	SourceLLM    = "llm"
	SourceStatic = "static"

	// maxFieldRunes bounds every candidate-provided value embedded in the prompt.
	maxFieldRunes = 200
)

//go:embed prompt.md
var promptTemplate string

var listItemPattern = regexp.MustCompile(`^(?:[-*•]|\d+[.):]|[Qq]\d+[.):])\s*(.+)$`)

// QuestionSet is generated once per session when the candidate leaves GATHER_INFO.
type QuestionSet struct {
	Questions []string  `json:"questions"`
	Source    string    `json:"source"`
	Model     string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (q *QuestionSet) Len() int {
	if q == nil {
		return 0
	}
	return len(q.Questions)
}

// GenerationError means no usable question set could be produced. Whether to
// retry or fall back to static questions is up to the caller.
type GenerationError struct {
	Reason string
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generate questions: %s: %v", e.Reason, e.Err)
	}
	return "generate questions: " + e.Reason
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

type questionsPayload struct {
	Questions  []any            `mapstructure:"questions"`
	Assessment map[string][]any `mapstructure:"assessment"`
}

type questionItem struct {
	Question string `mapstructure:"question"`
	Text     string `mapstructure:"text"`
}

// GenerateQuestions asks the language model for screening questions tailored to
// the profile's role and tech stack.
func (c *Controller) GenerateQuestions(ctx context.Context, profile CandidateProfile) (*QuestionSet, error) {
	if c.completer == nil {
		return nil, &GenerationError{Reason: "language model client is not configured"}
	}

	if missing := profile.Missing(); len(missing) > 0 {
		return nil, &GenerationError{Reason: "missing " + strings.Join(missing, ", ")}
	}

	prompt := buildPrompt(profile, c.minQuestions, c.maxQuestions)

	c.logger.Debug("generate questions request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, c.maxLogLen)),
	)

	raw, err := c.completer.GenerateContent(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Reason: "language model request failed", Err: err}
	}

	c.logger.Debug("generate questions response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, c.maxLogLen)),
	)

	questions, err := parseQuestions(raw, profile.TechStack)
	if err != nil {
		return nil, &GenerationError{Reason: "malformed response", Err: err}
	}

	if len(questions) > c.maxQuestions {
		questions = questions[:c.maxQuestions]
	}

	if len(questions) < c.minQuestions {
		c.logger.Warn("language model returned fewer questions than requested",
			zap.Int("questions", len(questions)),
			zap.Int("min_questions", c.minQuestions),
		)
	}

	return &QuestionSet{
		Questions: questions,
		Source:    SourceLLM,
		Model:     c.completer.Model(),
		CreatedAt: c.now().UTC(),
	}, nil
}

func buildPrompt(profile CandidateProfile, minQuestions, maxQuestions int) string {
	template := promptTemplate
	if strings.TrimSpace(template) == "" {
		template = "Role: {{ROLE}}\nTech stack: {{TECH_STACK}}\nExperience: {{EXPERIENCE}}\n" +
			"Write {{MIN_QUESTIONS}} to {{MAX_QUESTIONS}} screening questions as JSON {\"questions\": [...]}."
	}

	stack := make([]string, 0, len(profile.TechStack))
	for _, tech := range profile.TechStack {
		stack = append(stack, sanitizeField(tech))
	}

	experience := "not specified"
	if profile.Experience != nil {
		experience = formatYears(*profile.Experience)
	}

	replacer := strings.NewReplacer(
		"{{ROLE}}", sanitizeField(profile.Role),
		"{{TECH_STACK}}", strings.Join(stack, ", "),
		"{{EXPERIENCE}}", experience,
		"{{MIN_QUESTIONS}}", fmt.Sprint(minQuestions),
		"{{MAX_QUESTIONS}}", fmt.Sprint(maxQuestions),
	)

	return replacer.Replace(template)
}

// sanitizeField keeps candidate text on one line and stops it from imitating
// the prompt's [Section] headers.
func sanitizeField(value string) string {
	value = utils.SingleLine(value)
	value = strings.NewReplacer("[", "(", "]", ")", "{{", "(", "}}", ")").Replace(value)
	if runes := []rune(value); len(runes) > maxFieldRunes {
		value = string(runes[:maxFieldRunes])
	}
	return value
}

// parseQuestions accepts {"questions": [...]}, the grouped
// {"assessment": {"Go": [{"question": "..."}]}} shape, a bare JSON array or a
// plain numbered list. Technologies are ordered as declared in stack.
func parseQuestions(raw string, stack []string) ([]string, error) {
	cleaned := extractJSON(raw)

	var data any
	if err := json.Unmarshal([]byte(cleaned), &data); err == nil {
		questions, err := questionsFromJSON(data, stack)
		if err != nil {
			return nil, err
		}
		if len(questions) > 0 {
			return questions, nil
		}
	}

	questions := questionsFromLines(raw)
	if len(questions) == 0 {
		return nil, errors.New("no questions found in response")
	}

	return questions, nil
}

func questionsFromJSON(data any, stack []string) ([]string, error) {
	switch typed := data.(type) {
	case []any:
		return questionsFromItems(typed)
	case map[string]any:
		var payload questionsPayload
		if err := mapstructure.Decode(typed, &payload); err != nil {
			return nil, fmt.Errorf("decode questions payload: %w", err)
		}

		questions, err := questionsFromItems(payload.Questions)
		if err != nil {
			return nil, err
		}

		for _, tech := range orderTechnologies(payload.Assessment, stack) {
			grouped, err := questionsFromItems(payload.Assessment[tech])
			if err != nil {
				return nil, err
			}
			questions = appendUnique(questions, grouped...)
		}

		return questions, nil
	default:
		return nil, nil
	}
}

func questionsFromItems(items []any) ([]string, error) {
	questions := make([]string, 0, len(items))
	for _, item := range items {
		var text string
		switch typed := item.(type) {
		case string:
			text = typed
		case map[string]any:
			var q questionItem
			if err := mapstructure.Decode(typed, &q); err != nil {
				return nil, fmt.Errorf("decode question: %w", err)
			}
			text = q.Question
			if text == "" {
				text = q.Text
			}
		}

		if text = cleanQuestion(text); text != "" {
			questions = appendUnique(questions, text)
		}
	}
	return questions, nil
}

func orderTechnologies(assessment map[string][]any, stack []string) []string {
	ordered := make([]string, 0, len(assessment))
	for _, tech := range stack {
		for key := range assessment {
			if strings.EqualFold(key, tech) && !containsFold(ordered, key) {
				ordered = append(ordered, key)
			}
		}
	}

	rest := make([]string, 0, len(assessment))
	for key := range assessment {
		if !containsFold(ordered, key) {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)

	return append(ordered, rest...)
}

func questionsFromLines(raw string) []string {
	var listed, asked []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}

		if m := listItemPattern.FindStringSubmatch(line); len(m) == 2 {
			if q := cleanQuestion(m[1]); q != "" {
				listed = appendUnique(listed, q)
			}
			continue
		}

		if strings.HasSuffix(line, "?") {
			asked = appendUnique(asked, cleanQuestion(line))
		}
	}

	if len(listed) > 0 {
		return listed
	}
	return asked
}

func cleanQuestion(q string) string {
	q = strings.ReplaceAll(q, "**", "")
	q = utils.SingleLine(q)
	return strings.Trim(q, `"' `)
}

// extractJSON returns the body of the first fenced block, wherever it starts,
// or else the span between the first opening and the last closing bracket.
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if start := strings.Index(raw, "```"); start != -1 {
		body := strings.TrimLeftFunc(raw[start+3:], unicode.IsLetter)
		if end := strings.Index(body, "```"); end != -1 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}

	open := strings.IndexAny(raw, "{[")
	end := strings.LastIndexAny(raw, "}]")
	if open != -1 && end > open {
		return raw[open : end+1]
	}
	return raw
}
