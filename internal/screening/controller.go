package screening

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spigell/talent-scout/internal/ai"
	"github.com/spigell/talent-scout/internal/logger"
	"go.uber.org/zap"
)

const (
	// NextCommand moves the conversation from GATHER_INFO to ASK_QUESTIONS.
	NextCommand = "NEXT"

	DefaultMinQuestions = 3
	DefaultMaxQuestions = 5

	defaultMaxLogLength = 200
)

const (
	GreetingMessage = "Hello! I am TalentScout Hiring Assistant. I'll guide you through our initial screening. " +
		"Please provide your full name to begin."
	ClosingMessage = "Thank you for completing the initial screening with TalentScout Hiring Assistant. " +
		"Your information has been recorded. Goodbye and good luck!"
	GenerationFailedMessage = "Sorry, I could not generate questions, please retry by typing NEXT."

	askNameMessage    = "Please provide your full name to begin."
	gatherHintMessage = `Please tell me the role you are applying for, your tech stack and years of experience, ` +
		`for example "role: backend engineer, stack: Python, Go, experience: 4, email: you@example.com". ` +
		`Type NEXT when you are done.`
)

// Options tune question generation.
type Options struct {
	MinQuestions int
	MaxQuestions int
	MaxLogLength int
	// Fallback is consulted when generation fails; nil means the candidate retries.
	Fallback FallbackFunc
}

// Reply is the controller's answer to one input.
type Reply struct {
	// From is the state the input was applied in; From != State means this
	// input caused the transition.
	From  State
	State State
	Text  string
	// Err is the generation failure behind a GenerationFailedMessage reply.
	Err error
}

// Controller drives the screening conversation. It keeps no per-session data;
// everything lives in the Session passed to HandleInput.
type Controller struct {
	completer    ai.Completer
	logger       *zap.Logger
	minQuestions int
	maxQuestions int
	maxLogLen    int
	fallback     FallbackFunc
	now          func() time.Time
}

func NewController(completer ai.Completer, opts Options, log *zap.Logger) *Controller {
	maxQuestions := opts.MaxQuestions
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}

	minQuestions := opts.MinQuestions
	if minQuestions <= 0 {
		minQuestions = DefaultMinQuestions
	}
	minQuestions = min(minQuestions, maxQuestions)

	maxLogLen := opts.MaxLogLength
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}

	return &Controller{
		completer:    completer,
		logger:       logger.WithFields(log),
		minQuestions: minQuestions,
		maxQuestions: maxQuestions,
		maxLogLen:    maxLogLen,
		fallback:     opts.Fallback,
		now:          time.Now,
	}
}

// HandleInput applies one candidate message to the session and returns the reply.
func (c *Controller) HandleInput(ctx context.Context, s *Session, input string) Reply {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateEnd {
		return Reply{From: s.state, State: s.state, Text: ClosingMessage}
	}

	text := strings.TrimSpace(input)
	now := c.now().UTC()
	log := logger.WithSession(c.logger, s.id)
	from := s.state

	s.record(RoleUser, text, now)

	var reply Reply
	switch s.state {
	case StateGreeting:
		reply = c.greet(s, text)
	case StateGatherInfo:
		reply = c.gather(ctx, s, text, log)
	case StateAskQuestions:
		reply = c.answer(s, text, now)
	}

	reply.From = from
	reply.State = s.state
	s.record(RoleAssistant, reply.Text, c.now().UTC())
	s.updatedAt = c.now().UTC()

	if from != s.state {
		log.Info("conversation state changed",
			zap.Stringer("from", from),
			zap.Stringer(logger.FieldState, s.state),
		)
	}

	return reply
}

func (c *Controller) greet(s *Session, text string) Reply {
	name := ParseName(text)
	if name == "" {
		return Reply{Text: askNameMessage}
	}

	s.profile.Name = name
	s.state = StateGatherInfo

	return Reply{Text: fmt.Sprintf("Nice to meet you, %s! %s", name, gatherHintMessage)}
}

func (c *Controller) gather(ctx context.Context, s *Session, text string, log *zap.Logger) Reply {
	if !strings.EqualFold(text, NextCommand) {
		update := ParseProfileUpdate(text)
		if update.Empty() {
			return Reply{Text: "I could not recognize any details in that message. " + gatherHintMessage}
		}

		s.profile.Apply(update)
		return Reply{Text: fmt.Sprintf("Got it. So far I have %s. Add more details or type NEXT to continue.", s.profile.Summary())}
	}

	if missing := s.profile.Missing(); len(missing) > 0 {
		return Reply{Text: fmt.Sprintf("Before we continue I still need your %s. Please provide it, then type NEXT.", strings.Join(missing, " and "))}
	}

	if err := s.profile.Validate(); err != nil {
		log.Debug("candidate profile rejected", zap.Error(err))
		return Reply{Text: fmt.Sprintf("Your %s does not look right. Please correct it, then type NEXT.", strings.Join(invalidFields(err), " and "))}
	}

	profile := s.profile.Clone()
	set, err := c.GenerateQuestions(ctx, profile)
	if err != nil && c.fallback != nil {
		if fallback, ok := c.fallback(profile, err); ok && fallback.Len() > 0 {
			log.Warn("question generation failed, using fallback questions",
				zap.Error(err),
				zap.String("source", fallback.Source),
			)
			set, err = fallback, nil
		}
	}

	if err != nil {
		log.Warn("question generation failed",
			zap.Error(err),
			zap.Bool("retryable", ai.IsRetryable(err)),
		)
		return Reply{Text: GenerationFailedMessage, Err: err}
	}

	s.questions = set
	log.Info("questions generated",
		zap.Int("questions", set.Len()),
		zap.String("source", set.Source),
	)

	return c.begin(s)
}

func (c *Controller) begin(s *Session) Reply {
	s.state = StateAskQuestions
	return Reply{Text: fmt.Sprintf("Excellent. We have %d questions for you.\n\nQuestion 1: %s", s.questions.Len(), s.questions.Questions[0])}
}

func (c *Controller) answer(s *Session, text string, now time.Time) Reply {
	current := len(s.answers)
	question := s.questions.Questions[current]

	if text == "" || strings.EqualFold(text, NextCommand) {
		return Reply{Text: fmt.Sprintf("Please answer question %d: %s", current+1, question)}
	}

	s.answers = append(s.answers, Answer{
		Index:    current,
		Question: question,
		Answer:   text,
		Time:     now,
	})

	next := len(s.answers)
	if next >= s.questions.Len() {
		s.state = StateEnd
		s.finishedAt = now
		return Reply{Text: ClosingMessage}
	}

	return Reply{Text: fmt.Sprintf("Thank you for your answer.\n\nQuestion %d: %s", next+1, s.questions.Questions[next])}
}
