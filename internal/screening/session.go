package screening

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

var exitCommands = []string{"quit", "bye", "exit", "end"}

// Message is one line of the conversation transcript.
type Message struct {
	Role    string    `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"time"`
}

// Answer is the candidate's reply to one generated question.
type Answer struct {
	Index    int       `json:"index"`
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	Time     time.Time `json:"time"`
}

// Session owns the state, profile and question set of one conversation.
// Controller.HandleInput holds the lock for the whole turn.
type Session struct {
	mu sync.Mutex

	id         string
	state      State
	closed     bool
	profile    CandidateProfile
	questions  *QuestionSet
	answers    []Answer
	messages   []Message
	startedAt  time.Time
	updatedAt  time.Time
	finishedAt time.Time
}

// Snapshot is a detached copy of a session, safe to serialize.
type Snapshot struct {
	ID         string           `json:"id"`
	State      State            `json:"state"`
	Closed     bool             `json:"closed,omitempty"`
	Profile    CandidateProfile `json:"profile"`
	Questions  *QuestionSet     `json:"questions,omitempty"`
	Answers    []Answer         `json:"answers,omitempty"`
	Messages   []Message        `json:"messages,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
}

// NewSession starts a conversation in GREETING with the greeting already in the transcript.
func NewSession(id string) *Session {
	now := time.Now().UTC()
	s := &Session{
		id:        id,
		state:     StateGreeting,
		startedAt: now,
		updatedAt: now,
	}
	s.record(RoleAssistant, GreetingMessage, now)
	return s
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Close marks the conversation as abandoned by the candidate. The state is left
// untouched; further input only gets the closing reply. It reports false when
// the session was already closed or finished.
func (s *Session) Close() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.state == StateEnd {
		return false
	}

	s.closed = true
	s.updatedAt = time.Now().UTC()
	return true
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		Closed:    s.closed,
		Profile:   s.profile.Clone(),
		Answers:   append([]Answer(nil), s.answers...),
		Messages:  append([]Message(nil), s.messages...),
		StartedAt: s.startedAt,
		UpdatedAt: s.updatedAt,
	}

	if s.questions != nil {
		qs := *s.questions
		qs.Questions = append([]string(nil), s.questions.Questions...)
		snap.Questions = &qs
	}

	if !s.finishedAt.IsZero() {
		finished := s.finishedAt
		snap.FinishedAt = &finished
	}

	return snap
}

func (s *Session) record(role, content string, at time.Time) {
	s.messages = append(s.messages, Message{Role: role, Content: content, Time: at})
}

// IsExitCommand reports whether the input asks to leave the conversation.
func IsExitCommand(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, cmd := range exitCommands {
		if text == cmd {
			return true
		}
	}
	return false
}

// Store keeps sessions by id. Sessions never share state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Create registers a new session with a random id.
func (st *Store) Create() *Session {
	s := NewSession(uuid.NewString())

	st.mu.Lock()
	defer st.mu.Unlock()
	st.sessions[s.id] = s

	return s
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Delete(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return false
	}
	delete(st.sessions, id)
	return true
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// IDs returns the session ids sorted by start time, oldest first.
func (st *Store) IDs() []string {
	st.mu.RLock()
	sessions := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		sessions = append(sessions, s)
	}
	st.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].startedAt.Equal(sessions[j].startedAt) {
			return sessions[i].id < sessions[j].id
		}
		return sessions[i].startedAt.Before(sessions[j].startedAt)
	})

	ids := make([]string, len(sessions))
	for i, s := range sessions {
		ids[i] = s.id
	}
	return ids
}
