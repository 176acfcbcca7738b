package screening

import "fmt"

// State is the position of a conversation in the screening flow.
// Transitions only move forward: GREETING, GATHER_INFO, ASK_QUESTIONS, END.
type State int

const (
	StateGreeting State = iota
	StateGatherInfo
	StateAskQuestions
	StateEnd
)

var stateNames = [...]string{
	StateGreeting:     "GREETING",
	StateGatherInfo:   "GATHER_INFO",
	StateAskQuestions: "ASK_QUESTIONS",
	StateEnd:          "END",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("STATE(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *State) UnmarshalText(text []byte) error {
	for i, name := range stateNames {
		if name == string(text) {
			*s = State(i)
			return nil
		}
	}
	return fmt.Errorf("unknown state %q", text)
}

// HasQuestions reports whether a question set must exist in this state.
func (s State) HasQuestions() bool {
	return s == StateAskQuestions || s == StateEnd
}
