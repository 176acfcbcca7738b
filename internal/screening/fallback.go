package screening

import (
	"fmt"
	"time"
)

// FallbackFunc decides what to do when question generation fails. Returning
// false keeps the conversation in GATHER_INFO so the candidate can retry.
type FallbackFunc func(profile CandidateProfile, err error) (*QuestionSet, bool)

var (
	roleTemplate = "What does a typical week look like for you as a %s, and which part of it do you find most challenging?"

	techTemplates = []string{
		"Describe a production problem you solved with %s. How did you find the root cause?",
		"What are the most common pitfalls when working with %s, and how do you avoid them?",
		"How do you test and debug code built with %s?",
	}
)

// StaticQuestions builds a question set from fixed templates: one question
// about the role, then templates applied round-robin across the tech stack.
func StaticQuestions(profile CandidateProfile, maxQuestions int) *QuestionSet {
	if maxQuestions <= 0 {
		maxQuestions = DefaultMaxQuestions
	}

	questions := make([]string, 0, maxQuestions)
	if profile.Role != "" {
		questions = append(questions, fmt.Sprintf(roleTemplate, sanitizeField(profile.Role)))
	}

	stack := profile.TechStack
	if len(stack) == 0 {
		stack = []string{"your main technology"}
	}

	for _, template := range techTemplates {
		for _, tech := range stack {
			if len(questions) >= maxQuestions {
				break
			}
			questions = append(questions, fmt.Sprintf(template, sanitizeField(tech)))
		}
	}

	return &QuestionSet{
		Questions: questions,
		Source:    SourceStatic,
		CreatedAt: time.Now().UTC(),
	}
}

// StaticFallback replaces failed generations with StaticQuestions.
func StaticFallback(maxQuestions int) FallbackFunc {
	return func(profile CandidateProfile, _ error) (*QuestionSet, bool) {
		return StaticQuestions(profile, maxQuestions), true
	}
}
