package screening

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProfileUpdate(t *testing.T) {
	t.Parallel()

	years := func(v float64) *float64 { return &v }
	str := func(v string) *string { return &v }

	tests := []struct {
		name  string
		input string
		want  ProfileUpdate
	}{
		{
			name:  "keyed fields separated by commas",
			input: "role: backend engineer, stack: Python, Go, experience: 4",
			want: ProfileUpdate{
				Role:       str("backend engineer"),
				TechStack:  []string{"Python", "Go"},
				Experience: years(4),
			},
		},
		{
			name:  "long aliases win and values may contain dots",
			input: "Desired Position = Staff Engineer; Tech Stack: Node.js, .NET and C++; years of experience: 7.5 yrs",
			want: ProfileUpdate{
				Role:       str("Staff Engineer"),
				TechStack:  []string{"Node.js", ".NET", "C++"},
				Experience: years(7.5),
			},
		},
		{
			name:  "free standing email and experience",
			input: "you can reach me at jane.doe@example.com, I have 6+ years in the industry",
			want: ProfileUpdate{
				Email:      str("jane.doe@example.com"),
				Experience: years(6),
			},
		},
		{
			name:  "keyed email without address is ignored",
			input: "email: none",
			want:  ProfileUpdate{},
		},
		{
			name:  "name correction",
			input: "name: Alice Smith",
			want:  ProfileUpdate{Name: str("Alice Smith")},
		},
		{
			name:  "duplicate technologies collapse",
			input: "stack: Go, go, Kubernetes | Terraform",
			want:  ProfileUpdate{TechStack: []string{"Go", "Kubernetes", "Terraform"}},
		},
		{
			name:  "experience without number is ignored",
			input: "experience: a lot",
			want:  ProfileUpdate{},
		},
		{
			name:  "nothing recognized",
			input: "hello, how are you?",
			want:  ProfileUpdate{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseProfileUpdate(tt.input))
		})
	}
}

func TestParseName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"Alice":                  "Alice",
		"  I'm   Bob Stone!  ":   "Bob Stone",
		"name: Carol":            "Carol",
		"this is Dave, a tester": "Dave, a tester",
		"I amelia Smith":         "I amelia Smith",
		"I am":                   "I am",
		"...":                    "...",
		"!!!":                    "!!!",
		"   ":                    "",
	}

	for input, want := range tests {
		assert.Equal(t, want, ParseName(input), "input %q", input)
	}
}

func TestProfileApplyMerges(t *testing.T) {
	t.Parallel()

	p := CandidateProfile{Name: "Alice", TechStack: []string{"Go"}}
	p.Apply(ParseProfileUpdate("role: sre, stack: go, Kubernetes"))
	p.Apply(ParseProfileUpdate("role: platform engineer, experience: 3, email: a@b.io"))

	assert.Equal(t, "platform engineer", p.Role)
	assert.Equal(t, []string{"Go", "Kubernetes"}, p.TechStack)
	require.NotNil(t, p.Experience)
	assert.Equal(t, 3.0, *p.Experience)
	assert.Equal(t, "a@b.io", p.Email)
	assert.Equal(t, "role: platform engineer; tech stack: Go, Kubernetes; experience: 3 years; email: a@b.io", p.Summary())
}

func TestProfileMissing(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"desired role", "tech stack"}, CandidateProfile{}.Missing())
	assert.Equal(t, []string{"tech stack"}, CandidateProfile{Role: "sre", TechStack: []string{}}.Missing())
	assert.Empty(t, CandidateProfile{Role: "sre", TechStack: []string{"Go"}}.Missing())

	// Optional fields never block the transition.
	bad := CandidateProfile{Role: "sre", TechStack: []string{"Go"}, Email: "not-an-email"}
	assert.Empty(t, bad.Missing())
	assert.Error(t, bad.Validate())
}

func TestProfileCloneIsDeep(t *testing.T) {
	t.Parallel()

	years := 2.0
	p := CandidateProfile{TechStack: []string{"Go"}, Experience: &years}
	cp := p.Clone()
	cp.TechStack[0] = "Rust"
	*cp.Experience = 10

	assert.Equal(t, "Go", p.TechStack[0])
	assert.Equal(t, 2.0, *p.Experience)
}
