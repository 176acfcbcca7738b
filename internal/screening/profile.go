package screening

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
)

// CandidateProfile is filled in while the candidate answers the gathering prompts.
type CandidateProfile struct {
	Name       string   `json:"name"`
	Role       string   `json:"role" validate:"required"`
	TechStack  []string `json:"tech_stack" validate:"required,min=1,dive,required"`
	Experience *float64 `json:"years_of_experience,omitempty" validate:"omitempty,gte=0,lte=80"`
	Email      string   `json:"email,omitempty" validate:"omitempty,email"`
}

// ProfileUpdate is a partial profile recognized in one message. Nil or empty
// fields were not mentioned.
type ProfileUpdate struct {
	Name       *string
	Role       *string
	TechStack  []string
	Experience *float64
	Email      *string
}

var validate = validator.New()

var fieldLabels = map[string]string{
	"Name":       "name",
	"Role":       "desired role",
	"TechStack":  "tech stack",
	"Experience": "years of experience",
	"Email":      "email",
}

// Missing lists the labels of required fields that are still empty.
func (p CandidateProfile) Missing() []string {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil
	}

	missing := make([]string, 0, len(validationErrors))
	seen := make(map[string]struct{})
	for _, fe := range validationErrors {
		if fe.Tag() != "required" && fe.Tag() != "min" {
			continue
		}
		label := fieldLabels[fe.StructField()]
		if label == "" {
			label = strings.ToLower(fe.StructField())
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		missing = append(missing, label)
	}

	return missing
}

// Validate checks every field, including the optional ones.
func (p CandidateProfile) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid candidate profile: %w", err)
	}
	return nil
}

// invalidFields lists the labels of the fields rejected by Validate.
func invalidFields(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{"profile"}
	}

	labels := make([]string, 0, len(validationErrors))
	for _, fe := range validationErrors {
		label := fieldLabels[fe.StructField()]
		if label == "" {
			label = strings.ToLower(fe.StructField())
		}
		if !containsFold(labels, label) {
			labels = append(labels, label)
		}
	}
	return labels
}

// Clone returns a deep copy so that snapshots never share slices with the session.
func (p CandidateProfile) Clone() CandidateProfile {
	cp := p
	if p.TechStack != nil {
		cp.TechStack = append([]string(nil), p.TechStack...)
	}
	if p.Experience != nil {
		years := *p.Experience
		cp.Experience = &years
	}
	return cp
}

// Apply merges the update into the profile. Scalar fields are replaced,
// technologies are appended unless already present (case-insensitive).
func (p *CandidateProfile) Apply(u ProfileUpdate) {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Role != nil {
		p.Role = *u.Role
	}
	if u.Experience != nil {
		years := *u.Experience
		p.Experience = &years
	}
	if u.Email != nil {
		p.Email = *u.Email
	}

	for _, tech := range u.TechStack {
		if !containsFold(p.TechStack, tech) {
			p.TechStack = append(p.TechStack, tech)
		}
	}
}

// Summary renders the known fields on one line.
func (p CandidateProfile) Summary() string {
	parts := make([]string, 0, 4)
	if p.Role != "" {
		parts = append(parts, "role: "+p.Role)
	}
	if len(p.TechStack) > 0 {
		parts = append(parts, "tech stack: "+strings.Join(p.TechStack, ", "))
	}
	if p.Experience != nil {
		parts = append(parts, "experience: "+formatYears(*p.Experience))
	}
	if p.Email != "" {
		parts = append(parts, "email: "+p.Email)
	}
	return strings.Join(parts, "; ")
}

// Empty reports whether nothing was recognized.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Role == nil && len(u.TechStack) == 0 && u.Experience == nil && u.Email == nil
}

type profileField int

const (
	fieldName profileField = iota
	fieldRole
	fieldStack
	fieldExperience
	fieldEmail
)

var fieldAliases = map[string]profileField{
	"name":                fieldName,
	"full name":           fieldName,
	"role":                fieldRole,
	"desired role":        fieldRole,
	"position":            fieldRole,
	"desired position":    fieldRole,
	"job title":           fieldRole,
	"title":               fieldRole,
	"stack":               fieldStack,
	"tech stack":          fieldStack,
	"tech":                fieldStack,
	"technologies":        fieldStack,
	"skills":              fieldStack,
	"experience":          fieldExperience,
	"years of experience": fieldExperience,
	"years":               fieldExperience,
	"yoe":                 fieldExperience,
	"email":               fieldEmail,
	"e-mail":              fieldEmail,
	"mail":                fieldEmail,
}

var (
	keyPattern        = buildKeyPattern()
	emailPattern      = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	numberPattern     = regexp.MustCompile(`\d+(?:\.\d+)?`)
	experiencePattern = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*\+?\s*(?:years?|yrs?)\b`)
	stackSeparator    = regexp.MustCompile(`(?i)\s*(?:[,;|]|\s+and\s+|\s+&\s+)\s*`)
	namePrefix        = regexp.MustCompile(`(?i)^(?:(?:my name is|my name's|i am|i'm|this is)\s+|name\s*[:=]\s*)`)
)

// buildKeyPattern matches "<alias>:" or "<alias>=" at the start of the text or
// after a separator. Longer aliases come first so "tech stack" wins over "tech".
func buildKeyPattern() *regexp.Regexp {
	aliases := make([]string, 0, len(fieldAliases))
	for alias := range fieldAliases {
		aliases = append(aliases, alias)
	}
	sort.Slice(aliases, func(i, j int) bool {
		if len(aliases[i]) != len(aliases[j]) {
			return len(aliases[i]) > len(aliases[j])
		}
		return aliases[i] < aliases[j]
	})

	quoted := make([]string, len(aliases))
	for i, alias := range aliases {
		quoted[i] = regexp.QuoteMeta(alias)
	}

	return regexp.MustCompile(`(?i)(?:^|[\s,;])(` + strings.Join(quoted, "|") + `)\s*[:=]`)
}

// ParseProfileUpdate recognizes profile fields in free text such as
// "role: backend engineer, stack: Python, Go, experience: 4". Unkeyed email
// addresses and phrases like "5 years" are picked up as well.
func ParseProfileUpdate(text string) ProfileUpdate {
	var update ProfileUpdate

	text = strings.TrimSpace(text)
	if text == "" {
		return update
	}

	matches := keyPattern.FindAllStringSubmatchIndex(text, -1)
	for i, m := range matches {
		end := len(text)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}

		alias := strings.ToLower(text[m[2]:m[3]])
		value := trimValue(text[m[1]:end])
		if value == "" {
			continue
		}

		switch fieldAliases[alias] {
		case fieldName:
			update.Name = &value
		case fieldRole:
			update.Role = &value
		case fieldStack:
			update.TechStack = appendUnique(update.TechStack, splitStack(value)...)
		case fieldExperience:
			if years, ok := parseYears(value); ok {
				update.Experience = &years
			}
		case fieldEmail:
			if email := emailPattern.FindString(value); email != "" {
				update.Email = &email
			}
		}
	}

	if update.Email == nil {
		if email := emailPattern.FindString(text); email != "" {
			update.Email = &email
		}
	}

	if update.Experience == nil {
		if m := experiencePattern.FindStringSubmatch(text); len(m) == 2 {
			if years, ok := parseYears(m[1]); ok {
				update.Experience = &years
			}
		}
	}

	return update
}

// ParseName extracts the candidate's name from the greeting answer. Any
// non-empty input yields a name; when cleanup leaves nothing the input is
// kept as typed.
func ParseName(text string) string {
	raw := strings.Join(strings.Fields(text), " ")
	if update := ParseProfileUpdate(raw); update.Name != nil {
		return *update.Name
	}

	if name := trimValue(namePrefix.ReplaceAllString(raw, "")); name != "" {
		return name
	}
	return raw
}

func trimValue(v string) string {
	v = strings.TrimSpace(v)
	v = strings.TrimLeft(v, ",;:= ")
	v = strings.TrimRight(v, ",;.!? ")
	return strings.TrimSpace(v)
}

func splitStack(value string) []string {
	parts := stackSeparator.Split(value, -1)
	stack := make([]string, 0, len(parts))
	for _, part := range parts {
		part = trimValue(part)
		if part == "" {
			continue
		}
		stack = appendUnique(stack, part)
	}
	return stack
}

func parseYears(value string) (float64, bool) {
	raw := numberPattern.FindString(value)
	if raw == "" {
		return 0, false
	}
	years, err := strconv.ParseFloat(raw, 64)
	if err != nil || years < 0 || years > 80 {
		return 0, false
	}
	return years, true
}

func formatYears(years float64) string {
	unit := "years"
	if years == 1 {
		unit = "year"
	}
	return strconv.FormatFloat(years, 'f', -1, 64) + " " + unit
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		if !containsFold(list, item) {
			list = append(list, item)
		}
	}
	return list
}

func containsFold(list []string, item string) bool {
	for _, existing := range list {
		if strings.EqualFold(existing, item) {
			return true
		}
	}
	return false
}
