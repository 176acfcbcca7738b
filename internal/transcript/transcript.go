package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spigell/talent-scout/internal/screening"
)

// Archive is the on-disk list of finished screenings.
type Archive struct {
	Items []*Record `json:"items"`
}

// Record is what is kept from one conversation.
type Record struct {
	SessionID  string                     `json:"session_id"`
	State      screening.State            `json:"state"`
	Profile    screening.CandidateProfile `json:"profile"`
	Questions  []string                   `json:"questions,omitempty"`
	Source     string                     `json:"question_source,omitempty"`
	Model      string                     `json:"model,omitempty"`
	Answers    []screening.Answer         `json:"answers,omitempty"`
	StartedAt  time.Time                  `json:"started_at"`
	FinishedAt time.Time                  `json:"finished_at"`
}

// FromSnapshot converts a session snapshot into a record.
func FromSnapshot(snap screening.Snapshot) *Record {
	record := &Record{
		SessionID:  snap.ID,
		State:      snap.State,
		Profile:    snap.Profile,
		Answers:    snap.Answers,
		StartedAt:  snap.StartedAt,
		FinishedAt: snap.UpdatedAt,
	}

	if snap.FinishedAt != nil {
		record.FinishedAt = *snap.FinishedAt
	}

	if snap.Questions != nil {
		record.Questions = snap.Questions.Questions
		record.Source = snap.Questions.Source
		record.Model = snap.Questions.Model
	}

	return record
}

// Load reads the archive. A missing or empty file is an empty archive.
func Load(path string) (*Archive, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Archive{}, nil
	}
	if err != nil {
		return nil, err
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}

	if stat.Size() == 0 {
		return &Archive{}, nil
	}

	var archive Archive
	if err := json.NewDecoder(file).Decode(&archive); err != nil {
		return nil, fmt.Errorf("decode transcript archive %q: %w", path, err)
	}
	return &archive, nil
}

func (a *Archive) Append(records ...*Record) {
	a.Items = append(a.Items, records...)
}

func (a *Archive) Len() int {
	return len(a.Items)
}

// Find returns the latest record of the session or nil.
func (a *Archive) Find(sessionID string) *Record {
	for i := len(a.Items) - 1; i >= 0; i-- {
		if a.Items[i].SessionID == sessionID {
			return a.Items[i]
		}
	}
	return nil
}

// ToFile replaces the file content atomically.
func (a *Archive) ToFile(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".transcripts_*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(a); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

// Save records the snapshot in the archive at path, replacing an earlier record
// of the same session. An empty path disables archiving.
func Save(path string, snap screening.Snapshot) error {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}

	archive, err := Load(path)
	if err != nil {
		return err
	}

	record := FromSnapshot(snap)
	if existing := archive.Find(snap.ID); existing != nil {
		*existing = *record
	} else {
		archive.Append(record)
	}

	if err := archive.ToFile(path); err != nil {
		return fmt.Errorf("write transcript archive %q: %w", path, err)
	}
	return nil
}
