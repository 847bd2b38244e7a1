package studio

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/rs/zerolog/log"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Journal writes a plain-text log per owner of every design run, one file
// per owner in dir. A nil *Journal discards everything.
type Journal struct {
	dir string
}

// NewJournal creates dir if needed and returns a journal writing into it.
func NewJournal(dir string) (*Journal, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create journal dir: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Path returns the journal file for owner.
func (j *Journal) Path(owner string) string {
	return filepath.Join(j.dir, fmt.Sprintf("design_%s.log", unsafeFileChars.ReplaceAllString(owner, "_")))
}

// Start truncates the owner's journal, beginning a fresh log.
func (j *Journal) Start(owner string) {
	if j == nil {
		return
	}
	f, err := os.OpenFile(j.Path(owner), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("failed to start design journal")
		return
	}
	defer f.Close()

	header := fmt.Sprintf("=== Design Journal ===\nOwner: %s\nStarted: %s\n\n",
		owner, time.Now().Format("2006-01-02 15:04:05"))
	f.WriteString(header)
}

func (j *Journal) append(owner, prefix, msg string) {
	if j == nil {
		return
	}
	f, err := os.OpenFile(j.Path(owner), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Error().Err(err).Str("owner", owner).Msg("failed to write design journal")
		return
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s %s\n", time.Now().Format("15:04:05"), prefix, msg)
	f.WriteString(line)
}

// State logs a state transition.
func (j *Journal) State(owner, format string, args ...any) {
	j.append(owner, "STATE   ", fmt.Sprintf(format, args...))
}

// API logs provider calls.
func (j *Journal) API(owner, format string, args ...any) {
	j.append(owner, "API     ", fmt.Sprintf(format, args...))
}

// Ledger logs token movements.
func (j *Journal) Ledger(owner, format string, args ...any) {
	j.append(owner, "LEDGER  ", fmt.Sprintf(format, args...))
}

// Error logs errors.
func (j *Journal) Error(owner, format string, args ...any) {
	j.append(owner, "ERROR   ", fmt.Sprintf(format, args...))
}
