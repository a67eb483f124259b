package repl

import (
	"bufio"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/sidermem-go/internal/cli/config"
)

// DefaultHistorySize caps the number of remembered lines.
const DefaultHistorySize = 1000

// History manages command history for the REPL.
type History struct {
	entries []string
	maxSize int
	file    string
}

// NewHistory creates a History persisted at file, or at the default
// location when file is empty.
func NewHistory(file string) *History {
	if file == "" {
		file = config.DefaultHistoryPath()
	}
	return &History{
		entries: make([]string, 0),
		maxSize: DefaultHistorySize,
		file:    file,
	}
}

// Add records a command line. Repeats of the previous line and lines
// carrying credentials are not recorded.
func (h *History) Add(cmd string) {
	if cmd == "" || sensitive(cmd) {
		return
	}
	if n := len(h.entries); n > 0 && h.entries[n-1] == cmd {
		return
	}
	h.entries = append(h.entries, cmd)
	if len(h.entries) > h.maxSize {
		h.entries = h.entries[1:]
	}
}

// sensitive reports lines whose arguments may include a password.
func sensitive(cmd string) bool {
	fields := strings.Fields(strings.ToLower(cmd))
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "auth":
		return true
	case "hello":
		for _, f := range fields[1:] {
			if f == "auth" {
				return true
			}
		}
	}
	return false
}

// Get returns the history entry at index (0 = most recent).
func (h *History) Get(index int) string {
	if index < 0 || index >= len(h.entries) {
		return ""
	}
	return h.entries[len(h.entries)-1-index]
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Load loads history from file. A missing file is not an error.
func (h *History) Load() error {
	file, err := os.Open(h.file)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		h.Add(scanner.Text())
	}
	return scanner.Err()
}

// Save saves history to file, readable only by the owner.
func (h *History) Save() error {
	dir := filepath.Dir(h.file)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	file, err := os.OpenFile(h.file, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(file)
	for _, entry := range h.entries {
		if _, err := w.WriteString(entry + "\n"); err != nil {
			file.Close()
			return err
		}
	}
	if err := w.Flush(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
