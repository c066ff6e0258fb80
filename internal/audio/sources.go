package audio

import (
	"fmt"
	"os/exec"
	"strings"
)

// Sources lists and validates capture devices known to the PulseAudio or
// PipeWire-pulse server.
type Sources struct{}

// NewSources creates a new Sources instance
func NewSources() *Sources {
	return &Sources{}
}

// List returns the names of all capture sources via pactl
func (s *Sources) List() ([]string, error) {
	cmd := exec.Command("pactl", "list", "short", "sources")
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to list audio sources: %w", err)
	}
	return parseSourceList(string(output)), nil
}

// Validate checks that a configured source exists exactly once.
func (s *Sources) Validate(name string) error {
	if isDefaultSource(name) {
		return nil
	}

	all, err := s.List()
	if err != nil {
		return err
	}
	return validateSourceInList(name, all)
}

// parseSourceList extracts the name column of `pactl list short sources`.
func parseSourceList(output string) []string {
	var sources []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			fields = strings.Fields(line)
		}
		if len(fields) < 2 {
			continue
		}
		sources = append(sources, strings.TrimSpace(fields[1]))
	}
	return sources
}

func validateSourceInList(name string, all []string) error {
	if isDefaultSource(name) {
		return nil
	}

	var matches int
	for _, source := range all {
		if source == name {
			matches++
		}
	}

	if matches == 0 {
		return fmt.Errorf("source not found: %s", name)
	}
	if matches > 1 {
		return fmt.Errorf("duplicate sources detected for '%s' (%d entries)", name, matches)
	}
	return nil
}

func isDefaultSource(name string) bool {
	return name == "" || name == "default"
}
