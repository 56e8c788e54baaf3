package search

import (
	"log"
	"strings"

	"github.com/pkg/errors"
)

// Difficulty is the strength tier of the local engine.
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	}
	return "UNKNOWN DIFFICULTY"
}

// ParseDifficulty parses "easy", "medium" or "hard".
func ParseDifficulty(s string) (Difficulty, error) {
	switch strings.ToLower(s) {
	case "easy":
		return Easy, nil
	case "medium":
		return Medium, nil
	case "hard":
		return Hard, nil
	}
	return Easy, errors.Errorf("unknown difficulty %q", s)
}

// Config configures the Searcher.
type Config struct {
	MediumDepth int   `json:"medium_depth"`
	HardDepth   int   `json:"hard_depth"`
	Seed        int64 `json:"seed"`      // 0 seeds from the clock
	Pruning     bool  `json:"pruning"`   // alpha-beta cutoffs; disabling gives plain minimax
	Trace       bool  `json:"trace"`     // record the last search tree for DOT export
	MaxTrace    int   `json:"max_trace"` // node cap for the trace

	Logger *log.Logger `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		MediumDepth: 2,
		HardDepth:   3,
		Pruning:     true,
		MaxTrace:    2000,
	}
}

func (c Config) IsValid() bool {
	return c.MediumDepth >= 1 && c.HardDepth >= c.MediumDepth && c.MaxTrace >= 0
}

// Depth maps a difficulty to a search depth. Easy does not search.
func (c Config) Depth(d Difficulty) int {
	switch d {
	case Medium:
		return c.MediumDepth
	case Hard:
		return c.HardDepth
	}
	return 0
}
