package knightline

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/knightline/engine"
	"github.com/knightline/game"
	"github.com/knightline/search"
	"github.com/pkg/errors"
)

var (
	ErrChoiceCancelled = errors.New("promotion choice cancelled")
	ErrMoveAbandoned   = errors.New("move abandoned")
	ErrIllegalMove     = errors.New("illegal move")
	ErrGameOver        = errors.New("game is over")
)

// MinThinkTime is the smallest time budget an engine is given per move.
const MinThinkTime = 500 * time.Millisecond

// Mode says which sides the engine plays.
type Mode int

const (
	HumanVsHuman Mode = iota
	HumanVsAIWhite // the engine plays White
	HumanVsAIBlack // the engine plays Black
	AIVsAI
)

var modeNames = [...]string{"human-human", "ai-white", "ai-black", "ai-ai"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return "UNKNOWN MODE"
	}
	return modeNames[m]
}

func ParseMode(s string) (Mode, error) {
	for i, n := range modeNames {
		if strings.EqualFold(s, n) {
			return Mode(i), nil
		}
	}
	return 0, errors.Errorf("unknown mode %q", s)
}

// Automated reports whether the engine moves for side.
func (m Mode) Automated(side game.Side) bool {
	switch m {
	case HumanVsAIWhite:
		return side == game.White
	case HumanVsAIBlack:
		return side == game.Black
	case AIVsAI:
		return true
	}
	return false
}

// Event is the kind of a UI notification.
type Event int

const (
	NewGameStarted Event = iota
	GameEnded
	MoveExecuted
	ResetToHalfMove
	EngineUnavailable
)

func (e Event) String() string {
	switch e {
	case NewGameStarted:
		return "NewGameStarted"
	case GameEnded:
		return "GameEnded"
	case MoveExecuted:
		return "MoveExecuted"
	case ResetToHalfMove:
		return "ResetToHalfMove"
	case EngineUnavailable:
		return "EngineUnavailable"
	}
	return "UNKNOWN EVENT"
}

// Notification is sent to the UI after the state change it describes has been committed.
type Notification struct {
	Event    Event
	HalfMove int           // half-moves committed after the event
	Move     game.Movement // MoveExecuted
	Status   game.Status   // MoveExecuted, GameEnded
	Err      error         // EngineUnavailable
}

// UI is the presentation layer driven by a Pipeline. Calls are made without holding any
// Pipeline lock, so a UI may call back into the Pipeline.
type UI interface {
	Notify(n Notification)
	SetInteractive(on bool)
	ShowPromotionChoice(side game.Side)
}

// Engine is the move producer a Pipeline consumes. *engine.Fallback implements it.
type Engine interface {
	SetupNewGame(ctx context.Context, view game.View) error
	BestMove(ctx context.Context, budget time.Duration, depth int) (game.Movement, error)
	ForceSwitch(v engine.Variant) error
}

// Config for a game session. The engine sections are handed to the engine constructors by the
// driver; the Pipeline reads Mode, Difficulty, ThinkTime and Local.Search.
type Config struct {
	Name       string            `json:"name"`
	Mode       Mode              `json:"mode"`
	Difficulty search.Difficulty `json:"difficulty"`
	ThinkTime  time.Duration     `json:"think_time"`

	Local    engine.LocalConfig    `json:"local"`
	Process  engine.ProcessConfig  `json:"process"`
	Fallback engine.FallbackConfig `json:"fallback"`

	Logger *log.Logger `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Name:       "knightline",
		Mode:       HumanVsAIBlack,
		Difficulty: search.Medium,
		ThinkTime:  5 * time.Second,
		Local:      engine.DefaultLocalConfig(),
		Process:    engine.DefaultProcessConfig(),
		Fallback:   engine.DefaultFallbackConfig(),
	}
}

func (c Config) IsValid() bool {
	return c.Mode >= HumanVsHuman && c.Mode <= AIVsAI &&
		c.ThinkTime >= MinThinkTime &&
		c.Local.IsValid() && c.Process.IsValid() && c.Fallback.IsValid()
}
