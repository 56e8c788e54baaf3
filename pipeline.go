package knightline

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/knightline/engine"
	"github.com/knightline/game"
	"github.com/knightline/search"
	"github.com/pkg/errors"
)

/*
Pipeline owns the live game. It is the only component that mutates the board.

At most one move is in flight at a time. The in-flight slot is held from the moment a move is
submitted until it has been committed, and, when the next side is automated, until the engine
replies have been committed as well. Resets, new games and mode changes bump the generation,
cancel the outstanding promotion choice and the engine request, and then wait for the slot, so
nothing started for an older game can commit into a newer one.
*/
type Pipeline struct {
	sync.Mutex
	conf   Config
	rules  game.Rules
	engine Engine
	ui     UI
	logger *log.Logger

	timeline     *game.Timeline
	generation   uint64
	choice       *PromotionChoice
	cancelEngine context.CancelFunc
	inflight     chan struct{}
}

// NewPipeline creates a pipeline in the starting position. Call NewGame to begin playing.
func NewPipeline(rules game.Rules, eng Engine, ui UI, conf Config) *Pipeline {
	if !conf.IsValid() {
		panic("pipeline config is not valid")
	}
	if ui == nil {
		ui = nopUI{}
	}
	logger := conf.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Pipeline{
		conf:     conf,
		rules:    rules,
		engine:   eng,
		ui:       ui,
		logger:   logger,
		timeline: game.NewTimeline(game.StartingSnapshot()),
		inflight: make(chan struct{}, 1),
	}
}

// Snapshot returns a copy of the live position. It makes the Pipeline a game.View.
func (p *Pipeline) Snapshot() game.Snapshot {
	p.Lock()
	defer p.Unlock()
	return p.timeline.Snapshot()
}

// FEN serializes the live position.
func (p *Pipeline) FEN() string { return game.EncodeFEN(p.Snapshot()) }

// HalfMoves is the number of committed half-moves.
func (p *Pipeline) HalfMoves() int {
	p.Lock()
	defer p.Unlock()
	return p.timeline.HalfMoves()
}

// Moves returns the committed half-moves.
func (p *Pipeline) Moves() []game.HalfMove {
	p.Lock()
	defer p.Unlock()
	return p.timeline.Moves()
}

func (p *Pipeline) Mode() Mode {
	p.Lock()
	defer p.Unlock()
	return p.conf.Mode
}

func (p *Pipeline) acquire(ctx context.Context) error {
	select {
	case p.inflight <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Pipeline) release() { <-p.inflight }

// Idle waits until no move is in flight.
func (p *Pipeline) Idle(ctx context.Context) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}
	p.release()
	return nil
}

// interrupt invalidates everything started for the current game. Callers hold the lock.
func (p *Pipeline) interrupt() {
	p.generation++
	if p.choice != nil {
		p.choice.Cancel()
		p.choice = nil
	}
	if p.cancelEngine != nil {
		p.cancelEngine()
		p.cancelEngine = nil
	}
}

// NewGame starts a game from the standard position.
func (p *Pipeline) NewGame(ctx context.Context) error {
	return p.restart(ctx, game.StartingSnapshot())
}

// LoadFEN starts a game from the position in fen.
func (p *Pipeline) LoadFEN(ctx context.Context, fen string) error {
	start, err := game.DecodeFEN(fen)
	if err != nil {
		return err
	}
	return p.restart(ctx, start)
}

// SetMode changes which sides the engine plays and starts a new game.
func (p *Pipeline) SetMode(ctx context.Context, m Mode) error {
	if m < HumanVsHuman || m > AIVsAI {
		return errors.Errorf("unknown mode %d", m)
	}
	p.Lock()
	p.conf.Mode = m
	p.Unlock()
	return p.NewGame(ctx)
}

// SetThinkTime sets the engine budget per move. Budgets below MinThinkTime are raised to it.
func (p *Pipeline) SetThinkTime(d time.Duration) {
	if d < MinThinkTime {
		d = MinThinkTime
	}
	p.Lock()
	p.conf.ThinkTime = d
	p.Unlock()
}

func (p *Pipeline) SetDifficulty(d search.Difficulty) {
	p.Lock()
	p.conf.Difficulty = d
	p.Unlock()
}

// ForceSwitch makes the engine use variant v from the next request on.
func (p *Pipeline) ForceSwitch(v engine.Variant) error { return p.engine.ForceSwitch(v) }

func (p *Pipeline) restart(ctx context.Context, start game.Snapshot) error {
	p.Lock()
	p.interrupt()
	p.Unlock()
	if err := p.acquire(ctx); err != nil {
		return err
	}

	p.Lock()
	p.timeline = game.NewTimeline(start)
	gen := p.generation
	status := p.rules.Status(start)
	p.Unlock()

	if err := p.engine.SetupNewGame(ctx, p); err != nil {
		p.logger.Printf("engine setup: %v", err)
		p.notify(Notification{Event: EngineUnavailable, Err: err})
	}
	p.notify(Notification{Event: NewGameStarted})
	if status.Terminal() {
		p.notify(Notification{Event: GameEnded, Status: status})
	}
	p.resume(gen, status)
	return nil
}

// ResetToHalfMove takes the game back to the position after n half-moves.
// An n outside the recorded history is rejected before anything in flight is touched.
func (p *Pipeline) ResetToHalfMove(ctx context.Context, n int) error {
	p.Lock()
	if count := p.timeline.HalfMoves(); n < 0 || n > count {
		p.Unlock()
		return errors.Errorf("cannot reset to half-move %d of %d", n, count)
	}
	p.interrupt()
	p.Unlock()
	if err := p.acquire(ctx); err != nil {
		return err
	}

	p.Lock()
	if !p.timeline.ResetTo(n) {
		count := p.timeline.HalfMoves()
		p.Unlock()
		p.release()
		return errors.Errorf("cannot reset to half-move %d of %d", n, count)
	}
	gen := p.generation
	status := p.rules.Status(p.timeline.Snapshot())
	p.Unlock()

	p.notify(Notification{Event: ResetToHalfMove, HalfMove: n})
	p.resume(gen, status)
	return nil
}

// resume hands the in-flight slot to the engine when it is to move, and releases it otherwise.
func (p *Pipeline) resume(gen uint64, status game.Status) {
	if status.Terminal() {
		p.release()
		return
	}
	p.Lock()
	automated := p.conf.Mode.Automated(p.timeline.Snapshot().Turn)
	p.Unlock()
	if automated {
		p.ui.SetInteractive(false)
		go p.autoplay(gen)
		return
	}
	p.ui.SetInteractive(true)
	p.release()
}

// Submit plays a human move. The move is matched against the legal moves of the position; a
// promotion without an elected piece goes through the promotion choice handshake. Submit
// returns once the move is committed. Engine replies are played in the background.
func (p *Pipeline) Submit(ctx context.Context, m game.Movement) error {
	if err := p.acquire(ctx); err != nil {
		return err
	}

	p.Lock()
	gen := p.generation
	pos := p.timeline.Snapshot()
	ended, automated := p.timeline.Ended(), p.conf.Mode.Automated(pos.Turn)
	p.Unlock()

	var err error
	switch {
	case ended || p.rules.Status(pos).Terminal():
		err = ErrGameOver
	case automated:
		err = errors.Wrapf(ErrIllegalMove, "%v is played by the engine", pos.Turn)
	default:
		m, err = p.resolve(pos, m)
	}
	if err == nil {
		m, err = p.elect(ctx, gen, pos.Turn, m, true)
	}
	if err != nil {
		p.release()
		return err
	}

	status, err := p.commit(gen, m)
	if err != nil {
		p.release()
		return err
	}
	p.resume(gen, status)
	return nil
}

// resolve finds the legal move matching m, keeping an elected promotion piece if m has one.
func (p *Pipeline) resolve(pos game.Snapshot, m game.Movement) (game.Movement, error) {
	for _, legal := range p.rules.LegalMoves(pos, m.Start) {
		if !legal.Same(m) {
			continue
		}
		if legal.Kind == game.Promotion && m.Elected != game.NoKind {
			if err := legal.Elect(m.Elected); err != nil {
				return game.Movement{}, errors.Wrap(ErrIllegalMove, err.Error())
			}
		}
		return legal, nil
	}
	return game.Movement{}, errors.Wrapf(ErrIllegalMove, "%v%v", m.Start, m.End)
}

// elect completes a promotion. The engine's side always gets a queen; a human is asked.
func (p *Pipeline) elect(ctx context.Context, gen uint64, side game.Side, m game.Movement, human bool) (game.Movement, error) {
	if !m.NeedsElection() {
		return m, nil
	}
	if !human {
		err := m.Elect(game.Queen)
		return m, err
	}

	p.Lock()
	if gen != p.generation {
		p.Unlock()
		return game.Movement{}, ErrMoveAbandoned
	}
	if p.choice != nil {
		p.choice.Cancel()
	}
	choice := newPromotionChoice()
	p.choice = choice
	p.Unlock()

	p.ui.SetInteractive(false)
	p.ui.ShowPromotionChoice(side)
	k, err := choice.Wait(ctx)

	p.Lock()
	if p.choice == choice {
		p.choice = nil
	}
	p.Unlock()
	if err != nil {
		choice.Cancel()
		p.logger.Printf("promotion on %v abandoned: %v", m.End, err)
		return game.Movement{}, errors.Wrap(ErrMoveAbandoned, err.Error())
	}
	if err := m.Elect(k); err != nil {
		return game.Movement{}, err
	}
	p.ui.SetInteractive(true)
	return m, nil
}

// ElectPromotion answers the outstanding promotion choice. It reports false when there is
// none, or when it was already answered or cancelled.
func (p *Pipeline) ElectPromotion(k game.Kind) bool {
	p.Lock()
	c := p.choice
	p.Unlock()
	return c != nil && c.Fulfill(k)
}

// commit applies a fully resolved move unless the game it was made for is gone.
func (p *Pipeline) commit(gen uint64, m game.Movement) (game.Status, error) {
	p.Lock()
	if gen != p.generation {
		p.Unlock()
		return game.Ongoing, ErrMoveAbandoned
	}
	next := p.rules.Apply(p.timeline.Snapshot(), m)
	status := p.rules.Status(next)
	p.timeline.Push(m, next, status)
	n := p.timeline.HalfMoves()
	p.Unlock()

	p.logger.Printf("%d: %v %v", n, m, status)
	p.notify(Notification{Event: MoveExecuted, HalfMove: n, Move: m, Status: status})
	if status.Terminal() {
		p.ui.SetInteractive(false)
		p.notify(Notification{Event: GameEnded, HalfMove: n, Status: status})
	}
	return status, nil
}

// autoplay plays engine moves while the engine is to move. It owns the in-flight slot.
func (p *Pipeline) autoplay(gen uint64) {
	defer p.release()
	for {
		p.Lock()
		if gen != p.generation {
			p.Unlock()
			return
		}
		pos := p.timeline.Snapshot()
		if !p.conf.Mode.Automated(pos.Turn) {
			p.Unlock()
			p.ui.SetInteractive(true)
			return
		}
		ctx, cancel := context.WithCancel(context.Background())
		p.cancelEngine = cancel
		budget := p.conf.ThinkTime
		depth := p.conf.Local.Search.Depth(p.conf.Difficulty)
		p.Unlock()

		m, err := p.engine.BestMove(ctx, budget, depth)

		p.Lock()
		stale := gen != p.generation
		if !stale {
			p.cancelEngine = nil
		}
		p.Unlock()
		cancel()
		if stale {
			p.logger.Printf("dropping reply for an older game")
			return
		}

		if err == nil {
			m, err = p.resolve(pos, m)
		}
		if err == nil {
			m, err = p.elect(ctx, gen, pos.Turn, m, false)
		}
		if err != nil {
			p.logger.Printf("engine failed for %v: %v", pos.Turn, err)
			p.notify(Notification{Event: EngineUnavailable, HalfMove: p.HalfMoves(), Err: err})
			return
		}

		status, err := p.commit(gen, m)
		if err != nil || status.Terminal() {
			return
		}
	}
}

func (p *Pipeline) notify(n Notification) { p.ui.Notify(n) }

type nopUI struct{}

func (nopUI) Notify(Notification)           {}
func (nopUI) SetInteractive(bool)           {}
func (nopUI) ShowPromotionChoice(game.Side) {}
