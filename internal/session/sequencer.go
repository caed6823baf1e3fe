package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/gokatarajesh/challenger/internal/problem"
	"github.com/gokatarajesh/challenger/internal/profile"
)

// New returns a session in Setup owned by the given profile.
func New(id string, owner profile.Profile, now time.Time) *Session {
	return &Session{
		ID:        id,
		Owner:     owner,
		Mode:      problem.ModeCatalog,
		Phase:     PhaseSetup,
		Turn:      TurnNone,
		Pending:   -1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Configure replaces topic, mode and roster. Only allowed in Setup.
func (s *Session) Configure(topic, mode string, roster []problem.Player, now time.Time) error {
	if s.Phase != PhaseSetup {
		return fmt.Errorf("%w: configure in %s", ErrInvalidTransition, s.Phase)
	}
	if len(roster) > MaxPlayers {
		return fmt.Errorf("%w: %d > %d", ErrTooManyPlayers, len(roster), MaxPlayers)
	}
	m, ok := problem.ParseMode(mode)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}

	players := make([]Player, len(roster))
	for i, p := range roster {
		tier, ok := problem.ParseTier(string(p.Tier))
		if !ok {
			return fmt.Errorf("%w: player %d %q", ErrUnknownTier, i, p.Tier)
		}
		p.Tier = tier
		p.Handle = strings.TrimSpace(p.Handle)
		if p.Handle == "" {
			p.Handle = fmt.Sprintf("Player %d", i+1)
		}
		if p.Color == "" {
			p.Color = Palette[i%len(Palette)]
		}
		players[i] = Player{Player: p}
	}

	s.Topic = strings.TrimSpace(topic)
	s.Mode = m
	s.Players = players
	s.Error = ""
	s.UpdatedAt = now
	return nil
}

// Roster returns the configured players without bindings.
func (s *Session) Roster() []problem.Player {
	out := make([]problem.Player, len(s.Players))
	for i, p := range s.Players {
		out[i] = p.Player
	}
	return out
}

// BeginGenerating moves Setup to Generating once the configuration is valid.
func (s *Session) BeginGenerating(now time.Time) error {
	if s.Phase != PhaseSetup {
		return fmt.Errorf("%w: confirm in %s", ErrInvalidTransition, s.Phase)
	}
	if s.Topic == "" {
		return ErrEmptyTopic
	}
	if len(s.Players) == 0 {
		return ErrNoPlayers
	}
	s.Phase = PhaseGenerating
	s.Error = ""
	s.UpdatedAt = now
	return nil
}

// CompleteGenerating applies the outcome of an assignment. On failure the session
// returns to Setup with the error recorded and the failure is returned.
func (s *Session) CompleteGenerating(problems []problem.Problem, genErr error, now time.Time) error {
	if s.Phase != PhaseGenerating {
		return fmt.Errorf("%w: generation result in %s", ErrInvalidTransition, s.Phase)
	}
	if genErr == nil && len(problems) != len(s.Players) {
		genErr = fmt.Errorf("%w: requested %d got %d", problem.ErrCountMismatch, len(s.Players), len(problems))
	}
	if genErr != nil {
		s.Phase = PhaseSetup
		s.Problems = nil
		s.Pool = nil
		s.Error = genErr.Error()
		s.UpdatedAt = now
		return genErr
	}

	s.Problems = problems
	s.Pool = make([]int, len(problems))
	for i := range s.Pool {
		s.Pool[i] = i
	}
	for i := range s.Players {
		s.Players[i].ProblemIndex = nil
	}
	s.Phase = PhasePlaying
	s.Turn = TurnIdle
	s.Cursor = 0
	s.Pending = -1
	s.Spin = nil
	s.TurnStartedAt = now
	s.UpdatedAt = now
	return nil
}

// Draw picks a pool entry uniformly for the current player and starts the spin.
func (s *Session) Draw(rng Rand, wheel WheelConfig, now time.Time) (*Spin, error) {
	if s.Phase != PhasePlaying || s.Turn != TurnIdle {
		return nil, fmt.Errorf("%w: draw in %s/%s", ErrInvalidTransition, s.Phase, s.Turn)
	}
	if len(s.Pool) == 0 {
		return nil, fmt.Errorf("%w: empty pool", ErrInvalidTransition)
	}

	pos := rng.IntN(len(s.Pool))
	labels := make([]string, len(s.Pool))
	for i, idx := range s.Pool {
		labels[i] = s.Problems[idx].Title
	}

	s.Pending = s.Pool[pos]
	s.PendingPos = pos
	s.Spin = newSpin(labels, pos, rng, wheel)
	s.Turn = TurnDrawing
	s.DrawSeq++
	s.UpdatedAt = now
	return s.Spin, nil
}

// Reveal binds the drawn problem to the current player and removes it from the pool.
func (s *Session) Reveal(now time.Time) (Binding, error) {
	if s.Phase != PhasePlaying || s.Turn != TurnDrawing {
		return Binding{}, fmt.Errorf("%w: reveal in %s/%s", ErrInvalidTransition, s.Phase, s.Turn)
	}

	idx := s.Pending
	s.Players[s.Cursor].ProblemIndex = &idx

	last := len(s.Pool) - 1
	s.Pool[s.PendingPos] = s.Pool[last]
	s.Pool = s.Pool[:last]

	s.Pending = -1
	s.PendingPos = 0
	s.Turn = TurnRevealed
	s.UpdatedAt = now
	return Binding{Player: s.Players[s.Cursor].Player, Problem: s.Problems[idx]}, nil
}

// Advance hands the turn to the next player, or finishes after the last one.
func (s *Session) Advance(now time.Time) error {
	if s.Phase != PhasePlaying || s.Turn != TurnRevealed {
		return fmt.Errorf("%w: advance in %s/%s", ErrInvalidTransition, s.Phase, s.Turn)
	}
	s.Spin = nil
	s.UpdatedAt = now
	if s.Cursor < len(s.Players)-1 {
		s.Cursor++
		s.Turn = TurnIdle
		s.TurnStartedAt = now
		return nil
	}
	s.Phase = PhaseFinished
	s.Turn = TurnNone
	return nil
}

// AutoDrawDue reports whether the lone remaining problem should be drawn without user input.
func (s *Session) AutoDrawDue(now time.Time, delay time.Duration) bool {
	return s.Phase == PhasePlaying &&
		s.Turn == TurnIdle &&
		len(s.Pool) == 1 &&
		!now.Before(s.TurnStartedAt.Add(delay))
}

// Reset returns to Setup from any state, discarding roster, topic and problems.
func (s *Session) Reset(now time.Time) {
	*s = Session{
		ID:        s.ID,
		Owner:     s.Owner,
		Mode:      problem.ModeCatalog,
		Phase:     PhaseSetup,
		Turn:      TurnNone,
		Pending:   -1,
		DrawSeq:   s.DrawSeq,
		CreatedAt: s.CreatedAt,
		UpdatedAt: now,
	}
}

// Current returns the player whose turn it is while playing.
func (s *Session) Current() (Player, bool) {
	if s.Phase != PhasePlaying || s.Cursor >= len(s.Players) {
		return Player{}, false
	}
	return s.Players[s.Cursor], true
}

// Remaining is the number of unassigned problems.
func (s *Session) Remaining() int {
	return len(s.Pool)
}

// Results lists every player's binding once the session has finished.
func (s *Session) Results() ([]Binding, error) {
	if s.Phase != PhaseFinished {
		return nil, ErrNotFinished
	}
	return s.bindings(), nil
}

// bindings lists the reveals so far, in roster order.
func (s *Session) bindings() []Binding {
	out := make([]Binding, 0, len(s.Players))
	for _, p := range s.Players {
		if p.ProblemIndex == nil {
			continue
		}
		out = append(out, Binding{Player: p.Player, Problem: s.Problems[*p.ProblemIndex]})
	}
	return out
}

// BindingFor returns the reveal for one player in a finished session.
func (s *Session) BindingFor(playerIndex int) (Binding, error) {
	if s.Phase != PhaseFinished {
		return Binding{}, ErrNotFinished
	}
	if playerIndex < 0 || playerIndex >= len(s.Players) {
		return Binding{}, ErrPlayerIndex
	}
	p := s.Players[playerIndex]
	if p.ProblemIndex == nil {
		return Binding{}, ErrPlayerIndex
	}
	return Binding{Player: p.Player, Problem: s.Problems[*p.ProblemIndex]}, nil
}
