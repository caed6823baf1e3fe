package session

import (
	"time"

	"github.com/gokatarajesh/challenger/internal/problem"
	"github.com/gokatarajesh/challenger/internal/profile"
)

// Phase is the top-level lifecycle state of a session.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseGenerating Phase = "generating"
	PhasePlaying    Phase = "playing"
	PhaseFinished   Phase = "finished"
)

// Turn is the per-player sub-state while playing.
type Turn string

const (
	TurnNone     Turn = ""
	TurnIdle     Turn = "idle"
	TurnDrawing  Turn = "drawing"
	TurnRevealed Turn = "revealed"
)

// MaxPlayers caps the roster of one session.
const MaxPlayers = 4

// Palette provides default player colors by roster position.
var Palette = []string{"#ef4444", "#3b82f6", "#22c55e", "#eab308"}

// Player is a roster entry with its bound problem, once revealed.
type Player struct {
	problem.Player
	ProblemIndex *int `json:"problem_index,omitempty"`
}

// Bound reports whether a problem has been revealed for the player.
func (p Player) Bound() bool {
	return p.ProblemIndex != nil
}

// Session is one run from setup through all reveals to completion.
//
// Problems is a fixed arena; Pool holds the indexes of problems not yet bound to any player.
type Session struct {
	ID    string          `json:"id"`
	Owner profile.Profile `json:"owner"`

	Topic   string       `json:"topic"`
	Mode    problem.Mode `json:"mode"`
	Players []Player     `json:"players"`

	Phase    Phase             `json:"phase"`
	Turn     Turn              `json:"turn"`
	Problems []problem.Problem `json:"problems,omitempty"`
	Pool     []int             `json:"pool,omitempty"`
	Cursor   int               `json:"cursor"`

	// Draw in progress: Pending indexes Problems, PendingPos indexes Pool.
	Pending    int   `json:"pending"`
	PendingPos int   `json:"pending_pos"`
	Spin       *Spin `json:"spin,omitempty"`
	DrawSeq    int   `json:"draw_seq"`

	Error         string    `json:"error,omitempty"`
	TurnStartedAt time.Time `json:"turn_started_at"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Binding pairs a player with the problem revealed to them.
type Binding struct {
	Player  problem.Player  `json:"player"`
	Problem problem.Problem `json:"problem"`
}
