package replay

import (
	"fmt"
	"math"
	"strings"
	"time"

	"pong-lite/pong"
)

const (
	defaultMatchID  = "replay_local"
	defaultSeed     = 1
	defaultWinScore = 3
	defaultMaxTicks = 60 * 60 * 3
)

type paddleBot struct {
	skill    float64
	deadzone float64
}

type normalizedSpec struct {
	matchID  string
	cfg      pong.Config
	maxTicks int
	bots     pong.PerSlot[paddleBot]
}

func normalizeSpec(spec MatchSpec) (normalizedSpec, error) {
	var out normalizedSpec

	out.matchID = strings.TrimSpace(spec.MatchID)
	if out.matchID == "" {
		out.matchID = defaultMatchID
	}

	out.cfg = pong.DefaultConfig()
	// Tapes must be reproducible, so a zero seed is not time based here.
	out.cfg.Seed = spec.Seed
	if out.cfg.Seed == 0 {
		out.cfg.Seed = defaultSeed
	}
	out.cfg.WinScore = defaultWinScore
	if spec.WinScore != 0 {
		out.cfg.WinScore = spec.WinScore
	}
	if err := out.cfg.Validate(); err != nil {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_config", Message: err.Error()}
	}

	out.maxTicks = spec.MaxTicks
	if out.maxTicks == 0 {
		out.maxTicks = defaultMaxTicks
	}
	if out.maxTicks < 0 {
		return out, &ReplayError{StepIndex: -1, Reason: "invalid_ticks", Message: "max_ticks must be >= 0"}
	}

	out.bots = pong.PerSlot[paddleBot]{
		First:  paddleBot{skill: 0.9, deadzone: 2},
		Second: paddleBot{skill: 0.6, deadzone: 2},
	}
	seen := make(map[pong.Slot]struct{}, len(spec.Paddles))
	for i, p := range spec.Paddles {
		slot, err := pong.ParseSlot(strings.TrimSpace(p.Place))
		if err != nil {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_place", Message: fmt.Sprintf("paddle %d: %q", i, p.Place)}
		}
		if _, exists := seen[slot]; exists {
			return out, &ReplayError{StepIndex: -1, Reason: "duplicate_place", Message: fmt.Sprintf("duplicate place %s", slot)}
		}
		seen[slot] = struct{}{}
		if p.Skill <= 0 || p.Skill > 1 || math.IsNaN(p.Skill) {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_skill", Message: fmt.Sprintf("paddle %d skill must be in (0, 1]", i)}
		}
		if p.Deadzone < 0 {
			return out, &ReplayError{StepIndex: -1, Reason: "invalid_deadzone", Message: fmt.Sprintf("paddle %d deadzone must be >= 0", i)}
		}
		out.bots.Set(slot, paddleBot{skill: p.Skill, deadzone: p.Deadzone})
	}
	return out, nil
}

// step returns the paddle delta the bot sends for the current ball. Bots
// chase an approaching ball and drift back to the middle otherwise.
func (b paddleBot) step(slot pong.Slot, ball pong.BallState, paddleY float64, cfg pong.Config) float64 {
	target := cfg.FieldHeight/2 - cfg.PaddleHeight/2
	approaching := (slot == pong.SlotFirst && ball.Vx < 0) || (slot == pong.SlotSecond && ball.Vx > 0)
	if ball.Active && approaching {
		target = ball.Y + cfg.BallSize/2 - cfg.PaddleHeight/2
	}
	diff := target - paddleY
	if math.Abs(diff) <= b.deadzone {
		return 0
	}
	return math.Copysign(cfg.PaddleSpeed*b.skill, diff)
}

func clampPaddle(y float64, cfg pong.Config) float64 {
	return math.Max(0, math.Min(cfg.FieldHeight-cfg.PaddleHeight, y))
}

func tickTime(tick int, cfg pong.Config) int64 {
	return (time.Duration(tick) * cfg.TickInterval).Milliseconds()
}
