package respawn

import (
	"time"

	"lootfall.ai/internal/sim/world/logic/mathx"
)

// AgentNumber extracts N from an "A<N>" attacker id; anything else yields 0.
func AgentNumber(agentID string) int {
	if len(agentID) < 2 || agentID[0] != 'A' {
		return 0
	}
	n := 0
	for i := 1; i < len(agentID); i++ {
		c := agentID[i]
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// AttackerSeed is the stable per-attacker number used for ring slots: the explicit
// seed when set, else the account number, else a hash of the id.
func AttackerSeed(explicit int64, agentID string) int64 {
	if explicit != 0 {
		return explicit
	}
	if n := AgentNumber(agentID); n != 0 {
		return int64(n)
	}
	return int64(mathx.HashString(agentID) >> 1)
}

// Delay maps roll in [0,1) onto [min, max].
func Delay(min, max time.Duration, roll float64) time.Duration {
	if max < min {
		max = min
	}
	if min == max {
		return min
	}
	return min + time.Duration(roll*float64(max-min))
}
