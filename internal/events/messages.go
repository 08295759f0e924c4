package events

// Event types.
const (
	CatchCaptured         = "catch:captured"
	CatchEscaped          = "catch:escaped"
	CatchVanished         = "catch:vanished"
	CatchAborted          = "catch:aborted"
	CatchSoftbanRecovery  = "catch:softban_recovery"
	CatchCircuitBreaker   = "catch:circuit_breaker"
	FortSpun              = "fort:spun"
	SessionReconnect      = "session:reconnect"
	SessionFarmingChanged = "session:farming"
	SessionQuotaReached   = "session:quota_reached"
)

// CatchEvent is the payload for catch:* events.
type CatchEvent struct {
	Account    string  `json:"account"`
	Name       string  `json:"name"`
	CP         int     `json:"cp"`
	IV         float64 `json:"iv"`
	Ball       int     `json:"ball,omitempty"`
	CreatureID uint64  `json:"creatureId,omitempty"`
	XP         int     `json:"xp,omitempty"`
}

// SoftbanEvent is the payload for catch:softban_recovery and
// catch:circuit_breaker events.
type SoftbanEvent struct {
	Account  string `json:"account"`
	Attempts int    `json:"attempts"`
}

// FortSpunEvent is the payload for fort:spun events.
type FortSpunEvent struct {
	Account    string `json:"account"`
	FortID     string `json:"fortId"`
	Name       string `json:"name"`
	Experience int    `json:"experience"`
	Items      int    `json:"items"`
}

// ReconnectEvent is the payload for session:reconnect events.
type ReconnectEvent struct {
	Account string `json:"account"`
	Reason  string `json:"reason"`
}

// FarmingEvent is the payload for session:farming events.
type FarmingEvent struct {
	Account string `json:"account"`
	Farming bool   `json:"farming"`
	Balls   int    `json:"balls"`
}

// QuotaEvent is the payload for session:quota_reached events.
type QuotaEvent struct {
	Account  string `json:"account"`
	Captures int    `json:"captures"`
	Spins    int    `json:"spins"`
}
