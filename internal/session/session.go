// Package session holds the mutable state of one logged-in player.
package session

import (
	"github.com/xDyN/AlphaBot/internal/geo"
	"github.com/xDyN/AlphaBot/internal/inventory"
	"github.com/xDyN/AlphaBot/internal/protocol"
)

// Fort is the fort the bot is heading to.
type Fort struct {
	ID       string
	Name     string
	Position geo.Point
}

// Session is created at login and passed to every component. A re-login
// replaces Client but keeps the position and the counters.
type Session struct {
	Account  string
	Position geo.Point
	Client   protocol.Client

	Fort *Fort

	Inventory *inventory.Snapshot

	// Farming is set while capture devices are being restocked.
	Farming bool

	// LikelySoftbanned is raised by the snipe coordinator when too many
	// encounters vanish.
	LikelySoftbanned bool

	// RecoveryAttempts counts softban recoveries since the last capture.
	RecoveryAttempts int
}

// New creates a session for account at p.
func New(account string, p geo.Point) *Session {
	return &Session{
		Account:   account,
		Position:  p,
		Inventory: inventory.NewSnapshot(),
	}
}

// Reconnect swaps in a freshly authenticated client.
func (s *Session) Reconnect(c protocol.Client) {
	s.Client = c
}
