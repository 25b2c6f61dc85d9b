package entities

import "time"

// ConnectionState is the coarse online/offline view exposed by the
// connection monitor.
type ConnectionState struct {
	Connected     bool
	LastConnected time.Time
	Attempts      int
	LastError     error
}
