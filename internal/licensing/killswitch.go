package licensing

import "sync/atomic"

// DefaultMaintenanceMessage is returned when maintenance is on and no message
// was configured.
const DefaultMaintenanceMessage = "The service is under maintenance. Please try again later."

// Snapshot is the process-wide switch configuration. It is loaded from config
// at startup and only replaced through Switch.Refresh.
type Snapshot struct {
	Maintenance bool
	Message     string
}

// Switch is the kill switch read at the start of every validation. The zero
// value and a nil *Switch are both usable and report maintenance off.
type Switch struct {
	cur atomic.Pointer[Snapshot]
}

// NewSwitch builds a switch from the startup snapshot.
func NewSwitch(s Snapshot) *Switch {
	sw := &Switch{}
	sw.Refresh(s)
	return sw
}

func (s *Switch) snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return Snapshot{}
}

// Active reports whether maintenance mode is on.
func (s *Switch) Active() bool {
	return s.snapshot().Maintenance
}

// Message returns the user facing maintenance message.
func (s *Switch) Message() string {
	if m := s.snapshot().Message; m != "" {
		return m
	}
	return DefaultMaintenanceMessage
}

// Refresh swaps in a new snapshot. This is the only reload boundary; the
// service calls it after re-reading its config on SIGHUP.
func (s *Switch) Refresh(snap Snapshot) {
	cp := snap
	s.cur.Store(&cp)
}
