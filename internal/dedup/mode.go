package dedup

import "fmt"

// Mode selects whether an executor writes.
type Mode string

const (
	// ModeSimulate reports intended writes and performs none.
	ModeSimulate Mode = "simulate"
	// ModeApply performs the writes.
	ModeApply Mode = "apply"
)

// ParseMode accepts "simulate" (also "dry-run" and the empty string) and "apply".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "simulate", "dry-run":
		return ModeSimulate, nil
	case "apply":
		return ModeApply, nil
	default:
		return "", invalidConfig("unknown mode %q: must be simulate or apply", s)
	}
}

// Apply reports whether writes are enabled.
func (m Mode) Apply() bool { return m == ModeApply }

func (m Mode) validate() error {
	if m != ModeSimulate && m != ModeApply {
		return invalidConfig("unknown mode %q", string(m))
	}
	return nil
}

// String implements fmt.Stringer.
func (m Mode) String() string {
	if m == "" {
		return string(ModeSimulate)
	}
	return string(m)
}

var _ fmt.Stringer = Mode("")
