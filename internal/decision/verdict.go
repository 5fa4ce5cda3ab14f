package decision

import "fmt"

// Verdict is the tri-state answer to "is there excess PV power right now".
// Maybe is a hysteresis band: callers neither wake workers nor declare absence.
type Verdict int

const (
	No Verdict = iota
	Maybe
	Yes
)

func (v Verdict) String() string {
	switch v {
	case No:
		return "No"
	case Maybe:
		return "Maybe"
	case Yes:
		return "Yes"
	default:
		return fmt.Sprintf("Verdict(%d)", int(v))
	}
}

// MarshalText encodes the verdict as "No", "Maybe" or "Yes".
func (v Verdict) MarshalText() ([]byte, error) {
	switch v {
	case No, Maybe, Yes:
		return []byte(v.String()), nil
	}
	return nil, fmt.Errorf("unknown verdict %d", int(v))
}

func (v *Verdict) UnmarshalText(b []byte) error {
	switch string(b) {
	case "No":
		*v = No
	case "Maybe":
		*v = Maybe
	case "Yes":
		*v = Yes
	default:
		return fmt.Errorf("unknown verdict %q", string(b))
	}
	return nil
}
