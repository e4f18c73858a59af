package engine

// Status is the decoded detection status reported by the engine.
type Status int

const (
	StatusNone Status = iota
	StatusFound
	StatusTimeout
)

// DecodeStatus maps a raw engine status code onto a Status. Codes other than
// 1 (found) and 2 (timeout) decode to StatusNone.
func DecodeStatus(code int) Status {
	switch code {
	case 1:
		return StatusFound
	case 2:
		return StatusTimeout
	default:
		return StatusNone
	}
}

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusTimeout:
		return "timeout"
	default:
		return "none"
	}
}
