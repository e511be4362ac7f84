package countdown

import "time"

// TimeRemaining is the display decomposition of the duration until an
// assignment's end. It is derived on every tick and never persisted.
type TimeRemaining struct {
	Days    int `json:"days"`
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`

	// IsExpired latches once now >= end. It is a display state only;
	// the authoritative expiry is server-determined.
	IsExpired bool `json:"is_expired"`
}

// Until decomposes end - now into non-negative components using whole-second
// floors. Once the end has passed, all components clamp to zero.
func Until(end, now time.Time) TimeRemaining {
	if !end.After(now) {
		return TimeRemaining{IsExpired: true}
	}

	total := int64(end.Sub(now) / time.Second)
	return TimeRemaining{
		Days:    int(total / 86400),
		Hours:   int(total % 86400 / 3600),
		Minutes: int(total % 3600 / 60),
		Seconds: int(total % 60),
	}
}
