package chrono

import (
	"time"
	_ "time/tzdata"
)

// TimeAPI is the interface that anything depending on the system clock should use.
//
// note: fault injection point
type TimeAPI interface {
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct {
	location *time.Location
}

// NewStandardTime returns a clock reporting times in the given location, nil means time.Local.
func NewStandardTime(location *time.Location) StandardTime {
	if location == nil {
		location = time.Local
	}
	return StandardTime{location: location}
}

func (s StandardTime) Now() time.Time {
	return time.Now().In(s.location)
}

func (s StandardTime) Location() *time.Location {
	return s.location
}

// LoadLocation resolves an IANA timezone name, "" and "Local" resolve to time.Local.
func LoadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}

// DayToken is the rollover window token for a calendar day, it only has meaning
// when compared against other tokens.
func DayToken(t time.Time) string {
	return t.Format(time.DateOnly)
}
