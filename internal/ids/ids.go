package ids

import "github.com/segmentio/ksuid"

// New returns a globally unique, time-ordered identifier.
func New() string {
	return ksuid.New().String()
}
