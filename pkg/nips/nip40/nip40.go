package nip40

import (
	"strconv"

	"github.com/paul/notecache/pkg/event"
)

// Expiration returns the expiration timestamp from an event's tags.
// The second value is false if no expiration tag is found or if the tag is invalid.
func Expiration(evt *event.Event) (int64, bool) {
	for _, tag := range evt.Tags {
		if len(tag) >= 2 && tag[0] == "expiration" {
			timestamp, err := strconv.ParseInt(tag[1], 10, 64)
			if err != nil {
				return 0, false
			}
			return timestamp, true
		}
	}
	return 0, false
}

// IsExpired checks if an event expired before the given unix time.
func IsExpired(evt *event.Event, now int64) bool {
	expiration, ok := Expiration(evt)
	return ok && expiration < now
}
