package supervise

import (
	"time"
)

func newAbendBudget(limit int, expire time.Duration) abendBudget {
	return abendBudget{
		limit:  limit,
		expire: expire,
	}
}

// record counts an abend observed at now and reports whether another
// restart is allowed. A new window, with the count reset to 1, starts on
// the first abend or once more than `expire` has passed since the current
// window started.
func (b *abendBudget) record(now time.Time) bool {
	if b.count == 0 || now.Sub(b.windowStart) > b.expire {
		b.count = 0
		b.windowStart = now
	}

	b.count++

	return b.count <= b.limit
}
