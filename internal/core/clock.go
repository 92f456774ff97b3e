package core

import "time"

// GracePeriod is the backward tolerance applied to "now" in every
// temporal-policy check: an instant later than now-GracePeriod still
// counts as "not in the past".
const GracePeriod = 24 * time.Hour

// Clock supplies the current instant. Production code passes time.Now;
// tests pin a fixed instant.
type Clock func() time.Time

// SystemClock is the wall-clock Clock.
func SystemClock() time.Time { return time.Now().UTC() }
