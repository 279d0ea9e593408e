package bus

import "time"

// Event represents a domain event published on the bus. Kind is a
// dot-separated name; subscribers filter by namespace prefix. Kinds in use:
// "session.*" (lifecycle and routing), "sync.*" (reconciler results),
// "chat.*" (room chat updates), "toast.*" (transient user-facing notices).
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Toast is the payload for toast.* events: a short message the active
// surface may show to the user and discard.
type Toast struct {
	Message string
}
