// pkg/core/journal.go
package core

import "time"

// Session represents one recorded simulation run.
type Session struct {
	ID               uint
	SessionID        string
	Scenario         string
	StartTime        time.Time
	TickRate         float64
	ExtensionVersion string
}

// TriggerEvent records an enrichment reacting to a target.
type TriggerEvent struct {
	ID         uint
	Time       time.Time
	Enrichment string
	Item       EntityID
	Target     EntityRef
	Position   Vec3
	// Detail carries enrichment specific values (depth, velocity, ...).
	Detail map[string]any
}

// ChainHop is one hop of a chain walk.
type ChainHop struct {
	Index    int
	Target   EntityRef
	From     Vec3
	To       Vec3
	Distance float64
}

// ChainWalkEvent records a finished chain walk.
type ChainWalkEvent struct {
	ID         uint
	Time       time.Time
	Enrichment string
	Origin     Vec3
	Strategy   string
	Hops       []ChainHop
	Reason     string
}

// DetonationHit is one entity caught in an explosion.
type DetonationHit struct {
	Target   EntityRef
	Distance float64
	Damage   float64
}

// DetonationEvent records a mine detonation.
type DetonationEvent struct {
	ID       uint
	Time     time.Time
	ActorID  string
	Position Vec3
	Radius   float64
	Hits     []DetonationHit
}

// ActorTransition records a scheduled actor changing state.
type ActorTransition struct {
	ID      uint
	Time    time.Time
	ActorID string
	Kind    string
	From    string
	To      string
}
