package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&TriggerEvent{},
	&ChainWalk{},
	&ChainHop{},
	&Detonation{},
	&DetonationHit{},
	&ActorTransition{},
	&SimPerformance{},
}

// Session is one recorded simulation run
type Session struct {
	gorm.Model
	SessionID        string    `json:"sessionId" gorm:"size:64;uniqueIndex"`
	Scenario         string    `json:"scenario" gorm:"size:127"`
	StartTime        time.Time `json:"startTime" gorm:"type:timestamptz;"`
	TickRate         float64   `json:"tickRate"`
	ExtensionVersion string    `json:"extensionVersion" gorm:"size:64"`
}

func (*Session) TableName() string {
	return "sessions"
}

// TriggerEvent is an enrichment reacting to a target
type TriggerEvent struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time      `json:"time" gorm:"type:timestamptz;index:idx_trigger_time"`
	SessionID  uint           `json:"sessionId" gorm:"index:idx_trigger_session_id"`
	Session    Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Enrichment string         `json:"enrichment" gorm:"size:64;index:idx_trigger_enrichment"`
	ItemID     uint32         `json:"itemId"`
	TargetKind string         `json:"targetKind" gorm:"size:16"`
	TargetID   uint32         `json:"targetId"`
	Position   geom.Point     `json:"position"`
	Detail     datatypes.JSON `json:"detail" gorm:"type:jsonb;default:'{}'"`
}

func (*TriggerEvent) TableName() string {
	return "trigger_events"
}

// ChainWalk is a finished chain walk or a field burst
type ChainWalk struct {
	ID         uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time       time.Time       `json:"time" gorm:"type:timestamptz;index:idx_chainwalk_time"`
	SessionID  uint            `json:"sessionId" gorm:"index:idx_chainwalk_session_id"`
	Session    Session         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Enrichment string          `json:"enrichment" gorm:"size:64"`
	Strategy   string          `json:"strategy" gorm:"size:32"`
	Reason     string          `json:"reason" gorm:"size:32"`
	Origin     geom.Point      `json:"origin"`
	Path       geom.LineString `json:"-"` // origin followed by every hop endpoint, empty without hops
	HopCount   int             `json:"hopCount"`
	Hops       []ChainHop      `json:"hops" gorm:"foreignKey:ChainWalkID"`
}

func (*ChainWalk) TableName() string {
	return "chain_walks"
}

// ChainHop is one hop of a ChainWalk
type ChainHop struct {
	ID          uint       `json:"id" gorm:"primarykey;autoIncrement;"`
	ChainWalkID uint       `json:"chainWalkId" gorm:"index:idx_chainhop_walk_id"`
	HopIndex    int        `json:"index"`
	TargetKind  string     `json:"targetKind" gorm:"size:16"`
	TargetID    uint32     `json:"targetId"`
	From        geom.Point `json:"from"`
	To          geom.Point `json:"to"`
	Distance    float64    `json:"distance"`
}

func (*ChainHop) TableName() string {
	return "chain_hops"
}

// Detonation is a mine exploding
type Detonation struct {
	ID        uint            `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time       `json:"time" gorm:"type:timestamptz;index:idx_detonation_time"`
	SessionID uint            `json:"sessionId" gorm:"index:idx_detonation_session_id"`
	Session   Session         `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	ActorID   string          `json:"actorId" gorm:"size:64"`
	Position  geom.Point      `json:"position"`
	Radius    float64         `json:"radius"`
	Hits      []DetonationHit `json:"hits" gorm:"foreignKey:DetonationID"`
}

func (*Detonation) TableName() string {
	return "detonations"
}

// DetonationHit is one entity caught in a Detonation
type DetonationHit struct {
	ID           uint    `json:"id" gorm:"primarykey;autoIncrement;"`
	DetonationID uint    `json:"detonationId" gorm:"index:idx_detonationhit_detonation_id"`
	TargetKind   string  `json:"targetKind" gorm:"size:16"`
	TargetID     uint32  `json:"targetId"`
	Distance     float64 `json:"distance"`
	Damage       float64 `json:"damage"`
}

func (*DetonationHit) TableName() string {
	return "detonation_hits"
}

// ActorTransition is a scheduled actor changing state
type ActorTransition struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_transition_time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_transition_session_id"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	ActorID   string    `json:"actorId" gorm:"size:64;index:idx_transition_actor_id"`
	Kind      string    `json:"kind" gorm:"size:32"`
	FromState string    `json:"from" gorm:"size:32"`
	ToState   string    `json:"to" gorm:"size:32"`
}

func (*ActorTransition) TableName() string {
	return "actor_transitions"
}

// SimPerformance is a periodic sample of the reactor's live state
type SimPerformance struct {
	Time        time.Time      `json:"time" gorm:"type:timestamptz;index:idx_perf_time"`
	SessionID   uint           `json:"sessionId" gorm:"index:idx_perf_session_id"`
	Session     Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Items       int            `json:"items"`
	Actors      int            `json:"actors"`
	Mines       int            `json:"mines"`
	Fields      int            `json:"fields"`
	Detectors   int            `json:"detectors"`
	Walks       int            `json:"walks"`
	Cooldowns   datatypes.JSON `json:"cooldowns" gorm:"type:jsonb;default:'{}'"`
	QueueLength int            `json:"queueLength"`
	LastWriteMs float32        `json:"lastWriteDurationMs"`
}

func (*SimPerformance) TableName() string {
	return "sim_performances"
}
