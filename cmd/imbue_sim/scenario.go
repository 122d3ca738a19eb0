package main

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imbuefx/enrichments/internal/geo"
	"github.com/imbuefx/enrichments/pkg/core"
)

//go:embed demo.yaml
var demoScenario []byte

// Scenario is a scripted encounter replayed against the reactor.
type Scenario struct {
	Name      string             `yaml:"name"`
	Creatures []ScenarioCreature `yaml:"creatures"`
	Items     []ScenarioItem     `yaml:"items"`
	Events    []ScenarioEvent    `yaml:"events"`
}

type ScenarioCreature struct {
	ID       core.EntityID `yaml:"id"`
	Position string        `yaml:"position"`
	Player   bool          `yaml:"player"`
	Faction  string        `yaml:"faction"`
	Parts    []string      `yaml:"parts"`
}

type ScenarioDamager struct {
	ID       core.DamagerID `yaml:"id"`
	Type     string         `yaml:"type"`
	MaxDepth float64        `yaml:"maxDepth"`
}

type ScenarioItem struct {
	ID       core.EntityID     `yaml:"id"`
	Position string            `yaml:"position"`
	Holder   core.EntityID     `yaml:"holder"`
	Fragile  bool              `yaml:"fragile"`
	Enrich   []string          `yaml:"enrich"`
	Damagers []ScenarioDamager `yaml:"damagers"`
}

// Event kinds.
const (
	EventImbue       = "imbue"
	EventUnimbue     = "unimbue"
	EventHit         = "hit"
	EventPenetrate   = "penetrate"
	EventUnpenetrate = "unpenetrate"
	EventParry       = "parry"
	EventGround      = "ground"
	EventMove        = "move"
	EventThrow       = "throw"
	EventEnrich      = "enrich"
	EventStrip       = "strip"
)

// ScenarioEvent happens At after the session start. Which fields apply
// depends on Kind.
type ScenarioEvent struct {
	At       time.Duration  `yaml:"at"`
	Kind     string         `yaml:"kind"`
	Item     core.EntityID  `yaml:"item"`
	Creature core.EntityID  `yaml:"creature"`
	Target   core.EntityID  `yaml:"target"`
	Caster   core.EntityID  `yaml:"caster"`
	Spell    string         `yaml:"spell"`
	Part     string         `yaml:"part"`
	Phase    string         `yaml:"phase"`
	Fired    bool           `yaml:"fired"`
	Damager  core.DamagerID `yaml:"damager"`
	Depth    float64        `yaml:"depth"`
	Position string         `yaml:"position"`
	Velocity string         `yaml:"velocity"`
	Normal   string         `yaml:"normal"`
	Enrich   []string       `yaml:"enrich"`
	// Parry fields: Item/Creature parried by Target with ParryingItem.
	ParryingItem core.EntityID `yaml:"parryingItem"`
}

// LoadScenario reads a scenario file. An empty path returns the built-in
// demo encounter.
func LoadScenario(path string) (*Scenario, error) {
	data := demoScenario
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read scenario: %w", err)
		}
	}
	return ParseScenario(data)
}

// ParseScenario decodes and validates a scenario. Events are sorted by time;
// events sharing a time keep their file order.
func ParseScenario(data []byte) (*Scenario, error) {
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if sc.Name == "" {
		sc.Name = "unnamed"
	}

	for _, c := range sc.Creatures {
		if !c.ID.Valid() {
			return nil, fmt.Errorf("creature without id")
		}
		if _, err := vec(c.Position); err != nil {
			return nil, fmt.Errorf("creature %d: %w", c.ID, err)
		}
	}
	for _, it := range sc.Items {
		if !it.ID.Valid() {
			return nil, fmt.Errorf("item without id")
		}
		if _, err := vec(it.Position); err != nil {
			return nil, fmt.Errorf("item %d: %w", it.ID, err)
		}
	}
	for i, ev := range sc.Events {
		if err := ev.validate(); err != nil {
			return nil, fmt.Errorf("event %d (%s at %s): %w", i, ev.Kind, ev.At, err)
		}
	}

	sort.SliceStable(sc.Events, func(i, j int) bool { return sc.Events[i].At < sc.Events[j].At })
	return &sc, nil
}

func (ev ScenarioEvent) validate() error {
	if ev.At < 0 {
		return fmt.Errorf("negative time")
	}
	for _, s := range []string{ev.Position, ev.Velocity, ev.Normal} {
		if _, err := vec(s); err != nil {
			return err
		}
	}
	switch ev.Kind {
	case EventImbue, EventUnimbue, EventEnrich, EventStrip, EventThrow, EventGround:
		if !ev.Item.Valid() {
			return fmt.Errorf("item required")
		}
	case EventHit, EventPenetrate, EventUnpenetrate:
		if !ev.Item.Valid() || !ev.Target.Valid() {
			return fmt.Errorf("item and target required")
		}
	case EventParry:
		if !ev.Item.Valid() || !ev.ParryingItem.Valid() {
			return fmt.Errorf("item and parryingItem required")
		}
	case EventMove:
		if ev.Item.Valid() == ev.Creature.Valid() {
			return fmt.Errorf("exactly one of item or creature required")
		}
	default:
		return fmt.Errorf("unknown kind %q", ev.Kind)
	}
	return nil
}

// vec parses an optional "x,y,z" position.
func vec(s string) (core.Vec3, error) {
	if strings.TrimSpace(s) == "" {
		return core.Vec3{}, nil
	}
	return geo.ParseVec3(s)
}

func spell(s string) core.SpellKind {
	switch strings.ToLower(s) {
	case "fire":
		return core.SpellFire
	case "lightning":
		return core.SpellLightning
	case "gravity":
		return core.SpellGravity
	default:
		return core.SpellNone
	}
}

func damagerType(s string) core.DamagerType {
	switch strings.ToLower(s) {
	case "pierce":
		return core.DamagerPierce
	case "slash":
		return core.DamagerSlash
	default:
		return core.DamagerBlunt
	}
}
