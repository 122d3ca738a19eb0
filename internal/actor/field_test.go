package actor

import (
	"testing"
	"time"

	"github.com/imbuefx/enrichments/internal/engine"
	"github.com/imbuefx/enrichments/internal/engine/mocks"
	"github.com/imbuefx/enrichments/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	pylonHost core.EntityID = 1
	pylonItem core.EntityID = 40
)

func loadField(f *fixture, host, item core.EntityID) *Field {
	return f.reg.LoadField(DefaultFieldConfig(), FieldSpawn{Source: "BoltPylons", Host: host, Item: item})
}

func TestField_LoadAppliesModifiers(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	fl := loadField(f, pylonHost, pylonItem)
	require.NotNil(t, fl)

	assert.True(t, fl.Active())
	assert.Equal(t, 0.05, f.host.speedMods[pylonHost][fl.handle])
	assert.InDelta(t, 60, f.host.physicMods[pylonHost][fl.handle], 1e-9)
	assert.Equal(t, engine.Infinite, f.host.statuses[pylonHost]["BoltPylon"])

	same := loadField(f, pylonHost, pylonItem)
	assert.Same(t, fl, same)
}

func TestField_UnloadTwiceIsIdempotent(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	fl := loadField(f, pylonHost, pylonItem)

	assert.True(t, fl.Unload())
	assert.NotPanics(t, func() { assert.False(t, fl.Unload()) })

	assert.Equal(t, 1, f.host.speedRemove)
	assert.Equal(t, 1, f.host.statusDrops)
	assert.Empty(t, f.host.speedMods[pylonHost])
	assert.Empty(t, f.host.physicMods[pylonHost])
	assert.False(t, f.host.Has(pylonHost, "BoltPylon"))
	assert.Equal(t, FieldUnloaded, fl.State())

	f.reg.Tick(f.clock.Now())
	assert.Zero(t, f.reg.Len())
	_, ok := f.reg.FieldOn(pylonHost)
	assert.False(t, ok)
}

func TestField_ChargesThenEmits(t *testing.T) {
	ctrl := gomock.NewController(t)
	fx := mocks.NewMockEffects(ctrl)
	charge := mocks.NewMockEffectHandle(ctrl)

	var intensities []float64
	fx.EXPECT().Spawn("BoltPylonCharge", core.Vec3{Y: 2.5}, core.Up, pylonHost).Return(charge)
	fx.EXPECT().Spawn("BoltPylon", gomock.Any(), gomock.Any(), pylonHost).Return(nil)
	fx.EXPECT().Spawn("BoltHit", gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	charge.EXPECT().Play()
	charge.EXPECT().SetIntensity(gomock.Any()).Do(func(v float64) { intensities = append(intensities, v) }).AnyTimes()
	charge.EXPECT().End()

	f := newFixture(t, fx)
	f.host.creature(pylonHost, core.Vec3{})
	f.host.items[pylonItem] = core.Item{ID: pylonItem, Position: core.Vec3{}}
	f.host.creature(2, core.Vec3{X: 3})
	f.host.creature(3, core.Vec3{X: 9})
	fl := loadField(f, pylonHost, pylonItem)

	f.advance(2500 * time.Millisecond)
	assert.InDelta(t, 0.5, fl.ChargeLevel(), 1e-9)
	assert.Zero(t, fl.Emissions())
	assert.Empty(t, f.host.statuses[2])

	f.advance(2500 * time.Millisecond)
	assert.Equal(t, 1, fl.Emissions())
	assert.Zero(t, fl.ChargeLevel())

	d, ok := f.host.statuses[2]["Electrocute"]
	require.True(t, ok)
	assert.GreaterOrEqual(t, d, 3*time.Second)
	assert.Less(t, d, 5*time.Second)
	assert.Contains(t, f.host.statuses[pylonHost], "Electrocute")
	assert.NotContains(t, f.host.statuses[3], "Electrocute")
	assert.Equal(t, 1, f.host.pushes[2])

	require.Len(t, f.observer.bursts, 1)
	assert.Equal(t, "BoltPylons", f.observer.bursts[0].Enrichment)
	assert.Len(t, f.observer.bursts[0].Hops, 2)

	assert.Contains(t, intensities, 0.5)
	fl.Unload()
}

func TestField_SparesPlayerWhenPlayerOwned(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	f.host.items[pylonItem] = core.Item{ID: pylonItem, Owner: core.OwnerPlayer}
	f.host.creatures[9] = core.Creature{ID: 9, Torso: core.Vec3{X: 1}, IsPlayer: true}
	fl := loadField(f, pylonHost, pylonItem)

	hit := fl.Emit(false)
	assert.Equal(t, []core.EntityRef{core.CreatureRef(pylonHost)}, hit)
	assert.NotContains(t, f.host.statuses[9], "Electrocute")
}

func TestField_CascadesOneLevel(t *testing.T) {
	f := newFixture(t, noEffects(t))
	// a and b are within reach of each other, c only of b
	f.host.creature(1, core.Vec3{})
	f.host.creature(2, core.Vec3{X: 4})
	f.host.creature(3, core.Vec3{X: 8})
	f.host.items[41] = core.Item{ID: 41, Position: core.Vec3{}}
	f.host.items[42] = core.Item{ID: 42, Position: core.Vec3{X: 4}}
	f.host.items[43] = core.Item{ID: 43, Position: core.Vec3{X: 8}}
	a := loadField(f, 1, 41)
	b := loadField(f, 2, 42)
	c := loadField(f, 3, 43)

	a.Emit(true)
	assert.Equal(t, 1, a.Emissions())
	assert.Equal(t, 1, b.Emissions(), "b hosts an affected creature")
	assert.Zero(t, c.Emissions(), "cascades do not chain further")
}

func TestField_NotActiveDoesNothing(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	fl := loadField(f, pylonHost, pylonItem)
	fl.Unload()
	assert.Nil(t, fl.Emit(true))
	fl.Tick(f.clock.Now().Add(time.Hour))
	assert.Zero(t, fl.Emissions())
}

func TestRegistry_ClearRemovesEverything(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	loadField(f, pylonHost, pylonItem)
	spawnMine(f)
	require.Equal(t, 2, f.reg.Len())
	assert.Len(t, f.reg.Mines(), 1)
	assert.Len(t, f.reg.Fields(), 1)

	f.reg.Clear()
	assert.Zero(t, f.reg.Len())
	assert.Empty(t, f.host.speedMods[pylonHost])
}

func TestField_BurstIsUnlimitedByDefault(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	f.host.items[pylonItem] = core.Item{ID: pylonItem, Position: core.Vec3{}}
	for i := range 24 {
		f.host.creature(core.EntityID(100+i), core.Vec3{X: 0.1 * float64(i+1)})
	}
	fl := loadField(f, pylonHost, pylonItem)

	hit := fl.Emit(false)
	assert.Len(t, hit, 25)
	require.Len(t, f.observer.bursts, 1)
	assert.Equal(t, "no-candidate", f.observer.bursts[0].Reason)
}

func TestField_BurstHonoursTargetCap(t *testing.T) {
	f := newFixture(t, noEffects(t))
	f.host.creature(pylonHost, core.Vec3{})
	f.host.items[pylonItem] = core.Item{ID: pylonItem, Position: core.Vec3{}}
	for i := range 6 {
		f.host.creature(core.EntityID(100+i), core.Vec3{X: 0.5 * float64(i+1)})
	}
	cfg := DefaultFieldConfig()
	cfg.ShockMaxTargets = 3
	fl := f.reg.LoadField(cfg, FieldSpawn{Source: "BoltPylons", Host: pylonHost, Item: pylonItem})

	assert.Len(t, fl.Emit(false), 3)
	assert.Equal(t, "exhausted", f.observer.bursts[0].Reason)
}
