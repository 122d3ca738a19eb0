package influx

import (
	"compress/gzip"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imbuefx/enrichments/internal/model"
	"github.com/imbuefx/enrichments/pkg/core"
)

var at = time.Unix(1_700_000_000, 0)

func line(p *influxdb2_write.Point) string {
	return influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
}

func TestTriggerPoint(t *testing.T) {
	p := TriggerPoint("s1", core.TriggerEvent{
		Time:       at,
		Enrichment: "Flashpoint",
		Item:       100,
		Target:     core.CreatureRef(7),
		Position:   core.Vec3{X: 1, Y: 2, Z: 3},
		Detail:     map[string]any{"depth": 0.5, "dir": core.Vec3{X: 1}},
	})

	l := line(p)
	assert.True(t, strings.HasPrefix(l, "trigger,"), l)
	assert.Contains(t, l, "enrichment=Flashpoint")
	assert.Contains(t, l, "session=s1")
	assert.Contains(t, l, "target_kind=creature")
	assert.Contains(t, l, "detail_depth=0.5")
	assert.Contains(t, l, "detail_dir=")
	assert.Contains(t, l, "z=3")
}

func TestChainWalkPoint_SumsHops(t *testing.T) {
	p := ChainWalkPoint("s1", core.ChainWalkEvent{
		Time:       at,
		Enrichment: "Electroconductive",
		Strategy:   "nearest",
		Reason:     "exhausted",
		Hops:       []core.ChainHop{{Distance: 1.5}, {Distance: 2}},
	})

	l := line(p)
	assert.Contains(t, l, "hops=2i")
	assert.Contains(t, l, "length=3.5")
	assert.Contains(t, l, "strategy=nearest")
}

func TestDetonationPoint(t *testing.T) {
	p := DetonationPoint("s1", core.DetonationEvent{
		Time:    at,
		ActorID: "m1",
		Radius:  3,
		Hits:    []core.DetonationHit{{Damage: 10}, {Damage: 5}},
	})

	l := line(p)
	assert.Contains(t, l, "actor=m1")
	assert.Contains(t, l, "damage=15")
	assert.Contains(t, l, "hits=2i")
}

func TestTransitionPoint(t *testing.T) {
	l := line(TransitionPoint("s1", core.ActorTransition{Time: at, ActorID: "f1", Kind: "field", From: "active", To: "expired"}))
	assert.Contains(t, l, `from="active"`)
	assert.Contains(t, l, `to="expired"`)
}

func TestPerformancePoint(t *testing.T) {
	l := line(PerformancePoint("s1", model.SimPerformance{Time: at, Mines: 2, QueueLength: 5}))
	assert.True(t, strings.HasPrefix(l, "reactor_stats,session=s1"), l)
	assert.Contains(t, l, "mines=2i")
	assert.Contains(t, l, "queue_length=5i")
}

func TestConnect_Disabled(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	m := NewManager(zerolog.Nop(), "")
	assert.ErrorIs(t, m.Connect(context.Background()), ErrDisabled)
}

func TestWritePoint_NoBackend(t *testing.T) {
	m := NewManager(zerolog.Nop(), "")
	assert.Error(t, m.WritePoint(BucketJournal, TransitionPoint("s", core.ActorTransition{})))
}

func TestWritePoint_BackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "influx_backup.log.gz")
	m := NewManager(zerolog.Nop(), path)
	require.NoError(t, m.openBackup())

	require.NoError(t, m.WritePoint(BucketJournal, TransitionPoint("s", core.ActorTransition{Time: at, ActorID: "a"})))
	require.NoError(t, m.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	raw, err := io.ReadAll(gz)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "actor_transition,actor=a")
}
