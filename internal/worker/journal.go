package worker

import (
	"log/slog"

	"github.com/imbuefx/enrichments/internal/dispatcher"
	"github.com/imbuefx/enrichments/internal/enrichment"
	"github.com/imbuefx/enrichments/pkg/core"
)

// Journal commands.
const (
	CmdTrigger    = ":JOURNAL:TRIGGER:"
	CmdChainWalk  = ":JOURNAL:WALK:"
	CmdFieldBurst = ":JOURNAL:BURST:"
	CmdDetonation = ":JOURNAL:DETONATION:"
	CmdTransition = ":JOURNAL:TRANSITION:"
)

// Journal hands enrichment records to the dispatcher. It never blocks the
// simulation thread; a full queue drops the record.
type Journal struct {
	d   *dispatcher.Dispatcher
	log *slog.Logger
}

var _ enrichment.Journal = (*Journal)(nil)

// NewJournal creates a Journal dispatching into d.
func NewJournal(d *dispatcher.Dispatcher, log *slog.Logger) *Journal {
	if log == nil {
		log = slog.Default()
	}
	return &Journal{d: d, log: log}
}

func (j *Journal) dispatch(command string, payload any) {
	if _, err := j.d.Dispatch(dispatcher.Event{Command: command, Payload: payload}); err != nil {
		j.log.Debug("journal record dropped", "command", command, "error", err)
	}
}

func (j *Journal) Trigger(ev core.TriggerEvent)            { j.dispatch(CmdTrigger, ev) }
func (j *Journal) ChainWalk(ev core.ChainWalkEvent)        { j.dispatch(CmdChainWalk, ev) }
func (j *Journal) FieldBurst(ev core.ChainWalkEvent)       { j.dispatch(CmdFieldBurst, ev) }
func (j *Journal) Detonation(ev core.DetonationEvent)      { j.dispatch(CmdDetonation, ev) }
func (j *Journal) ActorTransition(ev core.ActorTransition) { j.dispatch(CmdTransition, ev) }
