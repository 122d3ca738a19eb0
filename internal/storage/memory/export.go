// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/imbuefx/enrichments/pkg/core"
)

// JournalExport is the root JSON structure of an exported session.
type JournalExport struct {
	SessionID        string                 `json:"sessionId"`
	Scenario         string                 `json:"scenario"`
	ExtensionVersion string                 `json:"extensionVersion"`
	StartTime        time.Time              `json:"startTime"`
	TickRate         float64                `json:"tickRate"`
	Summary          []EnrichmentSummary    `json:"summary"`
	Triggers         []core.TriggerEvent    `json:"triggers"`
	ChainWalks       []core.ChainWalkEvent  `json:"chainWalks"`
	Detonations      []core.DetonationEvent `json:"detonations"`
	Transitions      []core.ActorTransition `json:"transitions"`
}

// EnrichmentSummary counts what one enrichment did during the session.
type EnrichmentSummary struct {
	Enrichment string `json:"enrichment"`
	Triggers   int    `json:"triggers"`
	Walks      int    `json:"walks"`
	Hops       int    `json:"hops"`
}

// exportJSON writes the session journal, gzipped when configured.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	name := strings.NewReplacer(" ", "_", ":", "_", "/", "_").Replace(b.session.Scenario)
	if name == "" {
		name = "session"
	}
	filename := fmt.Sprintf("%s_%s.json", name, b.session.StartTime.Format("20060102_150405"))
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	if err := writeExport(outputPath, export, b.cfg.CompressOutput); err != nil {
		return err
	}
	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() JournalExport {
	export := JournalExport{
		SessionID:        b.session.SessionID,
		Scenario:         b.session.Scenario,
		ExtensionVersion: b.session.ExtensionVersion,
		StartTime:        b.session.StartTime,
		TickRate:         b.session.TickRate,
		Triggers:         nonNil(b.triggers),
		ChainWalks:       nonNil(b.walks),
		Detonations:      nonNil(b.detonations),
		Transitions:      nonNil(b.transitions),
	}

	byName := make(map[string]*EnrichmentSummary)
	get := func(name string) *EnrichmentSummary {
		s, ok := byName[name]
		if !ok {
			s = &EnrichmentSummary{Enrichment: name}
			byName[name] = s
		}
		return s
	}
	for _, t := range b.triggers {
		get(t.Enrichment).Triggers++
	}
	for _, w := range b.walks {
		s := get(w.Enrichment)
		s.Walks++
		s.Hops += len(w.Hops)
	}

	export.Summary = make([]EnrichmentSummary, 0, len(byName))
	for _, s := range byName {
		export.Summary = append(export.Summary, *s)
	}
	sort.Slice(export.Summary, func(i, j int) bool {
		return export.Summary[i].Enrichment < export.Summary[j].Enrichment
	})
	return export
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func writeExport(path string, data JournalExport, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	var w io.Writer = f
	if compress {
		gz := gzip.NewWriter(f)
		defer func() {
			if cerr := gz.Close(); err == nil {
				err = cerr
			}
		}()
		w = gz
	}
	return json.NewEncoder(w).Encode(data)
}

// ReadExport loads an export written by EndSession.
func ReadExport(path string) (JournalExport, error) {
	var out JournalExport
	f, err := os.Open(path)
	if err != nil {
		return out, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return out, fmt.Errorf("open gzip: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, fmt.Errorf("decode export: %w", err)
	}
	return out, nil
}
