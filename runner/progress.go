package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/pterm/pterm"
)

// Emitter receives run progress. Implementations:
//   - CLIEmitter: pretty terminal output via pterm
//   - JSONEmitter: structured JSON lines for machine consumption
type Emitter interface {
	RunStarted(workflow, runID string, total int)
	RecordDone(index, total int, res Result)
	RunFinished(stats Stats)
}

// CLIEmitter prints run progress to the terminal.
type CLIEmitter struct {
	verbosity int
}

// NewCLIEmitter creates a terminal emitter.
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

func (e *CLIEmitter) RunStarted(workflow, runID string, total int) {
	pterm.Printf("🔄 %s: %s records\n", pterm.LightCyan(workflow), pterm.Green(fmt.Sprintf("%d", total)))
	if e.verbosity >= 1 {
		pterm.Printf("   run %s\n", runID)
	}
}

func (e *CLIEmitter) RecordDone(index, total int, res Result) {
	prefix := fmt.Sprintf("[%d/%d]", index+1, total)
	switch res.Status {
	case StatusSucceeded:
		pterm.Printf("✅ %s %s %s\n", prefix, res.ID, res.Detail)
	case StatusIneligible:
		pterm.Printf("➖ %s %s: %s\n", prefix, pterm.Gray(res.ID), res.Detail)
	case StatusFailed:
		pterm.Error.Printf("%s %s: %v\n", prefix, res.ID, res.Err)
	}
}

func (e *CLIEmitter) RunFinished(stats Stats) {
	pterm.Success.Println("Run complete")
	pterm.Printf("  attempted:  %d\n", stats.Attempted)
	pterm.Printf("  succeeded:  %d\n", stats.Succeeded)
	pterm.Printf("  failed:     %d\n", stats.Failed)
	pterm.Printf("  ineligible: %d\n", stats.Ineligible)
	if stats.Partial > 0 {
		pterm.Warning.Printf("  %d partial transition(s) need manual reconciliation\n", stats.Partial)
	}
}

// ProgressEvent is one structured progress record on stdout.
type ProgressEvent struct {
	Type      string                 `json:"type"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// JSONEmitter writes progress as JSON lines to stdout.
type JSONEmitter struct {
	encoder *json.Encoder
}

// NewJSONEmitter creates a machine-readable emitter.
func NewJSONEmitter() *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(os.Stdout)}
}

func (e *JSONEmitter) RunStarted(workflow, runID string, total int) {
	e.encoder.Encode(ProgressEvent{
		Type:      "run_started",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"workflow": workflow,
			"run_id":   runID,
			"total":    total,
		},
	})
}

func (e *JSONEmitter) RecordDone(index, total int, res Result) {
	data := map[string]interface{}{
		"index":  index,
		"total":  total,
		"id":     res.ID,
		"status": res.Status.String(),
	}
	if res.Detail != "" {
		data["detail"] = res.Detail
	}
	if res.Err != nil {
		data["error"] = res.Err.Error()
	}
	e.encoder.Encode(ProgressEvent{Type: "record", Timestamp: time.Now(), Data: data})
}

func (e *JSONEmitter) RunFinished(stats Stats) {
	e.encoder.Encode(ProgressEvent{
		Type:      "run_finished",
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"attempted":  stats.Attempted,
			"succeeded":  stats.Succeeded,
			"failed":     stats.Failed,
			"ineligible": stats.Ineligible,
			"partial":    stats.Partial,
		},
	})
}
