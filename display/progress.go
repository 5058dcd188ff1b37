package display

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/distill/distill"
)

var (
	_ distill.ProgressEmitter = (*CLIEmitter)(nil)
	_ distill.ProgressEmitter = (*JSONEmitter)(nil)
)

// ProgressEvent represents a structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"` // "stage", "progress", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// CLIEmitter outputs pretty-printed progress to terminal using pterm
type CLIEmitter struct {
	verbosity int
	mu        sync.Mutex
}

// NewCLIEmitter creates a CLI progress emitter for terminal output
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

// EmitStage prints a stage announcement to terminal
func (e *CLIEmitter) EmitStage(stage string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
}

// EmitProgress prints a progress count, naming the item type when metadata carries one
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	itemType, ok := metadata["type"].(string)
	if !ok {
		itemType = "items"
	}
	where := ""
	if intent, ok := metadata["intent"].(string); ok && intent != "" {
		where = " for " + pterm.LightCyan(intent)
	}
	pterm.Printf("✅ Generated %s %s%s\n", pterm.Green(fmt.Sprintf("%d", count)), itemType, where)
}

// EmitComplete prints completion summary
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Success.Println("Generation complete!")
	if e.verbosity >= 1 {
		for _, key := range sortedKeys(summary) {
			pterm.Printf("  %s: %v\n", key, summary[key])
		}
	}
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// EmitInfo prints informational message
func (e *CLIEmitter) EmitInfo(message string) {
	if e.verbosity < 1 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Info.Println(message)
}

// JSONEmitter writes one JSON event per line
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	now     func() time.Time
}

// NewJSONEmitter creates a JSON progress emitter writing to w
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSONEmitter{encoder: enc, now: time.Now}
}

func (e *JSONEmitter) emit(eventType string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	// Progress is best effort; a broken pipe must not fail generation
	_ = e.encoder.Encode(ProgressEvent{Type: eventType, Timestamp: e.now(), Data: data})
}

// EmitStage emits a stage event as JSON
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{
		"stage":   stage,
		"message": message,
	})
}

// EmitProgress emits a progress event with metadata merged into its data
func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{"count": count}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

// EmitComplete emits a completion event as JSON
func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event as JSON
func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

// EmitInfo emits an info event as JSON
func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{"message": message})
}
