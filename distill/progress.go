package distill

// ProgressEmitter receives progress updates from long-running distillation
// stages. display provides terminal and JSON implementations.
type ProgressEmitter interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress announces that count more items finished
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces successful completion with summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces a failure that was skipped
	EmitError(stage string, err error)

	// EmitInfo emits a general informational message
	EmitInfo(message string)
}

// NopEmitter discards all progress events
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string)                  {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitComplete(map[string]interface{})      {}
func (NopEmitter) EmitError(string, error)                  {}
func (NopEmitter) EmitInfo(string)                          {}
