package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"
)

// palette holds the ANSI colors for one console theme
type palette struct {
	fg        string
	time      string
	component []string
	id        string
	number    string
	warn      string
	warnBg    string
	err       string
	errBg     string
}

var palettes = map[string]palette{
	// Everforest Dark: natural forest greens
	"everforest": {
		fg:        "\x1b[38;5;223m",
		time:      "\x1b[38;5;107m",
		component: []string{"\x1b[38;5;108m", "\x1b[38;5;65m", "\x1b[38;5;208m"},
		id:        "\x1b[38;5;109m",
		number:    "\x1b[38;5;108m",
		warn:      "\x1b[38;5;179m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;52m",
	},
	// Gruvbox Dark: warm, muted
	"gruvbox": {
		fg:        "\x1b[38;5;223m",
		time:      "\x1b[38;5;108m",
		component: []string{"\x1b[38;5;208m", "\x1b[38;5;214m"},
		id:        "\x1b[38;5;109m",
		number:    "\x1b[38;5;175m",
		warn:      "\x1b[38;5;214m",
		warnBg:    "\x1b[48;5;58m",
		err:       "\x1b[38;5;167m",
		errBg:     "\x1b[48;5;88m",
	},
}

// Current active theme (set by logger.Initialize from config)
var currentTheme = "everforest"

// SetTheme configures the color scheme for log output
func SetTheme(theme string) {
	if _, ok := palettes[theme]; ok {
		currentTheme = theme
	}
}

func colors() palette {
	return palettes[currentTheme]
}

// colorComponent hashes the name so a component keeps its color across lines
func colorComponent(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	p := colors()
	return p.component[hash%len(p.component)]
}

// minimalEncoder implements a calm, compact console encoder with theme support
// Format: "13:04:35  d.tags  Level expanded  level=2 9 intents 812ms"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
}

func newMinimalEncoder() *minimalEncoder {
	return &minimalEncoder{
		Encoder: zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{Encoder: enc.Encoder.Clone()}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	p := colors()
	final := buffer.NewPool().Get()

	final.AppendString(p.time)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only show for non-info with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(colorComponent(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(p.fg)
	final.AppendString(ent.Message)
	final.AppendString(colorReset)

	if values := extractFieldValues(fields); values != "" {
		final.AppendString("  ")
		final.AppendString(values)
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for non-info levels
func levelColorString(level zapcore.Level) string {
	p := colors()
	switch level {
	case zapcore.DebugLevel:
		return p.id + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + p.warnBg + p.warn + "WARN" + colorReset
	default:
		return colorBold + p.errBg + p.err + level.CapitalString() + colorReset
	}
}

// abbreviateName shortens component names: distill.tags -> d.tags
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 && parts[0] != "" {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type,
		zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return fmt.Sprintf("%d", field.Integer)
	case zapcore.BoolType:
		return fmt.Sprintf("%t", field.Integer == 1)
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok {
			return err.Error()
		}
	}
	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}
	return ""
}

// extractFieldValues renders fields compactly with theme-aware colors.
// Input: {"intent": "Billing", "count": 5, "duration_ms": 812}
// Output: "Billing 5 812ms"
func extractFieldValues(fields []zapcore.Field) string {
	p := colors()
	var values []string

	for _, field := range fields {
		val := getFieldValue(field)
		if val == "" {
			continue
		}
		switch field.Key {
		case FieldIntent, FieldParent, FieldConversation, FieldModel:
			values = append(values, p.id+val+colorReset)
		case FieldDurationMS:
			values = append(values, p.number+val+colorReset+"ms")
		case FieldCount, FieldTotalCount, FieldLevel, FieldAttempt, FieldTurn, FieldTokens:
			values = append(values, field.Key+"="+p.number+val+colorReset)
		case FieldError:
			values = append(values, p.err+val+colorReset)
		default:
			values = append(values, field.Key+"="+val)
		}
	}

	return strings.Join(values, " ")
}
