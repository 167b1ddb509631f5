package logger

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// Muted console palette. Batch runs produce thousands of lines; the encoder
// keeps them scannable: dim timestamps, colored record ids, loud WARN/ERROR.
const (
	colorReset = "\x1b[0m"
	colorBold  = "\x1b[1m"

	colorFg     = "\x1b[38;5;223m" // soft cream
	colorTime   = "\x1b[38;5;108m" // muted cyan-green
	colorComp   = "\x1b[38;5;208m" // warm orange
	colorCompAl = "\x1b[38;5;214m" // soft yellow
	colorID     = "\x1b[38;5;109m" // soft blue
	colorNumber = "\x1b[38;5;175m" // muted purple
	colorOK     = "\x1b[38;5;142m" // muted green
	colorWarnFg = "\x1b[38;5;214m"
	colorWarnBg = "\x1b[48;5;58m"
	colorErrFg  = "\x1b[38;5;167m"
	colorErrBg  = "\x1b[48;5;88m"
)

// bracketPattern matches bracketed contexts like [lead:lead_xxx] or [page 3].
var bracketPattern = regexp.MustCompile(`\[([^\]]+)\]`)

// colorizeMessage colorizes bracketed contexts embedded in a log message.
// Record-id brackets ([lead:...], [opp:...], [run:...]) get the id color;
// everything else bracketed gets the component color.
func colorizeMessage(msg string) string {
	result := strings.Builder{}
	lastIndex := 0

	matches := bracketPattern.FindAllStringSubmatchIndex(msg, -1)
	for _, match := range matches {
		if textBefore := msg[lastIndex:match[0]]; textBefore != "" {
			result.WriteString(colorFg)
			result.WriteString(textBefore)
			result.WriteString(colorReset)
		}

		content := msg[match[2]:match[3]]
		color := colorComp
		if strings.HasPrefix(content, "lead:") || strings.HasPrefix(content, "opp:") ||
			strings.HasPrefix(content, "run:") {
			color = colorID
		}

		result.WriteString(color)
		result.WriteString(msg[match[0]:match[1]])
		result.WriteString(colorReset)

		lastIndex = match[1]
	}

	if remaining := msg[lastIndex:]; remaining != "" {
		result.WriteString(colorFg)
		result.WriteString(remaining)
		result.WriteString(colorReset)
	}

	return result.String()
}

// minimalEncoder implements a calm, compact console encoder.
// Format: "13:04:35  c.engine  advanced [lead:lead_9qK]  stage_2"
type minimalEncoder struct {
	zapcore.Encoder // Embed a base encoder for field serialization
	buf             *buffer.Buffer
}

func newMinimalEncoder() *minimalEncoder {
	// Base JSON encoder only serializes fields the minimal format skips
	baseEncoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())

	return &minimalEncoder{
		Encoder: baseEncoder,
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) Clone() zapcore.Encoder {
	return &minimalEncoder{
		Encoder: enc.Encoder.Clone(),
		buf:     buffer.NewPool().Get(),
	}
}

func (enc *minimalEncoder) EncodeEntry(ent zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	final := buffer.NewPool().Get()

	final.AppendString(colorTime)
	final.AppendString(ent.Time.Format("15:04:05"))
	final.AppendString(colorReset)

	// Level: only show for WARN/ERROR with bold + background
	if ent.Level != zapcore.InfoLevel {
		final.AppendString("  ")
		final.AppendString(levelColorString(ent.Level))
	}

	// Component name (abbreviated) for visual grouping
	if ent.LoggerName != "" {
		final.AppendString("  ")
		final.AppendString(componentColor(ent.LoggerName))
		final.AppendString(abbreviateName(ent.LoggerName))
		final.AppendString(colorReset)
	}

	final.AppendString("  ")
	final.AppendString(colorizeMessage(ent.Message))

	if len(fields) > 0 {
		if rendered := extractFieldValues(fields); rendered != "" {
			final.AppendString("  ")
			final.AppendString(rendered)
		}
	}

	final.AppendString("\n")
	return final, nil
}

// levelColorString returns bold + colored + background for WARN/ERROR
func levelColorString(level zapcore.Level) string {
	switch level {
	case zapcore.DebugLevel:
		return colorNumber + "DEBUG" + colorReset
	case zapcore.WarnLevel:
		return colorBold + colorWarnBg + colorWarnFg + "WARN" + colorReset
	case zapcore.ErrorLevel:
		return colorBold + colorErrBg + colorErrFg + "ERROR" + colorReset
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return colorBold + colorErrBg + colorErrFg + level.CapitalString() + colorReset
	default:
		return ""
	}
}

// componentColor hashes the component name so each package keeps a stable color
func componentColor(name string) string {
	hash := 0
	for _, c := range name {
		hash += int(c)
	}
	if hash%2 == 0 {
		return colorComp
	}
	return colorCompAl
}

// abbreviateName shortens component names: crm.executor -> c.executor
func abbreviateName(name string) string {
	parts := strings.Split(name, ".")
	if len(parts) > 1 {
		return string(parts[0][0]) + "." + strings.Join(parts[1:], ".")
	}
	return name
}

// getFieldValue extracts the value from a zap field, handling different field types
func getFieldValue(field zapcore.Field) string {
	switch field.Type {
	case zapcore.StringType:
		return field.String
	case zapcore.BoolType:
		return strconv.FormatBool(field.Integer == 1)
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return strconv.FormatInt(field.Integer, 10)
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type,
		zapcore.Uint8Type, zapcore.UintptrType:
		return strconv.FormatUint(uint64(field.Integer), 10)
	case zapcore.Float64Type:
		return strconv.FormatFloat(math.Float64frombits(uint64(field.Integer)), 'g', -1, 64)
	case zapcore.Float32Type:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(field.Integer))), 'g', -1, 32)
	case zapcore.DurationType:
		return time.Duration(field.Integer).String()
	case zapcore.TimeType:
		return time.Unix(0, field.Integer).Format("15:04:05")
	case zapcore.ErrorType:
		if err, ok := field.Interface.(error); ok && err != nil {
			return err.Error()
		}
		return ""
	case zapcore.ByteStringType:
		if b, ok := field.Interface.([]byte); ok {
			return string(b)
		}
	}

	if field.Interface != nil {
		return fmt.Sprintf("%v", field.Interface)
	}

	return ""
}

// extractFieldValues renders the fields the batch loop logs on nearly every
// line in a compact value-first form; everything else falls back to
// key=value so no field is ever silently discarded.
// Input: {"lead_id": "lead_x9", "from_stage": "stage_1", "to_stage": "stage_2"}
// Output: "lead_x9 stage_1→stage_2" (with colored ids)
func extractFieldValues(fields []zapcore.Field) string {
	var values []string
	var fromStage, toStage string

	for _, field := range fields {
		switch field.Key {
		case FieldLeadID, FieldOppID, FieldRunID:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorID+val+colorReset)
			}
		case FieldFromStage:
			fromStage = getFieldValue(field)
		case FieldToStage:
			toStage = getFieldValue(field)
		case FieldCount, FieldTotalCount, FieldPage, FieldAttempt, FieldStatus:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorNumber+val+colorReset+" "+field.Key)
			}
		case FieldWait:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorNumber+val+colorReset+"s wait")
			}
		case FieldDurationMS:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorNumber+val+colorReset+"ms")
			}
		case FieldOutcome:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorOK+val+colorReset)
			}
		case FieldError:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorErrFg+val+colorReset)
			}
		default:
			if val := getFieldValue(field); val != "" {
				values = append(values, colorFg+field.Key+"="+val+colorReset)
			}
		}
	}

	if fromStage != "" && toStage != "" {
		values = append(values, colorFg+fromStage+colorReset+"→"+colorOK+toStage+colorReset)
	}

	if len(values) == 0 {
		return ""
	}

	return strings.Join(values, " ")
}
