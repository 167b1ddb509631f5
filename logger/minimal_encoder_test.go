package logger

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// stripANSI removes ANSI color codes from a string for testing
func stripANSI(str string) string {
	ansiRegex := regexp.MustCompile(`\x1b\[[0-9;]*m`)
	return ansiRegex.ReplaceAllString(str, "")
}

// TestMinimalEncoderNeverDiscardsFields ensures the minimal encoder never
// silently drops log fields: known fields get compact rendering, everything
// else falls back to key=value.
func TestMinimalEncoderNeverDiscardsFields(t *testing.T) {
	encoder := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Now(),
		LoggerName: "test",
		Message:    "Testing field preservation",
	}

	testFields := []struct {
		field    zapcore.Field
		mustFind string
	}{
		{zap.String("template", "round_2"), "template=round_2"},
		{zap.Bool("dry_run", true), "dry_run=true"},
		{zap.Float64("amount_due", 75.5), "amount_due=75.5"},
		{zap.Strings("citations", []string{"c1", "c2"}), "citations"},
		{zap.String("random_field_xyz", "important_data"), "random_field_xyz=important_data"},
		{zap.Int("queue_depth", 999), "queue_depth=999"},
		{zap.Int32("int32_field", 42), "int32_field=42"},
		{zap.Int64("int64_field", 9999999), "int64_field=9999999"},
		{zap.Bool("success", false), "success=false"},
		{zap.Error(nil), ""}, // nil error must not crash

		// Special-cased fields render value-first
		{zap.String(FieldLeadID, "lead_q123"), "lead_q123"},
		{zap.Int(FieldPage, 10), "10 page"},
		{zap.Int(FieldCount, 5), "5 count"},
	}

	var allFields []zapcore.Field
	for _, tf := range testFields {
		allFields = append(allFields, tf.field)
	}

	buf, err := encoder.EncodeEntry(entry, allFields)
	if err != nil {
		t.Fatalf("Failed to encode entry: %v", err)
	}

	cleanOutput := stripANSI(buf.String())

	for _, tf := range testFields {
		if tf.mustFind != "" && !strings.Contains(cleanOutput, tf.mustFind) {
			t.Errorf("field was silently discarded from log output: %s\noutput: %s", tf.mustFind, cleanOutput)
		}
	}
}

func TestMinimalEncoderStageArrow(t *testing.T) {
	encoder := newMinimalEncoder()

	entry := zapcore.Entry{
		Level:      zapcore.InfoLevel,
		Time:       time.Date(2026, 3, 4, 13, 4, 35, 0, time.UTC),
		LoggerName: "campaign.engine",
		Message:    "advanced [lead:lead_x9K]",
	}

	fields := []zapcore.Field{
		zap.String(FieldFromStage, "stage_1"),
		zap.String(FieldToStage, "stage_2"),
	}

	buf, err := encoder.EncodeEntry(entry, fields)
	if err != nil {
		t.Fatalf("Failed to encode: %v", err)
	}

	clean := stripANSI(buf.String())
	if !strings.Contains(clean, "13:04:35") {
		t.Errorf("timestamp missing: %s", clean)
	}
	if !strings.Contains(clean, "c.engine") {
		t.Errorf("abbreviated component missing: %s", clean)
	}
	if !strings.Contains(clean, "stage_1→stage_2") {
		t.Errorf("stage arrow missing: %s", clean)
	}
	if !strings.Contains(clean, "[lead:lead_x9K]") {
		t.Errorf("bracketed lead id missing: %s", clean)
	}
	if !strings.HasSuffix(buf.String(), "\n") {
		t.Error("entry must end with newline")
	}
}

func TestMinimalEncoderLevels(t *testing.T) {
	encoder := newMinimalEncoder()

	tests := []struct {
		level    zapcore.Level
		mustFind string
	}{
		{zapcore.WarnLevel, "WARN"},
		{zapcore.ErrorLevel, "ERROR"},
		{zapcore.DebugLevel, "DEBUG"},
	}

	for _, tt := range tests {
		entry := zapcore.Entry{
			Level:   tt.level,
			Time:    time.Now(),
			Message: "msg",
		}
		buf, err := encoder.EncodeEntry(entry, nil)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		if !strings.Contains(stripANSI(buf.String()), tt.mustFind) {
			t.Errorf("level %v: expected %q in output %q", tt.level, tt.mustFind, stripANSI(buf.String()))
		}
	}

	// Info lines stay quiet: no level badge.
	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "msg"}
	buf, err := encoder.EncodeEntry(entry, nil)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if strings.Contains(stripANSI(buf.String()), "INFO") {
		t.Errorf("info badge should be suppressed: %s", stripANSI(buf.String()))
	}
}

func TestAbbreviateName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"runner", "runner"},
		{"crm.executor", "c.executor"},
		{"campaign.engine", "c.engine"},
		{"crm.paginate.search", "c.paginate.search"},
	}

	for _, tt := range tests {
		if got := abbreviateName(tt.in); got != tt.want {
			t.Errorf("abbreviateName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestColorizeMessageBrackets(t *testing.T) {
	out := colorizeMessage("advanced [lead:lead_1] via [page 2]")
	clean := stripANSI(out)
	if clean != "advanced [lead:lead_1] via [page 2]" {
		t.Errorf("colorizeMessage changed text content: %q", clean)
	}
	if !strings.Contains(out, colorID) {
		t.Error("lead bracket should use the id color")
	}
	if !strings.Contains(out, colorComp) {
		t.Error("generic bracket should use the component color")
	}
}

func TestEncoderClone(t *testing.T) {
	encoder := newMinimalEncoder()
	clone := encoder.Clone()
	if clone == nil {
		t.Fatal("Clone returned nil")
	}

	entry := zapcore.Entry{Level: zapcore.InfoLevel, Time: time.Now(), Message: "cloned"}
	buf, err := clone.EncodeEntry(entry, nil)
	if err != nil {
		t.Fatalf("clone encode: %v", err)
	}
	if !strings.Contains(stripANSI(buf.String()), "cloned") {
		t.Error("clone lost message")
	}
}
