package log

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"

	scierrors "github.com/YuminosukeSato/scigam/pkg/errors"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestZerologLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelInfo)

	logger.Debug("hidden")
	logger.Info("fit finished", SamplesKey, 100, FeaturesKey, 3)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %s", len(lines), buf.String())
	}
	if lines[0]["message"] != "fit finished" {
		t.Errorf("message = %v", lines[0]["message"])
	}
	if lines[0][SamplesKey] != 100.0 {
		t.Errorf("%s = %v", SamplesKey, lines[0][SamplesKey])
	}

	if logger.Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be disabled at info level")
	}
	if !logger.Enabled(context.Background(), LevelWarn) {
		t.Error("warn should be enabled at info level")
	}
}

func TestZerologLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug).With(ModelNameKey, "LinearGAM")

	logger.Debug("candidate", LamKey, 0.6)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][ModelNameKey] != "LinearGAM" || lines[0][LamKey] != 0.6 {
		t.Errorf("unexpected output: %s", buf.String())
	}
}

func TestZerologLoggerErrorDetail(t *testing.T) {
	var buf bytes.Buffer
	logger := NewZerologLogger(&buf, LevelDebug)

	err := scierrors.NewDimensionError("LinearGAM.Fit", 5, 4, 0)
	logger.Error("fit failed", err, OperationKey, OperationFit)

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if !strings.Contains(fmt.Sprint(line["error"]), "dimension mismatch") {
		t.Errorf("error = %v", line["error"])
	}
	detail, ok := line["error_detail"].(map[string]interface{})
	if !ok || detail["type"] != "DimensionError" {
		t.Errorf("error_detail = %v", line["error_detail"])
	}
	if line[StacktraceAttrKey] == nil {
		t.Error("expected stacktrace attribute")
	}
	if line[OperationKey] != OperationFit {
		t.Errorf("%s = %v", OperationKey, line[OperationKey])
	}
}

func TestSlogLoggerCloudLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := FromSlog(NewCloudLoggingHandler(&buf, LevelDebug))

	logger.Error("search failed", scierrors.NewModelError("LinearGAM.GridSearch", "no candidate could be fitted", nil))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	line := lines[0]
	if line["severity"] != "ERROR" {
		t.Errorf("severity = %v", line["severity"])
	}
	if line["message"] != "search failed" {
		t.Errorf("message = %v", line["message"])
	}
	if st, _ := line[StacktraceAttrKey].(string); st == "" {
		t.Error("expected stacktrace from ErrFmtHandler")
	}

	if !logger.With(ComponentKey, "gam").Enabled(context.Background(), LevelDebug) {
		t.Error("debug should be enabled")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", LevelDebug, false},
		{"info", LevelInfo, false},
		{"warn", LevelWarn, false},
		{"error", LevelError, false},
		{"verbose", LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLevel(%q) error = %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestSetLogger(t *testing.T) {
	prev := GetLogger()
	defer SetLogger(prev)

	testLogger, _ := NewTestLogger(LevelDebug)
	SetLogger(testLogger)
	SetLogger(nil)

	GetLogger().Debug("via default")
	if !testLogger.ContainsMessage("via default") {
		t.Error("expected message routed to installed logger")
	}
}

func TestTestLogger(t *testing.T) {
	provider, buffer := NewTestLoggerProvider(LevelInfo)
	logger := provider.GetLoggerWithName("regression")

	logger.Debug("not captured")
	logger.Error("failed", fmt.Errorf("boom"), ErrorCodeKey, ErrorInvalidInput)

	if strings.Contains(buffer.String(), "not captured") {
		t.Error("debug record should be filtered")
	}
	tl := provider.GetLogger().(*TestLogger)
	if !tl.ContainsField(ErrAttrKey, "boom") {
		t.Error("expected error field")
	}
	if !tl.ContainsField(ComponentKey, "regression") {
		t.Error("expected component field from With")
	}
	if !tl.ContainsField(ErrorCodeKey, ErrorInvalidInput) {
		t.Error("expected error code field")
	}

	tl.Clear()
	if buffer.Len() != 0 {
		t.Error("Clear should reset the buffer")
	}
}

func TestTestLoggerConcurrent(t *testing.T) {
	logger, _ := NewTestLogger(LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.With(CandidateKey, id).Debug("candidate fitted")
		}(i)
	}
	wg.Wait()

	entries, err := logger.GetLogEntries()
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 8 {
		t.Errorf("expected 8 entries, got %d", len(entries))
	}
}
