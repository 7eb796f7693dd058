package usage

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script and returns its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sizer.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func TestParseSizeOutput(t *testing.T) {
	tests := []struct {
		name   string
		output string
		wantKB int64
		wantOK bool
	}{
		{"du style", "12345\t.\n", 12345, true},
		{"bare number", "500\n", 500, true},
		{"no newline", "42", 42, true},
		{"zero", "0\t.\n", 0, true},
		{"garbage", "du: cannot access\n", 0, false},
		{"empty", "", 0, false},
		{"multiple lines", "1\t.\n2\t.\n", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb, ok := parseSizeOutput(tt.output)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantKB, kb)
			}
		})
	}
}

func TestMeasureMissingPathLaunchesNothing(t *testing.T) {
	// A command that would blow up if it ever ran.
	sizer := NewSizer("/nonexistent/sizing-tool", time.Second, nil, nil)

	size := sizer.Measure(context.Background(), filepath.Join(t.TempDir(), "gone"))

	assert.False(t, size.Known())
}

func TestMeasureFileIsNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	sizer := NewSizer("/nonexistent/sizing-tool", time.Second, nil, nil)

	assert.False(t, sizer.Measure(context.Background(), file).Known())
}

func TestMeasureParsesDuOutput(t *testing.T) {
	script := writeScript(t, `printf '12345\t.\n'`)
	sizer := NewSizer(script, 5*time.Second, nil, nil)

	size := sizer.Measure(context.Background(), t.TempDir())

	kb, known := size.KB()
	require.True(t, known)
	assert.Equal(t, int64(12345), kb)
}

func TestMeasureNonZeroExit(t *testing.T) {
	script := writeScript(t, `exit 2`)
	sizer := NewSizer(script, 5*time.Second, nil, nil)

	assert.False(t, sizer.Measure(context.Background(), t.TempDir()).Known())
}

func TestMeasureUnparseableOutput(t *testing.T) {
	script := writeScript(t, `echo "not a number"`)
	sizer := NewSizer(script, 5*time.Second, nil, nil)

	assert.False(t, sizer.Measure(context.Background(), t.TempDir()).Known())
}

func TestMeasureTimeoutKillsProcess(t *testing.T) {
	script := writeScript(t, `sleep 60`)
	sizer := NewSizer(script, 200*time.Millisecond, nil, nil)

	start := time.Now()
	size := sizer.Measure(context.Background(), t.TempDir())
	elapsed := time.Since(start)

	assert.False(t, size.Known())
	// The process was killed at the deadline, not waited for.
	assert.Less(t, elapsed, 5*time.Second)
}

func TestMeasureTimeoutLogsStorageWarning(t *testing.T) {
	script := writeScript(t, "sleep 60")

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sizer := NewSizer(script, 200*time.Millisecond, log, nil)

	size := sizer.Measure(context.Background(), t.TempDir())
	assert.False(t, size.Known())
	assert.Contains(t, buf.String(), "storage may be slow")
	assert.Contains(t, buf.String(), `"category":"timeout"`)
}

func TestMeasureParentCancellationIsNotATimeout(t *testing.T) {
	script := writeScript(t, "sleep 60")

	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	sizer := NewSizer(script, time.Hour, log, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	size := sizer.Measure(ctx, t.TempDir())
	assert.False(t, size.Known())
	assert.Less(t, time.Since(start), 5*time.Second, "cancellation must kill the process promptly")

	assert.NotContains(t, buf.String(), "storage may be slow",
		"a shutdown mid-measurement must not be reported as a storage timeout")
	assert.Contains(t, buf.String(), "Measurement cancelled")
}

func TestTouchHome(t *testing.T) {
	root := t.TempDir()
	before, err := os.Stat(root)
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, TouchHome(root))

	after, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, !after.ModTime().Before(before.ModTime()))
}

func TestSizeString(t *testing.T) {
	tests := []struct {
		size Size
		want string
	}{
		{UnknownSize(), "n/a"},
		{KnownSize(0), "0 KB"},
		{KnownSize(512), "512 KB"},
		{KnownSize(2048), "2.0 MB"},
		{KnownSize(3 * 1024 * 1024), "3.0 GB"},
		{KnownSize(2 * 1024 * 1024 * 1024), "2.0 TB"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.size.String())
	}
}

func TestSizeFromKB(t *testing.T) {
	assert.False(t, SizeFromKB(-1).Known())
	assert.Equal(t, int64(-1), UnknownSize().SentinelKB())

	size := SizeFromKB(100)
	kb, known := size.KB()
	assert.True(t, known)
	assert.Equal(t, int64(100), kb)
	assert.Equal(t, int64(100), size.SentinelKB())
}
