// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevel_String(t *testing.T) {
	tests := []struct {
		level Level
		want  string
	}{
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{Level(99), "UNKNOWN"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.level.String())
		})
	}
}

func TestLevel_toSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, LevelDebug.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, LevelInfo.toSlogLevel())
	assert.Equal(t, slog.LevelWarn, LevelWarn.toSlogLevel())
	assert.Equal(t, slog.LevelError, LevelError.toSlogLevel())
	assert.Equal(t, slog.LevelInfo, Level(-1).toSlogLevel())
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"", LevelInfo},
		{" warn ", LevelWarn},
		{"warning", LevelWarn},
		{"Error", LevelError},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseLevel("loud")
	assert.ErrorIs(t, err, ErrUnknownLevel)
}

func TestNew_TextOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Service: "microbench"})
	defer logger.Close()

	logger.Slog().Info("benchmark run started", "suite", "maps")
	out := buf.String()
	assert.Contains(t, out, "level=INFO")
	assert.Contains(t, out, `msg="benchmark run started"`)
	assert.Contains(t, out, "service=microbench")
	assert.Contains(t, out, "suite=maps")
	assert.Empty(t, logger.Path())
}

func TestNew_JSONOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, JSON: true})
	logger.Slog().Warn("recording telemetry", "error", "boom")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "WARN", record["level"])
	assert.Equal(t, "boom", record["error"])
	assert.NotContains(t, record, "service")
}

func TestNew_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Level: LevelWarn})

	logger.Slog().Debug("hidden")
	logger.Slog().Info("hidden")
	logger.Slog().Error("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNew_Quiet(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, Quiet: true})
	logger.Slog().Error("nowhere")
	assert.Empty(t, buf.String())
}

func TestNew_LogDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	var buf bytes.Buffer
	logger := New(Config{Output: &buf, LogDir: dir, Service: "bench"})

	logger.Slog().Info("benchmark run finished", "run_id", "r1")
	require.NoError(t, logger.Close())
	require.NoError(t, logger.Close())

	path := logger.Path()
	assert.Equal(t, dir, filepath.Dir(path))
	assert.True(t, strings.HasPrefix(filepath.Base(path), "bench_"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var record map[string]any
	require.NoError(t, json.Unmarshal(data, &record))
	assert.Equal(t, "r1", record["run_id"])
	assert.Equal(t, "bench", record["service"])
	assert.Contains(t, buf.String(), "run_id=r1")
}

func TestNew_LogDirDefaultService(t *testing.T) {
	logger := New(Config{Quiet: true, LogDir: t.TempDir()})
	defer logger.Close()
	assert.True(t, strings.HasPrefix(filepath.Base(logger.Path()), "microbench_"))
}

func TestNew_LogDirUnavailable(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	var buf bytes.Buffer
	logger := New(Config{Output: &buf, LogDir: filepath.Join(blocker, "logs")})
	defer logger.Close()

	assert.Empty(t, logger.Path())
	assert.Contains(t, buf.String(), "file logging disabled")
}

func TestLogger_ConcurrentUse(t *testing.T) {
	logger := New(Config{Quiet: true, LogDir: t.TempDir()})
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Slog().Info("sample", "n", i)
		}()
	}
	wg.Wait()
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(logger.Path())
	require.NoError(t, err)
	assert.Equal(t, 16, strings.Count(string(data), "\n"))
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Handle(context.Context, slog.Record) error { return errors.New("disk full") }

func TestMultiHandler(t *testing.T) {
	var a, b bytes.Buffer
	h := &multiHandler{handlers: []slog.Handler{
		slog.NewTextHandler(&a, &slog.HandlerOptions{Level: slog.LevelInfo}),
		slog.NewTextHandler(&b, &slog.HandlerOptions{Level: slog.LevelError}),
	}}

	assert.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, h.Enabled(context.Background(), slog.LevelDebug))

	logger := slog.New(h.WithAttrs([]slog.Attr{slog.String("suite", "maps")}).WithGroup("g"))
	logger.Info("info", "k", 1)
	logger.Error("error")

	assert.Contains(t, a.String(), "suite=maps")
	assert.Contains(t, a.String(), "g.k=1")
	assert.NotContains(t, b.String(), "msg=info")
	assert.Contains(t, b.String(), "msg=error")
}

func TestMultiHandler_JoinsErrors(t *testing.T) {
	var buf bytes.Buffer
	text := slog.NewTextHandler(&buf, nil)
	h := &multiHandler{handlers: []slog.Handler{failingHandler{text}, text}}

	err := h.Handle(context.Background(), slog.NewRecord(time.Time{}, slog.LevelInfo, "x", 0))
	assert.EqualError(t, err, "disk full")
	assert.Contains(t, buf.String(), "msg=x")
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(home, ".aleutian/logs"), expandPath("~/.aleutian/logs"))
	assert.Equal(t, "/var/log", expandPath("/var/log"))
	assert.Equal(t, "relative/path", expandPath("relative/path"))
}
