// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewPrinter_BufferIsPlain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)
	assert.False(t, p.Styled())
	assert.False(t, IsTerminal(&buf))
}

func TestIsTerminal_RegularFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "out")
	if err != nil {
		t.Fatalf("CreateTemp: %v", err)
	}
	defer f.Close()
	assert.False(t, IsTerminal(f))
}

func TestPrinter_Plain(t *testing.T) {
	var buf bytes.Buffer
	p := NewPlainPrinter(&buf)

	p.Title("microbench")
	p.Success("saved run.json")
	p.Warning("no samples")
	p.Error("run failed")
	p.Bullet("maps", "map lookups")
	p.Bullet("strings", "")

	assert.Equal(t, "microbench\n"+
		"✓ saved run.json\n"+
		"⚠ no samples\n"+
		"✗ run failed\n"+
		"• maps  map lookups\n"+
		"• strings\n", buf.String())
}

func TestPrinter_TablePlain(t *testing.T) {
	var buf bytes.Buffer
	table := NewPlainPrinter(&buf).Table()

	table("A", "Benchmark", "Time")
	table("-", "---------", "----")
	table(" ", "get      ", "12 ns")

	assert.Equal(t, "A Benchmark Time\n- --------- ----\n  get       12 ns\n", buf.String())
}

func TestPrinter_TableStyledKeepsText(t *testing.T) {
	var buf bytes.Buffer
	p := &Printer{w: &buf, styled: true}
	table := p.Table()

	table("A", "Benchmark")
	table("-", "---------")
	table("*", "chan")

	out := buf.String()
	assert.Contains(t, out, "Benchmark")
	assert.Contains(t, out, "* chan\n")
}

func TestIsRule(t *testing.T) {
	assert.True(t, isRule("- ----- ---"))
	assert.False(t, isRule("  get"))
	assert.False(t, isRule("   "))
}
