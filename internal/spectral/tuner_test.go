// SPDX-License-Identifier: MIT
package spectral

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"", ModeEstimate, false},
		{"estimate", ModeEstimate, false},
		{"Measure", ModeMeasure, false},
		{"wisdom-only", ModeWisdomOnly, false},
		{"patient", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseMode(%q) = (%q, %v), want (%q, err=%v)", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestTunerEstimateUsesPreferred(t *testing.T) {
	tuner := Tuner{Mode: ModeEstimate, Preferred: AlgoFFTName}
	b, err := tuner.Select(256)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if b.Name() != AlgoFFTName {
		t.Errorf("Select() backend = %s, want %s", b.Name(), AlgoFFTName)
	}
}

func TestTunerWisdomOnly(t *testing.T) {
	w := NewWisdom("")
	tuner := Tuner{Mode: ModeWisdomOnly, Wisdom: w}

	if _, err := tuner.Select(512); !errors.Is(err, ErrNoWisdom) {
		t.Fatalf("Select() without entry: error = %v, want ErrNoWisdom", err)
	}

	w.Record(512, Entry{Backend: AlgoFFTName, NsPerOp: 1})
	b, err := tuner.Select(512)
	if err != nil {
		t.Fatalf("Select() with entry: %v", err)
	}
	if b.Name() != AlgoFFTName {
		t.Errorf("Select() backend = %s, want cached %s", b.Name(), AlgoFFTName)
	}
}

func TestTunerMeasureRecords(t *testing.T) {
	w := NewWisdom(filepath.Join(t.TempDir(), "wisdom.yaml"))
	tuner := Tuner{Mode: ModeMeasure, Wisdom: w, Rounds: 4}

	b, err := tuner.Select(128)
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	e, ok := w.Lookup(128)
	if !ok {
		t.Fatal("measure mode did not record a tuning entry")
	}
	if e.Backend != b.Name() {
		t.Errorf("recorded %s but selected %s", e.Backend, b.Name())
	}
	if !w.Dirty() {
		t.Error("cache not marked dirty after recording")
	}
}

func TestMeasureSortsFastestFirst(t *testing.T) {
	results, err := Measure(256, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != len(Backends()) {
		t.Fatalf("Measure() returned %d results, want %d", len(results), len(Backends()))
	}
	for i := 1; i < len(results); i++ {
		if results[i].NsPerOp < results[i-1].NsPerOp {
			t.Errorf("results not sorted: %+v", results)
		}
	}
}

func TestWisdomMissingFileIsEmpty(t *testing.T) {
	w, err := LoadWisdom(filepath.Join(t.TempDir(), "absent.yaml"), 1024)
	if err != nil {
		t.Fatalf("LoadWisdom() error = %v", err)
	}
	if _, ok := w.Lookup(1024); ok {
		t.Error("empty cache returned an entry")
	}
	if w.Dirty() {
		t.Error("fresh cache is dirty")
	}
}

func TestWisdomCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.yaml")
	if err := os.WriteFile(path, []byte("sizes: [not, a, map"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadWisdom(path, 1024); err == nil {
		t.Error("LoadWisdom() accepted a corrupt file")
	}
}

func TestWisdomSaveAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache", "wisdom.yaml")
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	w := NewWisdom(path)
	w.Record(1024, Entry{Backend: GonumName, NsPerOp: 1234.5, MeasuredAt: at})
	if err := w.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if w.Dirty() {
		t.Error("cache still dirty after Save")
	}

	loaded, err := LoadWisdom(path, 1024)
	if err != nil {
		t.Fatalf("LoadWisdom() error = %v", err)
	}
	e, ok := loaded.Lookup(1024)
	if !ok {
		t.Fatal("saved entry missing after reload")
	}
	if e.Backend != GonumName || e.NsPerOp != 1234.5 || !e.MeasuredAt.Equal(at) {
		t.Errorf("reloaded entry = %+v", e)
	}
}

func TestWisdomSaveCleanIsNoop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wisdom.yaml")
	if err := NewWisdom(path).Save(); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("clean cache wrote a file (stat error %v)", err)
	}
}
