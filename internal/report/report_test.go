package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/powerbench/powerbench/internal/score"
	"github.com/powerbench/powerbench/internal/suite"
)

func metricFixture(t *testing.T, name, unit string, samples []float64, normalized float64, r score.Rating) suite.Metric {
	t.Helper()
	agg, err := score.NewAggregate(samples)
	if err != nil {
		t.Fatalf("NewAggregate(%v): %v", samples, err)
	}
	return suite.Metric{
		Name:        name,
		Unit:        unit,
		Samples:     samples,
		Aggregate:   agg,
		Normalized:  normalized,
		Rating:      r,
		RatingScore: r.Score(),
	}
}

func resultFixture(t *testing.T) *suite.Result {
	t.Helper()
	return &suite.Result{
		Host:       "vps-01",
		Mode:       "accurate",
		Cores:      4,
		StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 6, 1, 12, 5, 0, 0, time.UTC),
		CPU:        metricFixture(t, "cpu", "events/s", []float64{9123.456, 9050.1, 9201.9}, 57.021, score.Excellent),
		Memory:     metricFixture(t, "memory", "MiB/s", []float64{15000, 14800, 15200}, 83.333, score.Good),
		DiskWrite:  metricFixture(t, "disk_write", "MB/s", []float64{715.456, 700.1, 720.3}, 100, score.Excellent),
		DiskRead:   metricFixture(t, "disk_read", "MB/s", []float64{820.0, 810.5, 830.2}, 100, score.Excellent),
		Network:    metricFixture(t, "network", "MB/s", []float64{31.4, 30.9, 32.1}, 100, score.Excellent),
		Load:       metricFixture(t, "load", "ratio", []float64{0.12, 0.10, 0.15}, 90, score.Excellent),
		PowerScore: 96.789,
		Verdict:    score.VerdictExcellent,
		GatePass:   true,
	}
}

func TestRoundHelpers(t *testing.T) {
	if got := Round1(87.64); got != 87.6 {
		t.Errorf("Round1(87.64) = %v, want 87.6", got)
	}
	if got := Round1(87.66); got != 87.7 {
		t.Errorf("Round1(87.66) = %v, want 87.7", got)
	}
	if got := Round2(715.456); got != 715.46 {
		t.Errorf("Round2(715.456) = %v, want 715.46", got)
	}
	if got := Round2(0); got != 0 {
		t.Errorf("Round2(0) = %v, want 0", got)
	}
}

func TestWriteJSON(t *testing.T) {
	res := resultFixture(t)

	var buf bytes.Buffer
	if err := WriteJSON(&buf, res); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}

	if got["host"] != "vps-01" {
		t.Errorf("host = %v, want vps-01", got["host"])
	}
	if got["power_score"] != 96.8 {
		t.Errorf("power_score = %v, want 96.8 (one decimal)", got["power_score"])
	}
	if got["verdict"] != score.VerdictExcellent {
		t.Errorf("verdict = %v, want %q", got["verdict"], score.VerdictExcellent)
	}
	if got["gate_pass"] != true {
		t.Errorf("gate_pass = %v, want true", got["gate_pass"])
	}

	cpu, ok := got["cpu"].(map[string]any)
	if !ok {
		t.Fatalf("cpu block missing: %v", got["cpu"])
	}
	if cpu["median"] != 9123.46 {
		t.Errorf("cpu.median = %v, want 9123.46 (two decimals)", cpu["median"])
	}
	if cpu["rating"] != "Excellent" {
		t.Errorf("cpu.rating = %v, want Excellent", cpu["rating"])
	}
	if cpu["rating_score"] != 100.0 {
		t.Errorf("cpu.rating_score = %v, want 100", cpu["rating_score"])
	}

	disk, ok := got["disk"].(map[string]any)
	if !ok {
		t.Fatalf("disk block missing: %v", got["disk"])
	}
	if disk["write_mb_s"] != 715.46 {
		t.Errorf("disk.write_mb_s = %v, want 715.46", disk["write_mb_s"])
	}
	if disk["read_mb_s"] != 820.0 {
		t.Errorf("disk.read_mb_s = %v, want 820", disk["read_mb_s"])
	}

	// No issues must serialize as an empty array, not null.
	issues, ok := got["issues"].([]any)
	if !ok {
		t.Fatalf("issues = %v, want empty array", got["issues"])
	}
	if len(issues) != 0 {
		t.Errorf("issues = %v, want empty", issues)
	}
}

func TestWriteMarkdown(t *testing.T) {
	res := resultFixture(t)
	res.Issues = []string{"network throughput is low"}
	res.GatePass = false

	var buf bytes.Buffer
	if err := WriteMarkdown(&buf, res); err != nil {
		t.Fatalf("WriteMarkdown: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"# Power Score Report — vps-01",
		"| CPU | 9123.46 events/s |",
		"| Disk write | 715.46 MB/s |",
		"**Power Score: 96.8 — " + score.VerdictExcellent + "**",
		"Strict gate: FAIL",
		"## Issues",
		"- network throughput is low",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown report missing %q\n%s", want, out)
		}
	}
}

func TestWriteText(t *testing.T) {
	res := resultFixture(t)

	var buf bytes.Buffer
	if err := WriteText(&buf, res); err != nil {
		t.Fatalf("WriteText: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"Power Score Report — vps-01 (accurate mode, 4 cores)",
		"Power score: 96.8",
		"Verdict:     " + score.VerdictExcellent,
		"Strict gate: PASS",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("text report missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Issues:") {
		t.Errorf("text report lists issues for a clean run\n%s", out)
	}
}

func TestWrite_Formats(t *testing.T) {
	res := resultFixture(t)
	for _, format := range []string{"json", "markdown", "text"} {
		var buf bytes.Buffer
		if err := Write(&buf, format, res); err != nil {
			t.Errorf("Write(%q): %v", format, err)
		}
		if buf.Len() == 0 {
			t.Errorf("Write(%q) produced no output", format)
		}
	}

	var buf bytes.Buffer
	if err := Write(&buf, "xml", res); err == nil {
		t.Error("Write(xml) succeeded, want error")
	}
}
