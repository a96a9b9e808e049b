package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/powerbench/powerbench/internal/suite"
)

// Write renders res to w in the given format: json, markdown, or text.
func Write(w io.Writer, format string, res *suite.Result) error {
	switch format {
	case "json":
		return WriteJSON(w, res)
	case "markdown":
		return WriteMarkdown(w, res)
	case "text":
		return WriteText(w, res)
	default:
		return fmt.Errorf("report: unknown format %q", format)
	}
}

// Round1 rounds to one decimal place (scores, CV percentages).
func Round1(v float64) float64 { return math.Round(v*10) / 10 }

// Round2 rounds to two decimal places (throughput figures, load ratio).
func Round2(v float64) float64 { return math.Round(v*100) / 100 }

// jsonReport is the wire form of a run result. Field names are part of
// the report contract consumed by downstream tooling.
type jsonReport struct {
	Host        string    `json:"host"`
	Mode        string    `json:"mode"`
	Cores       int       `json:"cores"`
	GeneratedAt time.Time `json:"generated_at"`

	CPU     jsonMetric `json:"cpu"`
	Memory  jsonMetric `json:"memory"`
	Disk    jsonDisk   `json:"disk"`
	Network jsonMetric `json:"network"`
	Load    jsonMetric `json:"load"`

	PowerScore float64  `json:"power_score"`
	Verdict    string   `json:"verdict"`
	GatePass   bool     `json:"gate_pass"`
	Issues     []string `json:"issues"`
}

type jsonMetric struct {
	Median      float64 `json:"median"`
	Unit        string  `json:"unit"`
	CVPct       float64 `json:"cv_pct"`
	Normalized  float64 `json:"normalized"`
	Rating      string  `json:"rating"`
	RatingScore float64 `json:"rating_score"`
	Trials      int     `json:"trials"`
	Failures    int     `json:"failures,omitempty"`
}

type jsonDisk struct {
	WriteMBs float64 `json:"write_mb_s"`
	ReadMBs  float64 `json:"read_mb_s"`

	Write jsonMetric `json:"write"`
	Read  jsonMetric `json:"read"`
}

func toJSONMetric(m suite.Metric) jsonMetric {
	return jsonMetric{
		Median:      Round2(m.Aggregate.Median),
		Unit:        m.Unit,
		CVPct:       Round1(m.Aggregate.CVPct),
		Normalized:  Round1(m.Normalized),
		Rating:      m.Rating.String(),
		RatingScore: m.RatingScore,
		Trials:      m.Aggregate.Trials,
		Failures:    m.Aggregate.Failures,
	}
}

// WriteJSON renders the machine-readable report.
func WriteJSON(w io.Writer, res *suite.Result) error {
	rep := jsonReport{
		Host:        res.Host,
		Mode:        res.Mode,
		Cores:       res.Cores,
		GeneratedAt: res.FinishedAt,
		CPU:         toJSONMetric(res.CPU),
		Memory:      toJSONMetric(res.Memory),
		Disk: jsonDisk{
			WriteMBs: Round2(res.DiskWrite.Aggregate.Median),
			ReadMBs:  Round2(res.DiskRead.Aggregate.Median),
			Write:    toJSONMetric(res.DiskWrite),
			Read:     toJSONMetric(res.DiskRead),
		},
		Network:    toJSONMetric(res.Network),
		Load:       toJSONMetric(res.Load),
		PowerScore: Round1(res.PowerScore),
		Verdict:    res.Verdict,
		GatePass:   res.GatePass,
		Issues:     res.Issues,
	}
	if rep.Issues == nil {
		rep.Issues = []string{}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

// metricRows flattens a result into display rows shared by the Markdown
// and text writers.
func metricRows(res *suite.Result) []struct {
	Label string
	M     suite.Metric
} {
	return []struct {
		Label string
		M     suite.Metric
	}{
		{"CPU", res.CPU},
		{"Memory", res.Memory},
		{"Disk write", res.DiskWrite},
		{"Disk read", res.DiskRead},
		{"Network", res.Network},
		{"Load", res.Load},
	}
}

// WriteMarkdown renders the human-readable Markdown report.
func WriteMarkdown(w io.Writer, res *suite.Result) error {
	fmt.Fprintf(w, "# Power Score Report — %s\n\n", res.Host)
	fmt.Fprintf(w, "Mode: %s · Cores: %d · Generated: %s\n\n",
		res.Mode, res.Cores, res.FinishedAt.Format(time.RFC3339))

	fmt.Fprintf(w, "| Metric | Median | CV%% | Normalized | Rating | Score |\n")
	fmt.Fprintf(w, "|---|---|---|---|---|---|\n")
	for _, row := range metricRows(res) {
		fmt.Fprintf(w, "| %s | %.2f %s | %.1f | %.1f | %s | %.0f |\n",
			row.Label,
			Round2(row.M.Aggregate.Median), row.M.Unit,
			Round1(row.M.Aggregate.CVPct),
			Round1(row.M.Normalized),
			row.M.Rating,
			row.M.RatingScore,
		)
	}

	fmt.Fprintf(w, "\n**Power Score: %.1f — %s**\n", Round1(res.PowerScore), res.Verdict)
	gate := "FAIL"
	if res.GatePass {
		gate = "PASS"
	}
	fmt.Fprintf(w, "\nStrict gate: %s\n", gate)

	if len(res.Issues) > 0 {
		fmt.Fprintf(w, "\n## Issues\n\n")
		for _, is := range res.Issues {
			fmt.Fprintf(w, "- %s\n", is)
		}
	}
	return nil
}

// WriteText renders the console report.
func WriteText(w io.Writer, res *suite.Result) error {
	fmt.Fprintf(w, "Power Score Report — %s (%s mode, %d cores)\n", res.Host, res.Mode, res.Cores)
	fmt.Fprintf(w, "Generated: %s\n\n", res.FinishedAt.Format(time.RFC3339))

	for _, row := range metricRows(res) {
		fmt.Fprintf(w, "  %-10s %10.2f %-8s  cv %5.1f%%  norm %5.1f  %-9s %3.0f\n",
			row.Label,
			Round2(row.M.Aggregate.Median), row.M.Unit,
			Round1(row.M.Aggregate.CVPct),
			Round1(row.M.Normalized),
			row.M.Rating,
			row.M.RatingScore,
		)
	}

	fmt.Fprintf(w, "\nPower score: %.1f\n", Round1(res.PowerScore))
	fmt.Fprintf(w, "Verdict:     %s\n", res.Verdict)
	gate := "FAIL"
	if res.GatePass {
		gate = "PASS"
	}
	fmt.Fprintf(w, "Strict gate: %s\n", gate)

	if len(res.Issues) > 0 {
		fmt.Fprintf(w, "\nIssues:\n")
		for _, is := range res.Issues {
			fmt.Fprintf(w, "  - %s\n", is)
		}
	}
	return nil
}
