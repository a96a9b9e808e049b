package score

import "fmt"

// Absolute floors and noise ceilings that trigger advisory issue flags.
// Issues are diagnostic text only and never change any score.
const (
	issueNetworkFloorMBs  = 10.0
	issueDiskWriteFloorMB = 300.0
	issueCPUEfficiencyPct = 80.0
	issueCVPctDefault     = 12.0
	issueCVPctNetwork     = 20.0
	issueStabilityFloor   = 80.0
)

// IssueInput carries the aggregates the issue detector inspects.
type IssueInput struct {
	CPUMedian         float64 // events/sec across all cores
	Cores             int
	CPUCeilingPerCore float64 // events/sec one core is expected to reach

	DiskWriteMedian float64 // MB/s
	NetworkMedian   float64 // MB/s

	CPUCVPct     float64
	MemoryCVPct  float64
	DiskCVPct    float64
	NetworkCVPct float64

	StabilityScore float64 // discrete rating score for the load ratio
}

// Issues returns the advisory flags for a run. The order is stable:
// throughput floors first, then measurement-noise flags, then stability.
func Issues(in IssueInput) []string {
	var issues []string

	if in.NetworkMedian < issueNetworkFloorMBs {
		issues = append(issues, fmt.Sprintf(
			"network throughput is low (%.2f MB/s, floor %.0f MB/s)",
			in.NetworkMedian, issueNetworkFloorMBs))
	}
	if in.DiskWriteMedian < issueDiskWriteFloorMB {
		issues = append(issues, fmt.Sprintf(
			"disk write throughput is low (%.2f MB/s, floor %.0f MB/s)",
			in.DiskWriteMedian, issueDiskWriteFloorMB))
	}
	if in.Cores > 0 && in.CPUCeilingPerCore > 0 {
		perCore := in.CPUMedian / float64(in.Cores)
		efficiency := perCore / in.CPUCeilingPerCore * 100
		if efficiency < issueCPUEfficiencyPct {
			issues = append(issues, fmt.Sprintf(
				"cpu per-core efficiency is low (%.1f%% of %.0f events/s per core)",
				efficiency, in.CPUCeilingPerCore))
		}
	}

	for _, cv := range []struct {
		name  string
		pct   float64
		limit float64
	}{
		{"cpu", in.CPUCVPct, issueCVPctDefault},
		{"memory", in.MemoryCVPct, issueCVPctDefault},
		{"disk", in.DiskCVPct, issueCVPctDefault},
		{"network", in.NetworkCVPct, issueCVPctNetwork},
	} {
		if cv.pct > cv.limit {
			issues = append(issues, fmt.Sprintf(
				"%s measurements are noisy (CV %.1f%%, limit %.0f%%) — possible noisy neighbor",
				cv.name, cv.pct, cv.limit))
		}
	}

	if in.StabilityScore < issueStabilityFloor {
		issues = append(issues, fmt.Sprintf(
			"system load is high (stability score %.0f, floor %.0f)",
			in.StabilityScore, issueStabilityFloor))
	}

	return issues
}
