// Package report serializes a suite result to JSON, Markdown, or plain
// text.
//
// Rounding happens here, at the serialization boundary: scores and CV
// percentages carry one decimal place, throughput figures two. The engine
// itself works on full-precision floats; only the rendered report is
// rounded, which keeps golden-file comparisons stable.
package report
