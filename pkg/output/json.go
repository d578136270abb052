package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/apkdiff/pkg/models"
)

// JSONFormatter formats output as JSON for automation and scripting
type JSONFormatter struct {
	writer     io.Writer
	totalPairs int
	startTime  time.Time
	errors     []string
}

// JSONReportData represents the final report data
type JSONReportData struct {
	ID         string           `json:"id,omitempty"`
	Left       string           `json:"left"`
	Right      string           `json:"right"`
	Status     string           `json:"status"`
	Duration   string           `json:"duration"`
	DurationMs int64            `json:"duration_ms"`
	Stats      JSONStatsData    `json:"stats"`
	OnlyLeft   []string         `json:"only_left,omitempty"`
	OnlyRight  []string         `json:"only_right,omitempty"`
	Pairs      []JSONPairData   `json:"pairs,omitempty"`
	Errors     []string         `json:"errors,omitempty"`
}

// JSONStatsData represents statistics in JSON format
type JSONStatsData struct {
	PairsCompared  int   `json:"pairs_compared"`
	PairsIdentical int   `json:"pairs_identical"`
	PairsDifferent int   `json:"pairs_different"`
	PairsErrored   int   `json:"pairs_errored"`
	BytesCompared  int64 `json:"bytes_compared"`
}

// JSONPairData represents one compared pair. Identical pairs are listed
// without a difference.
type JSONPairData struct {
	Name       string             `json:"name"`
	Identical  bool               `json:"identical"`
	DurationMs int64              `json:"duration_ms"`
	Error      string             `json:"error,omitempty"`
	Difference *models.Difference `json:"difference,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalPairs int, maxWorkers int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.totalPairs = totalPairs
	f.startTime = time.Now()
	return nil
}

// Progress is ignored to keep the output a single parseable document
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete writes the whole report as one JSON document
func (f *JSONFormatter) Complete(report *models.Report) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	data := toJSONReport(report)
	data.Errors = append(data.Errors, f.errors...)

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func toJSONReport(report *models.Report) JSONReportData {
	data := JSONReportData{
		ID:         report.ID,
		Left:       report.LeftPath,
		Right:      report.RightPath,
		Status:     string(report.Status),
		Duration:   report.Duration.Round(time.Millisecond).String(),
		DurationMs: report.Duration.Milliseconds(),
		Stats: JSONStatsData{
			PairsCompared:  report.Stats.PairsCompared,
			PairsIdentical: report.Stats.PairsIdentical,
			PairsDifferent: report.Stats.PairsDifferent,
			PairsErrored:   report.Stats.PairsErrored,
			BytesCompared:  report.Stats.BytesCompared,
		},
		OnlyLeft:  report.OnlyLeft,
		OnlyRight: report.OnlyRight,
	}
	for _, r := range report.Results {
		data.Pairs = append(data.Pairs, JSONPairData{
			Name:       r.Name,
			Identical:  r.Identical(),
			DurationMs: r.Duration.Milliseconds(),
			Error:      r.Error,
			Difference: r.Difference,
		})
	}
	return data
}

// Error records an error for the final document
func (f *JSONFormatter) Error(err error) error {
	f.errors = append(f.errors, err.Error())
	return nil
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
