package evaluation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/images"
	"github.com/lehigh-university-libraries/cardscanner/internal/merge"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

// PairExtractor reads both sides of a card
type PairExtractor interface {
	ExtractPair(ctx context.Context, first, second models.CapturedImage) (models.ExtractedFields, models.ExtractedFields, error)
}

// Result is the outcome for one sample
type Result struct {
	ID         string              `yaml:"id"`
	Expected   models.MergedRecord `yaml:"expected"`
	Actual     models.MergedRecord `yaml:"actual"`
	FullText1  string              `yaml:"fulltext1,omitempty"`
	FullText2  string              `yaml:"fulltext2,omitempty"`
	Comparison *RecordComparison   `yaml:"comparison,omitempty"`
	ElapsedMS  int64               `yaml:"elapsedms"`
	Error      string              `yaml:"error,omitempty"`
}

// Summary aggregates the scores of a run
type Summary struct {
	TotalRecords    int                `yaml:"totalrecords"`
	SuccessfulEvals int                `yaml:"successfulevals"`
	FailedEvals     int                `yaml:"failedevals"`
	AverageScore    float64            `yaml:"averagescore"`
	MedianScore     float64            `yaml:"medianscore"`
	MinScore        float64            `yaml:"minscore"`
	MaxScore        float64            `yaml:"maxscore"`
	FieldAccuracies map[string]float64 `yaml:"fieldaccuracies"`
}

// Runner evaluates an extractor against a dataset
type Runner struct {
	extractor   PairExtractor
	fetcher     *images.Fetcher
	concurrency int
}

func NewRunner(extractor PairExtractor, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Runner{extractor: extractor, fetcher: images.NewFetcher(), concurrency: concurrency}
}

// Run processes every sample and returns results in dataset order
func (r *Runner) Run(ctx context.Context, ds *Dataset) []Result {
	results := make([]Result, len(ds.Samples))

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, r.concurrency)

	for i, sample := range ds.Samples {
		wg.Add(1)
		go func(idx int, sample Sample) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			slog.Info("Processing sample", "id", sample.ID, "progress", fmt.Sprintf("%d/%d", idx+1, len(ds.Samples)))
			results[idx] = r.processSample(ctx, ds, sample)
		}(i, sample)
	}
	wg.Wait()

	return results
}

func (r *Runner) processSample(ctx context.Context, ds *Dataset, sample Sample) (result Result) {
	result = Result{
		ID:       sample.ID,
		Expected: sample.Expected,
	}
	start := time.Now()
	defer func() { result.ElapsedMS = time.Since(start).Milliseconds() }()

	front, err := r.fetcher.Load(ctx, ds.resolve(sample.Front))
	if err != nil {
		result.Error = err.Error()
		return result
	}
	back, err := r.fetcher.Load(ctx, ds.resolve(sample.Back))
	if err != nil {
		result.Error = err.Error()
		return result
	}

	a, b, err := r.extractor.ExtractPair(ctx, front, back)
	if err != nil {
		slog.Warn("Extraction failed", "id", sample.ID, "err", err)
		result.Error = err.Error()
		return result
	}

	result.FullText1 = a.FullText
	result.FullText2 = b.FullText
	result.Actual = merge.Merge(a, b)
	result.Comparison = CompareRecord(sample.Expected, result.Actual)
	return result
}

// Summarize computes aggregate scores over successful results
func Summarize(results []Result) *Summary {
	summary := &Summary{
		TotalRecords:    len(results),
		FieldAccuracies: make(map[string]float64),
	}

	var scores []float64
	fieldScores := make(map[string][]float64)

	for _, result := range results {
		if result.Error != "" || result.Comparison == nil {
			summary.FailedEvals++
			continue
		}

		summary.SuccessfulEvals++
		scores = append(scores, result.Comparison.OverallScore)
		for field, comp := range result.Comparison.Fields {
			fieldScores[field] = append(fieldScores[field], comp.Score)
		}
	}

	if len(scores) == 0 {
		return summary
	}

	var total float64
	for _, score := range scores {
		total += score
	}
	summary.AverageScore = total / float64(len(scores))

	sort.Float64s(scores)
	mid := len(scores) / 2
	if len(scores)%2 == 0 {
		summary.MedianScore = (scores[mid-1] + scores[mid]) / 2
	} else {
		summary.MedianScore = scores[mid]
	}
	summary.MinScore = scores[0]
	summary.MaxScore = scores[len(scores)-1]

	for field, fs := range fieldScores {
		var total float64
		for _, score := range fs {
			total += score
		}
		summary.FieldAccuracies[field] = total / float64(len(fs))
	}

	return summary
}

// PrintSummary writes a human-readable summary to w
func PrintSummary(w io.Writer, summary *Summary) {
	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Evaluation Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Total Records:      %d\n", summary.TotalRecords)
	fmt.Fprintf(w, "Successful Evals:   %d\n", summary.SuccessfulEvals)
	fmt.Fprintf(w, "Failed Evals:       %d\n", summary.FailedEvals)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Average Score:      %.2f%%\n", summary.AverageScore*100)
	fmt.Fprintf(w, "Median Score:       %.2f%%\n", summary.MedianScore*100)
	fmt.Fprintf(w, "Min Score:          %.2f%%\n", summary.MinScore*100)
	fmt.Fprintf(w, "Max Score:          %.2f%%\n", summary.MaxScore*100)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Field Accuracies:")

	// Sort fields for consistent output
	for _, field := range models.MergeFields {
		if acc, ok := summary.FieldAccuracies[field]; ok {
			fmt.Fprintf(w, "  %s: %.2f%%\n", field, acc*100)
		}
	}
	fmt.Fprintln(w, "========================================")
}
