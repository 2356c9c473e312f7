package sink

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/config"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// SheetsAppender appends rows through the Google Sheets API
type SheetsAppender struct {
	svc           *sheets.Service
	spreadsheetID string
	rng           string
	now           func() time.Time

	// one append at a time so the header check and the row write do not interleave
	mu sync.Mutex
}

// NewSheetsAppender authenticates with the service account file in cfg unless
// client options are given.
func NewSheetsAppender(ctx context.Context, cfg config.SinkConfig, opts ...option.ClientOption) (*SheetsAppender, error) {
	if len(opts) == 0 {
		opts = []option.ClientOption{option.WithCredentialsFile(cfg.CredentialsFile)}
	}
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	rng := cfg.SheetRange
	if rng == "" {
		rng = "Sheet1!A:J"
	}
	return &SheetsAppender{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		rng:           rng,
		now:           time.Now,
	}, nil
}

func (s *SheetsAppender) Name() string {
	return "sheets"
}

func (s *SheetsAppender) Append(ctx context.Context, p Payload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, s.rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to read sheet: %w", err)
	}

	var values [][]any
	if len(existing.Values) == 0 {
		header := make([]any, len(models.HeaderRow))
		for i, h := range models.HeaderRow {
			header[i] = h
		}
		values = append(values, header)
	}
	row := models.PersistedRow{
		Timestamp:    s.now(),
		MergedRecord: p.Record(),
		ImageURL1:    p.ImageURL1,
		ImageURL2:    p.ImageURL2,
	}
	values = append(values, row.Columns())

	_, err = s.svc.Spreadsheets.Values.Append(s.spreadsheetID, s.rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append row: %w", err)
	}
	return nil
}
