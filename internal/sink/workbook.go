package sink

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/xuri/excelize/v2"
)

const workbookSheet = "Sheet1"

// WorkbookAppender keeps the ledger in a local .xlsx file. Appends are
// serialized within the process by a mutex and across processes by a lock
// file next to the workbook.
type WorkbookAppender struct {
	path string
	lock *flock.Flock
	now  func() time.Time
	mu   sync.Mutex
}

func NewWorkbookAppender(path string) *WorkbookAppender {
	return &WorkbookAppender{
		path: path,
		lock: flock.New(path + ".lock"),
		now:  time.Now,
	}
}

func (w *WorkbookAppender) Name() string {
	return "workbook"
}

// Path returns the workbook location
func (w *WorkbookAppender) Path() string {
	return w.path
}

func (w *WorkbookAppender) Append(ctx context.Context, p Payload) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	locked, err := w.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("failed to acquire workbook lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("failed to acquire workbook lock: %s", w.lock.Path())
	}
	defer func() { _ = w.lock.Unlock() }()

	f, err := w.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(workbookSheet)
	if err != nil {
		return fmt.Errorf("failed to read workbook rows: %w", err)
	}

	next := len(rows) + 1
	if len(rows) == 0 {
		header := append([]string(nil), models.HeaderRow...)
		if err := f.SetSheetRow(workbookSheet, "A1", &header); err != nil {
			return fmt.Errorf("failed to write header row: %w", err)
		}
		next = 2
	}

	row := models.PersistedRow{
		Timestamp:    w.now().UTC(),
		MergedRecord: p.Record(),
		ImageURL1:    p.ImageURL1,
		ImageURL2:    p.ImageURL2,
	}.Columns()
	cell, _ := excelize.CoordinatesToCellName(1, next)
	if err := f.SetSheetRow(workbookSheet, cell, &row); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}

	if err := f.SaveAs(w.path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

// ReadRows returns every data row of the ledger, oldest first
func (w *WorkbookAppender) ReadRows() ([]models.PersistedRow, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(workbookSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read workbook rows: %w", err)
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	out := make([]models.PersistedRow, 0, len(rows)-1)
	for _, cols := range rows[1:] {
		col := func(i int) string {
			if i < len(cols) {
				return cols[i]
			}
			return ""
		}
		ts, _ := time.Parse(time.RFC3339, col(0))
		out = append(out, models.PersistedRow{
			Timestamp: ts,
			MergedRecord: models.MergedRecord{
				Name:     col(1),
				JobTitle: col(2),
				Company:  col(3),
				Email:    col(4),
				Phone:    col(5),
				Website:  col(6),
				Address:  col(7),
			},
			ImageURL1: col(8),
			ImageURL2: col(9),
		})
	}
	return out, nil
}

func (w *WorkbookAppender) open() (*excelize.File, error) {
	if _, err := os.Stat(w.path); errors.Is(err, fs.ErrNotExist) {
		return excelize.NewFile(), nil
	}
	f, err := excelize.OpenFile(w.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	return f, nil
}
