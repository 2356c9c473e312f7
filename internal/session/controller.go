// Package session drives one capture-to-save cycle for a pair of card images.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/merge"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/lehigh-university-libraries/cardscanner/internal/sink"
)

var errSuperseded = failures.Wrap(failures.ErrInvalidTransition, "", "session was reset while processing", nil)

// State is a step of the capture cycle
type State string

const (
	AwaitingImage1 State = "awaiting_image_1"
	AwaitingImage2 State = "awaiting_image_2"
	BothCaptured   State = "both_captured"
	Extracting     State = "extracting"
	Merging        State = "merging"
	Publishing     State = "publishing"
	Persisting     State = "persisting"
	Ready          State = "ready"
)

// SaveStatus values reported in snapshots
const (
	SaveNone       = ""
	SaveSaving     = "saving"
	SaveDispatched = "dispatched"
	SaveSkipped    = "skipped"
	SaveFailed     = "failed"
)

// Extractor reads both card sides
type Extractor interface {
	ExtractPair(ctx context.Context, first, second models.CapturedImage) (models.ExtractedFields, models.ExtractedFields, error)
}

// Publisher uploads images and returns their URLs in input order
type Publisher interface {
	Publish(ctx context.Context, baseName string, images []models.CapturedImage) ([]string, error)
}

// Persister appends the finished record, at most once per guard
type Persister interface {
	Persist(ctx context.Context, guard *sink.Guard, rec models.MergedRecord, urls models.PublishedImageSet) (sink.Outcome, error)
}

// Controller owns the state of one session. The mutex only covers state
// transitions; it is never held while a remote call is in flight. Reset bumps
// the generation, and a remote call that returns into a newer generation has
// its result dropped.
type Controller struct {
	id        string
	createdAt time.Time

	extractor Extractor
	publisher Publisher
	persister Persister
	logger    *slog.Logger

	mu         sync.Mutex
	generation uint64
	guard      *sink.Guard
	state      State
	image1     *models.CapturedImage
	image2     *models.CapturedImage
	extracted1 *models.ExtractedFields
	extracted2 *models.ExtractedFields
	merged     *models.MergedRecord
	urls       *models.PublishedImageSet
	saveStatus string
	lastErr    error
}

// New starts a session in AwaitingImage1
func New(extractor Extractor, publisher Publisher, persister Persister) *Controller {
	id := uuid.NewString()
	return &Controller{
		id:        id,
		createdAt: time.Now(),
		extractor: extractor,
		publisher: publisher,
		persister: persister,
		logger:    slog.Default().With("session_id", id),
		guard:     &sink.Guard{},
		state:     AwaitingImage1,
	}
}

func (c *Controller) ID() string {
	return c.id
}

func (c *Controller) CreatedAt() time.Time {
	return c.createdAt
}

// State returns the current step
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Capture stores the image for slot 1 or 2
func (c *Controller) Capture(slot int, img models.CapturedImage) error {
	if img.Empty() {
		return fmt.Errorf("image %d is empty", slot)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case slot == 1 && c.state == AwaitingImage1:
		c.image1 = &img
		if c.image2 != nil {
			c.state = BothCaptured
		} else {
			c.state = AwaitingImage2
		}
	case slot == 2 && c.state == AwaitingImage2:
		c.image2 = &img
		c.state = BothCaptured
	default:
		return c.invalid(fmt.Sprintf("capture image %d", slot))
	}
	c.lastErr = nil
	c.logger.Debug("Captured image", "slot", slot, "bytes", len(img.Data), "state", c.state)
	return nil
}

// Retake discards the image in slot and waits for a new one. The other image
// is kept.
func (c *Controller) Retake(slot int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.idle() {
		return c.invalid(fmt.Sprintf("retake image %d", slot))
	}
	switch {
	case slot == 1 && c.image1 != nil:
		c.image1 = nil
		c.state = AwaitingImage1
	case slot == 2 && c.image2 != nil:
		c.image2 = nil
		if c.image1 != nil {
			c.state = AwaitingImage2
		} else {
			c.state = AwaitingImage1
		}
	default:
		return c.invalid(fmt.Sprintf("retake image %d", slot))
	}
	c.clearResults()
	return nil
}

// Reset drops everything captured so far. It is allowed while a remote call
// is in flight: the call runs to completion but its result is discarded. A
// Ready session cannot be reset; start a new session instead.
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Ready {
		return c.invalid("reset")
	}
	if !c.idle() {
		c.logger.Info("Session reset while processing, in-flight result will be dropped", "state", c.state)
	}
	c.generation++
	// an in-flight save keeps the guard it claimed
	c.guard = &sink.Guard{}
	c.image1 = nil
	c.image2 = nil
	c.clearResults()
	c.state = AwaitingImage1
	return nil
}

// Process extracts, merges, publishes and persists. Extraction or upload
// failures leave the session in BothCaptured so the user can retry or retake.
// A failed save still reaches Ready with SaveStatus "failed".
func (c *Controller) Process(ctx context.Context) (models.SessionState, error) {
	c.mu.Lock()
	if c.state != BothCaptured {
		err := c.invalid("process")
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.state = Extracting
	c.lastErr = nil
	gen, guard := c.generation, c.guard
	front, back := *c.image1, *c.image2
	c.mu.Unlock()

	start := time.Now()
	a, b, err := c.extractor.ExtractPair(ctx, front, back)
	if err != nil {
		if !c.fail(gen, err) {
			return c.Snapshot(), errSuperseded
		}
		return c.Snapshot(), err
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return c.dropped("extract")
	}
	c.state = Merging
	c.extracted1, c.extracted2 = &a, &b
	merged := merge.Merge(a, b)
	c.merged = &merged
	c.state = Publishing
	c.mu.Unlock()

	urls, err := c.publisher.Publish(ctx, "card-"+c.id, []models.CapturedImage{front, back})
	if err != nil {
		if !c.fail(gen, err) {
			return c.Snapshot(), errSuperseded
		}
		return c.Snapshot(), err
	}
	set := models.NewPublishedImageSet(urls)

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return c.dropped("publish")
	}
	c.urls = &set
	c.state = Persisting
	c.saveStatus = SaveSaving
	c.mu.Unlock()

	if !c.save(ctx, gen, guard, merged, set) {
		return c.dropped("persist")
	}

	c.logger.Info("Session processed",
		"name", merged.Name,
		"company", merged.Company,
		"elapsed_ms", time.Since(start).Milliseconds())
	return c.Snapshot(), nil
}

// UpdateRecord replaces the merged record shown to the user
func (c *Controller) UpdateRecord(rec models.MergedRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Ready {
		return c.invalid("edit record")
	}
	c.merged = &rec
	return nil
}

// RetrySave re-attempts the append after a failed save, using the current
// (possibly edited) record.
func (c *Controller) RetrySave(ctx context.Context) (models.SessionState, error) {
	c.mu.Lock()
	if c.state != Ready || c.saveStatus != SaveFailed {
		err := c.invalid("retry save")
		c.mu.Unlock()
		return c.Snapshot(), err
	}
	c.state = Persisting
	c.saveStatus = SaveSaving
	c.lastErr = nil
	gen, guard := c.generation, c.guard
	rec, set := *c.merged, *c.urls
	c.mu.Unlock()

	guard.Release()
	if !c.save(ctx, gen, guard, rec, set) {
		return c.dropped("persist")
	}
	return c.Snapshot(), nil
}

// Image returns a copy of the captured image in slot, if any
func (c *Controller) Image(slot int) (models.CapturedImage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	img := c.image1
	if slot == 2 {
		img = c.image2
	}
	if img == nil {
		return models.CapturedImage{}, false
	}
	return *img, true
}

// Extracted returns the fields read from slot, if extraction has run
func (c *Controller) Extracted(slot int) (models.ExtractedFields, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f := c.extracted1
	if slot == 2 {
		f = c.extracted2
	}
	if f == nil {
		return models.ExtractedFields{}, false
	}
	return *f, true
}

// Snapshot returns the client-visible state without image payloads
func (c *Controller) Snapshot() models.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := models.SessionState{
		ID:         c.id,
		State:      string(c.state),
		Image1:     info(c.image1),
		Image2:     info(c.image2),
		SaveStatus: c.saveStatus,
		Attempted:  c.guard.Attempted(),
		CreatedAt:  c.createdAt,
	}
	if c.extracted1 != nil {
		e := *c.extracted1
		s.Extracted1 = &e
	}
	if c.extracted2 != nil {
		e := *c.extracted2
		s.Extracted2 = &e
	}
	if c.merged != nil {
		m := *c.merged
		s.Merged = &m
	}
	if c.urls != nil {
		s.ImageURLs = []string{c.urls.URLs[0], c.urls.URLs[1]}
	}
	if c.lastErr != nil {
		s.Error = failures.UserMessage(c.lastErr)
	}
	return s
}

// save persists through guard and records the outcome. It reports false when
// the session was reset while the append was in flight.
func (c *Controller) save(ctx context.Context, gen uint64, guard *sink.Guard, rec models.MergedRecord, set models.PublishedImageSet) bool {
	outcome, err := c.persister.Persist(ctx, guard, rec, set)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		return false
	}
	c.state = Ready
	switch outcome {
	case sink.OutcomeDispatched:
		c.saveStatus = SaveDispatched
		// images are only needed again for a retry after a failed save
		c.image1 = nil
		c.image2 = nil
	case sink.OutcomeSkipped:
		c.saveStatus = SaveSkipped
	default:
		c.saveStatus = SaveFailed
		c.lastErr = err
		c.logger.Warn("Save failed, record kept for manual retry", "err", err)
	}
	return true
}

// fail returns the session to BothCaptured. It reports false, leaving the
// state alone, when the session was reset in the meantime.
func (c *Controller) fail(gen uint64, err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.generation != gen {
		c.logger.Warn("Processing failed after reset, error dropped", "err", err)
		return false
	}
	c.state = BothCaptured
	c.clearResults()
	c.lastErr = err
	c.logger.Error("Processing failed", "err", err)
	return true
}

func (c *Controller) dropped(stage string) (models.SessionState, error) {
	c.logger.Info("Session was reset, dropping result", "stage", stage)
	return c.Snapshot(), errSuperseded
}

// idle reports whether no remote call is in flight and the session is not Ready
func (c *Controller) idle() bool {
	switch c.state {
	case AwaitingImage1, AwaitingImage2, BothCaptured:
		return true
	}
	return false
}

func (c *Controller) clearResults() {
	c.extracted1 = nil
	c.extracted2 = nil
	c.merged = nil
	c.urls = nil
	c.saveStatus = SaveNone
	c.lastErr = nil
}

func (c *Controller) invalid(action string) error {
	return failures.Wrap(failures.ErrInvalidTransition, "", fmt.Sprintf("cannot %s in state %s", action, c.state), nil)
}

func info(img *models.CapturedImage) *models.ImageInfo {
	if img == nil {
		return nil
	}
	return &models.ImageInfo{MIMEType: img.MIMEType, Filename: img.Filename, Size: len(img.Data)}
}
