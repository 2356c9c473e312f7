package sink

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/lehigh-university-libraries/cardscanner/internal/failures"
	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	record = models.MergedRecord{Name: "Ann", Email: "a@b.com"}
	urls   = models.NewPublishedImageSet([]string{"https://host/1.png", "https://host/2.png"})
)

// slowAppender blocks inside Append so concurrent callers overlap
type slowAppender struct {
	calls atomic.Int32
	err   error
}

func (s *slowAppender) Name() string { return "slow" }

func (s *slowAppender) Append(context.Context, Payload) error {
	s.calls.Add(1)
	time.Sleep(20 * time.Millisecond)
	return s.err
}

func TestPersistAppendsOnceUnderConcurrency(t *testing.T) {
	a := &slowAppender{}
	s := New(a)
	guard := &Guard{}

	var wg sync.WaitGroup
	outcomes := make([]Outcome, 10)
	for i := range outcomes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], _ = s.Persist(context.Background(), guard, record, urls)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), a.calls.Load())
	dispatched := 0
	for _, o := range outcomes {
		if o == OutcomeDispatched {
			dispatched++
		} else {
			assert.Equal(t, OutcomeSkipped, o)
		}
	}
	assert.Equal(t, 1, dispatched)
}

func TestPersistSecondCallIsNoop(t *testing.T) {
	a := &slowAppender{}
	s := New(a)
	guard := &Guard{}

	first, err := s.Persist(context.Background(), guard, record, urls)
	require.NoError(t, err)
	second, err := s.Persist(context.Background(), guard, record, urls)
	require.NoError(t, err)

	assert.Equal(t, OutcomeDispatched, first)
	assert.Equal(t, OutcomeSkipped, second)
	assert.Equal(t, int32(1), a.calls.Load())
}

func TestPersistFailureKeepsGuardUntilReleased(t *testing.T) {
	a := &slowAppender{err: errors.New("network unreachable")}
	s := New(a)
	guard := &Guard{}

	outcome, err := s.Persist(context.Background(), guard, record, urls)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, failures.ErrPersist)
	assert.True(t, guard.Attempted())

	outcome, _ = s.Persist(context.Background(), guard, record, urls)
	assert.Equal(t, OutcomeSkipped, outcome)

	guard.Release()
	a.err = nil
	outcome, err = s.Persist(context.Background(), guard, record, urls)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDispatched, outcome)
	assert.Equal(t, int32(2), a.calls.Load())
}

func TestWebhookIgnoresResponse(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"ok", http.StatusOK},
		{"redirect body", http.StatusFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Payload
			var posts atomic.Int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				posts.Add(1)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"status":"error"}`))
			}))
			defer server.Close()

			outcome, err := New(NewWebhookAppender(server.URL)).Persist(context.Background(), &Guard{}, record, urls)

			require.NoError(t, err)
			assert.Equal(t, OutcomeDispatched, outcome)
			assert.Equal(t, int32(1), posts.Load())
			assert.Equal(t, NewPayload(record, urls), got)
		})
	}
}

func TestWebhookTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	outcome, err := New(NewWebhookAppender(url)).Persist(context.Background(), &Guard{}, record, urls)

	assert.Equal(t, OutcomeFailed, outcome)
	assert.ErrorIs(t, err, failures.ErrPersist)
}

func TestPayloadJSON(t *testing.T) {
	b, err := json.Marshal(NewPayload(record, urls))
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"name":"Ann","jobTitle":"","company":"","email":"a@b.com","phone":"",
		"website":"","address":"","imageUrl1":"https://host/1.png","imageUrl2":"https://host/2.png"
	}`, string(b))
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "skipped", OutcomeSkipped.String())
	assert.Equal(t, "dispatched", OutcomeDispatched.String())
	assert.Equal(t, "failed", OutcomeFailed.String())
}
