package jobs

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sap/cloudfoundry-client-go/cloudfoundry"
	"github.com/sap/cloudfoundry-client-go/internal/testutils"
)

const jobID = "af5c57f6-8769-41fa-a499-2c84ed896788"

func jobJSON(state JobState, m ...func(map[string]any)) map[string]any {
	j := map[string]any{
		"guid":       jobID,
		"created_at": "2024-01-01T00:00:00Z",
		"updated_at": "2024-01-01T00:00:05Z",
		"operation":  "service_bindings.create",
		"state":      string(state),
		"errors":     []any{},
		"warnings":   []any{},
	}
	for _, f := range m {
		f(j)
	}
	return j
}

func withErrors(j map[string]any) {
	j["errors"] = []any{map[string]any{"code": 10009, "title": "CF-UnableToPerform", "detail": "bind failed"}}
}

// sequence answers with the given states in order and repeats the last one.
func sequence(states ...JobState) (http.HandlerFunc, *int32) {
	var calls int32
	return func(w http.ResponseWriter, r *http.Request) {
		n := int(atomic.AddInt32(&calls, 1)) - 1
		if n >= len(states) {
			n = len(states) - 1
		}
		j := jobJSON(states[n])
		if states[n] == JobStateFailed {
			withErrors(j)
		}
		testutils.WriteJSON(w, http.StatusOK, j)
	}, &calls
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	fake := testutils.NewFakeCloudControllerBuilder().AddRoute(http.MethodGet, "/jobs/"+jobID, handler).Build(t)
	connection, err := cloudfoundry.NewConnectionContext(fake.URL())
	require.NoError(t, err)
	return NewClient(cloudfoundry.NewOperations(connection, cloudfoundry.StaticTokenProvider("token"), nil))
}

func TestGet(t *testing.T) {
	client := newTestClient(t, testutils.JSONResponse(http.StatusOK, jobJSON(JobStateProcessing)))

	job, err := client.Get(context.Background(), GetJobRequest{JobID: jobID})
	require.NoError(t, err)
	assert.Equal(t, jobID, job.GUID)
	assert.Equal(t, JobStateProcessing, job.State)
	assert.Equal(t, "service_bindings.create", job.Operation)

	_, err = client.Get(context.Background(), GetJobRequest{})
	assert.ErrorContains(t, err, errInvalidRequest)
}

func TestWaitForCompletion(t *testing.T) {
	cases := map[string]struct {
		reason    string
		states    []JobState
		wantState JobState
		wantCalls int32
		wantErr   bool
	}{
		"Complete": {
			reason:    "Polling stops once the job completed",
			states:    []JobState{JobStateProcessing, JobStatePolling, JobStateComplete},
			wantState: JobStateComplete,
			wantCalls: 3,
		},
		"Failed": {
			reason:    "A failed job is returned together with a JobFailedError",
			states:    []JobState{JobStateProcessing, JobStateFailed},
			wantState: JobStateFailed,
			wantCalls: 2,
			wantErr:   true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			handler, calls := sequence(tc.states...)
			client := newTestClient(t, handler)

			job, err := client.WaitForCompletion(context.Background(), jobID, time.Millisecond)
			require.NotNil(t, job, tc.reason)
			assert.Equal(t, tc.wantState, job.State, tc.reason)
			assert.Equal(t, tc.wantCalls, atomic.LoadInt32(calls), tc.reason)
			if !tc.wantErr {
				assert.NoError(t, err, tc.reason)
				return
			}
			var failed *JobFailedError
			require.True(t, errors.As(err, &failed), tc.reason)
			assert.Equal(t, "job "+jobID+" (service_bindings.create) failed: CF-UnableToPerform(10009): bind failed", failed.Error())
		})
	}
}

func TestWaitForCompletionNoJob(t *testing.T) {
	job, err := NewClient(nil).WaitForCompletion(context.Background(), "", time.Millisecond)
	assert.NoError(t, err)
	assert.Nil(t, job)
}

func TestWaitForCompletionContextDone(t *testing.T) {
	handler, _ := sequence(JobStateProcessing)
	client := newTestClient(t, handler)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	job, err := client.WaitForCompletion(ctx, jobID, 10*time.Millisecond)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	if job != nil {
		assert.Equal(t, JobStateProcessing, job.State)
	}
}
