package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/validator.v2"

	"github.com/sap/cloudfoundry-client-go/cloudfoundry"
)

// JobState is the state of an asynchronous operation.
type JobState string

const (
	JobStateProcessing JobState = "PROCESSING"
	JobStatePolling    JobState = "POLLING"
	JobStateComplete   JobState = "COMPLETE"
	JobStateFailed     JobState = "FAILED"

	// DefaultPollInterval is used by WaitForCompletion when no interval is given.
	DefaultPollInterval = 2 * time.Second

	errInvalidRequest = "invalid GetJobRequest"
	errWaitForJob     = "cannot wait for job %s"
)

// Warning is a non fatal message of a job.
type Warning struct {
	Detail string `json:"detail"`
}

// Job is an asynchronous operation.
type Job struct {
	cloudfoundry.Resource
	Operation string               `json:"operation"`
	State     JobState             `json:"state"`
	Errors    []cloudfoundry.Error `json:"errors,omitempty"`
	Warnings  []Warning            `json:"warnings,omitempty"`
}

// GetJobRequest identifies a job.
type GetJobRequest struct {
	JobID string `validate:"nonzero"`
}

// JobFailedError is returned by WaitForCompletion for jobs that ended in state FAILED.
type JobFailedError struct {
	Job *Job
}

func (e *JobFailedError) Error() string {
	if len(e.Job.Errors) == 0 {
		return fmt.Sprintf("job %s (%s) failed", e.Job.GUID, e.Job.Operation)
	}
	return fmt.Sprintf("job %s (%s) failed: %s", e.Job.GUID, e.Job.Operation, e.Job.Errors[0].String())
}

// Client reads jobs.
type Client struct {
	operations *cloudfoundry.Operations
}

// NewClient creates a Client on top of operations.
func NewClient(operations *cloudfoundry.Operations) *Client {
	return &Client{operations: operations}
}

// Get reads a job.
func (c *Client) Get(ctx context.Context, request GetJobRequest) (*Job, error) {
	if err := validator.Validate(request); err != nil {
		return nil, errors.Wrap(err, errInvalidRequest)
	}
	out := &Job{}
	if err := c.operations.Get(ctx, request, out, func(b *cloudfoundry.URIBuilder) {
		b.PathSegment("jobs", request.JobID)
	}); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// WaitForCompletion polls the job every interval until it is COMPLETE or FAILED, or ctx is done.
// An empty jobID means there is nothing to wait for.
func (c *Client) WaitForCompletion(ctx context.Context, jobID string, interval time.Duration) (*Job, error) {
	if jobID == "" {
		return nil, nil
	}
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		job, err := c.Get(ctx, GetJobRequest{JobID: jobID})
		if err != nil {
			return nil, errors.Wrapf(err, errWaitForJob, jobID)
		}
		switch job.State {
		case JobStateComplete:
			return job, nil
		case JobStateFailed:
			return job, &JobFailedError{Job: job}
		}

		select {
		case <-ctx.Done():
			return job, errors.Wrapf(ctx.Err(), errWaitForJob, jobID)
		case <-ticker.C:
		}
	}
}
