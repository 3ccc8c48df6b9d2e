package jobcontext

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJobBeginCarriesMetadata(t *testing.T) {
	t.Parallel()

	id := uuid.New()
	ctx, cancel := JobBegin(context.Background(), id, JobTypeMinutes, 7, time.Minute)
	defer cancel()

	meta := GetJobMetadata(ctx)
	if meta.SessionID != id {
		t.Fatalf("expected session id %s, got %s", id, meta.SessionID)
	}
	if meta.JobType != JobTypeMinutes {
		t.Fatalf("expected job type %q, got %q", JobTypeMinutes, meta.JobType)
	}
	if meta.Epoch != 7 {
		t.Fatalf("expected epoch 7, got %d", meta.Epoch)
	}
	if meta.StartTime.IsZero() {
		t.Fatalf("expected start time to be set")
	}
	if _, ok := ctx.Deadline(); !ok {
		t.Fatalf("expected a deadline")
	}
}

func TestJobBeginTimesOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := JobBegin(context.Background(), uuid.New(), JobTypeConnect, 1, 10*time.Millisecond)
	defer cancel()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatalf("expected job context to expire")
	}
	if !errors.Is(ctx.Err(), context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", ctx.Err())
	}
}

func TestGettersOnPlainContext(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, ok := GetSessionID(ctx); ok {
		t.Fatalf("expected no session id")
	}
	if Elapsed(ctx) != 0 {
		t.Fatalf("expected zero elapsed")
	}
	if GetEpoch(ctx) != 0 {
		t.Fatalf("expected zero epoch")
	}
}

func TestLogFields(t *testing.T) {
	t.Parallel()

	if fields := LogFields(context.Background()); fields != nil {
		t.Fatalf("expected no fields for a plain context, got %v", fields)
	}

	id := uuid.New()
	ctx, cancel := JobBegin(context.Background(), id, JobTypeConnect, 3, time.Minute)
	defer cancel()

	got := map[string]string{}
	for _, f := range LogFields(ctx) {
		if f.String != "" {
			got[f.Key] = f.String
		} else {
			got[f.Key] = strconv.FormatInt(f.Integer, 10)
		}
	}
	if got["session_id"] != id.String() || got["job_type"] != JobTypeConnect || got["epoch"] != "3" {
		t.Fatalf("unexpected fields %v", got)
	}
}
