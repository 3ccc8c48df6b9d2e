package jobcontext

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type KeyContext string

var (
	keySessionID KeyContext = "session_id"
	keyJobType   KeyContext = "job_type"
	keyEpoch     KeyContext = "epoch"
	keyStartTime KeyContext = "job_start_time"
)

// Job types carried by session jobs
const (
	JobTypeConnect = "connect"
	JobTypeMinutes = "minutes"
)

// JobMetadata holds metadata for a session job
type JobMetadata struct {
	SessionID uuid.UUID
	JobType   string
	Epoch     uint64
	StartTime time.Time
}

// JobBegin derives a bounded context for one session job and tags it with metadata
func JobBegin(parentCtx context.Context, sessionID uuid.UUID, jobType string, epoch uint64, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parentCtx, timeout)

	ctx = context.WithValue(ctx, keySessionID, sessionID)
	ctx = context.WithValue(ctx, keyJobType, jobType)
	ctx = context.WithValue(ctx, keyEpoch, epoch)
	ctx = context.WithValue(ctx, keyStartTime, time.Now())

	return ctx, cancel
}

// GetSessionID extracts session ID from context
func GetSessionID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(keySessionID).(uuid.UUID)
	return id, ok
}

// GetJobType extracts job type from context
func GetJobType(ctx context.Context) (string, bool) {
	jobType, ok := ctx.Value(keyJobType).(string)
	return jobType, ok
}

// GetEpoch extracts the session epoch from context
func GetEpoch(ctx context.Context) uint64 {
	epoch, _ := ctx.Value(keyEpoch).(uint64)
	return epoch
}

// GetJobStartTime extracts job start time from context
func GetJobStartTime(ctx context.Context) (time.Time, bool) {
	startTime, ok := ctx.Value(keyStartTime).(time.Time)
	return startTime, ok
}

// Elapsed returns the time since JobBegin, or zero when ctx carries no job
func Elapsed(ctx context.Context) time.Duration {
	start, ok := GetJobStartTime(ctx)
	if !ok {
		return 0
	}
	return time.Since(start)
}

// GetJobMetadata extracts all job metadata from context
func GetJobMetadata(ctx context.Context) *JobMetadata {
	sessionID, _ := GetSessionID(ctx)
	jobType, _ := GetJobType(ctx)
	startTime, _ := GetJobStartTime(ctx)

	return &JobMetadata{
		SessionID: sessionID,
		JobType:   jobType,
		Epoch:     GetEpoch(ctx),
		StartTime: startTime,
	}
}

// LogFields returns the job metadata as zap fields, or nil when ctx carries no job
func LogFields(ctx context.Context) []zap.Field {
	meta := GetJobMetadata(ctx)
	if meta.JobType == "" {
		return nil
	}
	return []zap.Field{
		zap.String("session_id", meta.SessionID.String()),
		zap.String("job_type", meta.JobType),
		zap.Uint64("epoch", meta.Epoch),
	}
}
