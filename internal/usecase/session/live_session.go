package session

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/johnquangdev/minutemaestro/internal/domain/ports"
)

// liveSession holds the resources of one connect attempt. The controller
// detaches it under its mutex before tearing it down, so pumps compare their
// liveSession with the controller's to drop late input.
type liveSession struct {
	id     uuid.UUID
	epoch  uint64
	offset int
	cancel context.CancelFunc

	// set under the controller mutex once capture has started
	stream ports.AudioStream
	client ports.StreamingClient
	err    error

	wg           sync.WaitGroup
	teardownOnce sync.Once
}

// teardown releases the microphone and the backend connection
func (s *liveSession) teardown() {
	s.teardownOnce.Do(func() {
		if s.stream != nil {
			_ = s.stream.Stop()
		}
		if s.client != nil {
			s.client.Disconnect()
		}
		s.cancel()
	})
}

func (c *Controller) pumpAudio(ls *liveSession, stream ports.AudioStream, client ports.StreamingClient) {
	defer ls.wg.Done()

	chunks := stream.Chunks()
	levels := stream.Levels()
	for {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				if err := stream.Err(); err != nil {
					c.handleFailure(ls, err)
				}
				return
			}
			if reason := c.dropReason(ls); reason != "" {
				c.metrics.RecordChunkDropped(reason)
				continue
			}
			client.SendAudio(chunk)
		case v := <-levels:
			c.setVolume(ls, v)
		}
	}
}

func (c *Controller) consumeEvents(ls *liveSession, client ports.StreamingClient) {
	defer ls.wg.Done()

	for ev := range client.Events() {
		switch ev.Type {
		case ports.StreamEventFragment:
			c.applyFragment(ls, ev)
		case ports.StreamEventError:
			c.handleFailure(ls, ev.Err)
		}
	}
}
