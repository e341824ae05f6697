// Package stream fans a turn's Steps out to live subscribers (a voice/UI
// frontend beyond the single runMachine caller), grounded on
// runtime/agent/stream + features/stream/pulse (SPEC_FULL.md §C.2).
package stream

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/chartrun/machine/instance"
)

// Sink publishes a Step for a given session to whatever transport backs it.
// Implementations must be safe for concurrent use: a machine loop may
// publish from one goroutine while another turn is mid-flight on another
// session.
type Sink interface {
	Publish(ctx context.Context, sessionID string, step instance.Step) error
	Close(ctx context.Context) error
}

// wireStep is the JSON-serializable projection of a Step published to
// subscribers. It carries the instance id rather than the full tree: a
// subscriber that needs the live tree reads it back through the client
// projection (package client) keyed by instance id.
type wireStep struct {
	InstanceID  string `json:"instanceId,omitempty"`
	YieldReason string `json:"yieldReason"`
	Response    string `json:"response,omitempty"`
	Done        bool   `json:"done"`
}

func toWireStep(step instance.Step) wireStep {
	ws := wireStep{YieldReason: string(step.YieldReason), Response: step.Response, Done: step.Done}
	if step.Instance != nil {
		ws.InstanceID = step.Instance.ID
	}
	return ws
}

// RedisSink publishes steps to a Redis pub/sub channel named by session id,
// grounded on the teacher's `redis/go-redis` usage for stream/pulse fan-out.
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink returns a Sink that publishes to channels named
// "<prefix><sessionID>". prefix defaults to "machine:steps:".
func NewRedisSink(client *redis.Client, prefix string) *RedisSink {
	if prefix == "" {
		prefix = "machine:steps:"
	}
	return &RedisSink{client: client, prefix: prefix}
}

func (s *RedisSink) channel(sessionID string) string {
	return s.prefix + sessionID
}

func (s *RedisSink) Publish(ctx context.Context, sessionID string, step instance.Step) error {
	payload, err := json.Marshal(toWireStep(step))
	if err != nil {
		return fmt.Errorf("stream: marshal step: %w", err)
	}
	return s.client.Publish(ctx, s.channel(sessionID), payload).Err()
}

func (s *RedisSink) Close(ctx context.Context) error {
	return s.client.Close()
}

// Subscribe returns a channel of raw JSON step payloads published for
// sessionID. The returned unsubscribe function must be called once the
// caller is done consuming.
func (s *RedisSink) Subscribe(ctx context.Context, sessionID string) (<-chan []byte, func() error) {
	sub := s.client.Subscribe(ctx, s.channel(sessionID))
	out := make(chan []byte)
	go func() {
		defer close(out)
		ch := sub.Channel()
		for msg := range ch {
			select {
			case out <- []byte(msg.Payload):
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, func() error { return sub.Close() }
}

// InProcessSink fans steps out to subscribers registered in the same
// process, used by tests and the cmd/machinectl demo where a full Redis
// deployment would be overkill.
type InProcessSink struct {
	subs map[string][]chan instance.Step
}

// NewInProcessSink returns an empty in-process fan-out sink.
func NewInProcessSink() *InProcessSink {
	return &InProcessSink{subs: map[string][]chan instance.Step{}}
}

func (s *InProcessSink) Publish(_ context.Context, sessionID string, step instance.Step) error {
	for _, ch := range s.subs[sessionID] {
		select {
		case ch <- step:
		default:
		}
	}
	return nil
}

func (s *InProcessSink) Close(context.Context) error {
	for _, chans := range s.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	s.subs = map[string][]chan instance.Step{}
	return nil
}

// Subscribe registers a buffered channel of Steps for sessionID.
func (s *InProcessSink) Subscribe(sessionID string) <-chan instance.Step {
	ch := make(chan instance.Step, 16)
	s.subs[sessionID] = append(s.subs[sessionID], ch)
	return ch
}
