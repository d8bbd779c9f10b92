package chat

import (
	"context"

	"github.com/guidebot/guidebot/session"
)

// Fragment is one incremental piece of generated text delivered to the
// client before the full response is complete. A generator reports a
// mid-stream failure as a final fragment with Err set, then closes the
// channel.
type Fragment struct {
	Text string
	Err  error
}

// Generator produces a lazy sequence of response fragments for one user
// input. Implementations must close the returned channel when the sequence
// is exhausted and must stop producing promptly when ctx is cancelled; the
// bounded channel provides backpressure so a gone consumer does not leak the
// generation task.
//
// The generator derives everything it needs from the request-scoped record
// (history, context), fetched fresh from the store for every request. There
// is no per-session generator state held in process.
type Generator interface {
	Generate(ctx context.Context, userInput string, record *session.Record) (<-chan Fragment, error)
}

// fragmentBuffer bounds the producer/consumer channel between the generator
// and the streaming handler.
const fragmentBuffer = 16
