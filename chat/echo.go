package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/guidebot/guidebot/session"
)

// EchoGenerator streams a canned reply word by word. It stands in for the
// real model in local development and tests when no API key is configured.
type EchoGenerator struct{}

func (EchoGenerator) Generate(ctx context.Context, userInput string, record *session.Record) (<-chan Fragment, error) {
	reply := fmt.Sprintf("You said: %q. This is turn %d of the conversation.",
		userInput, len(record.History)+1)

	out := make(chan Fragment, fragmentBuffer)
	go func() {
		defer close(out)
		for i, word := range strings.Fields(reply) {
			text := word
			if i > 0 {
				text = " " + word
			}
			select {
			case <-ctx.Done():
				return
			case out <- Fragment{Text: text}:
			}
		}
	}()
	return out, nil
}
