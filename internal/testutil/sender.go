package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type SentMessage struct {
	To   string
	Body string
	At   time.Time
}

// FakeSender records messages. Calls listed in FailOn (1-based) return ErrInjected.
type FakeSender struct {
	mu     sync.Mutex
	Sent   []SentMessage
	Calls  int
	FailOn map[int]bool
}

func (f *FakeSender) Send(_ context.Context, to, body string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.FailOn[f.Calls] {
		return "", ErrInjected
	}
	f.Sent = append(f.Sent, SentMessage{To: to, Body: body, At: time.Now()})
	return fmt.Sprintf("SM%04d", f.Calls), nil
}
