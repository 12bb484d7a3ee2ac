/**
 * Copyright 2025 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package feedback

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/cloudwego/vizcoder/llm/log"
)

// DefaultSubjectPrefix prefixes every subject of the bridge.
const DefaultSubjectPrefix = "vizcoder"

// drainTimeout bounds how long Run waits for subscriptions to drain.
const drainTimeout = 5 * time.Second

// Subjects used by the bridge, relative to the prefix.
const (
	SubjectTurn         = "turn"
	SubjectRuntimeError = "runtime.error"
	SubjectComponent    = "component"
)

// TurnEvent asks for a new turn.
type TurnEvent struct {
	FileURL   string `json:"fileUrl"`
	UserQuery string `json:"userQuery"`
}

// RuntimeErrorEvent reports an uncaught error of a rendered component.
type RuntimeErrorEvent struct {
	TurnID       string `json:"turnId"`
	ErrorMessage string `json:"errorMessage"`
}

// Connect dials a NATS server that keeps reconnecting for the lifetime of
// the process.
func Connect(url string) (*nats.Conn, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("vizcoder-feedback"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", url)
	}
	return nc, nil
}

// Publisher is the part of a NATS connection the bridge publishes with.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Bridge connects a Loop to a rendering host over NATS. The host publishes
// turns and runtime errors; the bridge answers with components.
type Bridge struct {
	nc     *nats.Conn
	pub    Publisher
	prefix string
	loop   *Loop

	// mu orders dispatch against shutdown: no handler is added once
	// closing is set.
	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup
}

// NewBridge returns a bridge over nc. An empty prefix means
// DefaultSubjectPrefix.
func NewBridge(nc *nats.Conn, prefix string, loop *Loop) *Bridge {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	b := &Bridge{nc: nc, prefix: prefix, loop: loop}
	if nc != nil {
		b.pub = nc
	}
	return b
}

// Subject returns the full subject name for name.
func (b *Bridge) Subject(name string) string {
	return b.prefix + "." + name
}

// Run subscribes and serves until ctx is done, then drains the
// subscriptions, waits for the drain to finish and for handlers in flight.
func (b *Bridge) Run(ctx context.Context) error {
	if b.nc == nil {
		return errors.New("bridge has no connection")
	}
	var subs []*nats.Subscription
	for _, name := range []string{SubjectTurn, SubjectRuntimeError} {
		subject := b.Subject(name)
		sub, err := b.nc.Subscribe(subject, func(msg *nats.Msg) {
			b.dispatch(ctx, msg.Subject, msg.Data)
		})
		if err != nil {
			for _, s := range subs {
				_ = s.Unsubscribe()
			}
			return errors.Wrapf(err, "subscribe %s", subject)
		}
		subs = append(subs, sub)
	}
	log.Info("feedback: bridge listening on %s.{%s,%s}", b.prefix, SubjectTurn, SubjectRuntimeError)

	<-ctx.Done()
	for _, s := range subs {
		if err := s.Drain(); err != nil {
			log.Error("feedback: drain %s: %v", s.Subject, err)
		}
	}
	waitDrained(subs, drainTimeout)
	b.shutdown()
	return nil
}

// waitDrained polls until every subscription has delivered its pending
// messages and closed, or timeout passes.
func waitDrained(subs []*nats.Subscription, timeout time.Duration) {
	deadline := time.Now().Add(timeout)
	for _, s := range subs {
		for s.IsValid() {
			if time.Now().After(deadline) {
				log.Error("feedback: %s still draining after %s", s.Subject, timeout)
				return
			}
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// shutdown stops accepting messages, closes the loop and waits for the
// handlers already started.
func (b *Bridge) shutdown() {
	b.mu.Lock()
	b.closing = true
	b.mu.Unlock()
	b.loop.Close()
	b.wg.Wait()
}

// dispatch handles one message off the subscriber goroutine, so a runtime
// error arriving during a regeneration reaches the loop and is ignored
// there instead of queueing behind it.
func (b *Bridge) dispatch(ctx context.Context, subject string, data []byte) {
	b.mu.Lock()
	if b.closing {
		b.mu.Unlock()
		log.Debug("feedback: bridge closing, dropped message on %s", subject)
		return
	}
	b.wg.Add(1)
	b.mu.Unlock()
	go func() {
		defer b.wg.Done()
		resp, ok := b.Handle(ctx, subject, data)
		if !ok {
			return
		}
		if err := b.publish(resp); err != nil {
			log.Error("feedback: publish %s: %v", b.Subject(SubjectComponent), err)
		}
	}()
}

// Handle feeds one message to the loop. It reports false when there is
// nothing to publish.
func (b *Bridge) Handle(ctx context.Context, subject string, data []byte) (Response, bool) {
	switch subject {
	case b.Subject(SubjectTurn):
		var ev TurnEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.FileURL == "" || ev.UserQuery == "" {
			log.Error("feedback: malformed turn event: %s", data)
			return Response{}, false
		}
		return b.loop.Start(ctx, ev.FileURL, ev.UserQuery), true
	case b.Subject(SubjectRuntimeError):
		var ev RuntimeErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.ErrorMessage == "" {
			log.Error("feedback: malformed runtime error event: %s", data)
			return Response{}, false
		}
		resp := b.loop.ReportRuntimeError(ctx, ev.TurnID, ev.ErrorMessage)
		switch resp.Outcome {
		case OutcomeIgnored, OutcomeStale:
			return resp, false
		}
		return resp, true
	}
	return Response{}, false
}

func (b *Bridge) publish(resp Response) error {
	if b.pub == nil {
		return errors.New("bridge has no publisher")
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return b.pub.Publish(b.Subject(SubjectComponent), data)
}
