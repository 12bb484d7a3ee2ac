// Copyright 2025 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package server

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cloudwego/vizcoder/lang/feedback"
	"github.com/cloudwego/vizcoder/llm/log"
)

// session is one rendering host: a runtime loop and its last activity.
type session struct {
	id       string
	loop     *feedback.Loop
	lastSeen time.Time
}

// sessionStore holds the sessions of live hosts. Only the current turn of
// each session is kept.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	newLoop  func() *feedback.Loop
	sessions map[string]*session
	now      func() time.Time
}

func newSessionStore(ttl time.Duration, newLoop func() *feedback.Loop) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		newLoop:  newLoop,
		sessions: make(map[string]*session),
		now:      time.Now,
	}
}

func (st *sessionStore) create() *session {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := &session{id: uuid.NewString(), loop: st.newLoop(), lastSeen: st.now()}
	st.sessions[s.id] = s
	return s
}

// get returns the session and marks it active.
func (st *sessionStore) get(id string) (*session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if ok {
		s.lastSeen = st.now()
	}
	return s, ok
}

func (st *sessionStore) remove(id string) bool {
	st.mu.Lock()
	s, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()
	if ok {
		s.loop.Close()
	}
	return ok
}

// sweep drops sessions idle for longer than the ttl.
func (st *sessionStore) sweep() int {
	st.mu.Lock()
	cutoff := st.now().Add(-st.ttl)
	var expired []*session
	for id, s := range st.sessions {
		if s.lastSeen.Before(cutoff) {
			expired = append(expired, s)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()
	for _, s := range expired {
		s.loop.Close()
	}
	return len(expired)
}

func (st *sessionStore) run(ctx context.Context) {
	interval := st.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := st.sweep(); n > 0 {
				log.Debug("expired %d idle sessions", n)
			}
		}
	}
}

func (st *sessionStore) closeAll() {
	st.mu.Lock()
	all := st.sessions
	st.sessions = make(map[string]*session)
	st.mu.Unlock()
	for _, s := range all {
		s.loop.Close()
	}
}
