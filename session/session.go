/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package session holds per-conversation state: the predicate table
// and the bounded input/output history, plus a bbolt-backed snapshot
// store for keeping sessions across process restarts.
package session

import (
	"strings"
	"sync"
)

// TopicPredicate is the reserved predicate that holds the conversation
// topic.
const TopicPredicate = "topic"

// DefaultHistoryCapacity bounds the input and output histories when no
// other capacity is configured.
const DefaultHistoryCapacity = 10

// A Session is one conversation's state.
//
// Predicate names are case-insensitive.  Histories are bounded: when a
// history is full, recording a turn evicts the oldest entry.
//
// A Session has its own lock, so a handler can share one across
// goroutines, but a single conversation's turns are expected to arrive
// sequentially.
type Session struct {
	sync.Mutex

	// ID identifies the conversation.
	ID string

	preds    map[string]string
	inputs   []string
	outputs  []string
	capacity int
}

// New makes an empty Session with the given history capacity.  A
// non-positive capacity means DefaultHistoryCapacity.
func New(id string, capacity int) *Session {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &Session{
		ID:       id,
		preds:    make(map[string]string),
		capacity: capacity,
	}
}

// Get returns a predicate's value.  Unset predicates return "" and
// false; the engine substitutes its configured default.
func (s *Session) Get(name string) (string, bool) {
	s.Lock()
	defer s.Unlock()
	v, have := s.preds[strings.ToLower(name)]
	return v, have
}

// Set stores a predicate.
func (s *Session) Set(name, value string) {
	s.Lock()
	defer s.Unlock()
	s.preds[strings.ToLower(name)] = value
}

// Topic returns the current conversation topic (the reserved predicate
// "topic"), or "" when none is set.
func (s *Session) Topic() string {
	v, _ := s.Get(TopicPredicate)
	return v
}

// RecordInput appends a user input to the history.  The engine records
// the input before matching, so the current input is Input(1) during
// template evaluation.
func (s *Session) RecordInput(text string) {
	s.Lock()
	defer s.Unlock()
	s.inputs = appendBounded(s.inputs, text, s.capacity)
}

// RecordOutput appends a bot response to the history at turn
// completion.
func (s *Session) RecordOutput(text string) {
	s.Lock()
	defer s.Unlock()
	s.outputs = appendBounded(s.outputs, text, s.capacity)
}

// Input returns the index-th most recent user input, 1-based.
func (s *Session) Input(index int) (string, bool) {
	s.Lock()
	defer s.Unlock()
	return fromEnd(s.inputs, index)
}

// Output returns the index-th most recent bot response, 1-based.
// Output(1) is "that": the response the user is replying to.
func (s *Session) Output(index int) (string, bool) {
	s.Lock()
	defer s.Unlock()
	return fromEnd(s.outputs, index)
}

// Inputs returns the input history, oldest first.
func (s *Session) Inputs() []string {
	s.Lock()
	defer s.Unlock()
	return append([]string(nil), s.inputs...)
}

// Outputs returns the output history, oldest first.
func (s *Session) Outputs() []string {
	s.Lock()
	defer s.Unlock()
	return append([]string(nil), s.outputs...)
}

func appendBounded(h []string, text string, capacity int) []string {
	h = append(h, text)
	if capacity < len(h) {
		h = h[len(h)-capacity:]
	}
	return h
}

func fromEnd(h []string, index int) (string, bool) {
	if index < 1 || len(h) < index {
		return "", false
	}
	return h[len(h)-index], true
}

// A Snapshot is a Session's serializable state.
type Snapshot struct {
	ID         string            `json:"id"`
	Predicates map[string]string `json:"predicates,omitempty"`
	Inputs     []string          `json:"inputs,omitempty"`
	Outputs    []string          `json:"outputs,omitempty"`
	Capacity   int               `json:"capacity,omitempty"`
}

// Snapshot captures the session for persistence.
func (s *Session) Snapshot() *Snapshot {
	s.Lock()
	defer s.Unlock()
	preds := make(map[string]string, len(s.preds))
	for k, v := range s.preds {
		preds[k] = v
	}
	return &Snapshot{
		ID:         s.ID,
		Predicates: preds,
		Inputs:     append([]string(nil), s.inputs...),
		Outputs:    append([]string(nil), s.outputs...),
		Capacity:   s.capacity,
	}
}

// Restore makes a Session from a Snapshot.
func Restore(snap *Snapshot) *Session {
	s := New(snap.ID, snap.Capacity)
	for k, v := range snap.Predicates {
		s.preds[strings.ToLower(k)] = v
	}
	s.inputs = append([]string(nil), snap.Inputs...)
	s.outputs = append([]string(nil), snap.Outputs...)
	return s
}
