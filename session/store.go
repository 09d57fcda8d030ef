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

package session

import (
	"context"
	"encoding/json"
	"log"
	"time"

	. "github.com/Comcast/banter/util/testutil"

	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("sessions")

// Store persists session snapshots in a bolt database: one bucket,
// keyed by session id, JSON values.
type Store struct {
	Debug    bool
	filename string
	db       *bolt.DB
}

// NewStore makes a Store for the given database filename.  Call Open
// before use.
func NewStore(filename string) *Store {
	return &Store{
		filename: filename,
	}
}

// Open opens (creating if necessary) the database.
func (s *Store) Open(ctx context.Context) error {
	opts := &bolt.Options{
		Timeout: time.Second,
	}
	db, err := bolt.Open(s.filename, 0644, opts)
	if err != nil {
		return err
	}
	s.db = db
	return nil
}

// Close closes the database.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) logf(format string, args ...interface{}) {
	if s == nil {
		return
	}
	if s.Debug {
		log.Printf("session.Store "+format, args...)
	}
}

// Save writes a session's snapshot.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if s == nil {
		return nil
	}
	snap := sess.Snapshot()
	js, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.logf("Save %s %s", snap.ID, JS(snap))
	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketName)
		if err != nil {
			return err
		}
		return b.Put([]byte(snap.ID), js)
	})
}

// Load reads a session by id.  A missing session returns (nil, nil).
func (s *Store) Load(ctx context.Context, id string) (*Session, error) {
	if s == nil {
		return nil, nil
	}
	var snap *Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		js := b.Get([]byte(id))
		if js == nil {
			return nil
		}
		snap = &Snapshot{}
		return json.Unmarshal(js, snap)
	})
	if err != nil {
		return nil, err
	}
	if snap == nil {
		s.logf("Load %s: not found", id)
		return nil, nil
	}
	snap.ID = id
	s.logf("Load %s", id)
	return Restore(snap), nil
}

// Remove deletes a session by id.
func (s *Store) Remove(ctx context.Context, id string) error {
	if s == nil {
		return nil
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(id))
	})
}

// IDs lists the stored session ids.
func (s *Store) IDs(ctx context.Context) ([]string, error) {
	if s == nil {
		return nil, nil
	}
	var acc []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketName)
		if b == nil {
			return nil
		}
		c := b.Cursor()
		for id, _ := c.First(); id != nil; id, _ = c.Next() {
			acc = append(acc, string(id))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc, nil
}
