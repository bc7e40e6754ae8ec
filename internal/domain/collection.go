package domain

import (
	"encoding/json"
	"sort"
	"strconv"
)

// Collection holds sessions keyed by id. It is immutable: Put and Delete
// return a new collection. The zero value is an empty collection.
type Collection struct {
	byID map[string]Session
}

// NewCollection returns a collection holding the given sessions. Later
// sessions with a duplicate id replace earlier ones.
func NewCollection(sessions ...Session) Collection {
	c := Collection{byID: make(map[string]Session, len(sessions))}
	for _, s := range sessions {
		c.byID[s.ID] = s
	}
	return c
}

// Len returns the number of sessions.
func (c Collection) Len() int { return len(c.byID) }

// Get looks up a session by id.
func (c Collection) Get(id string) (Session, bool) {
	s, ok := c.byID[id]
	return s, ok
}

// Put returns a collection with s stored under its id, replacing any
// existing entry.
func (c Collection) Put(s Session) Collection {
	next := c.clone()
	next.byID[s.ID] = s
	return next
}

// Delete returns a collection without the session id.
func (c Collection) Delete(id string) Collection {
	next := c.clone()
	delete(next.byID, id)
	return next
}

// Sorted returns sessions ordered by timestamp, newest first. Sessions
// with equal timestamps are ordered by id, newest first.
func (c Collection) Sorted() []Session {
	out := c.list()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return idLess(b.ID, a.ID)
	})
	return out
}

// MarshalJSON encodes the collection as an array ordered by id.
func (c Collection) MarshalJSON() ([]byte, error) {
	out := c.list()
	sort.Slice(out, func(i, j int) bool { return idLess(out[i].ID, out[j].ID) })
	return json.Marshal(out)
}

// UnmarshalJSON decodes an array of sessions.
func (c *Collection) UnmarshalJSON(data []byte) error {
	var sessions []Session
	if err := json.Unmarshal(data, &sessions); err != nil {
		return err
	}
	*c = NewCollection(sessions...)
	return nil
}

func (c Collection) list() []Session {
	out := make([]Session, 0, len(c.byID))
	for _, s := range c.byID {
		out = append(out, s)
	}
	return out
}

func (c Collection) clone() Collection {
	next := Collection{byID: make(map[string]Session, len(c.byID)+1)}
	for id, s := range c.byID {
		next.byID[id] = s
	}
	return next
}

// idLess compares numeric ids numerically and falls back to string order.
func idLess(a, b string) bool {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return ai < bi
	}
	return a < b
}
