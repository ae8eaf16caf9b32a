package card

import (
	"context"
	"encoding/json"
	"fmt"
)

const (
	JSONStatusSuccess   = "success"
	JSONStatusTruncated = "truncated"

	jsonTail = "]}"
)

// JSONCard is the wire form of a card inside the list document.
type JSONCard struct {
	ID        uint32 `json:"id"`
	Name      string `json:"name"`
	Active    bool   `json:"active"`
	Timestamp uint32 `json:"timestamp"`
}

// ToJSON renders {status, count, cards:[...]} into buf and returns the number of bytes
// written. When not every card fits, the array is closed early, status is "truncated"
// and the error wraps ErrInsufficientCapacity; buf[:n] is still a valid document.
// count is always the number of stored cards, so a truncated document has fewer
// entries in cards than count says.
func (s *Store) ToJSON(ctx context.Context, buf []byte) (int, error) {
	unlock, err := s.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	h, err := s.readHeader()
	if err != nil {
		return 0, err
	}
	cards, err := s.readCards(h, false)
	if err != nil {
		return 0, err
	}

	return RenderJSON(buf, cards)
}

// RenderJSON writes the list document for cards into buf.
func RenderJSON(buf []byte, cards []Card) (int, error) {
	items := make([][]byte, len(cards))
	body := 0
	for i, c := range cards {
		item, err := json.Marshal(JSONCard{ID: c.ID, Name: c.Name, Active: c.Active, Timestamp: c.LastSeen})
		if err != nil {
			return 0, fmt.Errorf("marshal card %d: %w", c.ID, err)
		}
		items[i] = item
		body += len(item)
	}
	if len(items) > 1 {
		body += len(items) - 1
	}

	head := jsonHead(JSONStatusSuccess, len(cards))
	if len(head)+body+len(jsonTail) <= len(buf) {
		n := copy(buf, head)
		for i, item := range items {
			if i > 0 {
				buf[n] = ','
				n++
			}
			n += copy(buf[n:], item)
		}
		n += copy(buf[n:], jsonTail)
		return n, nil
	}

	head = jsonHead(JSONStatusTruncated, len(cards))
	if len(head)+len(jsonTail) > len(buf) {
		return 0, fmt.Errorf("%w: need at least %d bytes, have %d",
			ErrInsufficientCapacity, len(head)+len(jsonTail), len(buf))
	}

	n := copy(buf, head)
	written := 0
	for i, item := range items {
		need := len(item) + len(jsonTail)
		if i > 0 {
			need++
		}
		if n+need > len(buf) {
			break
		}
		if i > 0 {
			buf[n] = ','
			n++
		}
		n += copy(buf[n:], item)
		written++
	}
	n += copy(buf[n:], jsonTail)

	return n, fmt.Errorf("%w: rendered %d of %d cards", ErrInsufficientCapacity, written, len(cards))
}

func jsonHead(status string, count int) string {
	return fmt.Sprintf(`{"status":%q,"count":%d,"cards":[`, status, count)
}
