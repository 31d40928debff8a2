// Package chat stores trainer/trainee conversations and tracks read state with explicit
// per-conversation read markers.
package chat

import (
	"sort"
	"strings"
	"time"
)

// Conversation groups a fixed set of participants.
type Conversation struct {
	ID           string    `json:"id"`
	Participants []string  `json:"participants"`
	CreatedAt    time.Time `json:"created_at"`
}

// Message is a single chat line.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Body           string    `json:"body"`
	SentAt         time.Time `json:"sent_at"`
}

// ReadMarker records the instant up to which a user has read a conversation.
type ReadMarker struct {
	ConversationID string    `json:"conversation_id"`
	UserID         string    `json:"user_id"`
	ReadAt         time.Time `json:"read_at"`
}

// UnreadCounts returns, per conversation, how many messages the viewer has not read yet.
// A message is unread when someone else sent it strictly after the viewer's marker for that
// conversation. Conversations without a marker count every foreign message. Conversations with
// nothing unread are omitted.
func UnreadCounts(viewer string, messages []Message, markers []ReadMarker) map[string]int {
	readAt := make(map[string]time.Time, len(markers))
	for _, m := range markers {
		if m.UserID != viewer {
			continue
		}
		if prev, ok := readAt[m.ConversationID]; !ok || m.ReadAt.After(prev) {
			readAt[m.ConversationID] = m.ReadAt
		}
	}

	counts := make(map[string]int)
	for _, msg := range messages {
		if msg.SenderID == viewer {
			continue
		}
		if at, ok := readAt[msg.ConversationID]; ok && !msg.SentAt.After(at) {
			continue
		}
		counts[msg.ConversationID]++
	}
	return counts
}

// TotalUnread sums the per-conversation counts.
func TotalUnread(counts map[string]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}

// normalizeParticipants trims, dedupes and sorts participant IDs.
func normalizeParticipants(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
