package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

var (
	// ErrInvalidMessage is returned when a chat request fails validation.
	ErrInvalidMessage = errors.New("invalid chat request")
	// ErrNotParticipant is returned when a user acts on a conversation they are not part of.
	ErrNotParticipant = errors.New("not a conversation participant")
	// ErrConversationNotFound is returned for unknown conversation IDs.
	ErrConversationNotFound = errors.New("conversation not found")
)

const (
	maxBodyLength       = 4000
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

var conversationNamespace = uuid.MustParse("6f1c7e8a-3b0d-5a7e-9a44-2f7c1d0e9b31")

// Repository persists conversations, messages and read markers.
type Repository interface {
	CreateConversation(ctx context.Context, tenantID string, conversation Conversation) error
	Participants(ctx context.Context, tenantID, conversationID string) ([]string, error)
	AppendMessage(ctx context.Context, tenantID string, message Message) error
	History(ctx context.Context, tenantID, conversationID string, limit int) ([]Message, error)
	// SaveReadMarker moves the marker forward and returns the stored one.
	SaveReadMarker(ctx context.Context, tenantID string, marker ReadMarker) (ReadMarker, error)
	ReadMarkers(ctx context.Context, tenantID, userID string) ([]ReadMarker, error)
	// InboxMessages returns messages of every conversation the user participates in that were
	// sent by someone else after the user's read marker.
	InboxMessages(ctx context.Context, tenantID, userID string) ([]Message, error)
}

// Service implements the chat workflows.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service. A nil clock defaults to UTC wall time.
func NewService(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{repo: repo, now: now}
}

// ConversationID derives the stable conversation ID for a set of participants.
func ConversationID(tenantID string, participants []string) string {
	key := tenantID + "|" + strings.Join(normalizeParticipants(participants), ",")
	return uuid.NewSHA1(conversationNamespace, []byte(key)).String()
}

// Open returns the conversation between the given users, creating it when needed.
func (s *Service) Open(ctx context.Context, tenantID string, participants []string) (*Conversation, error) {
	members := normalizeParticipants(participants)
	if len(members) < 2 {
		return nil, fmt.Errorf("%w: a conversation needs at least two participants", ErrInvalidMessage)
	}
	conversation := Conversation{
		ID:           ConversationID(tenantID, members),
		Participants: members,
		CreatedAt:    s.now(),
	}
	if err := s.repo.CreateConversation(ctx, tenantID, conversation); err != nil {
		return nil, err
	}
	return &conversation, nil
}

// Send appends a message. The sender's own read marker moves to the message time.
func (s *Service) Send(ctx context.Context, tenantID, conversationID, senderID, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, fmt.Errorf("%w: body is required", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(body) > maxBodyLength {
		return nil, fmt.Errorf("%w: body exceeds %d characters", ErrInvalidMessage, maxBodyLength)
	}
	if err := s.ensureParticipant(ctx, tenantID, conversationID, senderID); err != nil {
		return nil, err
	}

	message := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		SentAt:         s.now(),
	}
	if err := s.repo.AppendMessage(ctx, tenantID, message); err != nil {
		return nil, err
	}
	if _, err := s.repo.SaveReadMarker(ctx, tenantID, ReadMarker{
		ConversationID: conversationID,
		UserID:         senderID,
		ReadAt:         message.SentAt,
	}); err != nil {
		return nil, fmt.Errorf("advance sender marker: %w", err)
	}
	return &message, nil
}

// MarkRead moves the user's marker for a conversation and returns the stored marker. A zero
// instant means now and instants in the future are clamped to now. Markers never move backwards.
func (s *Service) MarkRead(ctx context.Context, tenantID, conversationID, userID string, at time.Time) (*ReadMarker, error) {
	if err := s.ensureParticipant(ctx, tenantID, conversationID, userID); err != nil {
		return nil, err
	}
	now := s.now()
	if at.IsZero() || at.After(now) {
		at = now
	}
	stored, err := s.repo.SaveReadMarker(ctx, tenantID, ReadMarker{ConversationID: conversationID, UserID: userID, ReadAt: at.UTC()})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

// Unread returns the per-conversation unread counts for a user.
func (s *Service) Unread(ctx context.Context, tenantID, userID string) (map[string]int, error) {
	messages, err := s.repo.InboxMessages(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	markers, err := s.repo.ReadMarkers(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	return UnreadCounts(userID, messages, markers), nil
}

// History returns the latest messages of a conversation in chronological order.
func (s *Service) History(ctx context.Context, tenantID, conversationID, userID string, limit int) ([]Message, error) {
	if err := s.ensureParticipant(ctx, tenantID, conversationID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}
	return s.repo.History(ctx, tenantID, conversationID, limit)
}

func (s *Service) ensureParticipant(ctx context.Context, tenantID, conversationID, userID string) error {
	if strings.TrimSpace(conversationID) == "" {
		return fmt.Errorf("%w: conversation id is required", ErrInvalidMessage)
	}
	participants, err := s.repo.Participants(ctx, tenantID, conversationID)
	if err != nil {
		return err
	}
	if len(participants) == 0 {
		return ErrConversationNotFound
	}
	for _, p := range participants {
		if p == userID {
			return nil
		}
	}
	return ErrNotParticipant
}
