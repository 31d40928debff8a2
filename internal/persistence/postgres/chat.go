package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mxrk333/trailquest-fitnessapp-sub000/internal/chat"
)

// ChatRepository persists conversations, messages and read markers.
type ChatRepository struct {
	pool *pgxpool.Pool
}

// NewChatRepository constructs a ChatRepository.
func NewChatRepository(pool *pgxpool.Pool) *ChatRepository {
	return &ChatRepository{pool: pool}
}

// CreateConversation inserts the conversation and its participants. Existing conversations are
// left untouched.
func (r *ChatRepository) CreateConversation(ctx context.Context, tenantID string, conversation chat.Conversation) error {
	return inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO chat_conversations (conversation_id, tenant_id, created_at) VALUES ($1,$2,$3)
             ON CONFLICT (tenant_id, conversation_id) DO NOTHING`,
			conversation.ID, tenantID, conversation.CreatedAt); err != nil {
			return err
		}
		for _, userID := range conversation.Participants {
			if _, err := tx.Exec(ctx,
				`INSERT INTO chat_participants (tenant_id, conversation_id, user_id) VALUES ($1,$2,$3)
                 ON CONFLICT DO NOTHING`,
				tenantID, conversation.ID, userID); err != nil {
				return err
			}
		}
		return nil
	})
}

// Participants lists the members of a conversation. Unknown conversations yield an empty list.
func (r *ChatRepository) Participants(ctx context.Context, tenantID, conversationID string) ([]string, error) {
	participants := make([]string, 0, 2)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT user_id FROM chat_participants WHERE tenant_id=$1 AND conversation_id::text=$2 ORDER BY user_id`,
			tenantID, conversationID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var userID string
			if err := rows.Scan(&userID); err != nil {
				return err
			}
			participants = append(participants, userID)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return participants, nil
}

// AppendMessage stores a message.
func (r *ChatRepository) AppendMessage(ctx context.Context, tenantID string, message chat.Message) error {
	return inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO chat_messages (message_id, tenant_id, conversation_id, sender_id, body, sent_at)
             VALUES ($1,$2,$3,$4,$5,$6)`,
			message.ID, tenantID, message.ConversationID, message.SenderID, message.Body, message.SentAt)
		return err
	})
}

// History returns the latest messages of a conversation in chronological order.
func (r *ChatRepository) History(ctx context.Context, tenantID, conversationID string, limit int) ([]chat.Message, error) {
	const query = `SELECT message_id, conversation_id, sender_id, body, sent_at FROM (
            SELECT message_id, conversation_id, sender_id, body, sent_at FROM chat_messages
            WHERE tenant_id=$1 AND conversation_id::text=$2
            ORDER BY sent_at DESC, message_id DESC LIMIT $3
        ) latest ORDER BY sent_at, message_id`
	return r.queryMessages(ctx, tenantID, query, tenantID, conversationID, limit)
}

// InboxMessages returns foreign messages newer than the user's marker in each of the user's
// conversations.
func (r *ChatRepository) InboxMessages(ctx context.Context, tenantID, userID string) ([]chat.Message, error) {
	const query = `SELECT m.message_id, m.conversation_id, m.sender_id, m.body, m.sent_at
        FROM chat_messages m
        JOIN chat_participants p ON p.tenant_id = m.tenant_id AND p.conversation_id = m.conversation_id AND p.user_id = $2
        LEFT JOIN chat_read_markers rm ON rm.tenant_id = m.tenant_id AND rm.conversation_id = m.conversation_id AND rm.user_id = $2
        WHERE m.tenant_id = $1 AND m.sender_id <> $2 AND (rm.read_at IS NULL OR m.sent_at > rm.read_at)
        ORDER BY m.sent_at`
	return r.queryMessages(ctx, tenantID, query, tenantID, userID)
}

func (r *ChatRepository) queryMessages(ctx context.Context, tenantID, query string, args ...interface{}) ([]chat.Message, error) {
	messages := make([]chat.Message, 0)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m chat.Message
			if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Body, &m.SentAt); err != nil {
				return err
			}
			messages = append(messages, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// SaveReadMarker upserts a read marker and returns the stored one. Markers only move forward.
func (r *ChatRepository) SaveReadMarker(ctx context.Context, tenantID string, marker chat.ReadMarker) (chat.ReadMarker, error) {
	stored := marker
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx,
			`INSERT INTO chat_read_markers (tenant_id, conversation_id, user_id, read_at) VALUES ($1,$2,$3,$4)
             ON CONFLICT (tenant_id, conversation_id, user_id)
             DO UPDATE SET read_at = GREATEST(chat_read_markers.read_at, EXCLUDED.read_at)
             RETURNING read_at`,
			tenantID, marker.ConversationID, marker.UserID, marker.ReadAt).Scan(&stored.ReadAt)
	})
	if err != nil {
		return chat.ReadMarker{}, err
	}
	stored.ReadAt = stored.ReadAt.UTC()
	return stored, nil
}

// ReadMarkers returns every marker of a user.
func (r *ChatRepository) ReadMarkers(ctx context.Context, tenantID, userID string) ([]chat.ReadMarker, error) {
	markers := make([]chat.ReadMarker, 0)
	err := inTenant(ctx, r.pool, tenantID, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT conversation_id, user_id, read_at FROM chat_read_markers WHERE tenant_id=$1 AND user_id=$2`,
			tenantID, userID)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m chat.ReadMarker
			if err := rows.Scan(&m.ConversationID, &m.UserID, &m.ReadAt); err != nil {
				return err
			}
			markers = append(markers, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return markers, nil
}
