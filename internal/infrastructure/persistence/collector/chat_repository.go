package collector

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/siteguard/widget-go/internal/infrastructure/security"
)

// SQLChatRepository persists chat transcripts.
type SQLChatRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLChatRepository creates a new instance of the repository.
func NewSQLChatRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLChatRepository {
	return &SQLChatRepository{db: db, logger: logger}
}

// StoreMessage saves one chat line, assigning an id when it has none.
func (r *SQLChatRepository) StoreMessage(m *collector.Message) error {
	const query = `
		INSERT INTO chat_messages (id, tenant_id, session_id, conversation_id, role, message, confidence, escalated, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if m.ID == "" {
		m.ID = security.GenerateULID()
	}
	var confidence sql.NullFloat64
	if m.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *m.Confidence, Valid: true}
	}
	escalated := 0
	if m.Escalated {
		escalated = 1
	}

	_, err := r.db.Exec(query, m.ID, m.TenantID, m.SessionID, m.ConversationID, m.Role, m.Text,
		confidence, escalated, m.CreatedAt.UTC().Format(timeLayout))
	if err != nil {
		r.logger.Database().Error("Chat message insert failed", "tenantId", m.TenantID, "conversationId", m.ConversationID, "error", err.Error())
		return fmt.Errorf("failed to store chat message: %w", err)
	}
	return nil
}

// FindBySession returns the chat lines of a session in order.
func (r *SQLChatRepository) FindBySession(tenantID, sessionID string) ([]collector.Message, error) {
	const query = `
		SELECT id, tenant_id, session_id, conversation_id, role, message, confidence, escalated, created_at
		FROM chat_messages WHERE session_id = ? AND (? = '' OR tenant_id = ?) ORDER BY id`

	rows, err := r.db.Query(query, sessionID, tenantID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat messages: %w", err)
	}
	defer rows.Close()

	messages := []collector.Message{}
	for rows.Next() {
		var m collector.Message
		var confidence sql.NullFloat64
		var escalated int
		var createdAt string
		if err := rows.Scan(&m.ID, &m.TenantID, &m.SessionID, &m.ConversationID, &m.Role, &m.Text,
			&confidence, &escalated, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat message: %w", err)
		}
		if confidence.Valid {
			c := confidence.Float64
			m.Confidence = &c
		}
		m.Escalated = escalated == 1
		if t, err := time.Parse(timeLayout, createdAt); err == nil {
			m.CreatedAt = t
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
