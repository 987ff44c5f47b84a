package collector

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/consent"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
)

// SQLConsentRepository persists consent keyed by tenant and session.
type SQLConsentRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLConsentRepository creates a new instance of the repository.
func NewSQLConsentRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLConsentRepository {
	return &SQLConsentRepository{db: db, logger: logger}
}

// Find returns the recorded consent, or nil when there is none.
func (r *SQLConsentRepository) Find(tenantID, sessionID string) (*consent.Record, error) {
	const query = `SELECT accepted, terms_version FROM consents WHERE tenant_id = ? AND session_id = ?`

	rec := &consent.Record{TenantID: tenantID, SessionID: sessionID}
	var accepted int
	err := r.db.QueryRow(query, tenantID, sessionID).Scan(&accepted, &rec.TermsVersion)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Database().Error("Consent lookup failed", "tenantId", tenantID, "error", err.Error())
		return nil, fmt.Errorf("failed to load consent: %w", err)
	}
	rec.Accepted = accepted == 1
	return rec, nil
}

// Store records consent. A later call for the same session replaces the earlier one.
func (r *SQLConsentRepository) Store(rec *consent.Record, at time.Time) error {
	const query = `
		INSERT INTO consents (tenant_id, session_id, accepted, terms_version, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, session_id) DO UPDATE SET
			accepted = excluded.accepted,
			terms_version = excluded.terms_version,
			created_at = excluded.created_at`

	accepted := 0
	if rec.Accepted {
		accepted = 1
	}
	if _, err := r.db.Exec(query, rec.TenantID, rec.SessionID, accepted, rec.TermsVersion, at.UTC().Format(timeLayout)); err != nil {
		r.logger.Database().Error("Consent insert failed", "tenantId", rec.TenantID, "error", err.Error())
		return fmt.Errorf("failed to store consent: %w", err)
	}

	r.logger.Database().Debug("Consent stored",
		"tenantId", rec.TenantID,
		"sessionId", logging.SanitizeSessionID(rec.SessionID),
		"accepted", rec.Accepted,
		"termsVersion", rec.TermsVersion)
	return nil
}
