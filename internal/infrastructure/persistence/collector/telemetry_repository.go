// Package collector provides the concrete SQL-based implementations for the sandbox
// collector: telemetry records, consents and chat messages.
package collector

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/siteguard/widget-go/internal/domain/entities/collector"
	"github.com/siteguard/widget-go/internal/domain/events"
	"github.com/siteguard/widget-go/internal/infrastructure/observability/logging"
	"github.com/siteguard/widget-go/internal/infrastructure/persistence/database"
	"github.com/siteguard/widget-go/internal/infrastructure/security"
)

const timeLayout = time.RFC3339Nano

const slowQueryThreshold = 100 * time.Millisecond

// SQLTelemetryRepository persists the five telemetry record kinds.
type SQLTelemetryRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLTelemetryRepository creates a new instance of the repository.
func NewSQLTelemetryRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLTelemetryRepository {
	return &SQLTelemetryRepository{
		db:     db,
		logger: logger,
	}
}

// StoreSession saves a session start record.
func (r *SQLTelemetryRepository) StoreSession(rec *events.Session, at time.Time) (string, error) {
	const query = `
		INSERT INTO sessions (id, tenant_id, session_id, visitor_id, referrer, utm_source, utm_medium, utm_campaign,
			landing_page, device_type, browser, os, screen_width, screen_height, language, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id := security.GenerateULID()
	return id, r.exec("session", query, rec.TenantID,
		id, rec.TenantID, rec.SessionID, rec.VisitorID, rec.Referrer, rec.UTMSource, rec.UTMMedium, rec.UTMCampaign,
		rec.LandingPage, rec.DeviceType, rec.Browser, rec.OS, rec.ScreenWidth, rec.ScreenHeight, rec.Language,
		at.UTC().Format(timeLayout))
}

// StorePageView saves a page view record.
func (r *SQLTelemetryRepository) StorePageView(rec *events.PageView, at time.Time) (string, error) {
	const query = `
		INSERT INTO pageviews (id, tenant_id, session_id, url, path, title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	id := security.GenerateULID()
	return id, r.exec("pageview", query, rec.TenantID,
		id, rec.TenantID, rec.SessionID, rec.URL, rec.Path, rec.Title, at.UTC().Format(timeLayout))
}

// StorePageUpdate saves an engagement heartbeat.
func (r *SQLTelemetryRepository) StorePageUpdate(rec *events.PageUpdate, at time.Time) (string, error) {
	const query = `
		INSERT INTO page_updates (id, tenant_id, session_id, path, time_on_page_seconds, scroll_depth_percent, clicks, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id := security.GenerateULID()
	return id, r.exec("page-update", query, rec.TenantID,
		id, rec.TenantID, rec.SessionID, rec.Path, rec.TimeOnPageSeconds, rec.ScrollDepthPercent, rec.Clicks,
		at.UTC().Format(timeLayout))
}

// StoreEvent saves a behavioral event. Metadata is stored as JSON text.
func (r *SQLTelemetryRepository) StoreEvent(rec *events.Event, at time.Time) (string, error) {
	const query = `
		INSERT INTO events (id, tenant_id, session_id, event_type, page_path, value, element, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	metadata := ""
	if len(rec.Metadata) > 0 {
		raw, err := json.Marshal(rec.Metadata)
		if err != nil {
			return "", fmt.Errorf("failed to encode event metadata: %w", err)
		}
		metadata = string(raw)
	}

	id := security.GenerateULID()
	return id, r.exec("event", query, rec.TenantID,
		id, rec.TenantID, rec.SessionID, rec.EventType, rec.PagePath, rec.Value, rec.Element, metadata,
		at.UTC().Format(timeLayout))
}

// StoreSessionEnd saves the final session record.
func (r *SQLTelemetryRepository) StoreSessionEnd(rec *events.SessionEnd, at time.Time) (string, error) {
	const query = `
		INSERT INTO session_ends (id, tenant_id, session_id, duration_seconds, created_at)
		VALUES (?, ?, ?, ?, ?)`

	id := security.GenerateULID()
	return id, r.exec("session-end", query, rec.TenantID,
		id, rec.TenantID, rec.SessionID, rec.DurationSeconds, at.UTC().Format(timeLayout))
}

func (r *SQLTelemetryRepository) exec(kind, query, tenantID string, args ...any) error {
	start := time.Now()
	if _, err := r.db.Exec(query, args...); err != nil {
		r.logger.Database().Error("Telemetry insert failed", "kind", kind, "tenantId", tenantID, "error", err.Error())
		return fmt.Errorf("failed to store %s record: %w", kind, err)
	}

	duration := time.Since(start)
	r.logger.Database().Debug("Telemetry insert completed", "kind", kind, "tenantId", tenantID, "duration", duration)
	if duration > slowQueryThreshold {
		r.logger.Database().Warn("Slow query", "kind", kind, "duration", duration)
	}
	return nil
}

// FindTimeline loads every telemetry record of a session. An empty tenantID matches
// any tenant.
func (r *SQLTelemetryRepository) FindTimeline(tenantID, sessionID string) (*collector.Timeline, error) {
	tl := &collector.Timeline{
		TenantID:    tenantID,
		SessionID:   sessionID,
		PageViews:   []events.PageView{},
		PageUpdates: []events.PageUpdate{},
		Events:      []events.Event{},
		SessionEnds: []events.SessionEnd{},
		Messages:    []collector.Message{},
	}

	if err := r.findSession(tl); err != nil {
		return nil, err
	}

	const pageViewQuery = `SELECT tenant_id, session_id, url, path, title FROM pageviews
		WHERE session_id = ? AND (? = '' OR tenant_id = ?) ORDER BY id`
	if err := r.query(pageViewQuery, tl, func(rows *sql.Rows) error {
		var pv events.PageView
		if err := rows.Scan(&pv.TenantID, &pv.SessionID, &pv.URL, &pv.Path, &pv.Title); err != nil {
			return err
		}
		tl.PageViews = append(tl.PageViews, pv)
		return nil
	}); err != nil {
		return nil, err
	}

	const pageUpdateQuery = `SELECT tenant_id, session_id, path, time_on_page_seconds, scroll_depth_percent, clicks
		FROM page_updates WHERE session_id = ? AND (? = '' OR tenant_id = ?) ORDER BY id`
	if err := r.query(pageUpdateQuery, tl, func(rows *sql.Rows) error {
		var pu events.PageUpdate
		if err := rows.Scan(&pu.TenantID, &pu.SessionID, &pu.Path, &pu.TimeOnPageSeconds, &pu.ScrollDepthPercent, &pu.Clicks); err != nil {
			return err
		}
		tl.PageUpdates = append(tl.PageUpdates, pu)
		return nil
	}); err != nil {
		return nil, err
	}

	const eventQuery = `SELECT tenant_id, session_id, event_type, page_path, value, element, metadata
		FROM events WHERE session_id = ? AND (? = '' OR tenant_id = ?) ORDER BY id`
	if err := r.query(eventQuery, tl, func(rows *sql.Rows) error {
		var ev events.Event
		var metadata string
		if err := rows.Scan(&ev.TenantID, &ev.SessionID, &ev.EventType, &ev.PagePath, &ev.Value, &ev.Element, &metadata); err != nil {
			return err
		}
		if metadata != "" {
			if err := json.Unmarshal([]byte(metadata), &ev.Metadata); err != nil {
				r.logger.Database().Warn("Event metadata is not valid JSON", "sessionId", logging.SanitizeSessionID(sessionID))
			}
		}
		tl.Events = append(tl.Events, ev)
		return nil
	}); err != nil {
		return nil, err
	}

	const sessionEndQuery = `SELECT tenant_id, session_id, duration_seconds FROM session_ends
		WHERE session_id = ? AND (? = '' OR tenant_id = ?) ORDER BY id`
	if err := r.query(sessionEndQuery, tl, func(rows *sql.Rows) error {
		var se events.SessionEnd
		if err := rows.Scan(&se.TenantID, &se.SessionID, &se.DurationSeconds); err != nil {
			return err
		}
		tl.SessionEnds = append(tl.SessionEnds, se)
		return nil
	}); err != nil {
		return nil, err
	}

	return tl, nil
}

func (r *SQLTelemetryRepository) findSession(tl *collector.Timeline) error {
	const query = `SELECT tenant_id, session_id, visitor_id, referrer, utm_source, utm_medium, utm_campaign,
			landing_page, device_type, browser, os, screen_width, screen_height, language
		FROM sessions WHERE session_id = ? AND (? = '' OR tenant_id = ?) ORDER BY id LIMIT 1`

	var s events.Session
	err := r.db.QueryRow(query, tl.SessionID, tl.TenantID, tl.TenantID).Scan(
		&s.TenantID, &s.SessionID, &s.VisitorID, &s.Referrer, &s.UTMSource, &s.UTMMedium, &s.UTMCampaign,
		&s.LandingPage, &s.DeviceType, &s.Browser, &s.OS, &s.ScreenWidth, &s.ScreenHeight, &s.Language)
	if err == sql.ErrNoRows {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	tl.Session = &s
	return nil
}

func (r *SQLTelemetryRepository) query(query string, tl *collector.Timeline, scan func(*sql.Rows) error) error {
	rows, err := r.db.Query(query, tl.SessionID, tl.TenantID, tl.TenantID)
	if err != nil {
		return fmt.Errorf("failed to query timeline: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return fmt.Errorf("failed to scan timeline row: %w", err)
		}
	}
	return rows.Err()
}
