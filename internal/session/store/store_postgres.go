package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	addrmodels "address-cri/internal/address/models"
	"address-cri/internal/session/models"
	id "address-cri/pkg/domain"
	"address-cri/pkg/platform/sentinel"
)

// PostgresStore persists sessions in PostgreSQL.
// This store is pure I/O; state-machine rules belong to the service layer.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed session store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Schema is the sessions table definition. Applied by deployment migrations;
// integration tests call EnsureSchema directly.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id          UUID PRIMARY KEY,
	client_id           TEXT NOT NULL,
	state               TEXT NOT NULL,
	created_at          TIMESTAMPTZ NOT NULL,
	expires_at          TIMESTAMPTZ NOT NULL,
	candidate_addresses JSONB NOT NULL DEFAULT '[]'::jsonb,
	confirmed_address   JSONB,
	access_token        TEXT UNIQUE
);
CREATE INDEX IF NOT EXISTS sessions_expires_at_idx ON sessions (expires_at);
`

// EnsureSchema creates the sessions table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return fmt.Errorf("ensure sessions schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	candidates, confirmed, err := marshalAddresses(session)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO sessions (session_id, client_id, state, created_at, expires_at, candidate_addresses, confirmed_address, access_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	`
	_, err = s.db.ExecContext(ctx, query,
		session.ID.String(),
		session.ClientID,
		string(session.State),
		session.CreatedAt,
		session.ExpiresAt,
		candidates,
		confirmed,
		session.AccessToken,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("session already exists: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, sessionID id.SessionID) (*models.Session, error) {
	query := `
		SELECT session_id, client_id, state, created_at, expires_at, candidate_addresses, confirmed_address, COALESCE(access_token, '')
		FROM sessions
		WHERE session_id = $1
	`
	return scanSession(s.db.QueryRowContext(ctx, query, sessionID.String()))
}

func (s *PostgresStore) FindByAccessToken(ctx context.Context, token string) (*models.Session, error) {
	query := `
		SELECT session_id, client_id, state, created_at, expires_at, candidate_addresses, confirmed_address, COALESCE(access_token, '')
		FROM sessions
		WHERE access_token = $1
	`
	session, err := scanSession(s.db.QueryRowContext(ctx, query, token))
	if err != nil && errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("access token not bound: %w", sentinel.ErrNotFound)
	}
	return session, err
}

func (s *PostgresStore) Update(ctx context.Context, session *models.Session) error {
	candidates, confirmed, err := marshalAddresses(session)
	if err != nil {
		return err
	}
	query := `
		UPDATE sessions
		SET state = $2, candidate_addresses = $3, confirmed_address = $4, access_token = NULLIF($5, '')
		WHERE session_id = $1
	`
	res, err := s.db.ExecContext(ctx, query,
		session.ID.String(),
		string(session.State),
		candidates,
		confirmed,
		session.AccessToken,
	)
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) BindAccessToken(ctx context.Context, sessionID id.SessionID, token string) error {
	query := `
		UPDATE sessions
		SET access_token = $2
		WHERE session_id = $1
	`
	res, err := s.db.ExecContext(ctx, query, sessionID.String(), token)
	if isUniqueViolation(err) {
		return fmt.Errorf("access token already bound: %w", sentinel.ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("bind access token: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("bind access token: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, sessionID id.SessionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = $1`, sessionID.String())
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// DeleteExpired removes sessions whose TTL passed before the given time.
// Confirmed sessions are kept for confirmedRetention past expiry so a user
// who completed verification can still collect the credential.
func (s *PostgresStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `
		DELETE FROM sessions
		WHERE (state <> $2 AND expires_at < $1)
		   OR (state = $2 AND expires_at < $3)
	`
	res, err := s.db.ExecContext(ctx, query, now, string(models.StateAddressConfirmed), now.Add(-confirmedRetention))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	return int(rows), nil
}

func marshalAddresses(session *models.Session) ([]byte, []byte, error) {
	candidates := session.CandidateAddresses
	if candidates == nil {
		candidates = []addrmodels.CanonicalAddress{}
	}
	candidateJSON, err := json.Marshal(candidates)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal candidate addresses: %w", err)
	}
	var confirmedJSON []byte
	if session.ConfirmedAddress != nil {
		confirmedJSON, err = json.Marshal(session.ConfirmedAddress)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal confirmed address: %w", err)
		}
	}
	return candidateJSON, confirmedJSON, nil
}

func scanSession(row *sql.Row) (*models.Session, error) {
	var (
		session       models.Session
		rawID         string
		rawState      string
		candidateJSON []byte
		confirmedJSON []byte
	)
	err := row.Scan(
		&rawID,
		&session.ClientID,
		&rawState,
		&session.CreatedAt,
		&session.ExpiresAt,
		&candidateJSON,
		&confirmedJSON,
		&session.AccessToken,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan session: %w", err)
	}
	sessionID, err := id.ParseSessionID(rawID)
	if err != nil {
		return nil, fmt.Errorf("corrupt session id: %w", err)
	}
	session.ID = sessionID
	session.State = models.State(rawState)
	if err := json.Unmarshal(candidateJSON, &session.CandidateAddresses); err != nil {
		return nil, fmt.Errorf("unmarshal candidate addresses: %w", err)
	}
	if len(confirmedJSON) > 0 {
		var confirmed addrmodels.CanonicalAddress
		if err := json.Unmarshal(confirmedJSON, &confirmed); err != nil {
			return nil, fmt.Errorf("unmarshal confirmed address: %w", err)
		}
		session.ConfirmedAddress = &confirmed
	}
	return &session, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
