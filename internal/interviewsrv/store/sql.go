package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/golang/snappy"
	"github.com/jackc/pgconn"
	_ "github.com/jackc/pgx/v4/stdlib"
	jsoniter "github.com/json-iterator/go"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"

	"github.com/tansive/mockinterview/internal/common/apperrors"
	"github.com/tansive/mockinterview/internal/common/uuid"
	"github.com/tansive/mockinterview/internal/interviewsrv/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

func (d Dialect) driver() (string, error) {
	switch d {
	case DialectPostgres:
		return "pgx", nil
	case DialectSQLite:
		return "sqlite", nil
	}
	return "", fmt.Errorf("unsupported store dialect: %q", d)
}

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

type SQLOptions struct {
	Dialect  Dialect
	DSN      string
	Table    string
	Compress bool
}

// SQL stores one row per session holding the JSON document, optionally
// snappy-compressed, plus the columns needed to list by owner.
type SQL struct {
	db       *sql.DB
	dialect  Dialect
	table    string
	compress bool
}

// OpenSQL opens the database, checks connectivity and creates the table if
// needed.
func OpenSQL(ctx context.Context, opts SQLOptions) (*SQL, error) {
	driver, err := opts.Dialect.driver()
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driver, opts.DSN)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to open db")
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}
	if opts.Dialect == DialectSQLite {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		log.Ctx(ctx).Error().Err(err).Msg("failed to ping db")
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s, err := NewSQL(db, opts.Dialect, opts.Table, opts.Compress)
	if err != nil {
		db.Close()
		return nil, err
	}
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func NewSQL(db *sql.DB, dialect Dialect, table string, compress bool) (*SQL, error) {
	if _, err := dialect.driver(); err != nil {
		return nil, err
	}
	if table == "" {
		table = "interview_sessions"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name: %s", table)
	}
	return &SQL{db: db, dialect: dialect, table: table, compress: compress}, nil
}

func (s *SQL) quotedTable() string {
	return pq.QuoteIdentifier(s.table)
}

// ph returns the n-th (1-based) bind placeholder for the dialect.
func (s *SQL) ph(n int) string {
	if s.dialect == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (s *SQL) EnsureSchema(ctx context.Context) error {
	idType, blobType, boolType := "TEXT", "BLOB", "INTEGER"
	if s.dialect == DialectPostgres {
		idType, blobType, boolType = "UUID", "BYTEA", "BOOLEAN"
	}
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			session_id %s PRIMARY KEY,
			owner_id TEXT NOT NULL,
			status TEXT NOT NULL,
			compressed %s NOT NULL,
			document %s NOT NULL,
			created_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`, s.quotedTable(), idType, boolType, blobType),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON %s (owner_id, created_at)`,
			pq.QuoteIdentifier(s.table+"_owner_idx"), s.quotedTable()),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("failed to create session schema")
			return fmt.Errorf("creating session schema: %w", err)
		}
	}
	return nil
}

func (s *SQL) encode(session *models.Session) ([]byte, bool, error) {
	doc, err := json.Marshal(session)
	if err != nil {
		return nil, false, err
	}
	if s.compress {
		return snappy.Encode(nil, doc), true, nil
	}
	return doc, false, nil
}

func decode(doc []byte, compressed bool) (*models.Session, error) {
	if compressed {
		var err error
		doc, err = snappy.Decode(nil, doc)
		if err != nil {
			return nil, err
		}
	}
	session := &models.Session{}
	if err := json.Unmarshal(doc, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SQL) Save(ctx context.Context, session *models.Session) (err apperrors.Error) {
	if err := validate(session); err != nil {
		return err
	}
	doc, compressed, errStd := s.encode(session)
	if errStd != nil {
		return ErrInvalidInput.Err(errStd)
	}

	tx, errStd := s.db.BeginTx(ctx, nil)
	if errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to begin transaction")
		return ErrStore.Err(errStd)
	}
	defer func() {
		if err != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				log.Ctx(ctx).Error().Err(rollbackErr).Msg("failed to rollback transaction")
			}
		}
	}()

	query := fmt.Sprintf(`
		INSERT INTO %s (session_id, owner_id, status, compressed, document, created_at, updated_at)
		VALUES (%s, %s, %s, %s, %s, %s, %s)
		ON CONFLICT (session_id) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			status = EXCLUDED.status,
			compressed = EXCLUDED.compressed,
			document = EXCLUDED.document,
			updated_at = EXCLUDED.updated_at`,
		s.quotedTable(), s.ph(1), s.ph(2), s.ph(3), s.ph(4), s.ph(5), s.ph(6), s.ph(7))

	_, errStd = tx.ExecContext(ctx, query,
		session.ID.String(),
		session.OwnerID,
		string(session.Status),
		compressed,
		doc,
		session.CreatedAt.UnixMilli(),
		session.UpdatedAt.UnixMilli(),
	)
	if errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to upsert session")
		return classify(errStd)
	}
	if errStd := tx.Commit(); errStd != nil {
		log.Ctx(ctx).Error().Err(errStd).Msg("failed to commit transaction")
		return classify(errStd)
	}
	return nil
}

func (s *SQL) Load(ctx context.Context, id uuid.UUID) (*models.Session, apperrors.Error) {
	query := fmt.Sprintf(`SELECT compressed, document FROM %s WHERE session_id = %s`, s.quotedTable(), s.ph(1))
	var (
		compressed bool
		doc        []byte
	)
	err := s.db.QueryRowContext(ctx, query, id.String()).Scan(&compressed, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to load session")
		return nil, ErrStore.Err(err)
	}
	session, err := decode(doc, compressed)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("session_id", id.String()).Msg("corrupt session document")
		return nil, ErrStore.MsgErr("corrupt session document", err)
	}
	return session, nil
}

func (s *SQL) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*models.Session, apperrors.Error) {
	query := fmt.Sprintf(`SELECT compressed, document FROM %s WHERE owner_id = %s ORDER BY created_at DESC LIMIT %d`,
		s.quotedTable(), s.ph(1), listLimit(limit))
	rows, err := s.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list sessions")
		return nil, ErrStore.Err(err)
	}
	defer rows.Close()

	var out []*models.Session
	for rows.Next() {
		var (
			compressed bool
			doc        []byte
		)
		if err := rows.Scan(&compressed, &doc); err != nil {
			return nil, ErrStore.Err(err)
		}
		session, err := decode(doc, compressed)
		if err != nil {
			log.Ctx(ctx).Warn().Err(err).Msg("skipping corrupt session document")
			continue
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, ErrStore.Err(err)
	}
	return out, nil
}

// Ping checks the database connection.
func (s *SQL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQL) Close() error {
	return s.db.Close()
}

// classify maps postgres conflict codes onto ErrConflict.
func classify(err error) apperrors.Error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505", "40001", "40P01":
			return ErrConflict.Err(err)
		}
	}
	return ErrStore.Err(err)
}
