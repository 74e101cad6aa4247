package journal

import (
	"context"
	"embed"
	"errors"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/creatorkit/membership/pkg/logger"
	"github.com/creatorkit/membership/pkg/pg"
	"github.com/creatorkit/membership/pkg/telemetry"
)

// Migrations holds the journal schema, applied with pg.Migrate(ctx, pool,
// journal.Migrations, journal.MigrationsDir, ...).
//
//go:embed migrations/*.sql
var Migrations embed.FS

const MigrationsDir = "migrations"

// DB is the subset of *pgxpool.Pool the journal needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry is one finished engine operation.
type Entry struct {
	ID          uuid.UUID           `json:"id"`
	OperationID string              `json:"operation_id,omitempty"`
	Operation   telemetry.Operation `json:"operation"`
	Outcome     telemetry.Outcome   `json:"outcome"`
	Subscriber  string              `json:"subscriber,omitempty"`
	Target      string              `json:"target,omitempty"`
	StreamID    string              `json:"stream_id,omitempty"`
	Signature   string              `json:"signature,omitempty"`
	Amount      *uint64             `json:"amount,omitempty"`
	Steps       []string            `json:"steps"`
	Error       string              `json:"error,omitempty"`
	StartedAt   time.Time           `json:"started_at"`
	Duration    time.Duration       `json:"duration"`
}

var _ telemetry.Observer = (*Store)(nil)

// Store persists one Entry per finished operation. It is a telemetry.Observer;
// write failures are logged and never reach the observed operation.
type Store struct {
	db           DB
	log          *slog.Logger
	now          func() time.Time
	writeTimeout time.Duration
	skip         map[telemetry.Operation]bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for write failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Store) {
		if log != nil {
			s.log = log
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWriteTimeout bounds each insert. Defaults to 2s.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.writeTimeout = d
		}
	}
}

// WithSkip excludes operations from the journal. Reads such as status are
// usually too frequent to be worth a row each.
func WithSkip(ops ...telemetry.Operation) Option {
	return func(s *Store) {
		for _, op := range ops {
			s.skip[op] = true
		}
	}
}

func NewStore(db DB, opts ...Option) *Store {
	if db == nil {
		panic("journal: db is required")
	}
	s := &Store{
		db:           db,
		log:          logger.Discard(),
		now:          time.Now,
		writeTimeout: 2 * time.Second,
		skip:         make(map[telemetry.Operation]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Start(ctx context.Context, op telemetry.Operation, attrs ...slog.Attr) (context.Context, telemetry.Span) {
	if s.skip[op] {
		return telemetry.Noop().Start(ctx, op)
	}
	e := &Entry{Operation: op, StartedAt: s.now().UTC()}
	if id, ok := logger.OperationIDFromContext(ctx); ok {
		e.OperationID = id
	}
	sp := &span{store: s, ctx: ctx, entry: e}
	sp.SetAttrs(attrs...)
	return ctx, sp
}

type span struct {
	store *Store
	ctx   context.Context

	mu    sync.Mutex
	entry *Entry
	ended bool
}

func (sp *span) Event(name string, _ ...slog.Attr) {
	sp.mu.Lock()
	sp.entry.Steps = append(sp.entry.Steps, name)
	sp.mu.Unlock()
}

func (sp *span) SetAttrs(attrs ...slog.Attr) {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	for _, a := range attrs {
		switch a.Key {
		case "subscriber":
			sp.entry.Subscriber = a.Value.String()
		case "target":
			sp.entry.Target = a.Value.String()
		case "stream_id":
			sp.entry.StreamID = a.Value.String()
		case "signature":
			sp.entry.Signature = a.Value.String()
		case "amount":
			if a.Value.Kind() == slog.KindUint64 {
				v := a.Value.Uint64()
				sp.entry.Amount = &v
			}
		}
	}
}

func (sp *span) End(outcome telemetry.Outcome, err error) {
	sp.mu.Lock()
	if sp.ended {
		sp.mu.Unlock()
		return
	}
	sp.ended = true
	e := *sp.entry
	sp.mu.Unlock()

	e.ID = uuid.New()
	e.Outcome = outcome
	e.Duration = sp.store.now().UTC().Sub(e.StartedAt)
	if err != nil {
		e.Error = err.Error()
	}

	// The operation may have been cancelled; the row is still worth writing.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(sp.ctx), sp.store.writeTimeout)
	defer cancel()
	if err := sp.store.Insert(ctx, e); err != nil {
		sp.store.log.WarnContext(ctx, "journal write failed",
			logger.Operation(string(e.Operation)), logger.Error(err))
	}
}

const insertSQL = `INSERT INTO membership_operations
	(id, operation_id, operation, outcome, subscriber, target, stream_id, signature, amount, steps, error, started_at, duration_ms)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

// Insert writes e as is. An entry whose ID is already stored counts as
// written, so a retried insert is harmless.
func (s *Store) Insert(ctx context.Context, e Entry) error {
	steps := e.Steps
	if steps == nil {
		steps = []string{}
	}
	_, err := s.db.Exec(ctx, insertSQL,
		e.ID, e.OperationID, string(e.Operation), string(e.Outcome),
		e.Subscriber, e.Target, e.StreamID, e.Signature, numeric(e.Amount),
		steps, e.Error, e.StartedAt, e.Duration.Milliseconds(),
	)
	if pg.IsDuplicateKeyError(err) {
		s.log.DebugContext(ctx, "journal entry already written", slog.String("id", e.ID.String()))
		return nil
	}
	if err != nil {
		return errors.Join(ErrInsertFailed, err)
	}
	return nil
}

const recentSQL = `SELECT id, operation_id, operation, outcome, subscriber, target, stream_id, signature, amount, steps, error, started_at, duration_ms
	FROM membership_operations
	WHERE subscriber = $1
	ORDER BY started_at DESC
	LIMIT $2`

// Recent returns the latest operations of subscriber, newest first.
func (s *Store) Recent(ctx context.Context, subscriber string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(ctx, recentSQL, subscriber, limit)
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e          Entry
			op, out    string
			amount     pgtype.Numeric
			durationMs int64
		)
		if err := row.Scan(&e.ID, &e.OperationID, &op, &out, &e.Subscriber, &e.Target,
			&e.StreamID, &e.Signature, &amount, &e.Steps, &e.Error, &e.StartedAt, &durationMs); err != nil {
			return Entry{}, err
		}
		e.Operation = telemetry.Operation(op)
		e.Outcome = telemetry.Outcome(out)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		e.Amount = fromNumeric(amount)
		return e, nil
	})
	if err != nil {
		return nil, errors.Join(ErrQueryFailed, err)
	}
	return entries, nil
}

func numeric(v *uint64) pgtype.Numeric {
	if v == nil {
		return pgtype.Numeric{}
	}
	return pgtype.Numeric{Int: new(big.Int).SetUint64(*v), Valid: true}
}

func fromNumeric(n pgtype.Numeric) *uint64 {
	if !n.Valid || n.Int == nil || n.Exp < 0 {
		return nil
	}
	v := new(big.Int).Set(n.Int)
	if n.Exp > 0 {
		v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n.Exp)), nil))
	}
	if !v.IsUint64() {
		return nil
	}
	u := v.Uint64()
	return &u
}
