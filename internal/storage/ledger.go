// Package storage records checkout sessions and contact submissions in a
// SQL ledger.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DefaultDriver = "sqlite3"
	DefaultDSN    = "file:storefront.db?cache=shared"

	TextCodeOrderNotFound = "ORDER_NOT_FOUND"
)

var ErrDriverUnsupported = errors.New("storage: unsupported driver")

// Order is a created checkout session.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	SessionID  string    `bun:"session_id,pk" json:"sessionId"`
	ItemsCount int       `bun:"items_count" json:"itemsCount"`
	Currency   string    `bun:"currency" json:"currency"`
	CancelURL  string    `bun:"cancel_url" json:"cancelUrl"`
	CreatedAt  time.Time `bun:"created_at" json:"createdAt"`
}

// Submission is a relayed contact form.
type Submission struct {
	bun.BaseModel `bun:"table:contact_submissions"`

	ID         uuid.UUID `bun:"id,pk,type:uuid" json:"id"`
	Subject    string    `bun:"subject" json:"subject"`
	ToAddress  string    `bun:"to_address" json:"to"`
	ProviderID string    `bun:"provider_id" json:"providerId"`
	CreatedAt  time.Time `bun:"created_at" json:"createdAt"`
}

// Config selects the ledger database.
type Config struct {
	Driver string
	DSN    string
}

// Ledger persists orders and submissions.
type Ledger struct {
	db          *bun.DB
	submissions repository.Repository[*Submission]
	now         func() time.Time
}

func newSubmissionRepository(db *bun.DB) repository.Repository[*Submission] {
	return repository.MustNewRepository(db, repository.ModelHandlers[*Submission]{
		NewRecord:          func() *Submission { return &Submission{} },
		GetID:              func(sub *Submission) uuid.UUID { return sub.ID },
		SetID:              func(sub *Submission, id uuid.UUID) { sub.ID = id },
		GetIdentifier:      func() string { return "provider_id" },
		GetIdentifierValue: func(sub *Submission) string { return sub.ProviderID },
	})
}

// Open connects to the database named by cfg. Only sqlite is supported.
func Open(cfg Config) (*Ledger, error) {
	driver := strings.TrimSpace(cfg.Driver)
	if driver == "" || driver == "sqlite" {
		driver = DefaultDriver
	}
	if driver != DefaultDriver {
		return nil, goerrors.Wrap(ErrDriverUnsupported, goerrors.CategoryBadInput, "open ledger").
			WithMetadata(map[string]any{"driver": cfg.Driver})
	}
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		dsn = DefaultDSN
	}
	sqldb, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "open ledger")
	}
	return NewLedger(bun.NewDB(sqldb, sqlitedialect.New())), nil
}

// NewLedger wraps an existing bun database.
func NewLedger(db *bun.DB) *Ledger {
	return &Ledger{db: db, submissions: newSubmissionRepository(db), now: time.Now}
}

// Migrate creates the ledger tables when missing.
func (l *Ledger) Migrate(ctx context.Context) error {
	for _, model := range []any{(*Order)(nil), (*Submission)(nil)} {
		if _, err := l.db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "migrate ledger")
		}
	}
	return nil
}

// RecordOrder stores order. Recording the same session twice keeps the
// first record.
func (l *Ledger) RecordOrder(ctx context.Context, order Order) error {
	if strings.TrimSpace(order.SessionID) == "" {
		return goerrors.New("order session id is required", goerrors.CategoryBadInput)
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = l.now().UTC()
	}
	if _, err := l.db.NewInsert().Model(&order).On("CONFLICT (session_id) DO NOTHING").Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "record order")
	}
	return nil
}

// FindOrder returns the order for sessionID.
func (l *Ledger) FindOrder(ctx context.Context, sessionID string) (Order, error) {
	var order Order
	err := l.db.NewSelect().Model(&order).Where("session_id = ?", strings.TrimSpace(sessionID)).Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Order{}, goerrors.New("order not found", goerrors.CategoryNotFound).
				WithTextCode(TextCodeOrderNotFound)
		}
		return Order{}, goerrors.Wrap(err, goerrors.CategoryInternal, "find order")
	}
	return order, nil
}

// RecordSubmission stores sub, assigning an id and timestamp when unset.
func (l *Ledger) RecordSubmission(ctx context.Context, sub Submission) (Submission, error) {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = l.now().UTC()
	}
	record, err := l.submissions.Create(ctx, &sub)
	if err != nil {
		return Submission{}, goerrors.Wrap(err, goerrors.CategoryInternal, "record submission")
	}
	return *record, nil
}

// RecentSubmissions lists the newest submissions first.
func (l *Ledger) RecentSubmissions(ctx context.Context, limit int) ([]Submission, error) {
	if limit <= 0 {
		limit = 20
	}
	records, _, err := l.submissions.List(ctx,
		repository.SelectRawProcessor(func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("?TableAlias.created_at DESC")
		}),
		repository.SelectPaginate(limit, 0),
	)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "list submissions")
	}
	subs := make([]Submission, 0, len(records))
	for _, record := range records {
		subs = append(subs, *record)
	}
	return subs, nil
}

// IsOrderNotFound reports whether err is a missing order.
func IsOrderNotFound(err error) bool {
	var lerr *goerrors.Error
	return goerrors.As(err, &lerr) && lerr.TextCode == TextCodeOrderNotFound
}

// Close closes the database.
func (l *Ledger) Close() error {
	return l.db.Close()
}
