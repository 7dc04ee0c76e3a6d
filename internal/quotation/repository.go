package quotation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/quotedesk/quotedesk/internal/platform/db"
	"github.com/quotedesk/quotedesk/internal/platform/httpx"
)

// Repository persists quotations in PostgreSQL. Amounts are never stored;
// only the base fields of each item are.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const quotationColumns = `id, quotation_id, category,
	company_name, company_email, company_phone, company_website, company_slogan, company_logo_url,
	client_name, client_email, client_phone, client_website, client_logo_url,
	email_client, created_by, created_at`

// Create stores the quotation and its items in one transaction and returns the row id.
func (r *Repository) Create(ctx context.Context, q Quotation) (int64, error) {
	var id int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO quotations (
				quotation_id, category,
				company_name, company_email, company_phone, company_website, company_slogan, company_logo_url,
				client_name, client_email, client_phone, client_website, client_logo_url,
				email_client, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
			RETURNING id`,
			q.QuotationID, q.Category,
			q.Company.Name, q.Company.Email, q.Company.Phone, q.Company.Website, q.Company.Slogan, q.Company.LogoURL,
			q.Client.Name, q.Client.Email, q.Client.Phone, q.Client.Website, q.Client.LogoURL,
			q.EmailClient, q.CreatedBy,
		).Scan(&id)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23505" {
				return fmt.Errorf("quotation %s: %w", q.QuotationID, httpx.ErrDuplicate)
			}
			return fmt.Errorf("insert quotation: %w", err)
		}

		batch := &pgx.Batch{}
		for i, it := range q.Items {
			var notes pgtype.Text
			if it.Notes != "" {
				notes = pgtype.Text{String: it.Notes, Valid: true}
			}
			batch.Queue(`
				INSERT INTO quotation_items (quotation_pk, position, name, quantity, unit_price, tax_percent, notes)
				VALUES ($1, $2, $3, $4, $5::numeric, $6::numeric, $7)`,
				id, i+1, it.Name, it.Quantity, it.UnitPrice.String(), it.TaxPercent.String(), notes)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert quotation items: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// Get loads one quotation by row id.
func (r *Repository) Get(ctx context.Context, id int64) (Quotation, error) {
	return r.getOne(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE id = $1`, id)
}

// GetByQuotationID loads one quotation by its user-facing code.
func (r *Repository) GetByQuotationID(ctx context.Context, code string) (Quotation, error) {
	return r.getOne(ctx, `SELECT `+quotationColumns+` FROM quotations WHERE quotation_id = $1`, code)
}

func (r *Repository) getOne(ctx context.Context, query string, arg any) (Quotation, error) {
	rows, err := r.pool.Query(ctx, query, arg)
	if err != nil {
		return Quotation{}, fmt.Errorf("get quotation: %w", err)
	}
	q, err := pgx.CollectExactlyOneRow(rows, scanQuotation)
	if errors.Is(err, pgx.ErrNoRows) {
		return Quotation{}, httpx.ErrNotFound
	}
	if err != nil {
		return Quotation{}, fmt.Errorf("get quotation: %w", err)
	}
	list := []Quotation{q}
	if err := r.attachItems(ctx, list); err != nil {
		return Quotation{}, err
	}
	return list[0], nil
}

// List returns one page, newest first, plus the total row count.
func (r *Repository) List(ctx context.Context, req ListRequest) ([]Quotation, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM quotations`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count quotations: %w", err)
	}
	offset := (req.Page - 1) * req.PerPage
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations
		ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, req.PerPage, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotations: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanQuotation)
	if err != nil {
		return nil, 0, fmt.Errorf("list quotations: %w", err)
	}
	if err := r.attachItems(ctx, list); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// All returns every quotation, oldest first, for listing exports.
func (r *Repository) All(ctx context.Context) ([]Quotation, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+quotationColumns+` FROM quotations ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("all quotations: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanQuotation)
	if err != nil {
		return nil, fmt.Errorf("all quotations: %w", err)
	}
	if err := r.attachItems(ctx, list); err != nil {
		return nil, err
	}
	return list, nil
}

// attachItems loads the items of every quotation in list with one query.
func (r *Repository) attachItems(ctx context.Context, list []Quotation) error {
	if len(list) == 0 {
		return nil
	}
	ids := make([]int64, len(list))
	byID := make(map[int64]int, len(list))
	for i, q := range list {
		ids[i] = q.ID
		byID[q.ID] = i
	}
	rows, err := r.pool.Query(ctx, `
		SELECT quotation_pk, name, quantity, unit_price::text, tax_percent::text, COALESCE(notes, '')
		FROM quotation_items WHERE quotation_pk = ANY($1)
		ORDER BY quotation_pk, position`, ids)
	if err != nil {
		return fmt.Errorf("load quotation items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			pk          int64
			it          Item
			price, rate string
		)
		if err := rows.Scan(&pk, &it.Name, &it.Quantity, &price, &rate, &it.Notes); err != nil {
			return fmt.Errorf("scan quotation item: %w", err)
		}
		if it.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("parse unit price: %w", err)
		}
		if it.TaxPercent, err = decimal.NewFromString(rate); err != nil {
			return fmt.Errorf("parse tax percent: %w", err)
		}
		i := byID[pk]
		list[i].Items = append(list[i].Items, it)
	}
	return rows.Err()
}

func scanQuotation(row pgx.CollectableRow) (Quotation, error) {
	var q Quotation
	err := row.Scan(
		&q.ID, &q.QuotationID, &q.Category,
		&q.Company.Name, &q.Company.Email, &q.Company.Phone, &q.Company.Website, &q.Company.Slogan, &q.Company.LogoURL,
		&q.Client.Name, &q.Client.Email, &q.Client.Phone, &q.Client.Website, &q.Client.LogoURL,
		&q.EmailClient, &q.CreatedBy, &q.CreatedAt,
	)
	return q, err
}
