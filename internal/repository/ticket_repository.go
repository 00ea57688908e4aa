package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/lib/pq"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/storage"
)

const ticketsTable = "tickets"

var ticketColumns = []string{
	"id",
	"user_id",
	"title",
	"location",
	"website_url",
	"visit_date",
	"rating",
	"review",
	"ticket_image_url",
	"ticket_image_path",
	"gallery_urls",
	"gallery_paths",
	"created_at",
	"updated_at",
}

type TicketRepo struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

func NewTicketRepo(db *pgxpool.Pool) *TicketRepo {
	return &TicketRepo{
		db: db,
		sb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// CreateTicket inserts the record as given. Image fields may be empty, the
// create flow stores a placeholder first and patches images afterwards.
func (r *TicketRepo) CreateTicket(ctx context.Context, ticket models.Ticket) (uuid.UUID, error) {
	const op = "repository.TicketRepo.CreateTicket"

	urls, paths := splitRefs(ticket.Gallery)

	query, args, err := r.sb.Insert(ticketsTable).
		Columns(
			"user_id",
			"title",
			"location",
			"website_url",
			"visit_date",
			"rating",
			"review",
			"ticket_image_url",
			"ticket_image_path",
			"gallery_urls",
			"gallery_paths",
		).
		Values(
			ticket.UserID,
			ticket.Title,
			ticket.Location,
			ticket.WebsiteURL,
			ticket.VisitDate,
			ticket.Rating,
			ticket.Review,
			ticket.TicketImage.URL,
			ticket.TicketImage.Path,
			pq.Array(urls),
			pq.Array(paths),
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	var id uuid.UUID
	if err := r.db.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	return id, nil
}

func (r *TicketRepo) UpdateTicketImages(ctx context.Context, ticketID uuid.UUID, primary models.ImageRef, gallery []models.ImageRef) error {
	const op = "repository.TicketRepo.UpdateTicketImages"

	urls, paths := splitRefs(gallery)

	query, args, err := r.sb.Update(ticketsTable).
		Set("ticket_image_url", primary.URL).
		Set("ticket_image_path", primary.Path).
		Set("gallery_urls", pq.Array(urls)).
		Set("gallery_paths", pq.Array(paths)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.execAffecting(ctx, op, query, args)
}

// UpdateTicket overwrites every editable field, the gallery included.
func (r *TicketRepo) UpdateTicket(ctx context.Context, ticket models.Ticket) error {
	const op = "repository.TicketRepo.UpdateTicket"

	urls, paths := splitRefs(ticket.Gallery)

	query, args, err := r.sb.Update(ticketsTable).
		Set("title", ticket.Title).
		Set("location", ticket.Location).
		Set("website_url", ticket.WebsiteURL).
		Set("visit_date", ticket.VisitDate).
		Set("rating", ticket.Rating).
		Set("review", ticket.Review).
		Set("ticket_image_url", ticket.TicketImage.URL).
		Set("ticket_image_path", ticket.TicketImage.Path).
		Set("gallery_urls", pq.Array(urls)).
		Set("gallery_paths", pq.Array(paths)).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": ticket.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.execAffecting(ctx, op, query, args)
}

func (r *TicketRepo) DeleteTicket(ctx context.Context, ticketID uuid.UUID) error {
	const op = "repository.TicketRepo.DeleteTicket"

	query, args, err := r.sb.Delete(ticketsTable).
		Where(squirrel.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return r.execAffecting(ctx, op, query, args)
}

// GetTicketByID returns storage.ErrTicketNotFound when no row matches.
func (r *TicketRepo) GetTicketByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	const op = "repository.TicketRepo.GetTicketByID"

	query, args, err := r.sb.Select(ticketColumns...).
		From(ticketsTable).
		Where(squirrel.Eq{"id": ticketID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ticket, err := scanTicket(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, storage.ErrTicketNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ticket, nil
}

// ListTicketsByUser returns the owner's tickets, most recent visit first.
func (r *TicketRepo) ListTicketsByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	const op = "repository.TicketRepo.ListTicketsByUser"

	query, args, err := r.sb.Select(ticketColumns...).
		From(ticketsTable).
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("visit_date DESC", "created_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.queryTickets(ctx, op, query, args)
}

// ListIncompleteTickets returns placeholders that never got a primary
// image and were created before the given time.
func (r *TicketRepo) ListIncompleteTickets(ctx context.Context, createdBefore time.Time) ([]models.Ticket, error) {
	const op = "repository.TicketRepo.ListIncompleteTickets"

	query, args, err := r.sb.Select(ticketColumns...).
		From(ticketsTable).
		Where(squirrel.Eq{"ticket_image_url": ""}).
		Where(squirrel.Lt{"created_at": createdBefore}).
		OrderBy("created_at").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return r.queryTickets(ctx, op, query, args)
}

func (r *TicketRepo) queryTickets(ctx context.Context, op, query string, args []interface{}) ([]models.Ticket, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	tickets := make([]models.Ticket, 0)
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		tickets = append(tickets, *ticket)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tickets, nil
}

func (r *TicketRepo) execAffecting(ctx context.Context, op, query string, args []interface{}) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, storage.ErrTicketNotFound)
	}

	return nil
}

func scanTicket(row pgx.Row) (*models.Ticket, error) {
	var (
		t     models.Ticket
		urls  []string
		paths []string
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Title,
		&t.Location,
		&t.WebsiteURL,
		&t.VisitDate,
		&t.Rating,
		&t.Review,
		&t.TicketImage.URL,
		&t.TicketImage.Path,
		&urls,
		&paths,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Gallery = joinRefs(urls, paths)

	return &t, nil
}

func splitRefs(refs []models.ImageRef) (urls, paths []string) {
	urls = make([]string, 0, len(refs))
	paths = make([]string, 0, len(refs))
	for _, ref := range refs {
		urls = append(urls, ref.URL)
		paths = append(paths, ref.Path)
	}
	return urls, paths
}

func joinRefs(urls, paths []string) []models.ImageRef {
	refs := make([]models.ImageRef, 0, len(urls))
	for i, url := range urls {
		ref := models.ImageRef{URL: url}
		if i < len(paths) {
			ref.Path = paths[i]
		}
		refs = append(refs, ref)
	}
	return refs
}
