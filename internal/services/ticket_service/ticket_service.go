package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/carousel"
	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/metrics"
	"github.com/mikutaniguchi/ticket-collection/internal/repository"
	uploads "github.com/mikutaniguchi/ticket-collection/internal/services/upload_service"
	"github.com/mikutaniguchi/ticket-collection/internal/storage"
	"github.com/mikutaniguchi/ticket-collection/internal/transport/http/dto"
)

type Uploader interface {
	ProcessAndUpload(ctx context.Context, file models.PendingImage, userID, ticketID uuid.UUID, role models.ImageRole) (*models.UploadedAsset, error)
}

type TicketService struct {
	log      *slog.Logger
	repo     repository.TicketRepository
	cache    repository.TicketCache
	uploader Uploader
	now      func() time.Time
}

// NewTicketService wires the service. cache may be nil.
func NewTicketService(log *slog.Logger, repo repository.TicketRepository, cache repository.TicketCache, uploader Uploader) *TicketService {
	return &TicketService{
		log:      log,
		repo:     repo,
		cache:    cache,
		uploader: uploader,
		now:      time.Now,
	}
}

// Neighbors locates a ticket in its owner's visit-date ordering.
type Neighbors struct {
	Previous uuid.UUID
	Next     uuid.UUID
	Index    int
	Total    int
}

// Navigable reports whether there is anything to move to.
func (n *Neighbors) Navigable() bool {
	return n.Total >= 2
}

// CreateTicket stores a placeholder to obtain an id, uploads the primary
// image and then the gallery in order, and finally patches the record with
// the resulting references. A failure after the placeholder leaves it in
// place with empty image fields and returns its id along with the error.
// RecoverIncomplete removes such records.
//
// The write sequence is detached from the caller's cancellation so a client
// leaving mid-upload does not abort it.
func (s *TicketService) CreateTicket(ctx context.Context, userID uuid.UUID, input dto.TicketInput) (uuid.UUID, error) {
	const op = "services.TicketService.CreateTicket"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	if err := normalizeInput(&input); err != nil {
		log.Info("invalid ticket input", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	ctx = context.WithoutCancel(ctx)

	ticketID, err := s.repo.CreateTicket(ctx, models.Ticket{
		UserID:     userID,
		Title:      input.Title,
		Location:   input.Location,
		WebsiteURL: input.WebsiteURL,
		VisitDate:  input.VisitDate,
		Rating:     input.Rating,
		Review:     input.Review,
		Gallery:    []models.ImageRef{},
	})
	if err != nil {
		log.Error("failed to create placeholder", sl.Err(err))
		return uuid.Nil, fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("ticket_id", ticketID.String()))

	primary, gallery, err := s.resolveImages(ctx, userID, ticketID, input)
	if err != nil {
		log.Warn("upload failed, placeholder left for recovery", sl.Err(err))
		s.invalidate(ctx, userID)
		return ticketID, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.UpdateTicketImages(ctx, ticketID, primary, gallery); err != nil {
		log.Error("failed to attach images", sl.Err(err))
		s.invalidate(ctx, userID)
		return ticketID, fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, userID)
	log.Info("ticket created", slog.Int("gallery", len(gallery)))

	return ticketID, nil
}

// UpdateTicket overwrites every field. Pending images are uploaded, stored
// references pass through, and the gallery replaces the old one entirely.
func (s *TicketService) UpdateTicket(ctx context.Context, ticketID, userID uuid.UUID, input dto.TicketInput) error {
	const op = "services.TicketService.UpdateTicket"

	log := s.log.With(
		slog.String("op", op),
		slog.String("ticket_id", ticketID.String()),
	)

	if err := normalizeInput(&input); err != nil {
		log.Info("invalid ticket input", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	current, err := s.ownedTicket(ctx, ticketID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	ctx = context.WithoutCancel(ctx)

	primary, gallery, err := s.resolveImages(ctx, userID, ticketID, input)
	if err != nil {
		log.Error("failed to resolve images", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	current.Title = input.Title
	current.Location = input.Location
	current.WebsiteURL = input.WebsiteURL
	current.VisitDate = input.VisitDate
	current.Rating = input.Rating
	current.Review = input.Review
	current.TicketImage = primary
	current.Gallery = gallery

	if err := s.repo.UpdateTicket(ctx, *current); err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}
		log.Error("failed to update ticket", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, userID)
	log.Info("ticket updated")

	return nil
}

// DeleteTicket removes the record only. Its uploaded files stay in storage.
func (s *TicketService) DeleteTicket(ctx context.Context, ticketID, userID uuid.UUID) error {
	const op = "services.TicketService.DeleteTicket"

	log := s.log.With(
		slog.String("op", op),
		slog.String("ticket_id", ticketID.String()),
	)

	current, err := s.ownedTicket(ctx, ticketID, userID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.DeleteTicket(ctx, ticketID); err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			return fmt.Errorf("%s: %w", op, ErrTicketNotFound)
		}
		log.Error("failed to delete ticket", sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	s.invalidate(ctx, userID)
	log.Debug("ticket deleted, assets kept", slog.Int("assets", len(current.Images())))

	return nil
}

// GetTicket returns nil and no error when the ticket does not exist.
func (s *TicketService) GetTicket(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error) {
	const op = "services.TicketService.GetTicket"

	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			return nil, nil
		}
		s.log.Error("failed to get ticket", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return ticket, nil
}

// GetUserTicket is GetTicket restricted to the owner. Tickets of other users
// are reported as absent.
func (s *TicketService) GetUserTicket(ctx context.Context, ticketID, userID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.GetTicket(ctx, ticketID)
	if err != nil || ticket == nil {
		return nil, err
	}
	if ticket.UserID != userID {
		return nil, nil
	}
	return ticket, nil
}

// ListUserTickets returns the owner's tickets, most recent visit first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	const op = "services.TicketService.ListUserTickets"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	if s.cache != nil {
		tickets, ok, err := s.cache.GetUserTickets(ctx, userID)
		if err != nil {
			log.Warn("ticket cache read failed", sl.Err(err))
		} else if ok {
			return tickets, nil
		}
	}

	tickets, err := s.repo.ListTicketsByUser(ctx, userID)
	if err != nil {
		log.Error("failed to list tickets", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	SortByVisitDate(tickets)

	if s.cache != nil {
		if err := s.cache.SetUserTickets(ctx, userID, tickets); err != nil {
			log.Warn("ticket cache write failed", sl.Err(err))
		}
	}

	return tickets, nil
}

// Neighbors returns the previous and next tickets with wrap-around, or nil
// when the ticket is not in the owner's list.
func (s *TicketService) Neighbors(ctx context.Context, ticketID, userID uuid.UUID) (*Neighbors, error) {
	const op = "services.TicketService.Neighbors"

	tickets, err := s.ListUserTickets(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	idx := -1
	for i := range tickets {
		if tickets[i].ID == ticketID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil
	}

	n := len(tickets)

	return &Neighbors{
		Previous: tickets[carousel.Step(idx, n, carousel.Previous)].ID,
		Next:     tickets[carousel.Step(idx, n, carousel.Next)].ID,
		Index:    idx,
		Total:    n,
	}, nil
}

// RecoverIncomplete deletes placeholders older than grace whose images were
// never attached, the leftovers of an interrupted create.
func (s *TicketService) RecoverIncomplete(ctx context.Context, grace time.Duration) (int, error) {
	const op = "services.TicketService.RecoverIncomplete"

	log := s.log.With(slog.String("op", op))

	stale, err := s.repo.ListIncompleteTickets(ctx, s.now().Add(-grace))
	if err != nil {
		log.Error("failed to list incomplete tickets", sl.Err(err))
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	removed := 0
	for _, t := range stale {
		if err := s.repo.DeleteTicket(ctx, t.ID); err != nil && !errors.Is(err, storage.ErrTicketNotFound) {
			log.Error("failed to remove incomplete ticket", slog.String("ticket_id", t.ID.String()), sl.Err(err))
			continue
		}
		removed++
		s.invalidate(ctx, t.UserID)
	}

	if removed > 0 {
		metrics.IncompleteTicketsRemoved.Add(float64(removed))
		log.Info("removed incomplete tickets", slog.Int("count", removed))
	}

	return removed, nil
}

// RunRecovery calls RecoverIncomplete every interval until ctx is done.
func (s *TicketService) RunRecovery(ctx context.Context, interval, grace time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.RecoverIncomplete(ctx, grace)
		}
	}
}

func (s *TicketService) ownedTicket(ctx context.Context, ticketID, userID uuid.UUID) (*models.Ticket, error) {
	ticket, err := s.repo.GetTicketByID(ctx, ticketID)
	if err != nil {
		if errors.Is(err, storage.ErrTicketNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}

	if ticket.UserID != userID {
		return nil, ErrForbidden
	}

	return ticket, nil
}

// resolveImages turns every image source into a stored reference, uploading
// pending files in order: primary first, then the gallery.
func (s *TicketService) resolveImages(ctx context.Context, userID, ticketID uuid.UUID, input dto.TicketInput) (models.ImageRef, []models.ImageRef, error) {
	primary, err := s.resolveImage(ctx, userID, ticketID, input.TicketImage, models.RoleTicket)
	if err != nil {
		return models.ImageRef{}, nil, err
	}

	gallery := make([]models.ImageRef, 0, len(input.Gallery))
	for _, src := range input.Gallery {
		ref, err := s.resolveImage(ctx, userID, ticketID, src, models.RoleGallery)
		if err != nil {
			return models.ImageRef{}, nil, err
		}
		gallery = append(gallery, ref)
	}

	return primary, gallery, nil
}

func (s *TicketService) resolveImage(ctx context.Context, userID, ticketID uuid.UUID, src models.ImageSource, role models.ImageRole) (models.ImageRef, error) {
	switch img := src.(type) {
	case models.PendingImage:
		asset, err := s.uploader.ProcessAndUpload(ctx, img, userID, ticketID, role)
		if err != nil {
			return models.ImageRef{}, err
		}
		return asset.Ref(), nil
	case *models.PendingImage:
		return s.resolveImage(ctx, userID, ticketID, *img, role)
	case models.StoredImage:
		if !ownsPath(img.Path, userID, ticketID) {
			return models.ImageRef{}, ErrForeignImagePath
		}
		return img.ImageRef, nil
	default:
		return models.ImageRef{}, fmt.Errorf("unsupported image source %T", src)
	}
}

// ownsPath reports whether a stored object lives in the ticket's own
// namespace. Paths that are not in canonical form are refused.
func ownsPath(p string, userID, ticketID uuid.UUID) bool {
	if path.Clean(p) != p {
		return false
	}
	return strings.HasPrefix(p, uploads.TicketPrefix(userID, ticketID))
}

func (s *TicketService) invalidate(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateUser(ctx, userID); err != nil {
		s.log.Warn("ticket cache invalidation failed", slog.String("user_id", userID.String()), sl.Err(err))
	}
}

// SortByVisitDate orders tickets by visit date, most recent first. Equal
// dates keep their relative order.
func SortByVisitDate(tickets []models.Ticket) {
	sort.SliceStable(tickets, func(i, j int) bool {
		return tickets[i].VisitDate.After(tickets[j].VisitDate)
	})
}

// normalizeInput trims text fields, truncates the gallery and checks the
// invariants every stored ticket must satisfy.
func normalizeInput(input *dto.TicketInput) error {
	verr := &ValidationError{}

	input.Title = strings.TrimSpace(input.Title)
	input.Location = strings.TrimSpace(input.Location)
	input.WebsiteURL = strings.TrimSpace(input.WebsiteURL)

	if input.Title == "" {
		verr.add("title", "title is required")
	}

	if input.Rating < models.MinRating || input.Rating > models.MaxRating {
		verr.add("rating", fmt.Sprintf("rating must be between %d and %d", models.MinRating, models.MaxRating))
	}

	if input.VisitDate.IsZero() {
		verr.add("visit_date", "visit date is required")
	}

	if input.WebsiteURL != "" {
		u, err := url.Parse(input.WebsiteURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			verr.add("website_url", "website url must be an http(s) URL")
		}
	}

	if input.TicketImage == nil {
		verr.add("ticket_image", "ticket image is required")
	}

	for _, src := range input.Gallery {
		if src == nil {
			verr.add("gallery", "gallery entries must not be empty")
			break
		}
	}

	if len(input.Gallery) > models.MaxGalleryImages {
		input.Gallery = input.Gallery[:models.MaxGalleryImages]
	}

	if !verr.empty() {
		return verr
	}

	return nil
}
