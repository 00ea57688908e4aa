package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
)

type TicketRepository interface {
	CreateTicket(ctx context.Context, ticket models.Ticket) (uuid.UUID, error)
	UpdateTicketImages(ctx context.Context, ticketID uuid.UUID, primary models.ImageRef, gallery []models.ImageRef) error
	UpdateTicket(ctx context.Context, ticket models.Ticket) error
	DeleteTicket(ctx context.Context, ticketID uuid.UUID) error
	GetTicketByID(ctx context.Context, ticketID uuid.UUID) (*models.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	ListIncompleteTickets(ctx context.Context, createdBefore time.Time) ([]models.Ticket, error)
}

type UserRepository interface {
	UpsertExternalUser(ctx context.Context, identity models.ExternalIdentity) (models.User, error)
	GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error
}

type TokenRepository interface {
	SaveRefreshToken(ctx context.Context, userID, token string, exp time.Duration) error
	GetRefreshToken(ctx context.Context, userID, token string) (bool, error)
	DeleteRefreshToken(ctx context.Context, userID, token string) error
	DeleteAllUserTokens(ctx context.Context, userID string) error
}

type TicketCache interface {
	GetUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, bool, error)
	SetUserTickets(ctx context.Context, userID uuid.UUID, tickets []models.Ticket) error
	InvalidateUser(ctx context.Context, userID uuid.UUID) error
}
