package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/middleware"
	"github.com/mikutaniguchi/ticket-collection/internal/services/auth"
	tickets "github.com/mikutaniguchi/ticket-collection/internal/services/ticket_service"
	tokens "github.com/mikutaniguchi/ticket-collection/internal/services/token_service"
	uploads "github.com/mikutaniguchi/ticket-collection/internal/services/upload_service"
	users "github.com/mikutaniguchi/ticket-collection/internal/services/user_service"
	"github.com/mikutaniguchi/ticket-collection/internal/storage"
	"github.com/mikutaniguchi/ticket-collection/internal/transport/http/dto"
	"github.com/mikutaniguchi/ticket-collection/internal/transport/http/dto/response"

	_ "github.com/mikutaniguchi/ticket-collection/docs"
)

const (
	sessionName   = "session"
	oauthStateKey = "oauth_state"
)

type TicketService interface {
	CreateTicket(ctx context.Context, userID uuid.UUID, input dto.TicketInput) (uuid.UUID, error)
	UpdateTicket(ctx context.Context, ticketID, userID uuid.UUID, input dto.TicketInput) error
	DeleteTicket(ctx context.Context, ticketID, userID uuid.UUID) error
	GetUserTicket(ctx context.Context, ticketID, userID uuid.UUID) (*models.Ticket, error)
	ListUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	Neighbors(ctx context.Context, ticketID, userID uuid.UUID) (*tickets.Neighbors, error)
}

type AuthService interface {
	LoginURL(state string) string
	Callback(ctx context.Context, code string) (*models.TokenPair, error)
}

type TokenService interface {
	RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error)
	Logout(ctx context.Context, userID uuid.UUID) error
}

type UserService interface {
	Me(ctx context.Context, userID uuid.UUID) (models.User, error)
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (models.User, error)
}

type ArtworkService interface {
	RandomArtwork(ctx context.Context) (*models.Artwork, error)
}

// ObjectURLResolver maps a stored object path to its public URL.
type ObjectURLResolver interface {
	URL(objectPath string) string
}

type Routers struct {
	log              *slog.Logger
	TicketService    TicketService
	AuthService      AuthService
	TokenService     TokenService
	UserService      UserService
	ArtworkService   ArtworkService
	files            ObjectURLResolver
	frontendRedirect string
}

func NewRouter(
	log *slog.Logger,
	ticketService TicketService,
	authService AuthService,
	tokenService TokenService,
	userService UserService,
	artworkService ArtworkService,
	files ObjectURLResolver,
	frontendRedirect string,
) *Routers {
	return &Routers{
		log:              log,
		TicketService:    ticketService,
		AuthService:      authService,
		TokenService:     tokenService,
		UserService:      userService,
		ArtworkService:   artworkService,
		files:            files,
		frontendRedirect: frontendRedirect,
	}
}

var (
	ErrInvalidUUID       = errors.New("not valid UUID")
	ErrInvalidVisitDate  = errors.New("visit_date must be RFC3339 or YYYY-MM-DD")
	ErrInvalidGalleryRef = errors.New("gallery entry refers to a missing upload")
)

// CreateTicket godoc
// @Summary Create a ticket
// @Description Stores a ticket record, uploads the primary image and then the gallery in order.
// @Description Gallery order follows the optional gallery fields, each either upload:<n> or a stored path.
// @Tags tickets
// @Accept multipart/form-data
// @Produce json
// @Param title formData string true "Exhibition title"
// @Param location formData string false "Venue"
// @Param website_url formData string false "Exhibition website"
// @Param visit_date formData string true "RFC3339 or YYYY-MM-DD"
// @Param visit_hour formData integer false "Hour of the visit when visit_date has no time"
// @Param rating formData integer false "1 to 5, defaults to 3"
// @Param review formData string false "Review text (markdown subset)"
// @Param ticket_image formData file false "Primary image"
// @Param ticket_image_path formData string false "Stored primary image path"
// @Param gallery_files formData file false "Gallery images (up to 5)"
// @Success 201 {object} response.Response{data=object{id=string}} "Created"
// @Failure 400 {object} response.ErrorResponse "Invalid form"
// @Failure 401 {object} response.ErrorResponse "Sign in required"
// @Failure 413 {object} response.ErrorResponse "File too large"
// @Failure 500 {object} response.ErrorResponse "Internal error"
// @Security ApiKeyAuth
// @Router /api/v1/tickets [post]
func (r *Routers) CreateTicket(c echo.Context) error {
	const op = "http.routers.CreateTicket"

	log := r.log.With(slog.String("op", op))

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	input, err := r.parseTicketForm(c)
	if err != nil {
		log.Info("invalid ticket form", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(err.Error()))
	}

	ticketID, err := r.TicketService.CreateTicket(c.Request().Context(), userID, input)
	if err != nil {
		if ticketID != uuid.Nil {
			log.Warn("ticket left incomplete", slog.String("ticket_id", ticketID.String()), sl.Err(err))
		}
		return r.ticketError(c, log, err)
	}

	return c.JSON(http.StatusCreated, response.SuccessResponse(map[string]uuid.UUID{
		"id": ticketID,
	}))
}

// ListTickets godoc
// @Summary List own tickets
// @Description Tickets of the signed-in user, most recent visit first.
// @Tags tickets
// @Produce json
// @Success 200 {object} response.Response{data=[]dto.TicketResponse}
// @Failure 401 {object} response.ErrorResponse "Sign in required"
// @Failure 500 {object} response.ErrorResponse "Internal error"
// @Security ApiKeyAuth
// @Router /api/v1/tickets [get]
func (r *Routers) ListTickets(c echo.Context) error {
	const op = "http.routers.ListTickets"

	log := r.log.With(slog.String("op", op))

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	list, err := r.TicketService.ListUserTickets(c.Request().Context(), userID)
	if err != nil {
		return r.ticketError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewTicketListResponse(list)))
}

// GetTicket godoc
// @Summary Ticket detail
// @Description Returns the ticket with its review rendered as HTML. Absent tickets yield {"status":"not_found"}.
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Success 200 {object} response.Response{data=dto.TicketResponse}
// @Failure 400 {object} response.ErrorResponse "Invalid id"
// @Failure 404 {object} response.Response "Not found"
// @Security ApiKeyAuth
// @Router /api/v1/tickets/{id} [get]
func (r *Routers) GetTicket(c echo.Context) error {
	const op = "http.routers.GetTicket"

	log := r.log.With(slog.String("op", op))

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(ErrInvalidUUID.Error()))
	}

	ticket, err := r.TicketService.GetUserTicket(c.Request().Context(), ticketID, userID)
	if err != nil {
		return r.ticketError(c, log, err)
	}
	if ticket == nil {
		return c.JSON(http.StatusNotFound, response.NotFound)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NewTicketResponse(ticket, true)))
}

// UpdateTicket godoc
// @Summary Edit a ticket
// @Description Overwrites every field. The gallery in the form replaces the stored gallery.
// @Tags tickets
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Param title formData string true "Exhibition title"
// @Param visit_date formData string true "RFC3339 or YYYY-MM-DD"
// @Param rating formData integer false "1 to 5, defaults to 3"
// @Param ticket_image formData file false "New primary image"
// @Param ticket_image_path formData string false "Keep a stored primary image"
// @Param gallery_files formData file false "New gallery images"
// @Success 200 {object} response.Response{data=object{id=string}}
// @Failure 400 {object} response.ErrorResponse "Invalid form"
// @Failure 403 {object} response.ErrorResponse "Not the owner"
// @Failure 404 {object} response.Response "Not found"
// @Security ApiKeyAuth
// @Router /api/v1/tickets/{id} [put]
func (r *Routers) UpdateTicket(c echo.Context) error {
	const op = "http.routers.UpdateTicket"

	log := r.log.With(slog.String("op", op))

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(ErrInvalidUUID.Error()))
	}

	input, err := r.parseTicketForm(c)
	if err != nil {
		log.Info("invalid ticket form", sl.Err(err))
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(err.Error()))
	}

	if err := r.TicketService.UpdateTicket(c.Request().Context(), ticketID, userID, input); err != nil {
		return r.ticketError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(map[string]uuid.UUID{
		"id": ticketID,
	}))
}

// DeleteTicket godoc
// @Summary Delete a ticket
// @Description Removes the record. Uploaded files are kept.
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Success 200 {object} response.Response
// @Failure 403 {object} response.ErrorResponse "Not the owner"
// @Failure 404 {object} response.Response "Not found"
// @Security ApiKeyAuth
// @Router /api/v1/tickets/{id} [delete]
func (r *Routers) DeleteTicket(c echo.Context) error {
	const op = "http.routers.DeleteTicket"

	log := r.log.With(slog.String("op", op))

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(ErrInvalidUUID.Error()))
	}

	if err := r.TicketService.DeleteTicket(c.Request().Context(), ticketID, userID); err != nil {
		return r.ticketError(c, log, err)
	}

	return c.JSON(http.StatusOK, response.Done("ticket deleted"))
}

// TicketNeighbors godoc
// @Summary Previous and next tickets
// @Description Neighbours in visit-date order with wrap-around.
// @Tags tickets
// @Produce json
// @Param id path string true "Ticket ID" format(uuid)
// @Success 200 {object} response.Response{data=dto.NeighborsResponse}
// @Failure 404 {object} response.Response "Not found"
// @Security ApiKeyAuth
// @Router /api/v1/tickets/{id}/neighbors [get]
func (r *Routers) TicketNeighbors(c echo.Context) error {
	const op = "http.routers.TicketNeighbors"

	log := r.log.With(slog.String("op", op))

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	ticketID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(ErrInvalidUUID.Error()))
	}

	n, err := r.TicketService.Neighbors(c.Request().Context(), ticketID, userID)
	if err != nil {
		return r.ticketError(c, log, err)
	}
	if n == nil {
		return c.JSON(http.StatusNotFound, response.NotFound)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(dto.NeighborsResponse{
		PreviousID: n.Previous,
		NextID:     n.Next,
		Index:      n.Index,
		Total:      n.Total,
		Navigable:  n.Navigable(),
	}))
}

// GoogleLogin godoc
// @Summary Start Google sign-in
// @Tags auth
// @Success 302 "Redirect to Google"
// @Router /api/v1/auth/google [get]
func (r *Routers) GoogleLogin(c echo.Context) error {
	const op = "http.routers.GoogleLogin"

	state, err := auth.NewState()
	if err != nil {
		r.log.Error("failed to generate state", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		r.log.Error("failed to open session", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	sess.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	sess.Values[oauthStateKey] = state
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		r.log.Error("failed to save session", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.Redirect(http.StatusFound, r.AuthService.LoginURL(state))
}

// GoogleCallback godoc
// @Summary Finish Google sign-in
// @Description Redirects to the frontend with the token pair, or returns it as JSON when no frontend is configured.
// @Tags auth
// @Produce json
// @Param code query string true "Authorization code"
// @Param state query string true "State issued by /auth/google"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Success 302 "Redirect to the frontend"
// @Failure 400 {object} response.ErrorResponse "Missing or mismatched state"
// @Failure 401 {object} response.ErrorResponse "Sign-in failed"
// @Router /api/v1/auth/google/callback [get]
func (r *Routers) GoogleCallback(c echo.Context) error {
	const op = "http.routers.GoogleCallback"

	log := r.log.With(slog.String("op", op))

	code := c.QueryParam("code")
	state := c.QueryParam("state")
	if code == "" || state == "" {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed("missing code/state"))
	}

	sess, err := session.Get(sessionName, c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed("invalid oauth state"))
	}

	expected, _ := sess.Values[oauthStateKey].(string)
	if expected == "" || expected != state {
		log.Warn("oauth state mismatch")
		return c.JSON(http.StatusBadRequest, response.ValidationFailed("invalid oauth state"))
	}

	delete(sess.Values, oauthStateKey)
	if err := sess.Save(c.Request(), c.Response()); err != nil {
		log.Warn("failed to clear oauth state", sl.Err(err))
	}

	pair, err := r.AuthService.Callback(c.Request().Context(), code)
	if err != nil {
		log.Warn("sign-in failed", sl.Err(err))
		return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
	}

	if r.frontendRedirect == "" {
		return c.JSON(http.StatusOK, response.SuccessResponse(pair))
	}

	q := url.Values{}
	q.Set("access_token", pair.AccessToken)
	q.Set("refresh_token", pair.RefreshToken)

	return c.Redirect(http.StatusFound, r.frontendRedirect+"#"+q.Encode())
}

// Refresh godoc
// @Summary Rotate tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.RefreshRequest true "Refresh token"
// @Success 200 {object} response.Response{data=models.TokenPair}
// @Failure 400 {object} response.ErrorResponse "Invalid request"
// @Failure 401 {object} response.ErrorResponse "Invalid refresh token"
// @Router /api/v1/auth/refresh [post]
func (r *Routers) Refresh(c echo.Context) error {
	const op = "http.routers.Refresh"

	log := r.log.With(slog.String("op", op))

	var req dto.RefreshRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(err.Error()))
	}

	pair, err := r.TokenService.RefreshTokens(c.Request().Context(), req.RefreshToken)
	if err != nil {
		log.Info("refresh rejected", sl.Err(err))
		if errors.Is(err, tokens.ErrInvalidToken) || errors.Is(err, tokens.ErrInvalidTokenClaims) || errors.Is(err, tokens.ErrTokenNotInStorage) {
			return c.JSON(http.StatusUnauthorized, response.ErrAuthenticationFailed)
		}
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(pair))
}

// Logout godoc
// @Summary Sign out everywhere
// @Description Revokes every refresh token of the caller.
// @Tags auth
// @Produce json
// @Success 200 {object} response.Response
// @Security ApiKeyAuth
// @Router /api/v1/auth/logout [post]
func (r *Routers) Logout(c echo.Context) error {
	const op = "http.routers.Logout"

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	if err := r.TokenService.Logout(c.Request().Context(), userID); err != nil {
		r.log.Error("logout failed", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.Done("signed out"))
}

// Me godoc
// @Summary Current user
// @Tags users
// @Produce json
// @Success 200 {object} response.Response{data=models.User}
// @Failure 404 {object} response.Response "Not found"
// @Security ApiKeyAuth
// @Router /api/v1/me [get]
func (r *Routers) Me(c echo.Context) error {
	const op = "http.routers.Me"

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	user, err := r.UserService.Me(c.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, users.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, response.NotFound)
		}
		r.log.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(user))
}

// UpdateMe godoc
// @Summary Update account settings
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "New display name"
// @Success 200 {object} response.Response{data=models.User}
// @Failure 400 {object} response.ErrorResponse "Invalid display name"
// @Security ApiKeyAuth
// @Router /api/v1/me [patch]
func (r *Routers) UpdateMe(c echo.Context) error {
	const op = "http.routers.UpdateMe"

	userID, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
	}

	var req dto.UpdateProfileRequest

	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ErrInvalidRequestFormat)
	}

	req.DisplayName = strings.TrimSpace(req.DisplayName)
	if err := c.Validate(req); err != nil {
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(err.Error()))
	}

	user, err := r.UserService.UpdateDisplayName(c.Request().Context(), userID, req.DisplayName)
	if err != nil {
		switch {
		case errors.Is(err, users.ErrInvalidDisplayName):
			return c.JSON(http.StatusBadRequest, response.ValidationFailed(users.ErrInvalidDisplayName.Error()))
		case errors.Is(err, users.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, response.NotFound)
		}
		r.log.Error("failed to update user", slog.String("op", op), sl.Err(err))
		return c.JSON(http.StatusInternalServerError, response.ErrInternal)
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(user))
}

// RandomArtwork godoc
// @Summary Random artwork
// @Description Decoration for the not-found view. Returns status "empty" when no artwork could be fetched.
// @Tags artworks
// @Produce json
// @Success 200 {object} response.Response{data=models.Artwork}
// @Router /api/v1/artworks/random [get]
func (r *Routers) RandomArtwork(c echo.Context) error {
	const op = "http.routers.RandomArtwork"

	art, err := r.ArtworkService.RandomArtwork(c.Request().Context())
	if err != nil {
		r.log.Warn("artwork lookup failed", slog.String("op", op), sl.Err(err))
	}
	if art == nil {
		return c.JSON(http.StatusOK, response.Empty())
	}

	return c.JSON(http.StatusOK, response.SuccessResponse(art))
}

// NotFound is the fallback for unknown routes.
func (r *Routers) NotFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, response.NotFound)
}

func (r *Routers) ticketError(c echo.Context, log *slog.Logger, err error) error {
	var verr *tickets.ValidationError

	switch {
	case errors.As(err, &verr):
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(verr.Error()))
	case errors.Is(err, tickets.ErrTicketNotFound):
		return c.JSON(http.StatusNotFound, response.NotFound)
	case errors.Is(err, tickets.ErrForbidden):
		return c.JSON(http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, tickets.ErrForeignImagePath):
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(tickets.ErrForeignImagePath.Error()))
	case errors.Is(err, uploads.ErrNotAnImage), errors.Is(err, uploads.ErrEmptyFile):
		return c.JSON(http.StatusBadRequest, response.ValidationFailed(err.Error()))
	case errors.Is(err, storage.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, response.ErrFileTooLarge)
	}

	log.Error("ticket operation failed", sl.Err(err))

	return c.JSON(http.StatusInternalServerError, response.ErrInternal)
}

// parseTicketForm binds the shared create/edit form. An absent rating
// defaults to 3, an explicit one is validated by the service.
func (r *Routers) parseTicketForm(c echo.Context) (dto.TicketInput, error) {
	form := dto.TicketForm{Rating: models.DefaultRating}

	if err := c.Bind(&form); err != nil {
		return dto.TicketInput{}, fmt.Errorf("bind form: %w", err)
	}

	if err := c.Validate(form); err != nil {
		return dto.TicketInput{}, err
	}

	visitDate, err := parseVisitDate(form.VisitDate, form.VisitHour)
	if err != nil {
		return dto.TicketInput{}, err
	}

	input := dto.TicketInput{
		Title:      form.Title,
		Location:   form.Location,
		WebsiteURL: form.WebsiteURL,
		VisitDate:  visitDate,
		Rating:     form.Rating,
		Review:     form.Review,
	}

	mf, err := c.MultipartForm()
	if err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return dto.TicketInput{}, fmt.Errorf("read multipart form: %w", err)
	}

	var files map[string][]*multipart.FileHeader
	if mf != nil {
		files = mf.File
	}

	switch {
	case len(files["ticket_image"]) > 0:
		img, err := readPending(files["ticket_image"][0])
		if err != nil {
			return dto.TicketInput{}, err
		}
		input.TicketImage = img
	case form.TicketImagePath != "":
		input.TicketImage = r.stored(form.TicketImagePath)
	}

	gallery, err := r.galleryFromForm(form.Gallery, files["gallery_files"])
	if err != nil {
		return dto.TicketInput{}, err
	}
	input.Gallery = gallery

	return input, nil
}

// galleryFromForm builds the ordered gallery. Without explicit entries the
// uploaded files are taken in order; otherwise each entry is upload:<n> or
// a stored object path.
func (r *Routers) galleryFromForm(entries []string, files []*multipart.FileHeader) ([]models.ImageSource, error) {
	gallery := make([]models.ImageSource, 0, models.MaxGalleryImages)

	if len(entries) == 0 {
		for _, fh := range files {
			if len(gallery) == models.MaxGalleryImages {
				break
			}
			img, err := readPending(fh)
			if err != nil {
				return nil, err
			}
			gallery = append(gallery, img)
		}
		return gallery, nil
	}

	for _, entry := range entries {
		if len(gallery) == models.MaxGalleryImages {
			break
		}

		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}

		if idx, ok := strings.CutPrefix(entry, dto.GalleryUploadPrefix); ok {
			n, err := strconv.Atoi(idx)
			if err != nil || n < 0 || n >= len(files) {
				return nil, fmt.Errorf("%w: %s", ErrInvalidGalleryRef, entry)
			}
			img, err := readPending(files[n])
			if err != nil {
				return nil, err
			}
			gallery = append(gallery, img)
			continue
		}

		gallery = append(gallery, r.stored(entry))
	}

	return gallery, nil
}

func (r *Routers) stored(objectPath string) models.StoredImage {
	return models.StoredImage{ImageRef: models.ImageRef{
		URL:  r.files.URL(objectPath),
		Path: objectPath,
	}}
}

func readPending(fh *multipart.FileHeader) (models.PendingImage, error) {
	f, err := fh.Open()
	if err != nil {
		return models.PendingImage{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.PendingImage{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}

	return models.PendingImage{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}, nil
}

func parseVisitDate(raw, hour string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02T15:04", raw); err == nil {
		return t, nil
	}

	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return time.Time{}, ErrInvalidVisitDate
	}
	if hour = strings.TrimSpace(hour); hour != "" {
		h, err := strconv.Atoi(hour)
		if err != nil || h < 0 || h > 23 {
			return time.Time{}, ErrInvalidVisitDate
		}
		t = t.Add(time.Duration(h) * time.Hour)
	}

	return t, nil
}
