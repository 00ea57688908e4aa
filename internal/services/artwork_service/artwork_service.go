package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/metrics"
)

const (
	fields         = "id,title,artist_display,date_display,style_title,short_description,image_id,thumbnail"
	untitled       = "無題"
	unknownArtist  = "作者不明"
	recentCacheKey = "recent"
)

var (
	ErrNoImage         = errors.New("artwork has no image")
	ErrUnexpectedReply = errors.New("unexpected reply from art api")
)

type Config struct {
	BaseURL      string
	ImageBaseURL string
	MaxPage      int
	MaxAttempts  int
	FallbackIDs  []int
	CacheTTL     time.Duration
}

type artworkData struct {
	ID               int    `json:"id"`
	Title            string `json:"title"`
	ArtistDisplay    string `json:"artist_display"`
	DateDisplay      string `json:"date_display"`
	StyleTitle       string `json:"style_title"`
	ShortDescription string `json:"short_description"`
	ImageID          string `json:"image_id"`
	Thumbnail        *struct {
		AltText string `json:"alt_text"`
	} `json:"thumbnail"`
}

type listReply struct {
	Data []artworkData `json:"data"`
}

type itemReply struct {
	Data artworkData `json:"data"`
}

// ArtworkService picks a random public-domain artwork to decorate the
// not-found page.
type ArtworkService struct {
	log    *slog.Logger
	client *http.Client
	cfg    Config
	cache  *cache.Cache
	intn   func(n int) int
}

func NewArtworkService(log *slog.Logger, client *http.Client, cfg Config) *ArtworkService {
	if cfg.MaxPage <= 0 {
		cfg.MaxPage = 50
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}

	return &ArtworkService{
		log:    log,
		client: client,
		cfg:    cfg,
		cache:  cache.New(cfg.CacheTTL, 2*cfg.CacheTTL),
		intn:   rand.IntN,
	}
}

// RandomArtwork tries random listing pages until one yields an artwork with
// an image. It then falls back to the most recent result and finally to a
// fixed list of ids. When every source fails it returns nil and no error.
func (s *ArtworkService) RandomArtwork(ctx context.Context) (*models.Artwork, error) {
	const op = "services.ArtworkService.RandomArtwork"

	log := s.log.With(slog.String("op", op))

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		page := s.intn(s.cfg.MaxPage) + 1

		art, err := s.fetchPage(ctx, page)
		if err == nil {
			s.cache.SetDefault(recentCacheKey, art)
			s.cache.SetDefault(strconv.Itoa(art.ID), art)
			metrics.ArtworkLookups.WithLabelValues("random").Inc()
			return art, nil
		}

		if ctx.Err() != nil {
			break
		}
		if !errors.Is(err, ErrNoImage) {
			log.Warn("artwork fetch failed", slog.Int("page", page), sl.Err(err))
			break
		}
		log.Debug("artwork without image, retrying", slog.Int("page", page), slog.Int("attempt", attempt))
	}

	if cached, ok := s.cache.Get(recentCacheKey); ok {
		metrics.ArtworkLookups.WithLabelValues("cache").Inc()
		return cached.(*models.Artwork), nil
	}

	if len(s.cfg.FallbackIDs) > 0 {
		id := s.cfg.FallbackIDs[s.intn(len(s.cfg.FallbackIDs))]

		art, err := s.fetchByID(ctx, id)
		if err == nil {
			metrics.ArtworkLookups.WithLabelValues("fallback").Inc()
			return art, nil
		}
		log.Warn("fallback artwork fetch failed", slog.Int("id", id), sl.Err(err))
	}

	metrics.ArtworkLookups.WithLabelValues("miss").Inc()

	return nil, nil
}

func (s *ArtworkService) fetchPage(ctx context.Context, page int) (*models.Artwork, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", "1")
	q.Set("fields", fields)

	var reply listReply
	if err := s.getJSON(ctx, strings.TrimRight(s.cfg.BaseURL, "/")+"/artworks?"+q.Encode(), &reply); err != nil {
		return nil, err
	}

	if len(reply.Data) == 0 {
		return nil, ErrUnexpectedReply
	}

	data := reply.Data[0]
	if data.ImageID == "" {
		return nil, ErrNoImage
	}

	return s.toArtwork(data), nil
}

func (s *ArtworkService) fetchByID(ctx context.Context, id int) (*models.Artwork, error) {
	key := strconv.Itoa(id)
	if cached, ok := s.cache.Get(key); ok {
		return cached.(*models.Artwork), nil
	}

	q := url.Values{}
	q.Set("fields", fields)

	var reply itemReply
	if err := s.getJSON(ctx, strings.TrimRight(s.cfg.BaseURL, "/")+"/artworks/"+key+"?"+q.Encode(), &reply); err != nil {
		return nil, err
	}

	if reply.Data.ID == 0 {
		return nil, ErrUnexpectedReply
	}

	art := s.toArtwork(reply.Data)
	s.cache.SetDefault(key, art)

	return art, nil
}

func (s *ArtworkService) getJSON(ctx context.Context, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnexpectedReply, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrUnexpectedReply, err)
	}

	return nil
}

func (s *ArtworkService) toArtwork(d artworkData) *models.Artwork {
	art := &models.Artwork{
		ID:          d.ID,
		Title:       firstNonEmpty(d.Title, untitled),
		Artist:      firstNonEmpty(d.ArtistDisplay, unknownArtist),
		Date:        d.DateDisplay,
		Style:       d.StyleTitle,
		Description: d.ShortDescription,
	}

	if d.Thumbnail != nil {
		art.AltText = d.Thumbnail.AltText
		if art.Description == "" {
			art.Description = d.Thumbnail.AltText
		}
	}

	if d.ImageID != "" {
		art.ImageURL = ImageURL(s.cfg.ImageBaseURL, d.ImageID)
	}

	return art
}

// ImageURL is the IIIF address of an 843px wide rendition.
func ImageURL(base, imageID string) string {
	return strings.TrimRight(base, "/") + "/" + imageID + "/full/843,/0/default.jpg"
}

func firstNonEmpty(s ...string) string {
	for _, v := range s {
		if v != "" {
			return v
		}
	}
	return ""
}
