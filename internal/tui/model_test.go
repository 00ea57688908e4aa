package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikutaniguchi/ticket-collection/internal/carousel"
	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
)

type fakeSource struct {
	mu       sync.Mutex
	tickets  []models.Ticket
	listErr  error
	delErr   error
	deleted  []uuid.UUID
	lastUser uuid.UUID
}

func (f *fakeSource) ListUserTickets(_ context.Context, userID uuid.UUID) ([]models.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastUser = userID
	return f.tickets, f.listErr
}

func (f *fakeSource) DeleteTicket(_ context.Context, ticketID, _ uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return f.delErr
	}
	f.deleted = append(f.deleted, ticketID)
	return nil
}

func testTickets() []models.Ticket {
	day := time.Date(2024, 5, 1, 14, 0, 0, 0, time.UTC)
	return []models.Ticket{
		{
			ID:          uuid.New(),
			Title:       "Monet",
			Location:    "Ueno",
			VisitDate:   day,
			Rating:      5,
			Review:      "- water lilies\n- bridge",
			TicketImage: models.ImageRef{URL: "http://cdn/a/ticket.jpg", Path: "a/ticket.jpg"},
			Gallery: []models.ImageRef{
				{URL: "http://cdn/a/g1.jpg", Path: "a/g1.jpg"},
				{URL: "http://cdn/a/g2.jpg", Path: "a/g2.jpg"},
			},
		},
		{ID: uuid.New(), Title: "Hokusai", VisitDate: day.AddDate(0, 0, -3), Rating: 4},
		{ID: uuid.New(), Title: "Vermeer", VisitDate: day.AddDate(0, 0, -9), Rating: 3},
	}
}

var testConfig = Config{TicketSettle: time.Millisecond, ImageSettle: time.Millisecond}

// newLoadedModel returns a sized model with the source's tickets applied.
func newLoadedModel(t *testing.T, src *fakeSource) Model {
	t.Helper()

	model := NewModel(context.Background(), src, uuid.New(), testConfig)
	msg := model.Init()()
	updated, _ := model.Update(msg)
	updated, _ = updated.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "left":
		msg = tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	updated, cmd := m.Update(msg)
	return updated.(Model), cmd
}

func send(m Model, msg tea.Msg) Model {
	updated, _ := m.Update(msg)
	return updated.(Model)
}

// settle runs the tick scheduled by a navigation and delivers its message.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	return send(m, cmd())
}

// step presses an arrow and lets the transition settle.
func step(t *testing.T, m Model, k string) Model {
	t.Helper()
	m, cmd := press(m, k)
	return settle(t, m, cmd)
}

func TestModelLoad(t *testing.T) {
	src := &fakeSource{tickets: testTickets()}
	model := NewModel(context.Background(), src, uuid.New(), DefaultConfig())

	assert.Equal(t, "Loading...", model.View())

	model = send(model, model.Init()())
	model = send(model, tea.WindowSizeMsg{Width: 100, Height: 30})

	require.NotNil(t, model.Current())
	assert.Equal(t, "Monet", model.Current().Title)
	assert.Equal(t, 3, model.nav.Len())

	view := model.View()
	assert.Contains(t, view, "Monet")
	assert.Contains(t, view, "1/3")
	assert.Contains(t, view, "★★★★★")
	assert.Contains(t, view, "• water lilies")
	assert.NotContains(t, view, "- bridge")
}

func TestModelLoadError(t *testing.T) {
	src := &fakeSource{listErr: errors.New("db down")}
	model := newLoadedModel(t, src)

	assert.Nil(t, model.Current())
	assert.Contains(t, model.View(), "db down")
}

func TestModelEmptyCollection(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{})

	assert.Contains(t, model.View(), "No tickets yet.")

	model, cmd := press(model, "right")
	assert.Nil(t, cmd)
	model, _ = press(model, "d")
	assert.False(t, model.confirmOpen)
}

func TestModelArrowNavigation(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

	model, first := press(model, "right")
	require.NotNil(t, first)
	assert.Equal(t, carousel.Transitioning, model.nav.State())
	assert.Equal(t, 0, model.nav.Index())

	// A second press during the transition is dropped.
	model, cmd := press(model, "right")
	assert.Nil(t, cmd)

	model = send(model, first())
	assert.Equal(t, 1, model.nav.Index())
	assert.Equal(t, "Hokusai", model.Current().Title)

	// Wrap around from the first ticket to the last.
	model = step(t, model, "left")
	model = step(t, model, "left")
	assert.Equal(t, "Vermeer", model.Current().Title)
}

func TestModelSettleCommandFires(t *testing.T) {
	cfg := Config{TicketSettle: time.Millisecond, ImageSettle: time.Millisecond}
	model := NewModel(context.Background(), &fakeSource{tickets: testTickets()}, uuid.New(), cfg)
	model = send(model, model.Init()())

	model, cmd := press(model, "right")
	require.NotNil(t, cmd)

	msg, ok := cmd().(settleMsg)
	require.True(t, ok)
	assert.False(t, msg.images)

	model = send(model, msg)
	assert.Equal(t, 1, model.nav.Index())
}

func TestModelReloadDuringTransition(t *testing.T) {
	src := &fakeSource{tickets: testTickets()}
	model := newLoadedModel(t, src)

	model, stale := press(model, "right")
	require.NotNil(t, stale)

	// A reload lands before the first settle and cancels the transition.
	model = send(model, model.load()())
	assert.Equal(t, carousel.Idle, model.nav.State())

	model, current := press(model, "right")
	require.NotNil(t, current)

	model = send(model, stale())
	assert.Equal(t, carousel.Transitioning, model.nav.State())
	assert.Equal(t, 0, model.nav.Index())

	model = send(model, current())
	assert.Equal(t, carousel.Idle, model.nav.State())
	assert.Equal(t, 1, model.nav.Index())
}

func TestModelStaleImageSettleAfterModalReopen(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

	model, _ = press(model, "g")
	model, stale := press(model, "right")
	require.NotNil(t, stale)

	model, _ = press(model, "esc")
	model, _ = press(model, "g")
	require.True(t, model.modalOpen)

	model = send(model, stale())
	assert.Equal(t, 0, model.images.Index())
	assert.Equal(t, carousel.Idle, model.images.State())
}

func TestModelImageModal(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

	model, _ = press(model, "g")
	require.True(t, model.modalOpen)
	assert.Equal(t, 3, model.images.Len())
	assert.Contains(t, model.View(), "ticket 1/3")
	assert.Contains(t, model.View(), "http://cdn/a/ticket.jpg")

	// Arrows move through images, not tickets.
	model = step(t, model, "right")
	assert.Equal(t, 1, model.images.Index())
	assert.Equal(t, 0, model.nav.Index())
	assert.Contains(t, model.View(), "gallery 2/3")

	model = step(t, model, "left")
	model = step(t, model, "left")
	assert.Equal(t, 2, model.images.Index())
	assert.Contains(t, model.View(), "http://cdn/a/g2.jpg")

	model, _ = press(model, "esc")
	assert.False(t, model.modalOpen)
}

func TestModelImageModalWithoutImages(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

	model = step(t, model, "right")

	model, _ = press(model, "g")
	assert.False(t, model.modalOpen)
	assert.Contains(t, model.View(), "no images")
}

func TestModelDeleteConfirmGatesArrows(t *testing.T) {
	src := &fakeSource{tickets: testTickets()}
	model := newLoadedModel(t, src)

	model, _ = press(model, "d")
	require.True(t, model.confirmOpen)
	assert.Contains(t, model.View(), `Delete "Monet"?`)

	model, cmd := press(model, "right")
	assert.Nil(t, cmd)
	assert.Equal(t, carousel.Idle, model.nav.State())

	model, cmd = press(model, "n")
	assert.Nil(t, cmd)
	assert.False(t, model.confirmOpen)
	assert.Empty(t, src.deleted)
}

func TestModelDelete(t *testing.T) {
	src := &fakeSource{tickets: testTickets()}
	model := newLoadedModel(t, src)
	first := model.Current().ID

	model, _ = press(model, "d")
	model, cmd := press(model, "y")
	require.NotNil(t, cmd)
	assert.False(t, model.confirmOpen)

	model = send(model, cmd())

	assert.Equal(t, []uuid.UUID{first}, src.deleted)
	assert.Equal(t, 2, model.nav.Len())
	assert.Equal(t, "Hokusai", model.Current().Title)
	assert.Contains(t, model.View(), "ticket deleted")
}

func TestModelDeleteFailure(t *testing.T) {
	src := &fakeSource{tickets: testTickets(), delErr: errors.New("forbidden")}
	model := newLoadedModel(t, src)

	model, _ = press(model, "d")
	_, cmd := press(model, "y")
	model = send(model, cmd())

	assert.Equal(t, 3, model.nav.Len())
	assert.Contains(t, model.View(), "forbidden")
}

func TestModelSwipe(t *testing.T) {
	tests := []struct {
		name       string
		from, to   [2]int
		wantIndex  int
		wantSettle bool
	}{
		{name: "leftward swipe goes next", from: [2]int{80, 10}, to: [2]int{40, 12}, wantIndex: 1, wantSettle: true},
		{name: "rightward swipe goes previous", from: [2]int{20, 10}, to: [2]int{60, 10}, wantIndex: 2, wantSettle: true},
		{name: "short drag snaps back", from: [2]int{50, 10}, to: [2]int{40, 10}, wantIndex: 0},
		{name: "vertical drag is scrolling", from: [2]int{50, 0}, to: [2]int{20, 40}, wantIndex: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

			model = send(model, tea.MouseMsg{X: tt.from[0], Y: tt.from[1], Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
			model = send(model, tea.MouseMsg{X: tt.to[0], Y: tt.to[1], Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})

			updated, cmd := model.Update(tea.MouseMsg{X: tt.to[0], Y: tt.to[1], Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
			model = updated.(Model)

			if tt.wantSettle {
				model = settle(t, model, cmd)
			} else {
				assert.Nil(t, cmd)
			}

			assert.Equal(t, tt.wantIndex, model.nav.Index())
			assert.Zero(t, model.nav.Offset())
		})
	}
}

func TestModelDragOffset(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

	model = send(model, tea.MouseMsg{X: 10, Y: 5, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	model = send(model, tea.MouseMsg{X: 16, Y: 5, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})

	assert.Equal(t, 6.0, model.nav.Offset())
	assert.True(t, strings.HasPrefix(model.View(), "      "))
}

func TestModelSwipeIgnoredWhileConfirming(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})
	model, _ = press(model, "d")

	model = send(model, tea.MouseMsg{X: 90, Y: 10, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	updated, cmd := model.Update(tea.MouseMsg{X: 10, Y: 10, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	assert.Nil(t, cmd)
	assert.Equal(t, carousel.Idle, updated.(Model).nav.State())
}

func TestModelQuit(t *testing.T) {
	model := newLoadedModel(t, &fakeSource{tickets: testTickets()})

	_, cmd := press(model, "q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModelReload(t *testing.T) {
	src := &fakeSource{tickets: testTickets()[:1]}
	model := newLoadedModel(t, src)
	assert.Equal(t, 1, model.nav.Len())

	src.tickets = testTickets()
	model, cmd := press(model, "r")
	require.NotNil(t, cmd)
	model = send(model, cmd())

	assert.Equal(t, 3, model.nav.Len())
}
