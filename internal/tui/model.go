// Package tui is a terminal browser over one user's ticket collection:
// arrow and swipe navigation between tickets, an image modal over the
// primary image and gallery, and deletion behind a confirmation dialog.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/carousel"
	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/markdown"
)

// Source is the part of the ticket service the browser needs.
type Source interface {
	ListUserTickets(ctx context.Context, userID uuid.UUID) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, ticketID, userID uuid.UUID) error
}

type Config struct {
	TicketSettle  time.Duration
	ImageSettle   time.Duration
	SwipeFraction float64
}

func DefaultConfig() Config {
	return Config{
		TicketSettle:  carousel.TicketSettleDelay,
		ImageSettle:   carousel.ImageSettleDelay,
		SwipeFraction: carousel.DefaultThresholdFraction,
	}
}

type ticketsLoadedMsg struct {
	tickets []models.Ticket
	err     error
}

// settleMsg fires when a transition's settle delay has elapsed. gen ties it
// to the transition that scheduled it.
type settleMsg struct {
	images bool
	gen    uint64
}

type deletedMsg struct {
	id  uuid.UUID
	err error
}

type Model struct {
	ctx    context.Context
	source Source
	userID uuid.UUID
	cfg    Config
	keys   KeyMap
	styles styles

	tickets []models.Ticket
	loaded  bool

	nav     *carousel.Machine
	images  *carousel.Machine
	gesture *carousel.Gesture

	modalOpen   bool
	confirmOpen bool

	width  int
	height int

	status string
	err    error
}

func NewModel(ctx context.Context, source Source, userID uuid.UUID, cfg Config) Model {
	if cfg.TicketSettle <= 0 {
		cfg.TicketSettle = carousel.TicketSettleDelay
	}
	if cfg.ImageSettle <= 0 {
		cfg.ImageSettle = carousel.ImageSettleDelay
	}

	return Model{
		ctx:     ctx,
		source:  source,
		userID:  userID,
		cfg:     cfg,
		keys:    DefaultKeyMap,
		styles:  defaultStyles(),
		nav:     carousel.New(0, cfg.TicketSettle),
		images:  carousel.New(0, cfg.ImageSettle),
		gesture: carousel.NewGesture(cfg.SwipeFraction),
	}
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		tickets, err := m.source.ListUserTickets(m.ctx, m.userID)
		return ticketsLoadedMsg{tickets: tickets, err: err}
	}
}

func (m Model) remove(id uuid.UUID) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{id: id, err: m.source.DeleteTicket(m.ctx, id, m.userID)}
	}
}

// Current returns the ticket under the cursor, or nil when the collection
// is empty.
func (m Model) Current() *models.Ticket {
	if len(m.tickets) == 0 {
		return nil
	}
	return &m.tickets[m.nav.Index()]
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ticketsLoadedMsg:
		m.loaded = true
		m.err = msg.err
		if msg.err == nil {
			m.tickets = msg.tickets
			m.nav.Stop()
			m.nav.SetLen(len(m.tickets))
		}
		return m, nil

	case settleMsg:
		if msg.images {
			m.images.SettleGen(msg.gen)
			return m, nil
		}
		if _, ok := m.nav.SettleGen(msg.gen); ok {
			m.status = ""
		}
		return m, nil

	case deletedMsg:
		return m.handleDeleted(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.confirmOpen {
		switch {
		case key.Matches(msg, m.keys.Confirm):
			m.confirmOpen = false
			cur := m.Current()
			if cur == nil {
				return m, nil
			}
			m.status = "deleting..."
			return m, m.remove(cur.ID)
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Quit):
			m.confirmOpen = false
		}
		// Arrows stay inert while the dialog is open.
		return m, nil
	}

	if cmd := carousel.KeyCommand(msg.String(), m.confirmOpen); cmd != carousel.None {
		return m, m.navigate(cmd)
	}

	if m.modalOpen {
		switch {
		case key.Matches(msg, m.keys.Cancel), key.Matches(msg, m.keys.Images), key.Matches(msg, m.keys.Quit):
			m.closeModal()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Images):
		m.openModal()
	case key.Matches(msg, m.keys.Delete):
		if m.Current() != nil {
			m.gesture.Cancel()
			m.confirmOpen = true
		}
	case key.Matches(msg, m.keys.Reload):
		m.status = "reloading..."
		return m, m.load()
	}

	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.confirmOpen {
		return m, nil
	}

	machine := m.active()
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.gesture.Start(float64(msg.X), float64(msg.Y))
		}
	case tea.MouseActionMotion:
		if m.gesture.Active() {
			machine.Drag(m.gesture.Move(float64(msg.X), float64(msg.Y)))
		}
	case tea.MouseActionRelease:
		if !m.gesture.Active() {
			return m, nil
		}
		m.gesture.Move(float64(msg.X), float64(msg.Y))
		cmd := m.gesture.End(float64(m.width))
		if cmd == carousel.None {
			machine.Release(carousel.None, nil)
			return m, nil
		}
		return m, m.navigate(cmd)
	}

	return m, nil
}

// navigate starts a transition on the active carousel and schedules its
// settle. A request made while a transition is in flight is dropped, and a
// settle whose transition was stopped in the meantime is ignored.
func (m Model) navigate(cmd carousel.Command) tea.Cmd {
	images := m.modalOpen
	machine, delay := m.nav, m.cfg.TicketSettle
	if images {
		machine, delay = m.images, m.cfg.ImageSettle
	}

	_, gen, ok := machine.Begin(cmd)
	if !ok {
		return nil
	}

	return tea.Tick(delay, func(time.Time) tea.Msg {
		return settleMsg{images: images, gen: gen}
	})
}

func (m Model) active() *carousel.Machine {
	if m.modalOpen {
		return m.images
	}
	return m.nav
}

func (m *Model) openModal() {
	cur := m.Current()
	if cur == nil {
		return
	}
	imgs := cur.Images()
	if len(imgs) == 0 {
		m.status = "no images"
		return
	}

	m.nav.Stop()
	m.images.Stop()
	m.images.SetLen(len(imgs))
	m.images.SetIndex(0)
	m.modalOpen = true
}

func (m *Model) closeModal() {
	m.images.Stop()
	m.modalOpen = false
}

func (m Model) handleDeleted(msg deletedMsg) Model {
	if msg.err != nil {
		m.err = msg.err
		m.status = ""
		return m
	}

	kept := make([]models.Ticket, 0, len(m.tickets))
	for _, t := range m.tickets {
		if t.ID != msg.id {
			kept = append(kept, t)
		}
	}
	m.tickets = kept

	m.nav.Stop()
	m.nav.SetLen(len(kept))
	m.err = nil
	m.status = "ticket deleted"

	return m
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	switch {
	case !m.loaded:
		b.WriteString("Loading tickets...")
	case m.err != nil && len(m.tickets) == 0:
		b.WriteString(m.styles.errors.Render("error: " + m.err.Error()))
	case len(m.tickets) == 0:
		b.WriteString(m.styles.faint.Render("No tickets yet."))
	case m.modalOpen:
		b.WriteString(m.renderModal())
	default:
		b.WriteString(m.renderTicket())
	}

	if m.confirmOpen {
		b.WriteString("\n\n")
		b.WriteString(m.renderConfirm())
	}

	b.WriteString("\n\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderTicket() string {
	t := m.Current()

	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n",
		m.styles.title.Render(t.Title),
		m.styles.faint.Render(fmt.Sprintf("%d/%d", m.nav.Index()+1, len(m.tickets))),
	)
	b.WriteString(m.styles.faint.Render(t.VisitDate.Format("2006-01-02 15:04")))
	if t.Location != "" {
		b.WriteString(m.styles.faint.Render("  @ " + t.Location))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.rating.Render(stars(t.Rating)))
	b.WriteString("\n")
	if t.WebsiteURL != "" {
		b.WriteString(t.WebsiteURL + "\n")
	}

	if review := markdown.Plain(t.Review); review != "" {
		b.WriteString("\n")
		b.WriteString(wrap(review, m.width))
		b.WriteString("\n")
	}

	if n := len(t.Images()); n > 0 {
		b.WriteString("\n")
		b.WriteString(m.styles.faint.Render(fmt.Sprintf("%d image(s), press g to view", n)))
	}

	return shift(b.String(), m.nav.Offset())
}

func (m Model) renderModal() string {
	imgs := m.Current().Images()
	idx := m.images.Index()
	if idx >= len(imgs) {
		idx = 0
	}

	label := "gallery"
	if idx == 0 && !m.Current().TicketImage.IsZero() {
		label = "ticket"
	}

	body := fmt.Sprintf("%s %d/%d\n%s", label, idx+1, len(imgs), imgs[idx].URL)
	return shift(m.styles.modal.Render(body), m.images.Offset())
}

func (m Model) renderConfirm() string {
	return m.styles.dialog.Render(fmt.Sprintf("Delete %q?\n\n%s",
		m.Current().Title,
		m.keys.help(m.keys.Confirm, m.keys.Cancel),
	))
}

func (m Model) renderFooter() string {
	var parts []string
	if m.status != "" {
		parts = append(parts, m.styles.status.Render(m.status))
	}
	if m.err != nil && len(m.tickets) > 0 {
		parts = append(parts, m.styles.errors.Render(m.err.Error()))
	}

	switch {
	case m.confirmOpen:
	case m.modalOpen:
		parts = append(parts, m.styles.faint.Render(m.keys.help(m.keys.Previous, m.keys.Next, m.keys.Cancel)))
	default:
		parts = append(parts, m.styles.faint.Render(m.keys.help(
			m.keys.Previous, m.keys.Next, m.keys.Images, m.keys.Delete, m.keys.Reload, m.keys.Quit,
		)))
	}

	return strings.Join(parts, "  ")
}

func stars(rating int) string {
	if rating < models.MinRating {
		rating = models.MinRating
	}
	if rating > models.MaxRating {
		rating = models.MaxRating
	}
	return strings.Repeat("★", rating) + strings.Repeat("☆", models.MaxRating-rating)
}

func wrap(text string, width int) string {
	if width <= 4 {
		return text
	}
	return lipgloss.NewStyle().Width(width - 2).Render(text)
}

// shift indents a block by a positive drag offset so the pane follows the
// pointer. Leftward drags are not drawn.
func shift(block string, offset float64) string {
	if offset < 1 {
		return block
	}
	return lipgloss.NewStyle().MarginLeft(int(offset)).Render(block)
}
