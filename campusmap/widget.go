package campusmap

import (
	"errors"
	"strings"
	"sync"
	"time"

	"campusfix-be/models"

	"github.com/google/uuid"
)

var (
	ErrNotAdding     = errors.New("pin placement is not active")
	ErrNoPosition    = errors.New("click on the map to choose a position first")
	ErrTitleRequired = errors.New("please provide a title for the pin")
	ErrPinNotFound   = errors.New("pin not found")
	ErrPinReadOnly   = errors.New("issue pins cannot be removed")
)

type PinType string

const (
	PinIssue  PinType = "issue"
	PinCustom PinType = "custom"
)

type Pin struct {
	ID          string  `json:"id"`
	Lat         float64 `json:"latitude"`
	Lng         float64 `json:"longitude"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Type        PinType `json:"type"`
	Label       string  `json:"label"`
	Point       Point   `json:"point"`
}

// IssuePins derives read-only pins from the issues that carry coordinates,
// placed back onto the map image through proj.
func IssuePins(proj Projection, issues []models.Issue) []Pin {
	pins := make([]Pin, 0, len(issues))
	for _, issue := range issues {
		if !issue.HasCoordinates() {
			continue
		}
		c := LatLng{Lat: *issue.Latitude, Lng: *issue.Longitude}
		pins = append(pins, Pin{
			ID:          issue.ID.Hex(),
			Lat:         c.Lat,
			Lng:         c.Lng,
			Title:       issue.Title,
			Description: issue.Description,
			Type:        PinIssue,
			Label:       Label(c),
			Point:       proj.ToPoint(c),
		})
	}
	return pins
}

// Staged is the position chosen by the last click while adding.
type Staged struct {
	Point  Point  `json:"point"`
	LatLng LatLng `json:"coordinates"`
	Label  string `json:"label"`
}

// WidgetState is a snapshot returned to the viewer after every action.
type WidgetState struct {
	Adding   bool    `json:"adding"`
	Staged   *Staged `json:"staged"`
	Custom   []Pin   `json:"custom_pins"`
	Selected *Pin    `json:"selected"`
}

// Widget is one viewer's map state. Custom pins live only here and are
// never written to the store.
type Widget struct {
	mu       sync.Mutex
	proj     Projection
	adding   bool
	staged   *Staged
	custom   []Pin
	selected *Pin
	lastSeen time.Time
}

func NewWidget(proj Projection) *Widget {
	return &Widget{proj: proj, lastSeen: time.Now()}
}

// SetAdding toggles placement mode. Leaving it discards the staged click.
func (w *Widget) SetAdding(adding bool) WidgetState {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.adding = adding
	if !adding {
		w.staged = nil
	}
	return w.stateLocked()
}

// Click stages a position. It is ignored unless placement mode is on.
func (w *Widget) Click(pt Point) (*Staged, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.adding {
		return nil, ErrNotAdding
	}
	c, err := w.proj.ToLatLng(pt)
	if err != nil {
		return nil, err
	}
	w.staged = &Staged{Point: pt, LatLng: c, Label: Label(c)}
	staged := *w.staged
	return &staged, nil
}

// Commit turns the staged click into a custom pin and leaves placement mode.
func (w *Widget) Commit(title, description string) (Pin, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.staged == nil {
		return Pin{}, ErrNoPosition
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return Pin{}, ErrTitleRequired
	}

	pin := Pin{
		ID:          "custom-" + uuid.NewString(),
		Lat:         w.staged.LatLng.Lat,
		Lng:         w.staged.LatLng.Lng,
		Title:       title,
		Description: strings.TrimSpace(description),
		Type:        PinCustom,
		Label:       w.staged.Label,
		Point:       w.staged.Point,
	}
	w.custom = append(w.custom, pin)
	w.staged = nil
	w.adding = false
	return pin, nil
}

// Remove deletes a custom pin. Issue pins are read-only.
func (w *Widget) Remove(id string) error {
	if !strings.HasPrefix(id, "custom-") {
		return ErrPinReadOnly
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	for i, pin := range w.custom {
		if pin.ID == id {
			w.custom = append(w.custom[:i], w.custom[i+1:]...)
			if w.selected != nil && w.selected.ID == id {
				w.selected = nil
			}
			return nil
		}
	}
	return ErrPinNotFound
}

// Select looks the pin up among the viewer's custom pins and issuePins.
func (w *Widget) Select(id string, issuePins []Pin) (Pin, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, pin := range w.custom {
		if pin.ID == id {
			w.selected = &pin
			return pin, nil
		}
	}
	for _, pin := range issuePins {
		if pin.ID == id {
			w.selected = &pin
			return pin, nil
		}
	}
	return Pin{}, ErrPinNotFound
}

func (w *Widget) State() WidgetState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stateLocked()
}

func (w *Widget) stateLocked() WidgetState {
	state := WidgetState{
		Adding: w.adding,
		Custom: append([]Pin{}, w.custom...),
	}
	if w.staged != nil {
		staged := *w.staged
		state.Staged = &staged
	}
	if w.selected != nil {
		selected := *w.selected
		state.Selected = &selected
	}
	return state
}

func (w *Widget) touch(now time.Time) {
	w.mu.Lock()
	w.lastSeen = now
	w.mu.Unlock()
}

func (w *Widget) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastSeen
}
