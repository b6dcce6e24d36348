package controllers

import (
	"errors"
	"net/http"

	"campusfix-be/board"
	"campusfix-be/campusmap"
	"campusfix-be/config"
	"campusfix-be/middlewares"
	"campusfix-be/repository"
	"campusfix-be/session"

	"github.com/gin-gonic/gin"
)

type MapController struct {
	board    *board.Board
	registry *campusmap.Registry
	cfg      *config.Config
}

func NewMapController(b *board.Board, registry *campusmap.Registry, cfg *config.Config) *MapController {
	return &MapController{board: b, registry: registry, cfg: cfg}
}

// viewer keys the per-viewer widget. Anonymous visitors only get the
// read-only pin list.
func viewer(c *gin.Context) string {
	if id := middlewares.UserID(c); id != "" {
		return "user:" + id
	}
	if s, ok := session.AdminFrom(c.Request.Context()); ok {
		return "admin:" + s.ID
	}
	return ""
}

func (m *MapController) widget(c *gin.Context) (*campusmap.Widget, bool) {
	v := viewer(c)
	if v == "" {
		respondError(c, repository.ErrAuthRequired)
		return nil, false
	}
	return m.registry.Widget(v), true
}

func (m *MapController) issuePins(c *gin.Context) ([]campusmap.Pin, bool) {
	ctx, cancel := requestContext(c, m.cfg.RequestTimeout)
	defer cancel()

	if err := m.board.EnsureLoaded(ctx); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "retry": true})
		return nil, false
	}
	return campusmap.IssuePins(m.registry.Projection(), m.board.Issues()), true
}

func respondMapError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, campusmap.ErrPinNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, campusmap.ErrPinReadOnly):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, campusmap.ErrNotAdding), errors.Is(err, campusmap.ErrNoPosition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, campusmap.ErrTitleRequired), errors.Is(err, campusmap.ErrOutOfBounds):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		respondError(c, err)
	}
}

// GetPins returns issue pins plus the viewer's own custom pins and widget
// state.
func (m *MapController) GetPins(c *gin.Context) {
	pins, ok := m.issuePins(c)
	if !ok {
		return
	}
	body := gin.H{"issue_pins": pins, "center": m.registry.Projection().Center}
	if v := viewer(c); v != "" {
		body["state"] = m.registry.Widget(v).State()
	}
	c.JSON(http.StatusOK, body)
}

// Locate converts an image position to coordinates without touching any
// widget, for the report form's location picker.
func (m *MapController) Locate(c *gin.Context) {
	var pt campusmap.Point
	if err := c.ShouldBindJSON(&pt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ll, err := m.registry.Projection().ToLatLng(pt)
	if err != nil {
		respondMapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"coordinates": ll, "label": campusmap.Label(ll)})
}

func (m *MapController) SetAdding(c *gin.Context) {
	var input struct {
		Adding bool `json:"adding"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, ok := m.widget(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": w.SetAdding(input.Adding)})
}

func (m *MapController) Click(c *gin.Context) {
	var pt campusmap.Point
	if err := c.ShouldBindJSON(&pt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, ok := m.widget(c)
	if !ok {
		return
	}
	staged, err := w.Click(pt)
	if err != nil {
		respondMapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staged": staged})
}

func (m *MapController) CommitPin(c *gin.Context) {
	var input struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	w, ok := m.widget(c)
	if !ok {
		return
	}
	pin, err := w.Commit(input.Title, input.Description)
	if err != nil {
		respondMapError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"pin": pin})
}

// GetPin selects a pin for the detail panel.
func (m *MapController) GetPin(c *gin.Context) {
	pins, ok := m.issuePins(c)
	if !ok {
		return
	}
	w, ok := m.widget(c)
	if !ok {
		return
	}
	pin, err := w.Select(c.Param("id"), pins)
	if err != nil {
		respondMapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pin": pin})
}

func (m *MapController) DeletePin(c *gin.Context) {
	w, ok := m.widget(c)
	if !ok {
		return
	}
	if err := w.Remove(c.Param("id")); err != nil {
		respondMapError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": w.State()})
}
