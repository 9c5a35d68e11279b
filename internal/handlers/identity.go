package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/unitecrm/unite/internal/identity"
)

// IdentityHandler exposes identifier resolution and the cross-system
// timeline view.
type IdentityHandler struct {
	resolver *identity.Resolver
	store    *identity.Store
}

// NewIdentityHandler creates an identity handler.
func NewIdentityHandler(resolver *identity.Resolver, store *identity.Store) *IdentityHandler {
	return &IdentityHandler{resolver: resolver, store: store}
}

func (h *IdentityHandler) Register(e *echo.Echo) {
	group := e.Group("/identity")
	group.POST("/resolve", h.Resolve)
	group.GET("/timeline", h.Timeline)
	group.GET("/mappings", h.ListMappings)
}

type resolveRequest struct {
	Channel     string `json:"channel"`
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name,omitempty"`
}

// Resolve maps (channel, identifier) to per-system record IDs, creating
// whatever is missing, and returns the stored mapping.
func (h *IdentityHandler) Resolve(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Channel) == "" || strings.TrimSpace(req.Identifier) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "channel and identifier are required")
	}
	mapping, err := h.resolver.Resolve(c.Request().Context(), req.Channel, req.Identifier, req.DisplayName)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, mapping)
}

// Timeline returns the aggregate activity view for ?identifier=. An unknown
// identifier yields an empty aggregate, not a 404.
func (h *IdentityHandler) Timeline(c echo.Context) error {
	identifier := strings.TrimSpace(c.QueryParam("identifier"))
	if identifier == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "identifier is required")
	}
	timeline, err := h.resolver.Timeline(c.Request().Context(), identifier)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, timeline)
}

// ListMappings returns recent mappings, optionally filtered by ?person_id=.
func (h *IdentityHandler) ListMappings(c echo.Context) error {
	ctx := c.Request().Context()
	if personID := strings.TrimSpace(c.QueryParam("person_id")); personID != "" {
		items, err := h.store.ListByPerson(ctx, personID)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items})
	}
	items, err := h.store.ListRecent(ctx, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
