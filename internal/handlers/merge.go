package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/unitecrm/unite/internal/merge"
)

// MergeHandler exposes duplicate-record merges.
type MergeHandler struct {
	engine *merge.Engine
}

// NewMergeHandler creates a merge handler.
func NewMergeHandler(engine *merge.Engine) *MergeHandler {
	return &MergeHandler{engine: engine}
}

func (h *MergeHandler) Register(e *echo.Echo) {
	group := e.Group("/merge")
	group.POST("/people", h.MergePeople)
	group.POST("/companies", h.MergeCompanies)
}

type mergeRequest struct {
	KeeperID  string            `json:"keeper_id"`
	LoserID   string            `json:"loser_id"`
	Overrides map[string]string `json:"overrides,omitempty"`
}

func (h *MergeHandler) MergePeople(c echo.Context) error {
	req, httpErr := bindMergeRequest(c)
	if httpErr != nil {
		return httpErr
	}
	merged, err := h.engine.MergePeople(c.Request().Context(), req.KeeperID, req.LoserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if merged == nil {
		return echo.NewHTTPError(http.StatusNotFound, "nothing to merge")
	}
	return c.JSON(http.StatusOK, merged)
}

func (h *MergeHandler) MergeCompanies(c echo.Context) error {
	req, httpErr := bindMergeRequest(c)
	if httpErr != nil {
		return httpErr
	}
	merged, err := h.engine.MergeCompanies(c.Request().Context(), req.KeeperID, req.LoserID, req.Overrides)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if merged == nil {
		return echo.NewHTTPError(http.StatusNotFound, "nothing to merge")
	}
	return c.JSON(http.StatusOK, merged)
}

func bindMergeRequest(c echo.Context) (mergeRequest, *echo.HTTPError) {
	var req mergeRequest
	if err := c.Bind(&req); err != nil {
		return req, echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.KeeperID) == "" || strings.TrimSpace(req.LoserID) == "" {
		return req, echo.NewHTTPError(http.StatusBadRequest, "keeper_id and loser_id are required")
	}
	return req, nil
}
