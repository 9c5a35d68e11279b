package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/unitecrm/unite/internal/crm"
	"github.com/unitecrm/unite/internal/messaging"
)

// ContactsHandler exposes people, companies, and messaging contacts.
type ContactsHandler struct {
	crm       *crm.Service
	messaging *messaging.Service
}

// NewContactsHandler creates a contacts handler.
func NewContactsHandler(crmSvc *crm.Service, messagingSvc *messaging.Service) *ContactsHandler {
	return &ContactsHandler{crm: crmSvc, messaging: messagingSvc}
}

func (h *ContactsHandler) Register(e *echo.Echo) {
	people := e.Group("/people")
	people.GET("", h.ListPeople)
	people.GET("/:id", h.GetPerson)
	people.POST("", h.CreatePerson)
	people.PATCH("/:id", h.UpdatePerson)

	companies := e.Group("/companies")
	companies.GET("", h.ListCompanies)
	companies.GET("/:id", h.GetCompany)
	companies.POST("", h.CreateCompany)

	contacts := e.Group("/contacts")
	contacts.GET("", h.ListContacts)
	contacts.GET("/:id", h.GetContact)
	contacts.GET("/:id/conversations", h.GetConversations)
}

// ListPeople searches live people by ?q=, or lists the most recent without it.
func (h *ContactsHandler) ListPeople(c echo.Context) error {
	ctx := c.Request().Context()
	if query := strings.TrimSpace(c.QueryParam("q")); query != "" {
		items, err := h.crm.SearchPeople(ctx, query)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, map[string]any{"items": items})
	}
	items, err := h.crm.ListPeople(ctx, 0)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ContactsHandler) GetPerson(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "person id is required")
	}
	person, err := h.crm.GetPerson(c.Request().Context(), id)
	if errors.Is(err, crm.ErrPersonNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "person not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, person)
}

func (h *ContactsHandler) CreatePerson(c echo.Context) error {
	var req crm.CreatePersonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	person, err := h.crm.CreatePerson(c.Request().Context(), req)
	if errors.Is(err, crm.ErrRejected) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, person)
}

func (h *ContactsHandler) UpdatePerson(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "person id is required")
	}
	var req crm.UpdatePersonRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	person, err := h.crm.UpdatePerson(c.Request().Context(), id, req)
	if errors.Is(err, crm.ErrPersonNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "person not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, person)
}

func (h *ContactsHandler) ListCompanies(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	items, err := h.crm.SearchCompanies(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ContactsHandler) GetCompany(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "company id is required")
	}
	company, err := h.crm.GetCompany(c.Request().Context(), id)
	if errors.Is(err, crm.ErrCompanyNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "company not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, company)
}

func (h *ContactsHandler) CreateCompany(c echo.Context) error {
	var req crm.CreateCompanyRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	company, err := h.crm.CreateCompany(c.Request().Context(), req)
	if errors.Is(err, crm.ErrRejected) {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, company)
}

func (h *ContactsHandler) ListContacts(c echo.Context) error {
	query := strings.TrimSpace(c.QueryParam("q"))
	items, err := h.messaging.SearchContacts(c.Request().Context(), query)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (h *ContactsHandler) GetContact(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	contact, err := h.messaging.GetContact(c.Request().Context(), id)
	if errors.Is(err, messaging.ErrContactNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "contact not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, contact)
}

func (h *ContactsHandler) GetConversations(c echo.Context) error {
	id := strings.TrimSpace(c.Param("id"))
	if id == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "contact id is required")
	}
	items, err := h.messaging.GetConversations(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}
