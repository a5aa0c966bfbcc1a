package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/msalah0e/canopy/internal/codegen"
	"github.com/msalah0e/canopy/internal/document"
	"github.com/msalah0e/canopy/internal/drop"
	"github.com/msalah0e/canopy/internal/editor"
	"github.com/msalah0e/canopy/internal/preview"
	"github.com/msalah0e/canopy/internal/registry"
	"github.com/msalah0e/canopy/internal/selection"
)

type documentResponse struct {
	Components document.Document `json:"components"`
	Version    uint64            `json:"version"`
	Selection  selection.State   `json:"selection"`
}

type dropRequest struct {
	Payload drop.Payload                  `json:"payload"`
	Target  drop.Target                   `json:"target"`
	Point   drop.Point                    `json:"point"`
	Bounds  map[document.NodeID]drop.Rect `json:"bounds"`
}

type dropResponse struct {
	Mutation    drop.Kind         `json:"mutation"`
	Description string            `json:"description"`
	Node        *document.Node    `json:"node,omitempty"`
	Components  document.Document `json:"components"`
}

type selectRequest struct {
	ID document.NodeID `json:"id"`
}

type editRequest struct {
	Props document.Attributes `json:"props"`
}

type previewRequest struct {
	Open bool `json:"open"`
}

type fieldsResponse struct {
	Type     string              `json:"type"`
	Kind     registry.Kind       `json:"kind"`
	Fields   []registry.Field    `json:"fields"`
	Defaults document.Attributes `json:"defaultProps"`
}

// fail writes err as {"error": ...} with a status derived from its kind.
func fail(c echo.Context, err error) error {
	return c.JSON(statusOf(err), map[string]string{"error": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, editor.ErrInvalidDesign):
		return http.StatusUnprocessableEntity
	case errors.Is(err, document.ErrNavbarExists),
		errors.Is(err, document.ErrNotContainer),
		errors.Is(err, registry.ErrWrongKind),
		errors.Is(err, registry.ErrNameTaken),
		errors.Is(err, selection.ErrNothingSelected),
		errors.Is(err, editor.ErrEmptyDesign):
		return http.StatusConflict
	case errors.Is(err, document.ErrParentNotFound),
		errors.Is(err, editor.ErrNoSuchNode):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrUnknownType),
		errors.Is(err, registry.ErrInvalidType):
		return http.StatusBadRequest
	case errors.Is(err, editor.ErrNoStore),
		errors.Is(err, editor.ErrNoPreview):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
}

func (s *Server) document(c echo.Context) error {
	return c.JSON(http.StatusOK, documentResponse{
		Components: s.ws.Document(),
		Version:    s.ws.Version(),
		Selection:  s.ws.Selection(),
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":    "running",
		"uptime":    time.Since(s.stats.StartedAt).Round(time.Second).String(),
		"renderers": s.hub.Count(),
	})
}

func (s *Server) handleStats(c echo.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return c.JSON(http.StatusOK, s.stats)
}

func (s *Server) handlePreviewPage(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, previewPage)
}

func (s *Server) handleDocument(c echo.Context) error {
	return s.document(c)
}

func (s *Server) handleClear(c echo.Context) error {
	s.ws.Clear()
	return s.document(c)
}

func (s *Server) handleDrop(c echo.Context) error {
	var req dropRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	m, err := s.ws.Drop(req.Payload, req.Target, req.Point, drop.StaticGeometry(req.Bounds))
	if err != nil {
		return fail(c, err)
	}
	resp := dropResponse{Mutation: m.Kind, Description: m.String(), Components: s.ws.Document()}
	if m.Node.ID != "" {
		n := m.Node
		resp.Node = &n
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleSelect(c echo.Context) error {
	var req selectRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	if req.ID == "" {
		s.ws.ClearSelection()
		return c.JSON(http.StatusOK, s.ws.Selection())
	}
	st, err := s.ws.Select(req.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

func (s *Server) handleEdit(c echo.Context) error {
	var req editRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, err)
	}
	n, err := s.ws.Edit(req.Props)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleReset(c echo.Context) error {
	n, err := s.ws.ResetSelected()
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (s *Server) handleDelete(c echo.Context) error {
	deleted := s.ws.Delete(document.NodeID(c.Param("id")))
	return c.JSON(http.StatusOK, map[string]any{
		"deleted":    deleted,
		"components": s.ws.Document(),
	})
}

func (s *Server) handleCatalog(c echo.Context) error {
	reg := s.ws.Registry()
	var types []registry.NodeType
	if q := c.QueryParam("q"); q != "" {
		types = reg.Search(q)
	} else {
		types = reg.ListCreatable(c.QueryParam("category"))
	}
	if types == nil {
		types = []registry.NodeType{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"categories": reg.Categories(),
		"types":      types,
	})
}

func (s *Server) handleRegister(c echo.Context) error {
	var t registry.NodeType
	if err := c.Bind(&t); err != nil {
		return badRequest(c, err)
	}
	if err := s.ws.Register(c.Request().Context(), t); err != nil {
		return fail(c, err)
	}
	registered, _ := s.ws.Registry().Get(t.Type)
	return c.JSON(http.StatusCreated, registered)
}

func (s *Server) handleUnregister(c echo.Context) error {
	removed, err := s.ws.Unregister(c.Request().Context(), c.Param("type"))
	if err != nil {
		return fail(c, err)
	}
	if !removed {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown node type"})
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleFields(c echo.Context) error {
	t, ok := s.ws.Registry().Get(c.Param("type"))
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "unknown node type"})
	}
	fields := t.Fields
	if fields == nil {
		fields = []registry.Field{}
	}
	return c.JSON(http.StatusOK, fieldsResponse{Type: t.Type, Kind: t.Kind, Fields: fields, Defaults: t.DefaultAttrs()})
}

func (s *Server) handleCode(c echo.Context) error {
	res := s.ws.Generate()
	if c.QueryParam("format") == "json" {
		return c.JSON(http.StatusOK, res)
	}
	return c.Blob(http.StatusOK, "text/javascript; charset=utf-8", []byte(res.Source))
}

func (s *Server) handleDownload(c echo.Context) error {
	res := s.ws.Generate()
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+codegen.FileName+`"`)
	return c.Blob(http.StatusOK, "text/javascript; charset=utf-8", []byte(res.Source))
}

func (s *Server) handleValidate(c echo.Context) error {
	res := s.ws.Generate()
	if err := codegen.Validate(c.Request().Context(), res.Source); err != nil {
		if errors.Is(err, codegen.ErrSyntax) {
			return c.JSON(http.StatusOK, map[string]any{"valid": false, "error": err.Error()})
		}
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"valid": true})
}

func (s *Server) handleSave(c echo.Context) error {
	design, err := s.ws.Save(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"saved":     design.Components.Len(),
		"timestamp": design.Timestamp,
		"version":   design.Version,
	})
}

func (s *Server) handleLoad(c echo.Context) error {
	found, err := s.ws.Load(c.Request().Context())
	if err != nil {
		return fail(c, err)
	}
	if !found {
		return c.JSON(http.StatusOK, map[string]any{"found": false, "info": "no saved design"})
	}
	return c.JSON(http.StatusOK, map[string]any{"found": true, "components": s.ws.Document()})
}

func (s *Server) handlePreview(c echo.Context) error {
	var req previewRequest
	if c.Request().ContentLength > 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, err)
		}
	}

	var err error
	if req.Open {
		err = s.ws.OpenPreview(s.life)
	} else {
		err = s.ws.PushPreview()
	}
	switch {
	case errors.Is(err, preview.ErrNoRenderer):
		// Best effort: the renderer will get the snapshot when it connects.
		return c.JSON(http.StatusAccepted, map[string]any{"status": s.ws.PreviewStatus(), "warning": err.Error()})
	case err != nil:
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": s.ws.PreviewStatus()})
}

func (s *Server) handlePreviewRetry(c echo.Context) error {
	if err := s.ws.RetryPreview(s.life); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"status": s.ws.PreviewStatus()})
}

func (s *Server) handlePreviewStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"session":   s.ws.PreviewStatus(),
		"renderers": s.hub.Count(),
	})
}
