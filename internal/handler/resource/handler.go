// Package resource serves the uniform list, create, get, update and delete
// routes for one record type.
package resource

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RyneJoanams/gulf-main-sub001/internal/repository"
	"github.com/RyneJoanams/gulf-main-sub001/internal/service/record"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/errors"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/httputil"
	"github.com/RyneJoanams/gulf-main-sub001/pkg/labnumber"
)

// Stored metadata a create body cannot set.
var metaKeys = []string{"_id", "createdAt", "updatedAt"}

// Config describes how one resource is exposed.
type Config[T any] struct {
	// Path is the route group, e.g. "/patients".
	Path string
	// Filters are the query parameters List turns into equality matches.
	Filters []string
	// View converts a record before it is written to the response.
	View func(*T) any
	// Inbound removes keys a client may not send on create or update.
	Inbound func(body map[string]any)
	// Middleware runs before every route of the resource.
	Middleware []gin.HandlerFunc
}

type Handler[T any] struct {
	service *record.Service[T]
	cfg     Config[T]
	filters map[string]bool
}

func NewHandler[T any](service *record.Service[T], cfg Config[T]) *Handler[T] {
	filters := make(map[string]bool, len(cfg.Filters))
	for _, f := range cfg.Filters {
		filters[f] = true
	}
	return &Handler[T]{service: service, cfg: cfg, filters: filters}
}

func (h *Handler[T]) RegisterRoutes(r *gin.RouterGroup) {
	g := r.Group(h.cfg.Path, h.cfg.Middleware...)
	{
		g.GET("", h.List)
		g.POST("", h.Create)
		g.GET("/:id", h.Get)
		g.PUT("/:id", h.Update)
		g.DELETE("/:id", h.Delete)
	}
}

func (h *Handler[T]) Create(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	for _, k := range metaKeys {
		delete(body, k)
	}
	doc := new(T)
	if err := decodeInto(body, doc); err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	created, err := h.service.Create(c.Request.Context(), doc)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondCreated(c, h.view(created))
}

func (h *Handler[T]) List(c *gin.Context) {
	opts, err := h.listOptions(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	items, total, err := h.service.List(c.Request.Context(), opts)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	views := make([]any, 0, len(items))
	for _, item := range items {
		views = append(views, h.view(item))
	}
	if opts.Page > 0 {
		httputil.RespondWithPagination(c, views, opts.Page, opts.PageSize, total)
		return
	}
	httputil.RespondWithSuccess(c, views)
}

func (h *Handler[T]) Get(c *gin.Context) {
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.view(doc))
}

func (h *Handler[T]) Update(c *gin.Context) {
	body, err := h.readBody(c)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	updated, err := h.service.Update(c.Request.Context(), c.Param("id"), body)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, h.view(updated))
}

func (h *Handler[T]) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "deleted successfully")
}

func (h *Handler[T]) view(doc *T) any {
	if h.cfg.View != nil {
		return h.cfg.View(doc)
	}
	return doc
}

// readBody decodes a JSON object body and applies the Inbound hook.
func (h *Handler[T]) readBody(c *gin.Context) (map[string]any, error) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, errors.BadRequest("invalid request body", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, errors.BadRequest("invalid request body", err)
	}
	if body == nil {
		return nil, errors.BadRequest("request body must be a JSON object", nil)
	}
	if h.cfg.Inbound != nil {
		h.cfg.Inbound(body)
	}
	return body, nil
}

func (h *Handler[T]) listOptions(c *gin.Context) (record.ListOptions, error) {
	opts := record.ListOptions{
		SortBy: c.Query("sortBy"),
		Desc:   !strings.EqualFold(c.Query("order"), "asc"),
	}
	if opts.SortBy != "" && !repository.ValidField(opts.SortBy) {
		return opts, errors.BadRequest(fmt.Sprintf("invalid sortBy %q", opts.SortBy), nil)
	}

	if v := c.Query("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			return opts, errors.BadRequest("page must be a positive integer", err)
		}
		if page > record.MaxPage {
			return opts, errors.BadRequest(fmt.Sprintf("page must not exceed %d", record.MaxPage), nil)
		}
		opts.Page = page
		opts.PageSize = record.DefaultPageSize
	}
	if v := c.Query("pageSize"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			return opts, errors.BadRequest("pageSize must be a positive integer", err)
		}
		opts.PageSize = min(size, record.MaxPageSize)
	}

	for key := range h.filters {
		v, ok := c.GetQuery(key)
		if !ok || v == "" {
			continue
		}
		if opts.Where == nil {
			opts.Where = make(map[string]any)
		}
		if key == "labNumber" {
			v = labnumber.Normalize(v)
		}
		opts.Where[key] = v
	}
	return opts, nil
}

// StripKeys returns an Inbound hook that drops keys from the body.
func StripKeys(keys ...string) func(map[string]any) {
	return func(body map[string]any) {
		for _, k := range keys {
			delete(body, k)
		}
	}
}

func decodeInto(body map[string]any, doc any) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return errors.BadRequest("invalid request body", err)
	}
	if err := json.Unmarshal(raw, doc); err != nil {
		var te *json.UnmarshalTypeError
		if stderrors.As(err, &te) && te.Field != "" {
			err = fmt.Errorf("field %s must be %s, got %s", te.Field, te.Type.String(), te.Value)
		}
		return errors.BadRequest("invalid request body", err)
	}
	return nil
}
