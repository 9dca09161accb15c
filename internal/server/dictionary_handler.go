// Package server provides Connect RPC handlers for the dictionary cache.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/go-playground/validator/v10"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
)

type GetDictionaryRequest struct {
	Code string `json:"code" validate:"required"`
}

type GetDictionaryResponse struct {
	Code    string             `json:"code"`
	Entries []dictionary.Entry `json:"entries"`
}

type GetLabelRequest struct {
	Code string `json:"code" validate:"required"`
	// Value is a string or a number.
	Value  any  `json:"value"`
	Remote bool `json:"remote"`
}

type GetLabelResponse struct {
	Label string `json:"label"`
}

type BatchFetchRequest struct {
	Codes []string `json:"codes" validate:"required,min=1,dive,required"`
}

type BatchFetchResponse struct {
	Dictionaries map[string][]dictionary.Entry `json:"dictionaries"`
	Missing      []string                      `json:"missing"`
}

type SyncRequest struct{}

type SyncResponse struct {
	Updated    int        `json:"updated"`
	Checkpoint *time.Time `json:"checkpoint,omitempty"`
}

type ReloadRequest struct {
	// Wait blocks until every dictionary has been loaded.
	Wait bool `json:"wait"`
}

type ReloadResponse struct {
	Metrics dictionary.LoadMetrics `json:"metrics"`
}

type GetMetricsRequest struct{}

type GetMetricsResponse struct {
	Metrics dictionary.LoadMetrics `json:"metrics"`
}

// DictionaryHandler serves the dictionary service from a Cache.
type DictionaryHandler struct {
	cache    *dictionary.Cache
	validate *validator.Validate
}

// NewDictionaryHandler creates a new DictionaryHandler.
func NewDictionaryHandler(cache *dictionary.Cache) *DictionaryHandler {
	return &DictionaryHandler{
		cache:    cache,
		validate: validator.New(),
	}
}

// GetDictionary returns the entries of a dictionary ordered for display.
func (h *DictionaryHandler) GetDictionary(
	ctx context.Context,
	req *connect.Request[GetDictionaryRequest],
) (*connect.Response[GetDictionaryResponse], error) {
	if err := h.validateRequest(req.Msg); err != nil {
		return nil, err
	}

	code := req.Msg.Code
	entries := h.cache.Fetch(ctx, code)
	if record, ok := h.cache.Store().Get(code); ok {
		entries = record.Sorted()
	}
	return connect.NewResponse(&GetDictionaryResponse{
		Code:    code,
		Entries: entries,
	}), nil
}

// GetLabel resolves a value to its label, from the cache unless Remote is set.
func (h *DictionaryHandler) GetLabel(
	ctx context.Context,
	req *connect.Request[GetLabelRequest],
) (*connect.Response[GetLabelResponse], error) {
	if err := h.validateRequest(req.Msg); err != nil {
		return nil, err
	}

	if req.Msg.Remote {
		label, err := h.cache.RemoteLabel(ctx, req.Msg.Code, req.Msg.Value)
		if err != nil {
			return nil, connect.NewError(connect.CodeUnavailable, fmt.Errorf("resolve remote label: %w", err))
		}
		return connect.NewResponse(&GetLabelResponse{Label: label}), nil
	}

	h.cache.Fetch(ctx, req.Msg.Code)
	return connect.NewResponse(&GetLabelResponse{
		Label: h.cache.DictLabel(req.Msg.Code, req.Msg.Value),
	}), nil
}

// BatchFetch loads several dictionaries at once and returns what is cached for them afterwards.
func (h *DictionaryHandler) BatchFetch(
	ctx context.Context,
	req *connect.Request[BatchFetchRequest],
) (*connect.Response[BatchFetchResponse], error) {
	if err := h.validateRequest(req.Msg); err != nil {
		return nil, err
	}

	h.cache.FetchBatch(ctx, req.Msg.Codes)

	resp := &BatchFetchResponse{
		Dictionaries: make(map[string][]dictionary.Entry, len(req.Msg.Codes)),
		Missing:      []string{},
	}
	for _, code := range req.Msg.Codes {
		if _, ok := resp.Dictionaries[code]; ok {
			continue
		}
		record, ok := h.cache.Store().Get(code)
		if !ok {
			resp.Missing = append(resp.Missing, code)
			continue
		}
		resp.Dictionaries[code] = record.Sorted()
	}
	return connect.NewResponse(resp), nil
}

// Sync applies the dictionaries changed since the last checkpoint.
func (h *DictionaryHandler) Sync(
	ctx context.Context,
	_ *connect.Request[SyncRequest],
) (*connect.Response[SyncResponse], error) {
	resp := &SyncResponse{
		Updated: h.cache.FetchIncremental(ctx),
	}
	if checkpoint, ok := h.cache.Store().Checkpoint(); ok {
		resp.Checkpoint = &checkpoint
	}
	return connect.NewResponse(resp), nil
}

// Reload discards the cache and loads every dictionary again.
// Without Wait, it returns as soon as the batch has started.
func (h *DictionaryHandler) Reload(
	ctx context.Context,
	req *connect.Request[ReloadRequest],
) (*connect.Response[ReloadResponse], error) {
	var err error
	if req.Msg.Wait {
		err = h.cache.LoadAllDictsAndWait(ctx)
	} else {
		err = h.cache.LoadAllDicts(ctx)
	}
	if err != nil {
		if errors.Is(err, dictionary.ErrCacheClosed) {
			return nil, connect.NewError(connect.CodeUnavailable, err)
		}
		slog.Default().Error("failed to reload dictionaries",
			"wait", req.Msg.Wait,
			"error", err,
		)
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("reload dictionaries: %w", err))
	}
	return connect.NewResponse(&ReloadResponse{Metrics: h.cache.Metrics()}), nil
}

// GetMetrics returns the metrics of the most recent reload.
func (h *DictionaryHandler) GetMetrics(
	_ context.Context,
	_ *connect.Request[GetMetricsRequest],
) (*connect.Response[GetMetricsResponse], error) {
	return connect.NewResponse(&GetMetricsResponse{Metrics: h.cache.Metrics()}), nil
}

func (h *DictionaryHandler) validateRequest(msg any) error {
	err := h.validate.Struct(msg)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, fmt.Sprintf("%s failed on %s", e.Namespace(), e.Tag()))
	}
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("invalid request: %s", strings.Join(fields, ", ")))
}
