// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tarkovtracker/internal/tarkovdata"
	"github.com/tomtom215/tarkovtracker/internal/upstream"
	"github.com/tomtom215/tarkovtracker/internal/validation"
)

// datasetQuery is the validated form of a dataset request.
type datasetQuery struct {
	Dataset  string `validate:"required,dataset"`
	Lang     string `validate:"required,lang"`
	GameMode string `validate:"required,gamemode"`
}

// parseGameMode reads the gameMode query parameter with its default.
func parseGameMode(r *http.Request) string {
	if mode := r.URL.Query().Get("gameMode"); mode != "" {
		return mode
	}
	return tarkovdata.DefaultGameMode
}

// wantsBypass reports whether the caller asked to skip the edge cache.
func wantsBypass(r *http.Request) bool {
	v := r.URL.Query().Get("nocache")
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// TarkovDataset serves one upstream dataset through the edge cache with the
// overlay applied. The body is the GraphQL response as served by the
// upstream, not the API envelope.
func (h *Handler) TarkovDataset(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.data == nil {
		rw.ServiceUnavailable("Dataset service unavailable")
		return
	}

	q := datasetQuery{
		Dataset:  chi.URLParam(r, "dataset"),
		Lang:     r.URL.Query().Get("lang"),
		GameMode: parseGameMode(r),
	}
	if q.Lang == "" {
		q.Lang = tarkovdata.DefaultLang
	}
	if verr := validation.ValidateStruct(&q); verr != nil {
		rw.ValidationError(verr)
		return
	}

	res, err := h.data.Dataset(r.Context(), r, tarkovdata.Request{
		Dataset:  q.Dataset,
		Lang:     q.Lang,
		GameMode: q.GameMode,
		Bypass:   wantsBypass(r),
	})
	if err != nil {
		if errors.Is(err, upstream.ErrUnknownDataset) {
			rw.NotFound("Unknown dataset")
			return
		}
		rw.ExternalServiceError("tarkov.dev", err)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", res.CacheControl)
	w.Header().Set("X-Cache-Status", string(res.Status))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// TarkovEditions serves the game edition reference data for a game mode.
func (h *Handler) TarkovEditions(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	if h.data == nil {
		rw.ServiceUnavailable("Dataset service unavailable")
		return
	}

	gameMode := parseGameMode(r)
	if !validation.IsGameMode(gameMode) {
		rw.Error(http.StatusBadRequest, ErrCodeValidationFailed, "gameMode must be one of regular, pve")
		return
	}

	editions, err := h.data.Editions(r.Context(), gameMode)
	if err != nil {
		rw.ExternalServiceError("overlay", err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=300")
	rw.Success(map[string]interface{}{
		"gameMode": gameMode,
		"editions": editions,
	})
}
