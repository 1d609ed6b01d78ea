package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	domain "github.com/cassiomorais/marketsync/internal/domain/listing"
	"github.com/cassiomorais/marketsync/internal/service/listing"
)

type ListingController struct {
	orchestrator *listing.Orchestrator
	maxRetries   int
}

func NewListingController(orchestrator *listing.Orchestrator, maxRetries int) *ListingController {
	return &ListingController{orchestrator: orchestrator, maxRetries: maxRetries}
}

// List returns every listing, or only those of ?product_id when given.
func (h *ListingController) List(w http.ResponseWriter, r *http.Request) {
	var (
		listings []*domain.PlatformListing
		err      error
	)
	if raw := r.URL.Query().Get("product_id"); raw != "" {
		id, perr := parseUUID(raw, "product_id")
		if perr != nil {
			writeError(w, r, perr)
			return
		}
		listings, err = h.orchestrator.ListingsForProduct(r.Context(), id)
	} else {
		listings, err = h.orchestrator.Listings(r.Context())
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(listings, FromListing))
}

func (h *ListingController) Sync(w http.ResponseWriter, r *http.Request) {
	if err := h.orchestrator.SyncListingStats(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	h.List(w, r)
}

func (h *ListingController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.orchestrator.RemoveListing(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ListingController) Jobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.orchestrator.Jobs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(jobs, FromJob))
}

func (h *ListingController) Job(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	job, err := h.orchestrator.Job(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FromJob(job))
}

// Retry re-attempts every failed job still under the retry limit and
// returns the jobs it touched.
func (h *ListingController) Retry(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.orchestrator.RetryFailedPublishes(r.Context(), h.maxRetries)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(jobs, FromJob))
}
