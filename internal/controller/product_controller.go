package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cassiomorais/marketsync/internal/domain/catalog"
	"github.com/cassiomorais/marketsync/internal/service/listing"
)

type ProductController struct {
	orchestrator *listing.Orchestrator
}

func NewProductController(orchestrator *listing.Orchestrator) *ProductController {
	return &ProductController{orchestrator: orchestrator}
}

func (h *ProductController) Create(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p := &catalog.Product{}
	req.apply(p)
	if err := h.orchestrator.CreateProduct(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, FromProduct(p))
}

func (h *ProductController) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.orchestrator.Products(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(products, FromProduct))
}

func (h *ProductController) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.orchestrator.Product(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FromProduct(p))
}

func (h *ProductController) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req ProductRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, err := h.orchestrator.Product(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	req.apply(p)
	if err := h.orchestrator.UpdateProduct(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, FromProduct(p))
}

// Delete ends every listing of the product before removing it. A listing that
// could not be removed keeps the product in place.
func (h *ProductController) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	if err := h.orchestrator.DeleteProduct(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Publish answers 201 with the job whenever one was recorded, including
// partial failures, so the outcome per platform is visible to the caller.
func (h *ProductController) Publish(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUID(chi.URLParam(r, "id"), "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	var req PublishRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	job, err := h.orchestrator.PublishProduct(r.Context(), id, req.platforms())
	if job == nil {
		writeError(w, r, err)
		return
	}

	resp := PublishResponse{Job: FromJob(job)}
	if err != nil {
		resp.Error = err.Error()
	}
	writeJSON(w, http.StatusCreated, resp)
}
