package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cassiomorais/marketsync/internal/account"
	"github.com/cassiomorais/marketsync/internal/domain/platform"
)

type AccountController struct {
	directory *account.Directory
}

func NewAccountController(directory *account.Directory) *AccountController {
	return &AccountController{directory: directory}
}

func (h *AccountController) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.directory.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(accounts, FromAccount))
}

// Callback completes an OAuth authorization. The platform is taken from the
// redirect URL itself, which must carry the authorization code.
func (h *AccountController) Callback(w http.ResponseWriter, r *http.Request) {
	p, code, err := account.ParseCallback(r.URL.String())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if param := chi.URLParam(r, "platform"); param != "" && param != p.String() {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "callback platform mismatch", Code: "unknown_platform"})
		return
	}

	acct, err := h.directory.Connect(r.Context(), p, code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FromAccount(acct))
}

func (h *AccountController) Disconnect(w http.ResponseWriter, r *http.Request) {
	p, err := platform.Parse(chi.URLParam(r, "platform"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.directory.Disconnect(r.Context(), p); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
