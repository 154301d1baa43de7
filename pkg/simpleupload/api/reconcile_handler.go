package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-upload/pkg/simpleupload"
)

// ReconcileHandler triggers an on-demand reconciliation pass
type ReconcileHandler struct {
	reconciler *simpleupload.Reconciler
}

// NewReconcileHandler creates a new reconcile handler
func NewReconcileHandler(reconciler *simpleupload.Reconciler) *ReconcileHandler {
	return &ReconcileHandler{reconciler: reconciler}
}

// Run executes one pass and returns its report
func (h *ReconcileHandler) Run(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.RunOnce(r.Context())
	if err != nil {
		if errors.Is(err, simpleupload.ErrReconcileInProgress) {
			render.Status(r, http.StatusConflict)
			render.JSON(w, r, MessageResponse{Message: "Reconciliation already in progress"})
			return
		}
		slog.Error("Reconciliation failed", "error", err)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, MessageResponse{Message: "Reconciliation failed"})
		return
	}

	render.JSON(w, r, report)
}
