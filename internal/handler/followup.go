package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"

	"ingressos-web/internal/followup"
	"ingressos-web/internal/logger"
	"ingressos-web/internal/utils"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const (
	maxFollowUpsPage = 200
	msgInternalError = "Erro interno. Tente novamente em instantes"
)

func (h *Handler) requireService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get("X-Service-Auth")
		if h.internalKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.internalKey)) != 1 {
			utils.WriteJSONError(w, "Acesso negado", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type followUpsView struct {
	FollowUps []followup.Record `json:"followups"`
}

// ListFollowUps returns open follow-ups, oldest first.
func (h *Handler) ListFollowUps(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			utils.WriteJSONError(w, "Parâmetro limit inválido", http.StatusBadRequest)
			return
		}
		limit = min(n, maxFollowUpsPage)
	}

	records, err := h.followups.ListOpen(r.Context(), limit)
	if err != nil {
		logger.FromCtx(r.Context()).Error("failed to list follow-ups", zap.Error(err))
		utils.WriteJSONError(w, msgInternalError, http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []followup.Record{}
	}
	utils.WriteJSON(w, http.StatusOK, followUpsView{FollowUps: records})
}

func (h *Handler) ResolveFollowUp(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	log := logger.FromCtx(r.Context()).With(zap.String("followup_id", id))

	err := h.followups.Resolve(r.Context(), id)
	switch {
	case errors.Is(err, followup.ErrNotFound):
		utils.WriteJSONError(w, "Pendência não encontrada ou já resolvida", http.StatusNotFound)
	case err != nil:
		log.Error("failed to resolve follow-up", zap.Error(err))
		utils.WriteJSONError(w, msgInternalError, http.StatusInternalServerError)
	default:
		log.Info("follow-up resolved")
		w.WriteHeader(http.StatusNoContent)
	}
}
