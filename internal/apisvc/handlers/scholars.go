package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi"

	"github.com/hksamms/samms-services/internal/apisvc/service"
)

func (h *Handler) ListScholars(w http.ResponseWriter, r *http.Request) {
	scholars, err := h.scholars.ListScholars(r.Context())
	if err != nil {
		h.fail(w, err, "Failed to fetch scholars")
		return
	}
	h.CreateResponse(w, Response{Message: "Scholars fetched", Code: http.StatusOK, Data: scholars})
}

func (h *Handler) CreateScholar(w http.ResponseWriter, r *http.Request) {
	var in service.CreateScholarInput
	if !h.decode(w, r, &in) {
		return
	}

	sc, err := h.scholars.CreateScholar(r.Context(), in)
	if err != nil {
		h.fail(w, err, "Failed to create scholar or user")
		return
	}
	h.CreateResponse(w, Response{
		Message: "Scholar and user created successfully",
		Code:    http.StatusCreated,
		Data:    sc,
	})
}

func (h *Handler) UpdateScholar(w http.ResponseWriter, r *http.Request) {
	var in service.UpdateScholarInput
	if !h.decode(w, r, &in) {
		return
	}

	sc, err := h.scholars.UpdateScholar(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		h.fail(w, err, notifyFallback(err, "Scholar updated but notification failed"))
		return
	}
	h.CreateResponse(w, Response{
		Message: "Scholar and linked user updated successfully",
		Code:    http.StatusOK,
		Data:    sc,
	})
}

func (h *Handler) ToggleScholarStatus(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scholars.ToggleStatus(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, notifyFallback(err, "Status updated but notification failed"))
		return
	}
	h.CreateResponse(w, Response{Message: "Status updated successfully", Code: http.StatusOK, Data: sc})
}

func (h *Handler) LookupScholar(w http.ResponseWriter, r *http.Request) {
	sc, err := h.scholars.LookupScholar(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, "Failed to fetch scholar")
		return
	}
	h.CreateResponse(w, Response{
		Message: "Scholar lookup",
		Code:    http.StatusOK,
		Data: map[string]interface{}{
			"exists":  sc != nil,
			"scholar": sc,
		},
	})
}

func (h *Handler) CountScholarsByMonth(w http.ResponseWriter, r *http.Request) {
	year, yerr := strconv.Atoi(r.URL.Query().Get("year"))
	month, merr := strconv.Atoi(r.URL.Query().Get("month"))
	if yerr != nil || merr != nil {
		h.fail(w, service.ErrInvalidPeriod, "")
		return
	}

	count, err := h.scholars.CountByMonth(r.Context(), year, month, nil)
	if err != nil {
		h.fail(w, err, "Failed to count scholars")
		return
	}
	h.CreateResponse(w, Response{
		Message: "Scholar count",
		Code:    http.StatusOK,
		Data:    map[string]int64{"count": count},
	})
}
