package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/hksamms/samms-services/internal/apisvc/service"
	"github.com/hksamms/samms-services/internal/attendance"
)

const maxPhotoSize = 5 << 20

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	var rec attendance.CheckRecord
	if !h.decode(w, r, &rec) {
		return
	}

	p, _ := PrincipalFrom(r.Context())
	doc, err := h.attendance.CheckIn(r.Context(), rec, p.UserID)
	if err != nil {
		h.fail(w, err, "Failed to record attendance")
		return
	}
	h.CreateResponse(w, Response{Message: "Attendance recorded", Code: http.StatusCreated, Data: doc})
}

func (h *Handler) ListCheckIns(w http.ResponseWriter, r *http.Request) {
	records, err := h.attendance.ListCheckIns(r.Context(), r.URL.Query().Get("studentId"))
	if err != nil {
		h.fail(w, err, "Failed to fetch attendance")
		return
	}
	h.CreateResponse(w, Response{Message: "Attendance fetched", Code: http.StatusOK, Data: records})
}

func (h *Handler) AddSelfAttendance(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+1<<20)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.CreateResponse(w, Response{Message: "Photo must be 5 MB or smaller", Code: http.StatusBadRequest})
			return
		}
		h.CreateResponse(w, Response{Message: "Invalid multipart form", Code: http.StatusBadRequest, Error: err.Error()})
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("photo")
	if err != nil {
		h.CreateResponse(w, Response{Message: "No photo uploaded - field must be named 'photo'", Code: http.StatusBadRequest})
		return
	}
	defer file.Close()

	if header.Size > maxPhotoSize {
		h.CreateResponse(w, Response{Message: "Photo must be 5 MB or smaller", Code: http.StatusBadRequest})
		return
	}
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		h.CreateResponse(w, Response{Message: "Only images are allowed", Code: http.StatusBadRequest})
		return
	}

	lat, laterr := strconv.ParseFloat(r.FormValue("latitude"), 64)
	lng, lngerr := strconv.ParseFloat(r.FormValue("longitude"), 64)
	if r.FormValue("time") == "" || laterr != nil || lngerr != nil {
		h.CreateResponse(w, Response{Message: "Missing required fields: time, latitude, longitude", Code: http.StatusBadRequest})
		return
	}

	p, _ := PrincipalFrom(r.Context())
	rec, err := h.attendance.RecordSelf(r.Context(), service.SelfAttendanceInput{
		UserID:    p.UserID,
		Filename:  header.Filename,
		Photo:     file,
		Time:      r.FormValue("time"),
		Latitude:  lat,
		Longitude: lng,
		Address:   r.FormValue("address"),
	})
	if err != nil {
		h.fail(w, err, "Server error")
		return
	}
	h.CreateResponse(w, Response{Message: "Self Attendance recorded", Code: http.StatusCreated, Data: rec})
}

func (h *Handler) MySelfAttendance(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	records, err := h.attendance.ListSelf(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, err, "Server error")
		return
	}
	h.CreateResponse(w, Response{Message: "Self attendance fetched", Code: http.StatusOK, Data: records})
}
