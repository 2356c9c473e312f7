package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
)

const maxImageSize = 10 * 1024 * 1024

// HandleCaptureImage stores the uploaded photo for one card side
func (h *Handler) HandleCaptureImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot, ok := h.slotOrError(w, r)
	if !ok {
		return
	}

	// cap the whole request so an oversized body is not parsed into temp files
	r.Body = http.MaxBytesReader(w, r.Body, maxImageSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.writeError(w, "File too large (max 10MB)", http.StatusRequestEntityTooLarge)
			return
		}
		h.writeError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	// Limit file size to 10MB
	fileData, err := io.ReadAll(io.LimitReader(file, maxImageSize))
	if err != nil {
		h.writeError(w, "Failed to read file contents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if len(fileData) >= maxImageSize {
		h.writeError(w, "File too large (max 10MB)", http.StatusBadRequest)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(fileData)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		h.writeError(w, "Unsupported file type: "+mimeType, http.StatusBadRequest)
		return
	}

	err = c.Capture(slot, models.CapturedImage{
		Data:     fileData,
		MIMEType: mimeType,
		Filename: header.Filename,
	})
	if err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, c.Snapshot())
}

// HandleRetakeImage discards the photo in one slot
func (h *Handler) HandleRetakeImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot, ok := h.slotOrError(w, r)
	if !ok {
		return
	}
	if err := c.Retake(slot); err != nil {
		h.writeFailure(w, err)
		return
	}
	h.writeJSON(w, c.Snapshot())
}

// HandleGetImage serves the captured photo for one card side
func (h *Handler) HandleGetImage(w http.ResponseWriter, r *http.Request) {
	c, ok := h.getSessionOrError(w, r)
	if !ok {
		return
	}
	slot, ok := h.slotOrError(w, r)
	if !ok {
		return
	}

	img, ok := c.Image(slot)
	if !ok {
		h.writeError(w, "No image captured for this slot", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(img.Data)))
	_, _ = w.Write(img.Data)
}
