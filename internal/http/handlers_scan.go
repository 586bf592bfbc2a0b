package http

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
)

const maxReceiptBytes = 10 << 20

var allowedReceiptTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// handleScanReceipt accepts a raw image body and returns the extracted
// transaction fields. The body is the image itself, not multipart.
func (s *Server) handleScanReceipt(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	if s.scanner == nil {
		respondError(w, http.StatusServiceUnavailable, "receipt scanning is not configured")
		return
	}

	mimeType := r.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if !allowedReceiptTypes[mimeType] {
		respondError(w, http.StatusUnsupportedMediaType, "expected a jpeg, png or webp image")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxReceiptBytes)
	imageData, err := io.ReadAll(r.Body)
	if err != nil {
		respondError(w, http.StatusRequestEntityTooLarge, "image exceeds the 10MB limit")
		return
	}
	if len(imageData) == 0 {
		respondError(w, http.StatusBadRequest, "empty image body")
		return
	}

	receipt, err := s.scanner.ScanReceipt(r.Context(), imageData, mimeType)
	if err != nil {
		slog.ErrorContext(r.Context(), "Receipt scan failed",
			"user_id", user.ID,
			"error", err)
		respondError(w, http.StatusBadGateway, "could not read the receipt")
		return
	}

	respondJSON(w, http.StatusOK, receipt)
}
