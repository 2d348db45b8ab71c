package handlers

import (
	"net/http"

	"chat-server/internal/upload"
	"chat-server/pkg/logger"
)

type UploadHandlers struct {
	store   *upload.Store
	maxSize int64
}

func NewUploadHandlers(store *upload.Store, maxSize int64) *UploadHandlers {
	return &UploadHandlers{store: store, maxSize: maxSize}
}

func (h *UploadHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "no file uploaded", http.StatusBadRequest)
		return
	}
	defer file.Close()

	ref, err := h.store.Save(file, header.Filename)
	if err != nil {
		logger.Error("Upload error: %v", err)
		http.Error(w, "upload failed", http.StatusInternalServerError)
		return
	}

	writeJSON(w, ref)
}
