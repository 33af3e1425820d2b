package web

import (
	"travelwatch/internal/detection"

	"github.com/gorilla/mux"
)

// SetupRoutes wires the detection handlers onto the service's routes
func SetupRoutes(h *detection.DetectionHandlers) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/", h.Root).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")

	r.HandleFunc("/analyze", h.Analyze).Methods("GET")
	r.HandleFunc("/purge", h.Purge).Methods("POST")
	r.HandleFunc("/stats", h.Stats).Methods("GET")

	return r
}
