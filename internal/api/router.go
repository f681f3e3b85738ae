package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// NewRouter builds the HTTP router with every endpoint.
func NewRouter(h *Handler) http.Handler {
	r := mux.NewRouter()

	// System
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")
	r.HandleFunc("/readyz", h.Readyz).Methods("GET")

	// Newsletter proxy accepts any method so non-POST gets a JSON 405.
	r.HandleFunc("/api/subscribe", h.Subscribe)

	api := r.PathPrefix("/api/v1").Subrouter()

	// Content
	api.HandleFunc("/catalog", h.GetCatalog).Methods("GET")
	api.HandleFunc("/catalog/chapters/{chapter}", h.GetChapter).Methods("GET")
	api.HandleFunc("/glossary", h.GetGlossary).Methods("GET")
	api.HandleFunc("/annotate", h.Annotate).Methods("POST")

	// Households and profiles
	api.HandleFunc("/households", h.CreateHousehold).Methods("POST")
	hh := api.PathPrefix("/households/{hid}").Subrouter()
	hh.HandleFunc("/profiles", h.GetProfiles).Methods("GET")
	hh.HandleFunc("/profiles", h.AddProfile).Methods("POST")
	hh.HandleFunc("/profiles/active", h.SelectProfile).Methods("PUT")
	hh.HandleFunc("/profiles/{index}", h.DeleteProfile).Methods("DELETE")

	// Learning
	hh.HandleFunc("/progress", h.GetProgress).Methods("GET")
	hh.HandleFunc("/session", h.GetSession).Methods("GET")
	hh.HandleFunc("/session", h.StartSession).Methods("POST")
	hh.HandleFunc("/session/actions", h.SessionAction).Methods("POST")
	hh.HandleFunc("/certificate", h.GetCertificate).Methods("GET")
	hh.HandleFunc("/certificate", h.IssueCertificate).Methods("POST")
	hh.HandleFunc("/report.xlsx", h.GetReport).Methods("GET")
	hh.HandleFunc("/live", h.Live).Methods("GET")

	c := cors.New(cors.Options{
		AllowedOrigins: h.origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	})

	return c.Handler(r)
}
