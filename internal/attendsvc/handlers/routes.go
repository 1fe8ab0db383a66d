package handlers

import (
	"os"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/jwtauth"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) SetRoutes(r *chi.Mux) {
	r.Route("/v1", func(r chi.Router) {

		// public routes here
		r.Get("/health", h.HealthHandler)
		r.Get("/ws", h.HandleWebSocket)

		// Secure routes
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(h.tokenAuth))
			r.Use(jwtauth.Authenticator)

			r.Post("/sync", h.SyncHandler)
			r.Get("/sync/runs", h.SyncRunsHandler)

			r.Post("/corrections", h.CorrectionHandler)

			r.Post("/manual-punches", h.AddManualPunchHandler)
			r.Post("/manual-punches/fold", h.FoldManualPunchesHandler)
			r.Delete("/manual-punches/{id}", h.DeleteManualPunchHandler)

			r.Put("/employees", h.UpsertEmployeeHandler)
			r.Get("/employees", h.ListEmployeesHandler)

			r.Get("/ledgers/{employeeNo}", h.LedgerHandler)
			r.Get("/ledgers/{employeeNo}/range", h.LedgerRangeHandler)

			r.Get("/reports/daily", h.DailyReportHandler)
			r.Get("/reports/monthly", h.MonthlyReportHandler)
			r.Get("/reports/manual-punches", h.ManualPunchReportHandler)
		})
	})
}

func (h *Handler) InitAuth() {
	var jwtKey = os.Getenv("JWT_SECRET_KEY")
	h.tokenAuth = jwtauth.New("HS256", []byte(jwtKey), nil)

	expirationTime := time.Now().Add(7 * 24 * time.Hour).Unix()

	_, tokenString, _ := h.tokenAuth.Encode(map[string]interface{}{
		"service_id": 8003022,
		"exp":        expirationTime,
	})

	// For debugging only, comment it out in production
	log.Infof("DEBUG: JWT for testing expires soon : %s", tokenString)
}
