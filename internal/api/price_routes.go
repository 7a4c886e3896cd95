package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/kjannette/vitanova-gold/internal/external"
)

func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q, err := s.deps.Prices.FetchCurrent(r.Context())
	if err != nil {
		fmt.Printf("[API] Price fetch failed: %v\n", err)

		var upErr *external.UpstreamError
		if errors.As(err, &upErr) {
			writeError(w, http.StatusInternalServerError, upErr.Reason)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch gold price")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (s *Server) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	h, err := s.deps.Prices.History(r.Context(),
		query.Get("timeframe"), query.Get("start_date"), query.Get("end_date"))
	if err != nil {
		fmt.Printf("[API] History failed: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to build price history")
		return
	}
	writeJSON(w, http.StatusOK, h)
}

func (s *Server) handlePriceStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.deps.Prices.Stats(r.Context())
	if err != nil {
		fmt.Printf("[API] Stats failed: %v\n", err)
		writeError(w, http.StatusInternalServerError, "failed to compute price stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
