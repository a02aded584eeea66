package api

import "net/http"

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true})
	}
}

func (s *Server) handleWeather() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		city := r.URL.Query().Get("city")
		if len(city) > maxLocationLength {
			respondError(w, http.StatusBadRequest, "city is too long")
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "data": s.weather.Current(r.Context(), city)})
	}
}

func (s *Server) handleMarket() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]any{"ok": true, "data": s.market.Snapshot(r.Context())})
	}
}
