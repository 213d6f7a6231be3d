package api

import "net/http"

func (s *Server) handleFullGraph(w http.ResponseWriter, r *http.Request) {
	g, err := s.Queries.Full(r.Context())
	if err != nil {
		s.respondErr(w, r, err, "full graph", "")
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

// handleSearch returns the one-hop neighbourhood of phone_number.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	g, err := s.Queries.Neighborhood(r.Context(), r.URL.Query().Get("phone_number"))
	if err != nil {
		s.respondErr(w, r, err, "search", "Phone number not found")
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}

func (s *Server) handleShortestPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	g, err := s.Queries.ShortestPath(r.Context(), q.Get("start_phone"), q.Get("end_phone"))
	if err != nil {
		s.respondErr(w, r, err, "shortest path", "No path found between the given phone numbers")
		return
	}
	s.respondJSON(w, http.StatusOK, g)
}
