package server

import (
	"net/http"
	"trendsetter/monitoring"
	"trendsetter/server/middleware"
)

func (s *Server) listTrends(w http.ResponseWriter, r *http.Request) {
	trends, err := s.content.ListTrends(r.Context())
	if err != nil {
		writeError(w, err, "Trend")
		return
	}
	sendJson(w, http.StatusOK, trends)
}

func (s *Server) trendAnalysis(w http.ResponseWriter, r *http.Request) {
	analysis, err := s.content.TrendAnalysis(r.Context())
	if err != nil {
		writeError(w, err, "Trend")
		return
	}
	sendJson(w, http.StatusOK, analysis)
}

func (s *Server) notificationsStream(w http.ResponseWriter, r *http.Request) {
	caller := middleware.UserFromContext(r.Context())

	monitoring.NotificationSubscribers.Inc()
	defer monitoring.NotificationSubscribers.Dec()
	s.streamer.Serve(w, r, caller.Id.Hex())
}
