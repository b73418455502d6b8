package server

import (
	"net/http"
	"strings"

	"digitalindian/chat"
	"digitalindian/metrics"
)

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeJSON(w, http.StatusBadRequest, chatResponse{Reply: chat.EmptyMessageReply})
		return
	}

	reply := s.responder.Answer(r.Context(), strings.TrimSpace(req.Message))
	metrics.ChatReplies.WithLabelValues(string(reply.Source)).Inc()

	status := http.StatusOK
	switch {
	case reply.Source == chat.SourceEmpty:
		status = http.StatusBadRequest
	case reply.Failed():
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, chatResponse{Reply: reply.Text})
}
