package server

import (
	"errors"
	"net/http"

	"digitalindian/store"

	"github.com/go-chi/chi/v5"
)

func urlParam(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := s.store.ListPosts(r.Context())
	if err != nil {
		s.logger.Error("Failed to list posts", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, posts)
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.store.GetPost(r.Context(), urlParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "Post not found", http.StatusNotFound)
			return
		}
		s.logger.Error("Failed to load post", "id", urlParam(r, "id"), "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, post)
}

func (s *Server) handleListUpdates(w http.ResponseWriter, r *http.Request) {
	updates, err := s.store.ListUpdates(r.Context())
	if err != nil {
		s.logger.Error("Failed to list company updates", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, updates)
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.store.ListJobs(r.Context())
	if err != nil {
		s.logger.Error("Failed to list job openings", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, jobs)
}

func (s *Server) handleListGallery(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListGallery(r.Context())
	if err != nil {
		s.logger.Error("Failed to list gallery", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, items)
}
