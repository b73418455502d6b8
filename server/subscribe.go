package server

import (
	"errors"
	"net/http"

	"digitalindian/metrics"
	"digitalindian/store"
)

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	// Rate limiting by IP
	ip := clientIP(r)
	if !s.limiter.allow(ip) {
		s.logger.Warn("Rate limit exceeded", "ip", ip)
		metrics.Subscriptions.WithLabelValues("rate_limited").Inc()
		s.writeResult(w, http.StatusTooManyRequests, false, "Too many requests. Please try again later.")
		return
	}

	fields, err := formFields(w, r, "email")
	if err != nil {
		s.writeResult(w, http.StatusBadRequest, false, "Invalid form data.")
		return
	}

	addr := store.NormalizeEmail(fields["email"])
	if !isValidEmail(addr) {
		metrics.Subscriptions.WithLabelValues("invalid").Inc()
		s.writeResult(w, http.StatusBadRequest, false, "Please enter a valid email address.")
		return
	}

	if err := s.store.AddSubscriber(r.Context(), addr); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			metrics.Subscriptions.WithLabelValues("duplicate").Inc()
			s.writeResult(w, http.StatusConflict, false, "This email is already subscribed.")
			return
		}
		s.logger.Error("Failed to save subscription", "error", err)
		metrics.Subscriptions.WithLabelValues("error").Inc()
		s.writeResult(w, http.StatusInternalServerError, false, "An unexpected error occurred. Please try again.")
		return
	}
	metrics.Subscriptions.WithLabelValues("created").Inc()
	s.logger.Info("Subscription created", "email", addr, "ip", ip)

	// Send welcome email
	if s.emailConfigured {
		if err := s.mailer.SendWelcome(r.Context(), addr); err != nil {
			// Log error but don't fail the subscription
			s.logger.Warn("Failed to send welcome email", "email", addr, "error", err)
		}
	}

	s.writeResult(w, http.StatusOK, true, "Thank you for subscribing!")
}

// handleRemoveSubscriber lets an admin drop an address from the list.
func (s *Server) handleRemoveSubscriber(w http.ResponseWriter, r *http.Request) {
	addr := store.NormalizeEmail(urlParam(r, "email"))
	if !isValidEmail(addr) {
		s.writeResult(w, http.StatusBadRequest, false, "Invalid email address.")
		return
	}

	if err := s.store.RemoveSubscriber(r.Context(), addr); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeResult(w, http.StatusNotFound, false, "Subscriber not found.")
			return
		}
		s.logger.Error("Failed to remove subscriber", "email", addr, "error", err)
		s.writeResult(w, http.StatusInternalServerError, false, "Failed to remove subscriber.")
		return
	}

	s.logger.Info("Subscriber removed by admin", "email", addr, "admin", adminEmail(r))
	s.writeResult(w, http.StatusOK, true, "Subscriber removed.")
}

func (s *Server) handleListSubscribers(w http.ResponseWriter, r *http.Request) {
	subs, err := s.store.ListSubscribers(r.Context())
	if err != nil {
		s.logger.Error("Failed to list subscribers", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, subs)
}
