package server

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"digitalindian/email"
)

const (
	maxResumeBytes = 5 << 20
	maxImageBytes  = 10 << 20

	// Room for the text fields alongside a file part.
	multipartOverhead = 1 << 20
)

var errFileTooLarge = errors.New("file too large")

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, "name", "email", "subject", "message")
	if err != nil {
		s.writeResult(w, http.StatusBadRequest, false, "Invalid form data.")
		return
	}
	if f["name"] == "" || f["subject"] == "" || f["message"] == "" || !isValidEmail(f["email"]) {
		s.writeResult(w, http.StatusBadRequest, false, "Invalid form data.")
		return
	}

	if !s.emailConfigured {
		s.logger.Error("Contact form rejected: email credentials are not set")
		s.writeResult(w, http.StatusInternalServerError, false, "Server configuration error.")
		return
	}

	form := &email.ContactForm{
		Name:    f["name"],
		Email:   f["email"],
		Subject: f["subject"],
		Message: f["message"],
	}
	if err := s.mailer.SendContact(r.Context(), form); err != nil {
		s.logger.Error("Failed to send contact email", "from", form.Email, "error", err)
		s.writeResult(w, http.StatusInternalServerError, false, "Failed to send email.")
		return
	}

	s.writeResult(w, http.StatusOK, true, "Email sent successfully!")
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxResumeBytes+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		s.writeResult(w, http.StatusBadRequest, false, "Invalid form data.")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	name := strings.TrimSpace(r.FormValue("name"))
	addr := strings.TrimSpace(r.FormValue("email"))
	jobTitle := strings.TrimSpace(r.FormValue("jobTitle"))
	message := strings.TrimSpace(r.FormValue("message"))

	file, header, err := r.FormFile("resume")
	if err != nil || header.Size == 0 || name == "" || addr == "" || jobTitle == "" {
		s.writeResult(w, http.StatusBadRequest, false, "Missing required fields.")
		return
	}
	defer file.Close() //nolint:errcheck // read-only

	if !isValidEmail(addr) {
		s.writeResult(w, http.StatusBadRequest, false, "Please enter a valid email address.")
		return
	}

	data, err := readFile(file, header, maxResumeBytes)
	if err != nil {
		if errors.Is(err, errFileTooLarge) {
			s.writeResult(w, http.StatusBadRequest, false, "Resume must be 5 MB or smaller.")
			return
		}
		s.logger.Error("Failed to read resume", "error", err)
		s.writeResult(w, http.StatusBadRequest, false, "Invalid form data.")
		return
	}

	if !s.emailConfigured {
		s.logger.Error("Job application rejected: email credentials are not set")
		s.writeResult(w, http.StatusInternalServerError, false, "Server configuration error.")
		return
	}

	app := &email.Application{
		Name:     name,
		Email:    addr,
		Message:  message,
		JobTitle: jobTitle,
		Resume: email.Attachment{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Data:        data,
		},
	}
	if err := s.mailer.SendApplication(r.Context(), app); err != nil {
		s.logger.Error("Failed to send application email", "from", addr, "job_title", jobTitle, "error", err)
		s.writeResult(w, http.StatusInternalServerError, false, "Failed to send application.")
		return
	}

	s.writeResult(w, http.StatusOK, true, "Application sent successfully!")
}

// readFile reads an uploaded part, refusing anything over limit bytes.
func readFile(file multipart.File, header *multipart.FileHeader, limit int64) ([]byte, error) {
	if header.Size > limit {
		return nil, errFileTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, errFileTooLarge
	}
	return data, nil
}
