package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"digitalindian/auth"
	"digitalindian/notify"
	"digitalindian/pkg/site"
	"digitalindian/storage"
	"digitalindian/store"
)

var errNotImage = errors.New("not an image")

// adminResponse is returned by every admin mutation.
type adminResponse struct {
	Success      bool           `json:"success"`
	Message      string         `json:"message"`
	Item         any            `json:"item,omitempty"`
	Notification *notify.Result `json:"notification,omitempty"`
}

func adminEmail(r *http.Request) string {
	return auth.AdminEmail(r)
}

func (s *Server) adminError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, adminResponse{Message: message})
}

// wantNotify reports whether the creator asked for an immediate fan-out.
func wantNotify(v string) bool {
	b, err := strconv.ParseBool(v)
	return err == nil && b
}

// notifyStored loads the stored item and fans it out to subscribers.
func (s *Server) notifyStored(ctx context.Context, kind site.ContentKind, id string) notify.Result {
	item, err := s.store.ContentItem(ctx, kind, id)
	if err != nil {
		s.logger.Error("Failed to load content for notification", "kind", kind, "id", id, "error", err)
		return notify.Result{Message: "Could not load the content item."}
	}
	return s.notifier.NotifySubscribers(ctx, item)
}

// created writes the response for a successful create, running the fan-out first
// when requested.
func (s *Server) created(w http.ResponseWriter, r *http.Request, kind site.ContentKind, id, message string, item any, notifyNow bool) {
	resp := adminResponse{Success: true, Message: message, Item: item}
	if notifyNow {
		res := s.notifyStored(context.WithoutCancel(r.Context()), kind, id)
		resp.Notification = &res
	}
	s.logger.Info("Content created", "kind", kind, "id", id, "admin", adminEmail(r), "notify", notifyNow)
	s.writeJSON(w, http.StatusCreated, resp)
}

// parseUpload parses a multipart admin form with a single image part.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes+multipartOverhead)
	return r.ParseMultipartForm(multipartOverhead)
}

func hasFile(r *http.Request, name string) bool {
	if r.MultipartForm == nil {
		return false
	}
	parts := r.MultipartForm.File[name]
	return len(parts) > 0 && parts[0].Size > 0
}

// uploadImage validates the "image" part and stores it under prefix. A nil object
// and nil error mean no image was sent.
func (s *Server) uploadImage(r *http.Request, prefix string) (*storage.Object, error) {
	file, header, err := r.FormFile("image")
	if err != nil || header.Size == 0 {
		return nil, nil //nolint:nilerr // missing image is reported by the caller
	}
	defer file.Close() //nolint:errcheck // read-only

	data, err := readFile(file, header, maxImageBytes)
	if err != nil {
		return nil, err
	}
	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		return nil, errNotImage
	}
	return s.images.Upload(r.Context(), prefix, header.Filename, contentType, bytes.NewReader(data))
}

func (s *Server) uploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errFileTooLarge):
		s.adminError(w, http.StatusBadRequest, "Image must be 10 MB or smaller.")
	case errors.Is(err, errNotImage):
		s.adminError(w, http.StatusBadRequest, "The uploaded file is not an image.")
	default:
		s.logger.Error("Storage error", "error", err)
		s.adminError(w, http.StatusInternalServerError, "Failed to upload image to storage.")
	}
}

// discardImage removes a stored image. Failures are logged and otherwise ignored
// so that a row can always be deleted.
func (s *Server) discardImage(ctx context.Context, imageURL string) {
	key := s.images.KeyFromURL(imageURL)
	if key == "" {
		s.logger.Warn("Could not determine object key from URL", "url", imageURL)
		return
	}
	if err := s.images.Delete(ctx, key); err != nil {
		s.logger.Warn("Storage deletion error", "key", key, "error", err)
	}
}

// Posts.

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	post := &site.Post{
		Title:    strings.TrimSpace(r.FormValue("title")),
		Content:  strings.TrimSpace(r.FormValue("content")),
		Author:   strings.TrimSpace(r.FormValue("author")),
		Category: strings.TrimSpace(r.FormValue("category")),
	}
	if post.Title == "" || post.Content == "" || post.Author == "" || post.Category == "" {
		s.adminError(w, http.StatusBadRequest, "All fields, including an image, are required.")
		return
	}

	obj, err := s.uploadImage(r, storage.PrefixPosts)
	if err != nil {
		s.uploadError(w, err)
		return
	}
	if obj == nil {
		s.adminError(w, http.StatusBadRequest, "All fields, including an image, are required.")
		return
	}
	post.ImageURL = obj.URL

	if err := s.store.CreatePost(r.Context(), post); err != nil {
		s.logger.Error("Database error", "error", err)
		s.discardImage(r.Context(), obj.URL)
		s.adminError(w, http.StatusInternalServerError, "Failed to save post to the database.")
		return
	}

	s.created(w, r, site.KindPost, post.ID, "Success! Post created.", post, wantNotify(r.FormValue("notify")))
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, "title", "content", "author", "category")
	if err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	if f["title"] == "" || f["content"] == "" || f["author"] == "" || f["category"] == "" {
		s.adminError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	post := &site.Post{
		ID:       urlParam(r, "id"),
		Title:    f["title"],
		Content:  f["content"],
		Author:   f["author"],
		Category: f["category"],
	}
	if err := s.store.UpdatePost(r.Context(), post); err != nil {
		s.mutationError(w, err, "Post not found.", "Failed to update post.")
		return
	}

	s.logger.Info("Post updated", "id", post.ID, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Post updated."})
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	post, err := s.store.GetPost(r.Context(), id)
	if err != nil {
		s.mutationError(w, err, "Post not found.", "Failed to delete post from the database.")
		return
	}

	if post.ImageURL != "" {
		s.discardImage(r.Context(), post.ImageURL)
	}
	if err := s.store.DeletePost(r.Context(), id); err != nil {
		s.mutationError(w, err, "Post not found.", "Failed to delete post from the database.")
		return
	}

	s.logger.Info("Post deleted", "id", id, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Post deleted."})
}

// Company updates.

func (s *Server) handleCreateUpdate(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, "title", "content", "notify")
	if err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	if f["title"] == "" || f["content"] == "" {
		s.adminError(w, http.StatusBadRequest, "Title and content are required.")
		return
	}

	u := &site.CompanyUpdate{Title: f["title"], Content: f["content"]}
	if err := s.store.CreateUpdate(r.Context(), u); err != nil {
		s.logger.Error("Database error", "error", err)
		s.adminError(w, http.StatusInternalServerError, "Failed to save update to the database.")
		return
	}

	s.created(w, r, site.KindUpdate, u.ID, "Success! Update created.", u, wantNotify(f["notify"]))
}

func (s *Server) handleUpdateUpdate(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, "title", "content")
	if err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	if f["title"] == "" || f["content"] == "" {
		s.adminError(w, http.StatusBadRequest, "Title and content are required.")
		return
	}

	u := &site.CompanyUpdate{ID: urlParam(r, "id"), Title: f["title"], Content: f["content"]}
	if err := s.store.UpdateUpdate(r.Context(), u); err != nil {
		s.mutationError(w, err, "Update not found.", "Failed to update company update.")
		return
	}

	s.logger.Info("Company update edited", "id", u.ID, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Update saved."})
}

func (s *Server) handleDeleteUpdate(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := s.store.DeleteUpdate(r.Context(), id); err != nil {
		s.mutationError(w, err, "Update not found.", "Failed to delete update from the database.")
		return
	}

	s.logger.Info("Company update deleted", "id", id, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Update deleted."})
}

// Job openings.

var jobFields = []string{"title", "description", "location", "type", "department"}

func jobFromFields(f map[string]string) (*site.JobOpening, bool) {
	for _, n := range jobFields {
		if f[n] == "" {
			return nil, false
		}
	}
	return &site.JobOpening{
		Title:       f["title"],
		Description: f["description"],
		Location:    f["location"],
		Type:        f["type"],
		Department:  f["department"],
	}, true
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, append(jobFields, "notify")...)
	if err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	job, ok := jobFromFields(f)
	if !ok {
		s.adminError(w, http.StatusBadRequest, "All fields are required.")
		return
	}

	if err := s.store.CreateJob(r.Context(), job); err != nil {
		s.logger.Error("Database error", "error", err)
		s.adminError(w, http.StatusInternalServerError, "Failed to save job opening to the database.")
		return
	}

	s.created(w, r, site.KindJob, job.ID, "Success! Job opening created.", job, wantNotify(f["notify"]))
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, jobFields...)
	if err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	job, ok := jobFromFields(f)
	if !ok {
		s.adminError(w, http.StatusBadRequest, "All fields are required.")
		return
	}
	job.ID = urlParam(r, "id")

	if err := s.store.UpdateJob(r.Context(), job); err != nil {
		s.mutationError(w, err, "Job opening not found.", "Failed to update job opening.")
		return
	}

	s.logger.Info("Job opening updated", "id", job.ID, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Job opening updated."})
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if err := s.store.DeleteJob(r.Context(), id); err != nil {
		s.mutationError(w, err, "Job opening not found.", "Failed to delete job opening from the database.")
		return
	}

	s.logger.Info("Job opening deleted", "id", id, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Job opening deleted."})
}

// Gallery.

func (s *Server) handleCreateGalleryItem(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUpload(w, r); err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup

	if !hasFile(r, "image") {
		s.adminError(w, http.StatusBadRequest, "Please provide an image file.")
		return
	}
	item := &site.GalleryItem{
		Title: strings.TrimSpace(r.FormValue("title")),
		Hint:  strings.TrimSpace(r.FormValue("hint")),
	}
	if item.Title == "" || item.Hint == "" {
		s.adminError(w, http.StatusBadRequest, "Title and hint are required.")
		return
	}

	obj, err := s.uploadImage(r, storage.PrefixGallery)
	if err != nil {
		s.uploadError(w, err)
		return
	}
	if obj == nil {
		s.adminError(w, http.StatusBadRequest, "Please provide an image file.")
		return
	}
	item.ImageURL = obj.URL

	if err := s.store.CreateGalleryItem(r.Context(), item); err != nil {
		s.logger.Error("Database error", "error", err)
		s.discardImage(r.Context(), obj.URL)
		s.adminError(w, http.StatusInternalServerError, "Failed to save gallery item to the database.")
		return
	}

	s.logger.Info("Gallery item created", "id", item.ID, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusCreated, adminResponse{Success: true, Message: "Success!", Item: item})
}

func (s *Server) handleUpdateGalleryItem(w http.ResponseWriter, r *http.Request) {
	f, err := formFields(w, r, "title", "hint")
	if err != nil {
		s.adminError(w, http.StatusBadRequest, "Invalid form data.")
		return
	}
	if f["title"] == "" || f["hint"] == "" {
		s.adminError(w, http.StatusBadRequest, "Title and hint cannot be empty.")
		return
	}

	item := &site.GalleryItem{ID: urlParam(r, "id"), Title: f["title"], Hint: f["hint"]}
	if err := s.store.UpdateGalleryItem(r.Context(), item); err != nil {
		s.mutationError(w, err, "Gallery item not found.", "Failed to update gallery item.")
		return
	}

	s.logger.Info("Gallery item updated", "id", item.ID, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Gallery item updated."})
}

func (s *Server) handleDeleteGalleryItem(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	item, err := s.store.GetGalleryItem(r.Context(), id)
	if err != nil {
		s.mutationError(w, err, "Gallery item not found.", "Failed to delete gallery item from the database.")
		return
	}

	s.discardImage(r.Context(), item.ImageURL)
	if err := s.store.DeleteGalleryItem(r.Context(), id); err != nil {
		s.mutationError(w, err, "Gallery item not found.", "Failed to delete gallery item from the database.")
		return
	}

	s.logger.Info("Gallery item deleted", "id", id, "admin", adminEmail(r))
	s.writeJSON(w, http.StatusOK, adminResponse{Success: true, Message: "Gallery item deleted."})
}

// Notification.

func (s *Server) handleNotify(w http.ResponseWriter, r *http.Request) {
	kind, err := site.ParseKind(urlParam(r, "kind"))
	if err != nil {
		s.writeResult(w, http.StatusBadRequest, false, "Unknown content kind.")
		return
	}
	id := urlParam(r, "id")

	item, err := s.store.ContentItem(r.Context(), kind, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.writeResult(w, http.StatusNotFound, false, "Content not found.")
			return
		}
		s.logger.Error("Failed to load content for notification", "kind", kind, "id", id, "error", err)
		s.writeResult(w, http.StatusInternalServerError, false, "Could not load the content item.")
		return
	}

	s.logger.Info("Notification requested", "kind", kind, "id", id, "admin", adminEmail(r))
	// A started run always covers every subscriber, even if the admin disconnects.
	res := s.notifier.NotifySubscribers(context.WithoutCancel(r.Context()), item)
	status := http.StatusOK
	if !res.Success {
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, res)
}

// mutationError maps a store error from an update or delete to a response.
func (s *Server) mutationError(w http.ResponseWriter, err error, notFoundMsg, failMsg string) {
	if errors.Is(err, store.ErrNotFound) {
		s.adminError(w, http.StatusNotFound, notFoundMsg)
		return
	}
	s.logger.Error("Database error", "error", err)
	s.adminError(w, http.StatusInternalServerError, failMsg)
}
