package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"digitalindian/htmltext"
	"digitalindian/pkg/site"
)

const summaryRunes = 200

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", what, err)
}

// fillNew assigns an ID and creation time when the caller left them empty.
func (s *Store) fillNew(id *string, created *time.Time) {
	if *id == "" {
		*id = uuid.NewString()
	}
	if created.IsZero() {
		*created = s.now().UTC()
	}
}

// Posts.

const postColumns = "id, title, content, author, category, image_url, created_at"

func scanPost(row scanner) (*site.Post, error) {
	var p site.Post
	var created dbTime
	if err := row.Scan(&p.ID, &p.Title, &p.Content, &p.Author, &p.Category, &p.ImageURL, &created); err != nil {
		return nil, err
	}
	p.CreatedAt = created.Time
	return &p, nil
}

// CreatePost inserts p, assigning ID and CreatedAt if unset.
func (s *Store) CreatePost(ctx context.Context, p *site.Post) error {
	s.fillNew(&p.ID, &p.CreatedAt)
	_, err := s.exec(ctx, "INSERT INTO posts ("+postColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Title, p.Content, p.Author, p.Category, p.ImageURL, s.timeArg(p.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPost returns the post with id.
func (s *Store) GetPost(ctx context.Context, id string) (*site.Post, error) {
	p, err := scanPost(s.queryRow(ctx, "SELECT "+postColumns+" FROM posts WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "get post")
	}
	return p, nil
}

// ListPosts returns all posts, newest first.
func (s *Store) ListPosts(ctx context.Context) ([]*site.Post, error) {
	rows, err := s.query(ctx, "SELECT "+postColumns+" FROM posts ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	out := []*site.Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UpdatePost rewrites the text fields of an existing post. The image is kept.
func (s *Store) UpdatePost(ctx context.Context, p *site.Post) error {
	res, err := s.exec(ctx, "UPDATE posts SET title = ?, content = ?, author = ?, category = ? WHERE id = ?",
		p.Title, p.Content, p.Author, p.Category, p.ID)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	return checkAffected(res)
}

// DeletePost removes the post with id.
func (s *Store) DeletePost(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return checkAffected(res)
}

// Company updates.

const updateColumns = "id, title, content, created_at"

func scanUpdate(row scanner) (*site.CompanyUpdate, error) {
	var u site.CompanyUpdate
	var created dbTime
	if err := row.Scan(&u.ID, &u.Title, &u.Content, &created); err != nil {
		return nil, err
	}
	u.CreatedAt = created.Time
	return &u, nil
}

// CreateUpdate inserts u, assigning ID and CreatedAt if unset.
func (s *Store) CreateUpdate(ctx context.Context, u *site.CompanyUpdate) error {
	s.fillNew(&u.ID, &u.CreatedAt)
	_, err := s.exec(ctx, "INSERT INTO company_updates ("+updateColumns+") VALUES (?, ?, ?, ?)",
		u.ID, u.Title, u.Content, s.timeArg(u.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert company update: %w", err)
	}
	return nil
}

// GetUpdate returns the company update with id.
func (s *Store) GetUpdate(ctx context.Context, id string) (*site.CompanyUpdate, error) {
	u, err := scanUpdate(s.queryRow(ctx, "SELECT "+updateColumns+" FROM company_updates WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "get company update")
	}
	return u, nil
}

// ListUpdates returns all company updates, newest first.
func (s *Store) ListUpdates(ctx context.Context) ([]*site.CompanyUpdate, error) {
	rows, err := s.query(ctx, "SELECT "+updateColumns+" FROM company_updates ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query company updates: %w", err)
	}
	defer rows.Close()

	out := []*site.CompanyUpdate{}
	for rows.Next() {
		u, err := scanUpdate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company update: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateUpdate rewrites an existing company update.
func (s *Store) UpdateUpdate(ctx context.Context, u *site.CompanyUpdate) error {
	res, err := s.exec(ctx, "UPDATE company_updates SET title = ?, content = ? WHERE id = ?", u.Title, u.Content, u.ID)
	if err != nil {
		return fmt.Errorf("update company update: %w", err)
	}
	return checkAffected(res)
}

// DeleteUpdate removes the company update with id.
func (s *Store) DeleteUpdate(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM company_updates WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete company update: %w", err)
	}
	return checkAffected(res)
}

// Job openings.

const jobColumns = "id, title, description, location, type, department, created_at"

func scanJob(row scanner) (*site.JobOpening, error) {
	var j site.JobOpening
	var created dbTime
	if err := row.Scan(&j.ID, &j.Title, &j.Description, &j.Location, &j.Type, &j.Department, &created); err != nil {
		return nil, err
	}
	j.CreatedAt = created.Time
	return &j, nil
}

// CreateJob inserts j, assigning ID and CreatedAt if unset.
func (s *Store) CreateJob(ctx context.Context, j *site.JobOpening) error {
	s.fillNew(&j.ID, &j.CreatedAt)
	_, err := s.exec(ctx, "INSERT INTO job_openings ("+jobColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		j.ID, j.Title, j.Description, j.Location, j.Type, j.Department, s.timeArg(j.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert job opening: %w", err)
	}
	return nil
}

// GetJob returns the job opening with id.
func (s *Store) GetJob(ctx context.Context, id string) (*site.JobOpening, error) {
	j, err := scanJob(s.queryRow(ctx, "SELECT "+jobColumns+" FROM job_openings WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "get job opening")
	}
	return j, nil
}

// ListJobs returns all job openings, newest first.
func (s *Store) ListJobs(ctx context.Context) ([]*site.JobOpening, error) {
	rows, err := s.query(ctx, "SELECT "+jobColumns+" FROM job_openings ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query job openings: %w", err)
	}
	defer rows.Close()

	out := []*site.JobOpening{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job opening: %w", err)
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

// UpdateJob rewrites an existing job opening.
func (s *Store) UpdateJob(ctx context.Context, j *site.JobOpening) error {
	res, err := s.exec(ctx,
		"UPDATE job_openings SET title = ?, description = ?, location = ?, type = ?, department = ? WHERE id = ?",
		j.Title, j.Description, j.Location, j.Type, j.Department, j.ID)
	if err != nil {
		return fmt.Errorf("update job opening: %w", err)
	}
	return checkAffected(res)
}

// DeleteJob removes the job opening with id.
func (s *Store) DeleteJob(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM job_openings WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete job opening: %w", err)
	}
	return checkAffected(res)
}

// Gallery.

const galleryColumns = "id, title, hint, image_url, created_at"

func scanGallery(row scanner) (*site.GalleryItem, error) {
	var g site.GalleryItem
	var created dbTime
	if err := row.Scan(&g.ID, &g.Title, &g.Hint, &g.ImageURL, &created); err != nil {
		return nil, err
	}
	g.CreatedAt = created.Time
	return &g, nil
}

// CreateGalleryItem inserts g, assigning ID and CreatedAt if unset.
func (s *Store) CreateGalleryItem(ctx context.Context, g *site.GalleryItem) error {
	s.fillNew(&g.ID, &g.CreatedAt)
	_, err := s.exec(ctx, "INSERT INTO gallery ("+galleryColumns+") VALUES (?, ?, ?, ?, ?)",
		g.ID, g.Title, g.Hint, g.ImageURL, s.timeArg(g.CreatedAt))
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert gallery item: %w", err)
	}
	return nil
}

// GetGalleryItem returns the gallery item with id.
func (s *Store) GetGalleryItem(ctx context.Context, id string) (*site.GalleryItem, error) {
	g, err := scanGallery(s.queryRow(ctx, "SELECT "+galleryColumns+" FROM gallery WHERE id = ?", id))
	if err != nil {
		return nil, notFound(err, "get gallery item")
	}
	return g, nil
}

// ListGallery returns all gallery items, newest first.
func (s *Store) ListGallery(ctx context.Context) ([]*site.GalleryItem, error) {
	rows, err := s.query(ctx, "SELECT "+galleryColumns+" FROM gallery ORDER BY created_at DESC")
	if err != nil {
		return nil, fmt.Errorf("query gallery: %w", err)
	}
	defer rows.Close()

	out := []*site.GalleryItem{}
	for rows.Next() {
		g, err := scanGallery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan gallery item: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// UpdateGalleryItem rewrites the title and hint of a gallery item.
func (s *Store) UpdateGalleryItem(ctx context.Context, g *site.GalleryItem) error {
	res, err := s.exec(ctx, "UPDATE gallery SET title = ?, hint = ? WHERE id = ?", g.Title, g.Hint, g.ID)
	if err != nil {
		return fmt.Errorf("update gallery item: %w", err)
	}
	return checkAffected(res)
}

// DeleteGalleryItem removes the gallery item with id.
func (s *Store) DeleteGalleryItem(ctx context.Context, id string) error {
	res, err := s.exec(ctx, "DELETE FROM gallery WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete gallery item: %w", err)
	}
	return checkAffected(res)
}

// ContentItem loads the notifiable view of a stored post, update or job, with a
// plain-text summary of its body.
func (s *Store) ContentItem(ctx context.Context, kind site.ContentKind, id string) (site.ContentItem, error) {
	switch kind {
	case site.KindPost:
		p, err := s.GetPost(ctx, id)
		if err != nil {
			return site.ContentItem{}, err
		}
		item := p.Item()
		item.Summary = htmltext.Excerpt(p.Content, summaryRunes)
		return item, nil
	case site.KindUpdate:
		u, err := s.GetUpdate(ctx, id)
		if err != nil {
			return site.ContentItem{}, err
		}
		item := u.Item()
		item.Summary = htmltext.Excerpt(u.Content, summaryRunes)
		return item, nil
	case site.KindJob:
		j, err := s.GetJob(ctx, id)
		if err != nil {
			return site.ContentItem{}, err
		}
		item := j.Item()
		item.Summary = htmltext.Excerpt(j.Description, summaryRunes)
		return item, nil
	default:
		return site.ContentItem{}, fmt.Errorf("unknown content kind %q", kind)
	}
}

// ImageURLs returns every image URL referenced by posts and gallery items.
func (s *Store) ImageURLs(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, "SELECT image_url FROM posts WHERE image_url <> '' UNION SELECT image_url FROM gallery")
	if err != nil {
		return nil, fmt.Errorf("query image urls: %w", err)
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scan image url: %w", err)
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
