package posts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"vibebros/logging"
	"vibebros/models"
)

const extension = ".md"

// Repository serves the posts found in a flat content directory. The
// directory is read once, on the first query; the parsed result (or the
// error) is kept for the lifetime of the Repository.
type Repository struct {
	dir    string
	logger logging.Logger

	once  sync.Once
	posts []models.Post
	err   error
}

// NewRepository reads posts from dir lazily, on the first query.
func NewRepository(dir string, logger logging.Logger) *Repository {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &Repository{dir: dir, logger: logger}
}

// Load performs the initial scan if it has not happened yet and reports its outcome.
func (r *Repository) Load() error {
	_, err := r.cached()
	return err
}

// GetAllPosts returns every post, most recent first.
func (r *Repository) GetAllPosts() ([]models.Post, error) {
	posts, err := r.cached()
	if err != nil {
		return nil, err
	}
	out := make([]models.Post, len(posts))
	copy(out, posts)
	return out, nil
}

// GetAllPostSummaries returns the same posts as GetAllPosts, without content.
func (r *Repository) GetAllPostSummaries() ([]models.PostSummary, error) {
	posts, err := r.cached()
	if err != nil {
		return nil, err
	}
	summaries := make([]models.PostSummary, 0, len(posts))
	for _, post := range posts {
		summaries = append(summaries, post.Summary())
	}
	return summaries, nil
}

// GetPost looks a post up by exact slug. The bool is false when no post matches.
func (r *Repository) GetPost(slug string) (models.Post, bool, error) {
	posts, err := r.cached()
	if err != nil {
		return models.Post{}, false, err
	}
	for _, post := range posts {
		if post.Slug == slug {
			return post, true, nil
		}
	}
	return models.Post{}, false, nil
}

func (r *Repository) cached() ([]models.Post, error) {
	r.once.Do(func() {
		r.posts, r.err = r.load()
		if r.err != nil {
			r.logger.Error("posts.load_failed", "dir", r.dir, "error", r.err)
			return
		}
		r.logger.Info("posts.loaded", "dir", r.dir, "count", len(r.posts))
	})
	return r.posts, r.err
}

func (r *Repository) load() ([]models.Post, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("read blog directory %s: %w", r.dir, err)
	}

	posts := []models.Post{}
	for _, entry := range entries {
		if !entry.Type().IsRegular() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}

		slug := strings.TrimSuffix(entry.Name(), extension)
		raw, err := os.ReadFile(filepath.Join(r.dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read blog post %s: %w", slug, err)
		}

		post, err := ParsePost(slug, raw)
		if err != nil {
			return nil, err
		}
		r.logger.Debug("posts.parsed", "slug", slug, "date", post.Date)
		posts = append(posts, post)
	}

	// os.ReadDir sorts by file name, so equal dates stay in slug order.
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PublishedAt.After(posts[j].PublishedAt)
	})
	return posts, nil
}
