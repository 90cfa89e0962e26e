package posts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibebros/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeTestPost(t *testing.T, dir, slug, date string) {
	t.Helper()
	writeFile(t, dir, slug+".md", fmt.Sprintf(`---
title: "Post %[1]s"
date: "%[2]s"
author: "Willian"
readTime: "5 min read"
category: "Community"
excerpt: "About %[1]s"
---

# %[1]s

Body of %[1]s.
`, slug, date))
}

func TestGetAllPosts_SortedByDateDesc(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "first", "2026-01-25")
	writeTestPost(t, dir, "second", "2026-01-20")
	writeTestPost(t, dir, "third", "2026-01-22")

	repo := NewRepository(dir, nil)
	posts, err := repo.GetAllPosts()

	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "2026-01-25", posts[0].Date)
	assert.Equal(t, "2026-01-22", posts[1].Date)
	assert.Equal(t, "2026-01-20", posts[2].Date)
}

func TestGetAllPosts_EqualDatesKeepSlugOrder(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "b-post", "2026-01-20")
	writeTestPost(t, dir, "a-post", "2026-01-20")
	writeTestPost(t, dir, "c-post", "2026-02-01")

	posts, err := NewRepository(dir, nil).GetAllPosts()

	require.NoError(t, err)
	assert.Equal(t, "c-post", posts[0].Slug)
	assert.Equal(t, "a-post", posts[1].Slug)
	assert.Equal(t, "b-post", posts[2].Slug)
}

func TestGetPost_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "web3-dapp", "2026-01-25")
	writeTestPost(t, dir, "hackathon-recap", "2026-01-22")

	repo := NewRepository(dir, nil)
	posts, err := repo.GetAllPosts()
	require.NoError(t, err)

	for _, post := range posts {
		found, ok, err := repo.GetPost(post.Slug)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, post, found)
	}
}

func TestGetPost_NotFound(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "web3-dapp", "2026-01-25")

	repo := NewRepository(dir, nil)

	_, ok, err := repo.GetPost("missing")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = repo.GetPost("WEB3-DAPP")
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestGetAllPosts_MissingFieldFailsWholeLoad(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "good", "2026-01-25")
	writeFile(t, dir, "broken.md", `---
title: "Broken"
date: "2026-01-20"
author: "Max"
readTime: "3 min read"
category: "Tutorials"
---
Body
`)

	posts, err := NewRepository(dir, nil).GetAllPosts()

	assert.Nil(t, posts)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "broken", verr.Slug)
	assert.Equal(t, "excerpt", verr.Field)
	assert.Contains(t, err.Error(), `"excerpt"`)
	assert.Contains(t, err.Error(), `"broken"`)
}

func TestGetAllPosts_BlankFieldIsMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "blank.md", `---
title: "   "
date: "2026-01-20"
author: "Max"
readTime: "3 min read"
category: "Tutorials"
excerpt: "x"
---
Body
`)

	_, err := NewRepository(dir, nil).GetAllPosts()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "title", verr.Field)
}

func TestGetAllPosts_InvalidDate(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "bad-date", "not a date")

	_, err := NewRepository(dir, nil).GetAllPosts()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "bad-date", verr.Slug)
	assert.Equal(t, "date", verr.Field)
	assert.Equal(t, "must be a valid date", verr.Reason)
}

func TestGetAllPosts_NonStringFieldIsMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "numbers.md", `---
title: "Numbers"
date: "2026-01-20"
author: "Max"
readTime: 5
category: "Tutorials"
excerpt: "x"
---
Body
`)

	_, err := NewRepository(dir, nil).GetAllPosts()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "readTime", verr.Field)
}

func TestGetAllPosts_UnquotedDate(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "plain.md", `---
title: Plain
date: 2026-01-18
author: Willian
readTime: 10 min read
category: Community
excerpt: Growing to 250 members.
---
Body
`)

	posts, err := NewRepository(dir, nil).GetAllPosts()

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "2026-01-18", posts[0].Date)
	assert.Equal(t, 2026, posts[0].PublishedAt.Year())
}

func TestGetAllPosts_MalformedFrontMatter(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "malformed.md", "---\ntitle: [unclosed\n---\nBody\n")

	_, err := NewRepository(dir, nil).GetAllPosts()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "malformed", verr.Slug)
	assert.Equal(t, "frontmatter", verr.Field)
	assert.NotNil(t, errors.Unwrap(verr))
}

func TestGetAllPosts_EmptyDirectory(t *testing.T) {
	posts, err := NewRepository(t.TempDir(), nil).GetAllPosts()

	assert.NoError(t, err)
	assert.Empty(t, posts)
}

func TestGetAllPosts_MissingDirectory(t *testing.T) {
	_, err := NewRepository(filepath.Join(t.TempDir(), "nope"), nil).GetAllPosts()

	assert.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestGetAllPosts_IgnoresOtherFilesAndSubdirectories(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "kept", "2026-01-25")
	writeFile(t, dir, "notes.txt", "not a post")
	writeFile(t, dir, "draft.markdown", "not a post either")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))
	writeTestPost(t, filepath.Join(dir, "nested"), "hidden", "2026-01-26")

	posts, err := NewRepository(dir, nil).GetAllPosts()

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "kept", posts[0].Slug)
}

func TestGetAllPosts_ContentTrimmedWithSingleNewline(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "spaced.md", `---
title: "Spaced"
date: "2026-01-20"
author: "Max"
readTime: "1 min read"
category: "Tutorials"
excerpt: "x"
---


Hello there.



`)

	posts, err := NewRepository(dir, nil).GetAllPosts()

	require.NoError(t, err)
	assert.Equal(t, "Hello there.\n", posts[0].Content)
}

func TestGetAllPostSummaries_SameOrderWithoutContent(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "older", "2026-01-12")
	writeTestPost(t, dir, "newer", "2026-01-15")

	repo := NewRepository(dir, nil)
	posts, err := repo.GetAllPosts()
	require.NoError(t, err)
	summaries, err := repo.GetAllPostSummaries()
	require.NoError(t, err)

	require.Len(t, summaries, len(posts))
	for i := range posts {
		assert.Equal(t, posts[i].Summary(), summaries[i])
	}
}

func TestRepository_ReadsDirectoryOnce(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "cached", "2026-01-25")

	repo := NewRepository(dir, nil)
	require.NoError(t, repo.Load())

	require.NoError(t, os.RemoveAll(dir))
	writeTestPost(t, t.TempDir(), "ignored", "2026-01-26")

	posts, err := repo.GetAllPosts()
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "cached", posts[0].Slug)
}

type countingLogger struct {
	mu     sync.Mutex
	counts map[string]int
}

func (l *countingLogger) record(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.counts == nil {
		l.counts = map[string]int{}
	}
	l.counts[msg]++
}

func (l *countingLogger) count(msg string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[msg]
}

func (l *countingLogger) Debug(msg string, _ ...any) { l.record(msg) }
func (l *countingLogger) Info(msg string, _ ...any)  { l.record(msg) }
func (l *countingLogger) Warn(msg string, _ ...any)  { l.record(msg) }
func (l *countingLogger) Error(msg string, _ ...any) { l.record(msg) }

func TestRepository_ConcurrentFirstCallsShareOneLoad(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "alpha", "2026-01-25")
	writeTestPost(t, dir, "beta", "2026-01-20")

	logger := &countingLogger{}
	repo := NewRepository(dir, logger)

	const callers = 16
	results := make([][]models.Post, callers)
	errs := make([]error, callers)

	var start, done sync.WaitGroup
	start.Add(1)
	for i := 0; i < callers; i++ {
		done.Add(1)
		go func(i int) {
			defer done.Done()
			start.Wait()
			results[i], errs[i] = repo.GetAllPosts()
		}(i)
	}
	start.Done()
	done.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0], results[i])
	}
	require.Len(t, results[0], 2)
	assert.Equal(t, "alpha", results[0][0].Slug)
	assert.Equal(t, 1, logger.count("posts.loaded"))
	assert.Equal(t, 2, logger.count("posts.parsed"))
}

func TestRepository_FailedLoadStaysFailed(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "bad", "nope")

	repo := NewRepository(dir, nil)
	require.Error(t, repo.Load())

	writeTestPost(t, dir, "bad", "2026-01-25")
	_, err := repo.GetAllPosts()
	assert.Error(t, err)
}

func TestGetAllPosts_ReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	writeTestPost(t, dir, "original", "2026-01-25")

	repo := NewRepository(dir, nil)
	posts, err := repo.GetAllPosts()
	require.NoError(t, err)
	posts[0].Title = "changed"

	again, err := repo.GetAllPosts()
	require.NoError(t, err)
	assert.Equal(t, "Post original", again[0].Title)
}
