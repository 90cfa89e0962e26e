package blog

import (
	"bytes"
	"html/template"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"vibebros/analytics"
	"vibebros/cache"
	"vibebros/logging"
	"vibebros/models"
	"vibebros/sections"
)

const displayDateLayout = "January 2, 2006"

// PostSource is the read side of the post repository.
type PostSource interface {
	GetAllPosts() ([]models.Post, error)
	GetAllPostSummaries() ([]models.PostSummary, error)
	GetPost(slug string) (models.Post, bool, error)
}

type BlogModule struct {
	posts     PostSource
	analytics *analytics.AnalyticsModule
	pages     *cache.PageCache
	siteURL   string
	logger    logging.Logger
}

// markdown renderer for section bodies: GFM plus bare URL linking, raw HTML is not passed through
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

type renderedSection struct {
	ID    string
	Title string
	HTML  template.HTML
}

// NewBlogModule wires the blog pages and API. analyticsModule and pages may be nil.
func NewBlogModule(posts PostSource, analyticsModule *analytics.AnalyticsModule, pages *cache.PageCache, siteURL string, logger logging.Logger) *BlogModule {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &BlogModule{
		posts:     posts,
		analytics: analyticsModule,
		pages:     pages,
		siteURL:   siteURL,
		logger:    logger,
	}
}

// RegisterRoutes mounts the /blog pages and the /api endpoints.
func (b *BlogModule) RegisterRoutes(router *gin.Engine) {
	blogGroup := router.Group("/blog")
	{
		blogGroup.GET("", b.pages.Middleware("category"), b.index)
		blogGroup.GET("/feed.xml", b.feed)
		blogGroup.GET("/:slug", b.analytics.Track(), b.pages.Middleware(), b.post)
	}

	api := router.Group("/api")
	{
		api.GET("/posts", b.apiPosts)
		api.GET("/posts/:slug", b.apiPost)
		api.GET("/stats/popular", b.apiPopular)
		api.GET("/stats/daily", b.apiDaily)
	}
}

func (b *BlogModule) index(c *gin.Context) {
	summaries, err := b.posts.GetAllPostSummaries()
	if err != nil {
		b.logger.Error("blog.index_failed", "error", err)
		c.HTML(http.StatusInternalServerError, "blog_error.html", gin.H{
			"error": "Could not load blog posts",
		})
		return
	}

	category := c.Query("category")
	c.HTML(http.StatusOK, "blog_index.html", gin.H{
		"title":      "Blog - VibeBros",
		"posts":      filterByCategory(summaries, category),
		"categories": collectCategories(summaries),
		"category":   category,
	})
}

func (b *BlogModule) post(c *gin.Context) {
	post, found, err := b.posts.GetPost(c.Param("slug"))
	if err != nil {
		b.logger.Error("blog.post_failed", "slug", c.Param("slug"), "error", err)
		c.HTML(http.StatusInternalServerError, "blog_error.html", gin.H{
			"error": "Could not load blog posts",
		})
		return
	}
	if !found {
		c.HTML(http.StatusNotFound, "blog_error.html", gin.H{
			"error": "Post not found",
		})
		return
	}

	rendered := renderSections(sections.Split(post.Content))

	c.HTML(http.StatusOK, "blog_post.html", gin.H{
		"title":       post.Title + " - VibeBros Blog",
		"post":        post,
		"displayDate": post.PublishedAt.Format(displayDateLayout),
		"sections":    rendered,
		"showNav":     len(rendered) > 1,
		"canonical":   b.siteURL + "/blog/" + post.Slug,
	})
}

func (b *BlogModule) apiPosts(c *gin.Context) {
	summaries, err := b.posts.GetAllPostSummaries()
	if err != nil {
		b.logger.Error("blog.api_posts_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"posts": filterByCategory(summaries, c.Query("category"))})
}

func (b *BlogModule) apiPost(c *gin.Context) {
	post, found, err := b.posts.GetPost(c.Param("slug"))
	if err != nil {
		b.logger.Error("blog.api_post_failed", "slug", c.Param("slug"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load posts"})
		return
	}
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "post not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"post":     post,
		"sections": sections.Split(post.Content),
		"views":    b.analytics.GetPostViewCount(post.Slug),
	})
}

func (b *BlogModule) apiPopular(c *gin.Context) {
	days := queryInt(c, "days", 30)
	limit := queryInt(c, "limit", 5)
	c.JSON(http.StatusOK, gin.H{"posts": b.analytics.GetTopPosts(days, limit)})
}

func (b *BlogModule) apiDaily(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"days": b.analytics.GetViewsByDay(queryInt(c, "days", 30))})
}

func queryInt(c *gin.Context, key string, fallback int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}

func filterByCategory(summaries []models.PostSummary, category string) []models.PostSummary {
	if category == "" {
		return summaries
	}
	filtered := []models.PostSummary{}
	for _, s := range summaries {
		if s.Category == category {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

func collectCategories(summaries []models.PostSummary) []string {
	seen := map[string]bool{}
	var categories []string
	for _, s := range summaries {
		if !seen[s.Category] {
			seen[s.Category] = true
			categories = append(categories, s.Category)
		}
	}
	sort.Strings(categories)
	return categories
}

func renderSections(split []models.Section) []renderedSection {
	rendered := make([]renderedSection, 0, len(split))
	for _, s := range split {
		rendered = append(rendered, renderedSection{
			ID:    s.ID,
			Title: s.Title,
			HTML:  template.HTML(renderMarkdown(s.Content)),
		})
	}
	return rendered
}

func renderMarkdown(content string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(content), &buf); err != nil {
		// fall back to escaped source so the page still renders
		return template.HTMLEscapeString(content)
	}
	return buf.String()
}
