package site

import (
	"html"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vibebros/logging"
	"vibebros/models"
)

const latestPostsOnHome = 3

// PostLister is the part of the post repository the site pages need.
type PostLister interface {
	GetAllPostSummaries() ([]models.PostSummary, error)
}

type SiteModule struct {
	posts   PostLister
	siteURL string
	logger  logging.Logger
}

type sitemapEntry struct {
	path       string
	changefreq string
	priority   string
}

// pages of the landing site, in the order they are listed
var staticEntries = []sitemapEntry{
	{"", "daily", "1.0"},
	{"/#about", "weekly", "0.8"},
	{"/#projects", "weekly", "0.8"},
	{"/#events", "daily", "0.9"},
	{"/#team", "monthly", "0.7"},
	{"/offline", "monthly", "0.3"},
	{"/blog", "daily", "0.9"},
}

func NewSiteModule(posts PostLister, siteURL string, logger logging.Logger) *SiteModule {
	if logger == nil {
		logger = logging.NoOp()
	}
	return &SiteModule{
		posts:   posts,
		siteURL: strings.TrimSuffix(siteURL, "/"),
		logger:  logger,
	}
}

// RegisterRoutes mounts the landing page, the offline page and the sitemap.
func (s *SiteModule) RegisterRoutes(router *gin.Engine) {
	router.GET("/", s.index)
	router.GET("/offline", s.offline)
	router.GET("/sitemap.xml", s.sitemap)
}

func (s *SiteModule) index(c *gin.Context) {
	summaries, err := s.posts.GetAllPostSummaries()
	if err != nil {
		s.logger.Error("site.index_failed", "error", err)
		summaries = nil
	}
	if len(summaries) > latestPostsOnHome {
		summaries = summaries[:latestPostsOnHome]
	}

	c.HTML(http.StatusOK, "site_index.html", gin.H{
		"title": "VibeBros - Developer Community",
		"posts": summaries,
	})
}

func (s *SiteModule) offline(c *gin.Context) {
	c.HTML(http.StatusOK, "site_offline.html", gin.H{
		"title": "Offline - VibeBros",
	})
}

func (s *SiteModule) sitemap(c *gin.Context) {
	summaries, err := s.posts.GetAllPostSummaries()
	if err != nil {
		s.logger.Error("site.sitemap_failed", "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate sitemap")
		return
	}

	today := time.Now().UTC().Format("2006-01-02")

	var sitemap strings.Builder
	sitemap.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	sitemap.WriteString("\n")
	sitemap.WriteString(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	sitemap.WriteString("\n")

	for _, e := range staticEntries {
		writeURL(&sitemap, s.siteURL+e.path, today, e.changefreq, e.priority)
	}

	for _, post := range summaries {
		writeURL(&sitemap, s.siteURL+"/blog/"+post.Slug, post.PublishedAt.Format("2006-01-02"), "monthly", "0.7")
	}

	sitemap.WriteString("</urlset>\n")

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.String(http.StatusOK, sitemap.String())
}

func writeURL(sb *strings.Builder, loc, lastmod, changefreq, priority string) {
	sb.WriteString("  <url>\n")
	sb.WriteString("    <loc>" + html.EscapeString(loc) + "</loc>\n")
	sb.WriteString("    <lastmod>" + lastmod + "</lastmod>\n")
	sb.WriteString("    <changefreq>" + changefreq + "</changefreq>\n")
	sb.WriteString("    <priority>" + priority + "</priority>\n")
	sb.WriteString("  </url>\n")
}
