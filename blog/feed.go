package blog

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/feeds"
)

func (b *BlogModule) feed(c *gin.Context) {
	posts, err := b.posts.GetAllPosts()
	if err != nil {
		b.logger.Error("blog.feed_failed", "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate RSS")
		return
	}

	feed := &feeds.Feed{
		Title:       "VibeBros Blog",
		Link:        &feeds.Link{Href: b.siteURL + "/blog"},
		Description: "Latest news, tutorials, and insights from the VibeBros community",
		Created:     time.Now(),
	}
	if len(posts) > 0 {
		feed.Updated = posts[0].PublishedAt
	}

	for _, post := range posts {
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          b.siteURL + "/blog/" + post.Slug,
			Title:       post.Title,
			Link:        &feeds.Link{Href: b.siteURL + "/blog/" + post.Slug},
			Author:      &feeds.Author{Name: post.Author},
			Description: post.Excerpt,
			Content:     renderMarkdown(post.Content),
			Created:     post.PublishedAt,
		})
	}

	rss, err := feed.ToRss()
	if err != nil {
		b.logger.Error("blog.feed_failed", "error", err)
		c.String(http.StatusInternalServerError, "Failed to generate RSS")
		return
	}
	c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", []byte(rss))
}
