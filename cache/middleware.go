package cache

import (
	"bytes"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
)

const htmlContentType = "text/html; charset=utf-8"

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware serves cached HTML pages and stores successful ones. Pages are
// keyed by path plus the listed query parameters; any other query is ignored.
func (p *PageCache) Middleware(queryKeys ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p == nil || c.Request.Method != http.MethodGet {
			c.Next()
			return
		}

		uri := pageKey(c, queryKeys)
		if body, contentType, found := p.Read(uri); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, contentType, body)
			c.Abort()
			return
		}

		c.Header("X-Cache", "MISS")

		writer := &responseWriter{
			ResponseWriter: c.Writer,
			body:           bytes.NewBuffer(nil),
		}
		c.Writer = writer

		c.Next()

		// Only cache successful HTML responses
		if c.Writer.Status() == http.StatusOK &&
			c.Writer.Header().Get("Content-Type") == htmlContentType {
			p.Write(uri, htmlContentType, writer.body.Bytes())
		}
	}
}

func pageKey(c *gin.Context, queryKeys []string) string {
	values := url.Values{}
	for _, key := range queryKeys {
		if v := c.Query(key); v != "" {
			values.Set(key, v)
		}
	}
	if len(values) == 0 {
		return c.Request.URL.Path
	}
	return c.Request.URL.Path + "?" + values.Encode()
}
