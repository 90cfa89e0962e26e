package posts

import (
	"bytes"
	"errors"
	"strings"
	"time"

	"github.com/adrg/frontmatter"
	"github.com/araddon/dateparse"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"vibebros/models"
)

const dateLayout = "2006-01-02"

// requiredFields is also the order in which missing fields are reported.
var requiredFields = []string{"title", "date", "author", "readTime", "category", "excerpt"}

type frontMatter struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Author   string `json:"author"`
	ReadTime string `json:"readTime"`
	Category string `json:"category"`
	Excerpt  string `json:"excerpt"`
}

func (fm *frontMatter) Validate() error {
	required := validation.Required.Error("is required")
	return validation.ValidateStruct(fm,
		validation.Field(&fm.Title, required),
		validation.Field(&fm.Date, required, validation.By(validDate)),
		validation.Field(&fm.Author, required),
		validation.Field(&fm.ReadTime, required),
		validation.Field(&fm.Category, required),
		validation.Field(&fm.Excerpt, required),
	)
}

func validDate(value any) error {
	s, _ := value.(string)
	if _, err := parseDate(s); err != nil {
		return errors.New("must be a valid date")
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return dateparse.ParseIn(s, time.UTC)
}

// ParsePost builds a post from the raw bytes of one content file.
func ParsePost(slug string, raw []byte) (models.Post, error) {
	var meta map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(raw), &meta)
	if err != nil {
		return models.Post{}, &ValidationError{Slug: slug, Field: "frontmatter", Reason: "could not be parsed", Err: err}
	}

	// An unquoted YAML date decodes as time.Time and is accepted as a
	// date string here, unlike other non-string values.
	fm := frontMatter{
		Title:    stringValue(meta["title"]),
		Date:     stringValue(meta["date"]),
		Author:   stringValue(meta["author"]),
		ReadTime: stringValue(meta["readTime"]),
		Category: stringValue(meta["category"]),
		Excerpt:  stringValue(meta["excerpt"]),
	}
	if err := fm.Validate(); err != nil {
		return models.Post{}, toValidationError(slug, err)
	}

	published, err := parseDate(fm.Date)
	if err != nil {
		return models.Post{}, &ValidationError{Slug: slug, Field: "date", Reason: "must be a valid date", Err: err}
	}

	return models.Post{
		PostSummary: models.PostSummary{
			Slug:        slug,
			Title:       fm.Title,
			Date:        fm.Date,
			Author:      fm.Author,
			ReadTime:    fm.ReadTime,
			Category:    fm.Category,
			Excerpt:     fm.Excerpt,
			PublishedAt: published,
		},
		Content: strings.TrimSpace(string(body)) + "\n",
	}, nil
}

// stringValue accepts strings and YAML timestamps; any other type counts as missing.
func stringValue(v any) string {
	switch value := v.(type) {
	case string:
		return strings.TrimSpace(value)
	case time.Time:
		return value.UTC().Format(dateLayout)
	default:
		return ""
	}
}

func toValidationError(slug string, err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Slug: slug, Field: "frontmatter", Reason: "is invalid", Err: err}
	}
	for _, field := range requiredFields {
		if fieldErr, ok := errs[field]; ok && fieldErr != nil {
			return &ValidationError{Slug: slug, Field: field, Reason: fieldErr.Error(), Err: fieldErr}
		}
	}
	return &ValidationError{Slug: slug, Field: "frontmatter", Reason: "is invalid", Err: err}
}
