package newsapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/matheuskafuri/newsdesk/internal/cache"
)

type envelope struct {
	Status       string        `json:"status"`
	TotalResults int           `json:"totalResults"`
	Articles     []wireArticle `json:"articles"`
	Code         string        `json:"code"`
	Message      string        `json:"message"`
}

type wireArticle struct {
	Source struct {
		ID   *string `json:"id"`
		Name string  `json:"name"`
	} `json:"source"`
	Author      *string   `json:"author"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	URL         string    `json:"url"`
	URLToImage  *string   `json:"urlToImage"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     *string   `json:"content"`
}

// removedMarker is what the API puts in every field of a taken-down article.
const removedMarker = "[Removed]"

func decode(body []byte) (*cache.Page, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConversion, err)
	}
	if env.Status == "error" {
		return nil, &APIError{StatusCode: 200, Code: env.Code, Message: env.Message}
	}

	p := &cache.Page{
		TotalResults: env.TotalResults,
		Articles:     make([]cache.Article, 0, len(env.Articles)),
	}
	for _, w := range env.Articles {
		if w.URL == "" || w.Title == removedMarker {
			continue
		}
		p.Articles = append(p.Articles, cache.Article{
			URL:         w.URL,
			Title:       strings.TrimSpace(w.Title),
			Description: deref(w.Description),
			ImageURL:    deref(w.URLToImage),
			Source:      w.Source.Name,
			Author:      deref(w.Author),
			Content:     deref(w.Content),
			Published:   w.PublishedAt,
		})
	}
	return p, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
