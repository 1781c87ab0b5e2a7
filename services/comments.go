package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"

	"chorus/groupware/models"
)

const (
	defaultSearchLimit = 20
	snippetContext     = 25
)

// CommentSearch is the legacy comment search: substring matching over comments on the
// files a user owns.
type CommentSearch struct {
	db *gorm.DB
}

func NewCommentSearch(db *gorm.DB) *CommentSearch {
	return &CommentSearch{db: db}
}

type commentRow struct {
	Message  string
	AuthorID string
	Path     string
	FileID   string
}

// Search returns the newest matching comments first, at most limit of them.
func (s *CommentSearch) Search(ctx context.Context, userID, term string, limit int) ([]models.SearchHit, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return []models.SearchHit{}, nil
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	var rows []commentRow
	err := s.db.WithContext(ctx).
		Table("comments").
		Select("comments.message, comments.author_id, files.path, files.id AS file_id").
		Joins("JOIN files ON files.id = comments.file_id").
		Where("files.owner_id = ?", userID).
		Where("LOWER(comments.message) LIKE ? ESCAPE '\\'", "%"+escapeLike(strings.ToLower(term))+"%").
		Order("comments.created_at DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search comments: %w", err)
	}

	hits := make([]models.SearchHit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, models.SearchHit{
			Path:     row.Path,
			Name:     relevantMessagePart(row.Message, term),
			AuthorID: row.AuthorID,
			FileID:   row.FileID,
		})
	}
	return hits, nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// relevantMessagePart cuts a message longer than 2*snippetContext runes down to the first
// match of term plus snippetContext runes on either side, marking each cut side with an ellipsis.
func relevantMessagePart(message, term string) string {
	msg := []rune(message)
	if len(msg) <= 2*snippetContext {
		return message
	}
	start := indexFold(msg, []rune(term))
	if start < 0 {
		return message
	}
	end := start + len([]rune(term))

	prefix, suffix := "", ""
	if start <= snippetContext {
		start = 0
	} else {
		start -= snippetContext
		prefix = "…"
	}
	if len(msg)-end <= snippetContext {
		end = len(msg)
	} else {
		end += snippetContext
		suffix = "…"
	}
	return prefix + string(msg[start:end]) + suffix
}

func indexFold(s, sub []rune) int {
	if len(sub) == 0 {
		return 0
	}
outer:
	for i := 0; i+len(sub) <= len(s); i++ {
		for j := range sub {
			if unicode.ToLower(s[i+j]) != unicode.ToLower(sub[j]) {
				continue outer
			}
		}
		return i
	}
	return -1
}
