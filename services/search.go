package services

import (
	"context"
	"path"
	"strconv"
	"strings"

	"chorus/groupware/models"
	"chorus/groupware/routes"
	"chorus/groupware/utils"
)

const avatarSize = 42

// LegacySearch is the comment search backend wrapped by CommentsProvider.
type LegacySearch interface {
	Search(ctx context.Context, userID, term string, limit int) ([]models.SearchHit, error)
}

// UserLookup tells registered accounts apart from guests.
type UserLookup interface {
	UserExists(ctx context.Context, id string) (bool, error)
}

// LinkBuilder builds links to named routes.
type LinkBuilder interface {
	LinkToRoute(name string, params map[string]string) (string, error)
	LinkToRouteAbsolute(name string, params map[string]string) (string, error)
}

// CommentsProvider adapts legacy comment search hits to unified search results.
type CommentsProvider struct {
	legacy LegacySearch
	users  UserLookup
	links  LinkBuilder
	logger *utils.Logger
}

func NewCommentsProvider(legacy LegacySearch, users UserLookup, links LinkBuilder, logger *utils.Logger) *CommentsProvider {
	return &CommentsProvider{
		legacy: legacy,
		users:  users,
		links:  links,
		logger: logger,
	}
}

func (p *CommentsProvider) ID() string {
	return "comments"
}

func (p *CommentsProvider) Name() string {
	return "Comments"
}

// Order ranks the provider first when searching from the files app.
func (p *CommentsProvider) Order(route string) int {
	if strings.HasPrefix(route, "files.") {
		return 0
	}
	return 10
}

// Search runs the legacy search for the user and transforms the hits. Legacy errors propagate.
func (p *CommentsProvider) Search(ctx context.Context, user models.UserIdentity, query models.SearchQuery) (models.ResultList, error) {
	hits, err := p.legacy.Search(ctx, user.ID, query.Term, query.Limit)
	if err != nil {
		return models.ResultList{}, err
	}
	return p.Transform(ctx, query, user, hits), nil
}

// Transform maps every hit to exactly one entry, keeping input order. The list is ranked for
// the route the search was started from.
func (p *CommentsProvider) Transform(ctx context.Context, query models.SearchQuery, user models.UserIdentity, hits []models.SearchHit) models.ResultList {
	entries := make([]models.ResultEntry, 0, len(hits))
	for _, hit := range hits {
		entries = append(entries, p.entry(ctx, hit))
	}

	return models.ResultList{
		ProviderID:  p.ID(),
		Name:        p.Name(),
		Order:       p.Order(query.Route),
		IsPaginated: false,
		Entries:     entries,
	}
}

func (p *CommentsProvider) entry(ctx context.Context, hit models.SearchHit) models.ResultEntry {
	dir, base := path.Dir(hit.Path), path.Base(hit.Path)

	target, err := p.links.LinkToRoute(routes.ShowFileRoute, map[string]string{
		"dir":      dir,
		"scrollto": base,
	})
	if err != nil {
		p.logger.Warn("Failed to build file link", "path", hit.Path, "error", err)
	}

	return models.ResultEntry{
		AvatarURL: p.avatarURL(ctx, hit.AuthorID),
		Title:     hit.Name,
		Subline:   hit.Path,
		TargetURL: target,
		Icon:      "",
		IsRounded: true,
		Attributes: map[string]string{
			"fileId": hit.FileID,
			"path":   hit.Path,
		},
	}
}

func (p *CommentsProvider) avatarURL(ctx context.Context, authorID string) string {
	size := strconv.Itoa(avatarSize)

	isUser, err := p.users.UserExists(ctx, authorID)
	if err != nil {
		// Unknown authors render as guests.
		p.logger.Warn("Failed to look up comment author", "author_id", authorID, "error", err)
	}

	var link string
	if isUser {
		link, err = p.links.LinkToRouteAbsolute(routes.AvatarRoute, map[string]string{"userId": authorID, "size": size})
	} else {
		link, err = p.links.LinkToRouteAbsolute(routes.GuestAvatarRoute, map[string]string{"guestName": authorID, "size": size})
	}
	if err != nil {
		p.logger.Warn("Failed to build avatar link", "author_id", authorID, "error", err)
	}
	return link
}
