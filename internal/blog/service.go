package blog

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"realty-backend/internal/utils"
)

var (
	ErrNotFound    = errors.New("blog post not found")
	ErrSlugExists  = errors.New("slug already exists")
	ErrInvalidSlug = errors.New("invalid slug")
)

type Service struct {
	repo     Repository
	location *time.Location
	now      func() time.Time
}

func NewService(repo Repository, location *time.Location) *Service {
	if location == nil {
		location = time.UTC
	}
	return &Service{
		repo:     repo,
		location: location,
		now:      time.Now,
	}
}

func (s *Service) Create(ctx context.Context, req UpsertRequest) (Post, error) {
	slug := normalizeSlug(req.Slug, req.Title)
	if slug == "" {
		return Post{}, ErrInvalidSlug
	}

	now := s.now().In(s.location)
	post := Post{
		ID:         primitive.NewObjectID().Hex(),
		Slug:       slug,
		Title:      strings.TrimSpace(req.Title),
		Excerpt:    strings.TrimSpace(req.Excerpt),
		Content:    req.Content,
		Author:     strings.TrimSpace(req.Author),
		Tags:       normalizeTags(req.Tags),
		CoverImage: strings.TrimSpace(req.CoverImage),
		Published:  req.Published != nil && *req.Published,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if post.Published {
		post.PublishedAt = &now
	}

	if err := s.repo.Create(ctx, post); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return Post{}, ErrSlugExists
		}
		return Post{}, err
	}
	return post, nil
}

// Update replaces the editable fields. publishedAt is stamped the first time a
// post is published and kept when it is unpublished and republished.
func (s *Service) Update(ctx context.Context, id string, req UpsertRequest) (Post, error) {
	id = strings.TrimSpace(id)
	slug := normalizeSlug(req.Slug, req.Title)
	if slug == "" {
		return Post{}, ErrInvalidSlug
	}

	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}

	published := current.Published
	if req.Published != nil {
		published = *req.Published
	}

	now := s.now().In(s.location)
	set := bson.M{
		"slug":       slug,
		"title":      strings.TrimSpace(req.Title),
		"excerpt":    strings.TrimSpace(req.Excerpt),
		"content":    req.Content,
		"author":     strings.TrimSpace(req.Author),
		"tags":       normalizeTags(req.Tags),
		"coverImage": strings.TrimSpace(req.CoverImage),
		"published":  published,
		"updatedAt":  now,
	}
	if published && current.PublishedAt == nil {
		set["publishedAt"] = now
	}

	updated, err := s.repo.Update(ctx, id, set)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Post{}, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return Post{}, ErrSlugExists
		}
		return Post{}, err
	}
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if !deleted {
		return ErrNotFound
	}
	return nil
}

func (s *Service) ListPublic(ctx context.Context, tag string, limit, offset int64) ([]Post, int64, error) {
	return s.list(ctx, ListFilter{Tag: tag, PublishedOnly: true}, limit, offset)
}

func (s *Service) ListAdmin(ctx context.Context, tag string, limit, offset int64) ([]Post, int64, error) {
	return s.list(ctx, ListFilter{Tag: tag}, limit, offset)
}

func (s *Service) list(ctx context.Context, filter ListFilter, limit, offset int64) ([]Post, int64, error) {
	filter.Tag = strings.ToLower(strings.TrimSpace(filter.Tag))
	posts, err := s.repo.List(ctx, filter, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

func (s *Service) GetPublishedBySlug(ctx context.Context, slug string) (Post, error) {
	return s.wrap(s.repo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)), true))
}

func (s *Service) GetAdminByID(ctx context.Context, id string) (Post, error) {
	return s.wrap(s.repo.GetByID(ctx, strings.TrimSpace(id)))
}

func (s *Service) wrap(post Post, err error) (Post, error) {
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Post{}, ErrNotFound
		}
		return Post{}, err
	}
	return post, nil
}

func normalizeSlug(slug, title string) string {
	raw := strings.TrimSpace(slug)
	if raw == "" {
		raw = strings.TrimSpace(title)
	}
	return utils.Slugify(raw)
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
