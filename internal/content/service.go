package content

import (
	"context"
	"log/slog"
	"strings"

	"github.com/himalclinic/himalclinic/internal/shared"
)

// Service wraps content reads with caching and performs the write-side
// plumbing the admin console needs.
type Service struct {
	repo   Repository
	cache  *Cache
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// PublishedPosts returns the public blog list, cached.
func (s *Service) PublishedPosts(ctx context.Context) ([]BlogPost, error) {
	var posts []BlogPost
	err := s.cache.FetchJSON(ctx, keyPublishedPosts, &posts, func(ctx context.Context) (any, error) {
		return s.repo.ListPublishedPosts(ctx)
	})
	return posts, err
}

// PostBySlug fetches one published post.
func (s *Service) PostBySlug(ctx context.Context, slug string) (BlogPost, error) {
	return s.repo.GetPostBySlug(ctx, strings.TrimSpace(slug))
}

// AllPosts lists every post for the admin console, uncached.
func (s *Service) AllPosts(ctx context.Context) ([]BlogPost, error) {
	return s.repo.ListPosts(ctx)
}

// CreatePost stores a draft and drops stale public caches.
func (s *Service) CreatePost(ctx context.Context, post BlogPost) (BlogPost, error) {
	post.Slug = strings.TrimSpace(strings.ToLower(post.Slug))
	if post.Slug == "" {
		return BlogPost{}, shared.ErrNotFound
	}
	created, err := s.repo.CreatePost(ctx, post)
	if err != nil {
		return BlogPost{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// SetPostPublished publishes or unpublishes a post.
func (s *Service) SetPostPublished(ctx context.Context, id int64, published bool) error {
	if err := s.repo.SetPostPublished(ctx, id, published); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// DeletePost removes a post.
func (s *Service) DeletePost(ctx context.Context, id int64) error {
	if err := s.repo.DeletePost(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// PublishedVideos returns the public video list, cached.
func (s *Service) PublishedVideos(ctx context.Context) ([]Video, error) {
	var videos []Video
	err := s.cache.FetchJSON(ctx, keyPublishedVideos, &videos, func(ctx context.Context) (any, error) {
		return s.repo.ListPublishedVideos(ctx)
	})
	return videos, err
}

// AllVideos lists every video for the admin console.
func (s *Service) AllVideos(ctx context.Context) ([]Video, error) {
	return s.repo.ListVideos(ctx)
}

// CreateVideo stores a video record.
func (s *Service) CreateVideo(ctx context.Context, video Video) (Video, error) {
	created, err := s.repo.CreateVideo(ctx, video)
	if err != nil {
		return Video{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// DeleteVideo removes a video record.
func (s *Service) DeleteVideo(ctx context.Context, id int64) error {
	if err := s.repo.DeleteVideo(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Lectures returns the lectures-abroad list, cached.
func (s *Service) Lectures(ctx context.Context) ([]Lecture, error) {
	var lectures []Lecture
	err := s.cache.FetchJSON(ctx, keyLectures, &lectures, func(ctx context.Context) (any, error) {
		return s.repo.ListLectures(ctx)
	})
	return lectures, err
}

// CreateLecture stores a lecture record.
func (s *Service) CreateLecture(ctx context.Context, lecture Lecture) (Lecture, error) {
	created, err := s.repo.CreateLecture(ctx, lecture)
	if err != nil {
		return Lecture{}, err
	}
	s.invalidate(ctx)
	return created, nil
}

// DeleteLecture removes a lecture record.
func (s *Service) DeleteLecture(ctx context.Context, id int64) error {
	if err := s.repo.DeleteLecture(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("invalidate content cache", slog.Any("error", err))
	}
}
