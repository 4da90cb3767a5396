package content

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/himalclinic/himalclinic/internal/shared"
)

// Repository defines persistence for the content module.
type Repository interface {
	ListPublishedPosts(ctx context.Context) ([]BlogPost, error)
	ListPosts(ctx context.Context) ([]BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (BlogPost, error)
	CreatePost(ctx context.Context, post BlogPost) (BlogPost, error)
	SetPostPublished(ctx context.Context, id int64, published bool) error
	DeletePost(ctx context.Context, id int64) error

	ListPublishedVideos(ctx context.Context) ([]Video, error)
	ListVideos(ctx context.Context) ([]Video, error)
	CreateVideo(ctx context.Context, video Video) (Video, error)
	DeleteVideo(ctx context.Context, id int64) error

	ListLectures(ctx context.Context) ([]Lecture, error)
	CreateLecture(ctx context.Context, lecture Lecture) (Lecture, error)
	DeleteLecture(ctx context.Context, id int64) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const postColumns = `id, slug, title_en, title_ne, excerpt_en, excerpt_ne, body_en, body_ne, published, published_at, created_at, updated_at`

func scanPost(row pgx.Row) (BlogPost, error) {
	var p BlogPost
	err := row.Scan(&p.ID, &p.Slug,
		&p.Title.EN, &p.Title.NE,
		&p.Excerpt.EN, &p.Excerpt.NE,
		&p.Body.EN, &p.Body.NE,
		&p.Published, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListPublishedPosts returns published posts, newest first.
func (r *PGRepository) ListPublishedPosts(ctx context.Context) ([]BlogPost, error) {
	return r.queryPosts(ctx,
		`SELECT `+postColumns+` FROM blog_posts WHERE published ORDER BY published_at DESC`)
}

// ListPosts returns all posts for the admin console, newest first.
func (r *PGRepository) ListPosts(ctx context.Context) ([]BlogPost, error) {
	return r.queryPosts(ctx,
		`SELECT `+postColumns+` FROM blog_posts ORDER BY created_at DESC`)
}

func (r *PGRepository) queryPosts(ctx context.Context, query string) ([]BlogPost, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("content: list posts: %w", err)
	}
	defer rows.Close()
	var posts []BlogPost
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("content: scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPostBySlug fetches one published post.
func (r *PGRepository) GetPostBySlug(ctx context.Context, slug string) (BlogPost, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+postColumns+` FROM blog_posts WHERE slug = $1 AND published`, slug)
	post, err := scanPost(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return BlogPost{}, shared.ErrNotFound
		}
		return BlogPost{}, fmt.Errorf("content: get post: %w", err)
	}
	return post, nil
}

// CreatePost inserts a draft post.
func (r *PGRepository) CreatePost(ctx context.Context, post BlogPost) (BlogPost, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO blog_posts (slug, title_en, title_ne, excerpt_en, excerpt_ne, body_en, body_ne, published, published_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, false, to_timestamp(0), now(), now())
		 RETURNING `+postColumns,
		post.Slug, post.Title.EN, post.Title.NE, post.Excerpt.EN, post.Excerpt.NE, post.Body.EN, post.Body.NE)
	created, err := scanPost(row)
	if err != nil {
		if isUniqueViolation(err) {
			return BlogPost{}, shared.ErrDuplicate
		}
		return BlogPost{}, fmt.Errorf("content: create post: %w", err)
	}
	return created, nil
}

// SetPostPublished toggles publication, stamping published_at on publish.
func (r *PGRepository) SetPostPublished(ctx context.Context, id int64, published bool) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE blog_posts
		 SET published = $2,
		     published_at = CASE WHEN $2 THEN now() ELSE published_at END,
		     updated_at = now()
		 WHERE id = $1`,
		id, published)
	if err != nil {
		return fmt.Errorf("content: publish post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeletePost removes a post.
func (r *PGRepository) DeletePost(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM blog_posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("content: delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListPublishedVideos returns published videos, newest first.
func (r *PGRepository) ListPublishedVideos(ctx context.Context) ([]Video, error) {
	return r.queryVideos(ctx,
		`SELECT id, title_en, title_ne, youtube_id, published, created_at FROM videos WHERE published ORDER BY created_at DESC`)
}

// ListVideos returns all videos for the admin console.
func (r *PGRepository) ListVideos(ctx context.Context) ([]Video, error) {
	return r.queryVideos(ctx,
		`SELECT id, title_en, title_ne, youtube_id, published, created_at FROM videos ORDER BY created_at DESC`)
}

func (r *PGRepository) queryVideos(ctx context.Context, query string) ([]Video, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("content: list videos: %w", err)
	}
	defer rows.Close()
	var videos []Video
	for rows.Next() {
		var v Video
		if err := rows.Scan(&v.ID, &v.Title.EN, &v.Title.NE, &v.YouTubeID, &v.Published, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("content: scan video: %w", err)
		}
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// CreateVideo inserts a published video.
func (r *PGRepository) CreateVideo(ctx context.Context, video Video) (Video, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO videos (title_en, title_ne, youtube_id, published, created_at)
		 VALUES ($1, $2, $3, true, now())
		 RETURNING id, title_en, title_ne, youtube_id, published, created_at`,
		video.Title.EN, video.Title.NE, video.YouTubeID)
	var created Video
	if err := row.Scan(&created.ID, &created.Title.EN, &created.Title.NE, &created.YouTubeID, &created.Published, &created.CreatedAt); err != nil {
		return Video{}, fmt.Errorf("content: create video: %w", err)
	}
	return created, nil
}

// DeleteVideo removes a video.
func (r *PGRepository) DeleteVideo(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("content: delete video: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// ListLectures returns lectures abroad, most recent year first.
func (r *PGRepository) ListLectures(ctx context.Context) ([]Lecture, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, title_en, title_ne, venue, country, year, created_at FROM lectures_abroad ORDER BY year DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("content: list lectures: %w", err)
	}
	defer rows.Close()
	var lectures []Lecture
	for rows.Next() {
		var l Lecture
		if err := rows.Scan(&l.ID, &l.Title.EN, &l.Title.NE, &l.Venue, &l.Country, &l.Year, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("content: scan lecture: %w", err)
		}
		lectures = append(lectures, l)
	}
	return lectures, rows.Err()
}

// CreateLecture inserts a lecture record.
func (r *PGRepository) CreateLecture(ctx context.Context, lecture Lecture) (Lecture, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO lectures_abroad (title_en, title_ne, venue, country, year, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING id, title_en, title_ne, venue, country, year, created_at`,
		lecture.Title.EN, lecture.Title.NE, lecture.Venue, lecture.Country, lecture.Year)
	var created Lecture
	if err := row.Scan(&created.ID, &created.Title.EN, &created.Title.NE, &created.Venue, &created.Country, &created.Year, &created.CreatedAt); err != nil {
		return Lecture{}, fmt.Errorf("content: create lecture: %w", err)
	}
	return created, nil
}

// DeleteLecture removes a lecture record.
func (r *PGRepository) DeleteLecture(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM lectures_abroad WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("content: delete lecture: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)
