package content

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/himalclinic/himalclinic/internal/i18n"
	"github.com/himalclinic/himalclinic/internal/shared"
	"github.com/himalclinic/himalclinic/internal/view"
)

// Handler serves the public content pages and the admin content screens.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		templates: templates,
		csrf:      csrf,
		validator: validator.New(),
	}
}

// MountPublicRoutes registers the visitor-facing pages.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Get("/about", h.about)
	r.Get("/blog", h.listPosts)
	r.Get("/blog/{slug}", h.showPost)
	r.Get("/videos", h.listVideos)
	r.Get("/lectures", h.listLectures)
}

// MountAdminRoutes registers the content management screens. Callers guard
// the group with the content capability.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/posts", h.adminPosts)
	r.Post("/posts", h.createPost)
	r.Post("/posts/{id}/publish", h.publishPost)
	r.Post("/posts/{id}/unpublish", h.unpublishPost)
	r.Post("/posts/{id}/delete", h.deletePost)

	r.Get("/videos", h.adminVideos)
	r.Post("/videos", h.createVideo)
	r.Post("/videos/{id}/delete", h.deleteVideo)

	r.Get("/lectures", h.adminLectures)
	r.Post("/lectures", h.createLecture)
	r.Post("/lectures/{id}/delete", h.deleteLecture)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.PublishedPosts(r.Context())
	if err != nil {
		h.logger.Error("load home posts", slog.Any("error", err))
		posts = nil
	}
	if len(posts) > 3 {
		posts = posts[:3]
	}
	h.render(w, r, "pages/home.html", "HimalClinic", map[string]any{"Posts": posts}, http.StatusOK)
}

func (h *Handler) about(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, "pages/about.html", "About", nil, http.StatusOK)
}

func (h *Handler) listPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.PublishedPosts(r.Context())
	if err != nil {
		h.logger.Error("list posts", slog.Any("error", err))
		h.render(w, r, "pages/blog_list.html", "Blog", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/blog_list.html", "Blog", map[string]any{"Posts": posts}, http.StatusOK)
}

func (h *Handler) showPost(w http.ResponseWriter, r *http.Request) {
	post, err := h.service.PostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("show post", slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	lang := i18n.LangFromContext(r.Context())
	h.render(w, r, "pages/blog_post.html", post.Title.Pick(lang), map[string]any{"Post": post}, http.StatusOK)
}

func (h *Handler) listVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.PublishedVideos(r.Context())
	if err != nil {
		h.logger.Error("list videos", slog.Any("error", err))
	}
	h.render(w, r, "pages/videos.html", "Videos", map[string]any{"Videos": videos}, http.StatusOK)
}

func (h *Handler) listLectures(w http.ResponseWriter, r *http.Request) {
	lectures, err := h.service.Lectures(r.Context())
	if err != nil {
		h.logger.Error("list lectures", slog.Any("error", err))
	}
	h.render(w, r, "pages/lectures.html", "Lectures Abroad", map[string]any{"Lectures": lectures}, http.StatusOK)
}

type postForm struct {
	Slug    string `validate:"required"`
	TitleEN string `validate:"required"`
	TitleNE string
	Excerpt string
	BodyEN  string `validate:"required"`
	BodyNE  string
}

func (h *Handler) adminPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.service.AllPosts(r.Context())
	if err != nil {
		h.logger.Error("admin list posts", slog.Any("error", err))
		h.render(w, r, "pages/admin_posts.html", "Posts", map[string]any{"Error": shared.UserSafeMessage(err)}, http.StatusInternalServerError)
		return
	}
	h.render(w, r, "pages/admin_posts.html", "Posts", map[string]any{"Posts": posts}, http.StatusOK)
}

func (h *Handler) createPost(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := postForm{
		Slug:    r.PostFormValue("slug"),
		TitleEN: r.PostFormValue("title_en"),
		TitleNE: r.PostFormValue("title_ne"),
		Excerpt: r.PostFormValue("excerpt_en"),
		BodyEN:  r.PostFormValue("body_en"),
		BodyNE:  r.PostFormValue("body_ne"),
	}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "/admin/posts", "error", "Slug, English title and English body are required")
		return
	}
	_, err := h.service.CreatePost(r.Context(), BlogPost{
		Slug:    form.Slug,
		Title:   i18n.Text{EN: form.TitleEN, NE: form.TitleNE},
		Excerpt: i18n.Text{EN: form.Excerpt, NE: r.PostFormValue("excerpt_ne")},
		Body:    i18n.Text{EN: form.BodyEN, NE: form.BodyNE},
	})
	if err != nil {
		h.logger.Error("create post", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/posts", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/posts", "success", "Draft created")
}

func (h *Handler) publishPost(w http.ResponseWriter, r *http.Request) {
	h.togglePost(w, r, true, "Post published")
}

func (h *Handler) unpublishPost(w http.ResponseWriter, r *http.Request) {
	h.togglePost(w, r, false, "Post unpublished")
}

func (h *Handler) togglePost(w http.ResponseWriter, r *http.Request, published bool, message string) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.SetPostPublished(r.Context(), id, published); err != nil {
		h.logger.Error("toggle post", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/posts", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/posts", "success", message)
}

func (h *Handler) deletePost(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeletePost(r.Context(), id); err != nil {
		h.logger.Error("delete post", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/posts", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/posts", "success", "Post deleted")
}

type videoForm struct {
	TitleEN   string `validate:"required"`
	YouTubeID string `validate:"required"`
}

func (h *Handler) adminVideos(w http.ResponseWriter, r *http.Request) {
	videos, err := h.service.AllVideos(r.Context())
	if err != nil {
		h.logger.Error("admin list videos", slog.Any("error", err))
	}
	h.render(w, r, "pages/admin_videos.html", "Videos", map[string]any{"Videos": videos}, http.StatusOK)
}

func (h *Handler) createVideo(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := videoForm{
		TitleEN:   r.PostFormValue("title_en"),
		YouTubeID: strings.TrimSpace(r.PostFormValue("youtube_id")),
	}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "/admin/videos", "error", "Title and video ID are required")
		return
	}
	_, err := h.service.CreateVideo(r.Context(), Video{
		Title:     i18n.Text{EN: form.TitleEN, NE: r.PostFormValue("title_ne")},
		YouTubeID: form.YouTubeID,
	})
	if err != nil {
		h.logger.Error("create video", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/videos", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/videos", "success", "Video added")
}

func (h *Handler) deleteVideo(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteVideo(r.Context(), id); err != nil {
		h.logger.Error("delete video", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/videos", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/videos", "success", "Video removed")
}

type lectureForm struct {
	TitleEN string `validate:"required"`
	Venue   string `validate:"required"`
	Country string `validate:"required"`
	Year    int    `validate:"required,gte=1990,lte=2100"`
}

func (h *Handler) adminLectures(w http.ResponseWriter, r *http.Request) {
	lectures, err := h.service.Lectures(r.Context())
	if err != nil {
		h.logger.Error("admin list lectures", slog.Any("error", err))
	}
	h.render(w, r, "pages/admin_lectures.html", "Lectures", map[string]any{"Lectures": lectures}, http.StatusOK)
}

func (h *Handler) createLecture(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	year, _ := strconv.Atoi(r.PostFormValue("year"))
	form := lectureForm{
		TitleEN: r.PostFormValue("title_en"),
		Venue:   r.PostFormValue("venue"),
		Country: r.PostFormValue("country"),
		Year:    year,
	}
	if err := h.validator.Struct(form); err != nil {
		h.redirectWithFlash(w, r, "/admin/lectures", "error", "Title, venue, country and a valid year are required")
		return
	}
	_, err := h.service.CreateLecture(r.Context(), Lecture{
		Title:   i18n.Text{EN: form.TitleEN, NE: r.PostFormValue("title_ne")},
		Venue:   form.Venue,
		Country: form.Country,
		Year:    form.Year,
	})
	if err != nil {
		h.logger.Error("create lecture", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/lectures", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/lectures", "success", "Lecture recorded")
}

func (h *Handler) deleteLecture(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteLecture(r.Context(), id); err != nil {
		h.logger.Error("delete lecture", slog.Any("error", err))
		h.redirectWithFlash(w, r, "/admin/lectures", "error", shared.UserSafeMessage(err))
		return
	}
	h.redirectWithFlash(w, r, "/admin/lectures", "success", "Lecture removed")
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, template, title string, data any, status int) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken := ""
	if sess != nil {
		csrfToken, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       title,
		Lang:        i18n.LangFromContext(r.Context()),
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, template, viewData); err != nil {
		h.logger.Error("render template", slog.String("template", template), slog.Any("error", err))
	}
}

func (h *Handler) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(shared.FlashMessage{Kind: kind, Message: message})
	}
	http.Redirect(w, r, location, http.StatusSeeOther)
}
