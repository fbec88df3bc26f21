package web

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/hpungsan/daybook/internal/app"
	"github.com/hpungsan/daybook/internal/content"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/images"
	"github.com/hpungsan/daybook/internal/logging"
	"github.com/hpungsan/daybook/internal/ops"
)

// maxAttachmentBytes bounds a single attachment upload.
const maxAttachmentBytes = 100 << 20

// Handlers contains the HTTP route handlers.
type Handlers struct {
	app *app.App
	log logging.Logger
}

// DiaryBody is the request body of POST /api/diaries. When Markdown is set it
// is rendered and replaces Content.
type DiaryBody struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Content   string   `json:"content"`
	Markdown  string   `json:"markdown"`
	Mood      string   `json:"mood"`
	Tags      []string `json:"tags"`
	Weather   *string  `json:"weather"`
	CreatedAt int64    `json:"createdAt"`
}

// ArchiveBody is the request body of POST /api/archives.
type ArchiveBody struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases"`
	Description string   `json:"description"`
	Type        string   `json:"type"`
	MainImage   string   `json:"mainImage"`
	Images      []string `json:"images"`
}

// SettingBody is the request body of PUT /api/settings/{key}.
type SettingBody struct {
	Value string `json:"value"`
}

// PathBody is the request body of the export and import endpoints.
type PathBody struct {
	Path string `json:"path"`
}

// HandleListDiaries handles GET /api/diaries.
func (h *Handlers) HandleListDiaries(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.ListDiaries(r.Context(), ops.ListDiariesInput{
		Limit:       parseIntParam(r, "limit", ops.DefaultListLimit),
		Offset:      parseIntParam(r, "offset", 0),
		Lightweight: parseBoolParam(r, "lightweight"),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleSaveDiary handles POST /api/diaries.
func (h *Handlers) HandleSaveDiary(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[DiaryBody](w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if body.Markdown != "" {
		body.Content, err = content.FromMarkdown(body.Markdown)
		if err != nil {
			h.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("invalid markdown: %v", err)))
			return
		}
	}

	result, err := h.app.SaveDiary(r.Context(), ops.SaveDiaryInput{
		ID:        body.ID,
		Title:     body.Title,
		Content:   body.Content,
		Mood:      body.Mood,
		Tags:      body.Tags,
		Weather:   body.Weather,
		CreatedAt: body.CreatedAt,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.renderJSON(w, r, status, result)
}

// HandleGetDiary handles GET /api/diaries/{id}.
func (h *Handlers) HandleGetDiary(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	entry, err := h.app.GetDiary(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if entry == nil {
		h.renderError(w, r, errors.NewNotFound("diary", id))
		return
	}
	h.renderJSON(w, r, http.StatusOK, entry)
}

// HandleDeleteDiary handles DELETE /api/diaries/{id}. Deleting a missing
// entry succeeds with deleted=false.
func (h *Handlers) HandleDeleteDiary(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.DeleteDiary(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleDiaryByDate handles GET /api/diaries/by-date?date=YYYY-MM-DD.
func (h *Handlers) HandleDiaryByDate(w http.ResponseWriter, r *http.Request) {
	entry, err := h.app.DiaryByDate(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"entry": entry})
}

// HandleDiaryDates handles GET /api/diaries/dates?month=YYYY-MM.
func (h *Handlers) HandleDiaryDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.app.DiaryDates(r.Context(), r.URL.Query().Get("month"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"dates": dates})
}

// HandleListAttachments handles GET /api/diaries/{id}/attachments.
func (h *Handlers) HandleListAttachments(w http.ResponseWriter, r *http.Request) {
	attachments, err := h.app.ListAttachments(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"attachments": attachments})
}

// HandleAddAttachment handles POST /api/diaries/{id}/attachments with a
// multipart "file" field.
func (h *Handlers) HandleAddAttachment(w http.ResponseWriter, r *http.Request) {
	name, data, err := readUpload(w, r, maxAttachmentBytes)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if len(data) > maxAttachmentBytes {
		h.renderError(w, r, errors.NewInvalidRequest(fmt.Sprintf("attachment exceeds %d bytes", maxAttachmentBytes)))
		return
	}
	attachment, err := h.app.AddAttachment(r.Context(), ops.AddAttachmentInput{
		DiaryID:  r.PathValue("id"),
		FileName: name,
		Data:     data,
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusCreated, attachment)
}

// HandleSearch handles GET /api/search. Repeat tag for several tags.
func (h *Handlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := h.app.Search(r.Context(), ops.SearchInput{
		Keyword:  q.Get("keyword"),
		Mood:     q.Get("mood"),
		Tags:     q["tag"],
		DateFrom: q.Get("from"),
		DateTo:   q.Get("to"),
		Limit:    parseIntParam(r, "limit", ops.DefaultSearchLimit),
		Offset:   parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleListArchives handles GET /api/archives?type=.
func (h *Handlers) HandleListArchives(w http.ResponseWriter, r *http.Request) {
	archives, err := h.app.ListArchives(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"archives": archives})
}

// HandleSaveArchive handles POST /api/archives.
func (h *Handlers) HandleSaveArchive(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[ArchiveBody](w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := h.app.SaveArchive(r.Context(), ops.SaveArchiveInput(body))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.renderJSON(w, r, status, result)
}

// HandleGetArchive handles GET /api/archives/{id}.
func (h *Handlers) HandleGetArchive(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	archive, err := h.app.GetArchive(r.Context(), id)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	if archive == nil {
		h.renderError(w, r, errors.NewNotFound("archive", id))
		return
	}
	h.renderJSON(w, r, http.StatusOK, archive)
}

// HandleDeleteArchive handles DELETE /api/archives/{id}.
func (h *Handlers) HandleDeleteArchive(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.DeleteArchive(r.Context(), r.PathValue("id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleMentionStats handles GET /api/mentions.
func (h *Handlers) HandleMentionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.MentionStats(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"people": stats})
}

// HandleMentionDetails handles GET /api/mentions/{name}.
func (h *Handlers) HandleMentionDetails(w http.ResponseWriter, r *http.Request) {
	result, err := h.app.MentionDetails(r.Context(), ops.MentionDetailsInput{
		Name:   r.PathValue("name"),
		Limit:  parseIntParam(r, "limit", ops.DefaultMentionPage),
		Offset: parseIntParam(r, "offset", 0),
	})
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleListTags handles GET /api/tags.
func (h *Handlers) HandleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.app.ListTags(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"tags": tags})
}

// HandleListSettings handles GET /api/settings.
func (h *Handlers) HandleListSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.app.ListSettings(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"settings": settings})
}

// HandleGetSetting handles GET /api/settings/{key}.
func (h *Handlers) HandleGetSetting(w http.ResponseWriter, r *http.Request) {
	setting, err := h.app.GetSetting(r.Context(), r.PathValue("key"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, map[string]any{"setting": setting})
}

// HandleSetSetting handles PUT /api/settings/{key}.
func (h *Handlers) HandleSetSetting(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[SettingBody](w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := h.app.SetSetting(r.Context(), r.PathValue("key"), body.Value)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleStats handles GET /api/stats.
func (h *Handlers) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.app.Stats(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, stats)
}

// HandleUploadImage handles POST /api/images with a multipart "file" field.
// The extension of the uploaded file name selects the format.
func (h *Handlers) HandleUploadImage(w http.ResponseWriter, r *http.Request) {
	limit := h.app.Config().ImageMaxBytes
	if limit <= 0 {
		limit = maxAttachmentBytes
	}
	name, data, err := readUpload(w, r, limit)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	saved, err := h.app.SaveImage(r.Context(), data, filepath.Ext(name))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusCreated, saved)
}

// HandleExport handles POST /api/export. An empty body path uses the default location.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[PathBody](w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := h.app.Export(r.Context(), body.Path)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// HandleImport handles POST /api/import.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	body, err := decodeBody[PathBody](w, r)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	result, err := h.app.Import(r.Context(), body.Path)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.renderJSON(w, r, http.StatusOK, result)
}

// imageFileHandler serves originals (thumb=false) or thumbnails. Only names
// shaped like image references resolve.
func (h *Handlers) imageFileHandler(thumb bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := r.PathValue("file")
		ref, err := images.ParseRef(file)
		if err != nil || ref.Thumb != thumb {
			h.renderError(w, r, errors.NewFileNotFound(file))
			return
		}
		path, err := h.app.ResolveImagePath(file)
		if err != nil {
			h.renderError(w, r, err)
			return
		}
		w.Header().Set("Cache-Control", "private, max-age=31536000, immutable")
		http.ServeFile(w, r, path)
	}
}

// readUpload reads the multipart "file" field, at most limit+1 bytes of it.
func readUpload(w http.ResponseWriter, r *http.Request, limit int64) (string, []byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("multipart field \"file\" is required: %v", err))
	}
	defer file.Close()

	// One byte past limit lets callers tell an oversized upload apart.
	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return "", nil, errors.NewInvalidRequest(fmt.Sprintf("read upload: %v", err))
	}
	return header.Filename, data, nil
}
