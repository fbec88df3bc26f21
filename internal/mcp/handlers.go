package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/daybook/internal/app"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a}
}

// Request types for each tool

// DiarySaveRequest represents the arguments for diary_save.
type DiarySaveRequest struct {
	ID        string   `json:"id,omitempty"`
	Title     string   `json:"title,omitempty"`
	Content   string   `json:"content,omitempty"`
	Mood      string   `json:"mood,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Weather   *string  `json:"weather,omitempty"`
	CreatedAt int64    `json:"created_at,omitempty"`
}

// IDRequest represents the arguments of tools addressing one record.
type IDRequest struct {
	ID string `json:"id"`
}

// DiaryListRequest represents the arguments for diary_list.
type DiaryListRequest struct {
	Limit       int  `json:"limit,omitempty"`
	Offset      int  `json:"offset,omitempty"`
	Lightweight bool `json:"lightweight,omitempty"`
}

// DiaryByDateRequest represents the arguments for diary_by_date.
type DiaryByDateRequest struct {
	Date string `json:"date"`
}

// DiaryDatesRequest represents the arguments for diary_dates.
type DiaryDatesRequest struct {
	Month string `json:"month"`
}

// DiarySearchRequest represents the arguments for diary_search.
type DiarySearchRequest struct {
	Keyword  string   `json:"keyword,omitempty"`
	Mood     string   `json:"mood,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	DateFrom string   `json:"date_from,omitempty"`
	DateTo   string   `json:"date_to,omitempty"`
	Limit    int      `json:"limit,omitempty"`
	Offset   int      `json:"offset,omitempty"`
}

// ArchiveSaveRequest represents the arguments for archive_save.
type ArchiveSaveRequest struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Aliases     []string `json:"aliases,omitempty"`
	Description string   `json:"description,omitempty"`
	Type        string   `json:"type,omitempty"`
	MainImage   string   `json:"main_image,omitempty"`
	Images      []string `json:"images,omitempty"`
}

// ArchiveListRequest represents the arguments for archive_list.
type ArchiveListRequest struct {
	Type string `json:"type,omitempty"`
}

// MentionDetailsRequest represents the arguments for mention_details.
type MentionDetailsRequest struct {
	Name   string `json:"name"`
	Limit  int    `json:"limit,omitempty"`
	Offset int    `json:"offset,omitempty"`
}

// SettingRequest represents the arguments for settings_get and settings_set.
type SettingRequest struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
}

// PathRequest represents the arguments of tools taking a file path.
type PathRequest struct {
	Path string `json:"path,omitempty"`
}

// Handler implementations

// HandleDiarySave handles the diary_save tool call.
func (h *Handlers) HandleDiarySave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiarySaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.SaveDiary(ctx, ops.SaveDiaryInput{
		ID:        input.ID,
		Title:     input.Title,
		Content:   input.Content,
		Mood:      input.Mood,
		Tags:      input.Tags,
		Weather:   input.Weather,
		CreatedAt: input.CreatedAt,
	}))
}

// HandleDiaryGet handles the diary_get tool call.
func (h *Handlers) HandleDiaryGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	entry, err := h.app.GetDiary(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	if entry == nil {
		return errorResult(errors.NewNotFound("diary", input.ID)), nil
	}
	return successResult(entry)
}

// HandleDiaryList handles the diary_list tool call.
func (h *Handlers) HandleDiaryList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiaryListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.ListDiaries(ctx, ops.ListDiariesInput{
		Limit:       input.Limit,
		Offset:      input.Offset,
		Lightweight: input.Lightweight,
	}))
}

// HandleDiaryByDate handles the diary_by_date tool call. A day without
// entries yields {"entry": null}.
func (h *Handlers) HandleDiaryByDate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiaryByDateRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	entry, err := h.app.DiaryByDate(ctx, input.Date)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"entry": entry})
}

// HandleDiaryDates handles the diary_dates tool call.
func (h *Handlers) HandleDiaryDates(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiaryDatesRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	dates, err := h.app.DiaryDates(ctx, input.Month)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"dates": dates})
}

// HandleDiaryDelete handles the diary_delete tool call.
func (h *Handlers) HandleDiaryDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.DeleteDiary(ctx, input.ID))
}

// HandleDiarySearch handles the diary_search tool call.
func (h *Handlers) HandleDiarySearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DiarySearchRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.Search(ctx, ops.SearchInput{
		Keyword:  input.Keyword,
		Mood:     input.Mood,
		Tags:     input.Tags,
		DateFrom: input.DateFrom,
		DateTo:   input.DateTo,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}))
}

// HandleDiaryAttachments handles the diary_attachments tool call.
func (h *Handlers) HandleDiaryAttachments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	attachments, err := h.app.ListAttachments(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"attachments": attachments})
}

// HandleArchiveSave handles the archive_save tool call.
func (h *Handlers) HandleArchiveSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.SaveArchive(ctx, ops.SaveArchiveInput{
		ID:          input.ID,
		Name:        input.Name,
		Aliases:     input.Aliases,
		Description: input.Description,
		Type:        input.Type,
		MainImage:   input.MainImage,
		Images:      input.Images,
	}))
}

// HandleArchiveGet handles the archive_get tool call.
func (h *Handlers) HandleArchiveGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	archive, err := h.app.GetArchive(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	if archive == nil {
		return errorResult(errors.NewNotFound("archive", input.ID)), nil
	}
	return successResult(archive)
}

// HandleArchiveList handles the archive_list tool call.
func (h *Handlers) HandleArchiveList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ArchiveListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	archives, err := h.app.ListArchives(ctx, input.Type)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"archives": archives})
}

// HandleArchiveDelete handles the archive_delete tool call.
func (h *Handlers) HandleArchiveDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.DeleteArchive(ctx, input.ID))
}

// HandleMentionStats handles the mention_stats tool call.
func (h *Handlers) HandleMentionStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := h.app.MentionStats(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"people": stats})
}

// HandleMentionDetails handles the mention_details tool call.
func (h *Handlers) HandleMentionDetails(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MentionDetailsRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.MentionDetails(ctx, ops.MentionDetailsInput{
		Name:   input.Name,
		Limit:  input.Limit,
		Offset: input.Offset,
	}))
}

// HandleTagList handles the tag_list tool call.
func (h *Handlers) HandleTagList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags, err := h.app.ListTags(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"tags": tags})
}

// HandleSettingsGet handles the settings_get tool call.
func (h *Handlers) HandleSettingsGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	setting, err := h.app.GetSetting(ctx, input.Key)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"setting": setting})
}

// HandleSettingsSet handles the settings_set tool call.
func (h *Handlers) HandleSettingsSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SettingRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.SetSetting(ctx, input.Key, input.Value))
}

// HandleSettingsList handles the settings_list tool call.
func (h *Handlers) HandleSettingsList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	settings, err := h.app.ListSettings(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"settings": settings})
}

// HandleImageSave handles the image_save tool call.
func (h *Handlers) HandleImageSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}
	return result(h.app.SaveImageFile(ctx, input.Path))
}

// HandleImageRebuildRefs handles the image_rebuild_refs tool call.
func (h *Handlers) HandleImageRebuildRefs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(h.app.RebuildImageRefs(ctx))
}

// HandleDataStats handles the data_stats tool call.
func (h *Handlers) HandleDataStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return result(h.app.Stats(ctx))
}

// HandleDataExport handles the data_export tool call.
func (h *Handlers) HandleDataExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.Export(ctx, input.Path))
}

// HandleDataImport handles the data_import tool call.
func (h *Handlers) HandleDataImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return result(h.app.Import(ctx, input.Path))
}

// Response helpers

// result turns an app call's (value, error) pair into a tool result.
func result[T any](v T, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(v)
}

// errorResult creates an MCP error result from an error.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if dbErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    dbErr.Code,
			"message": dbErr.Message,
			"status":  dbErr.Status,
		}
		// Internal details carry paths and SQL text.
		if dbErr.Code != errors.ErrInternal && dbErr.Details != nil {
			errorObj["details"] = dbErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result with JSON content.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
