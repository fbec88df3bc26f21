package mcp

import (
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/daybook/internal/app"
	"github.com/hpungsan/daybook/internal/config"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"diary", "archive", "mention", "tag", "settings", "image", "data"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"diary_save": {
		def:     diarySaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiarySave },
	},
	"diary_get": {
		def:     diaryGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiaryGet },
	},
	"diary_list": {
		def:     diaryListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiaryList },
	},
	"diary_by_date": {
		def:     diaryByDateToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiaryByDate },
	},
	"diary_dates": {
		def:     diaryDatesToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiaryDates },
	},
	"diary_delete": {
		def:     diaryDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiaryDelete },
	},
	"diary_search": {
		def:     diarySearchToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiarySearch },
	},
	"diary_attachments": {
		def:     diaryAttachmentsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDiaryAttachments },
	},
	"archive_save": {
		def:     archiveSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveSave },
	},
	"archive_get": {
		def:     archiveGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveGet },
	},
	"archive_list": {
		def:     archiveListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveList },
	},
	"archive_delete": {
		def:     archiveDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleArchiveDelete },
	},
	"mention_stats": {
		def:     mentionStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMentionStats },
	},
	"mention_details": {
		def:     mentionDetailsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMentionDetails },
	},
	"tag_list": {
		def:     tagListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleTagList },
	},
	"settings_get": {
		def:     settingsGetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsGet },
	},
	"settings_set": {
		def:     settingsSetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsSet },
	},
	"settings_list": {
		def:     settingsListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSettingsList },
	},
	"image_save": {
		def:     imageSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImageSave },
	},
	"image_rebuild_refs": {
		def:     imageRebuildRefsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleImageRebuildRefs },
	},
	"data_stats": {
		def:     dataStatsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataStats },
	},
	"data_export": {
		def:     dataExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataExport },
	},
	"data_import": {
		def:     dataImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDataImport },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns the names in the list that are not tools.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns the names in the list that are not tool types.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type from a "type_action" tool name
// (e.g. "diary_save" → "diary").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for _, name := range AllToolNames() {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// enabledTools returns the registered tool names minus those disabled by
// cfg.DisabledTypes or cfg.DisabledTools.
func enabledTools(cfg *config.Config) []string {
	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range cfg.DisabledTools {
		disabled[name] = true
	}

	var names []string
	for _, name := range AllToolNames() {
		if !disabled[name] {
			names = append(names, name)
		}
	}
	return names
}

// NewServer creates an MCP server exposing the diary through a.
func NewServer(a *app.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"daybook",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(a)
	for _, name := range enabledTools(a.Config()) {
		entry := toolRegistry[name]
		s.AddTool(entry.def, entry.handler(h))
	}
	return s
}

// Run serves MCP over stdio until stdin closes.
func Run(a *app.App, version string) error {
	return server.ServeStdio(NewServer(a, version))
}
