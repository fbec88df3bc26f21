package mcp

import "github.com/mark3labs/mcp-go/mcp"

var diarySaveToolDef = mcp.NewTool("diary_save",
	mcp.WithDescription("Create or update a diary entry. Content is HTML; it is sanitized and mirrored as plain text. Omit id to create."),
	mcp.WithTitleAnnotation("Save Entry"),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithDestructiveHintAnnotation(false),
	mcp.WithString("id", mcp.Description("Entry id to update; an unknown id creates a new entry")),
	mcp.WithString("title", mcp.Description("Entry title")),
	mcp.WithString("content", mcp.Description("HTML body; images are embedded as diary-image:// URLs")),
	mcp.WithString("mood", mcp.Description("happy, calm, neutral (default), sad or angry")),
	mcp.WithArray("tags", mcp.Description("Tag names; replaces the entry's tags"), mcp.WithStringItems()),
	mcp.WithString("weather", mcp.Description("Optional weather note")),
	mcp.WithNumber("created_at", mcp.Description("Creation time in ms since epoch, new entries only (default: now)")),
)

var diaryGetToolDef = mcp.NewTool("diary_get",
	mcp.WithDescription("Get one diary entry by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
)

var diaryListToolDef = mcp.NewTool("diary_list",
	mcp.WithDescription("List diary entries, newest first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
	mcp.WithBoolean("lightweight", mcp.Description("Return plain text instead of HTML content")),
)

var diaryByDateToolDef = mcp.NewTool("diary_by_date",
	mcp.WithDescription("Get the newest entry written on a local calendar day."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("date", mcp.Required(), mcp.Description("Day as YYYY-MM-DD")),
)

var diaryDatesToolDef = mcp.NewTool("diary_dates",
	mcp.WithDescription("List the days of a month that have at least one entry."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("month", mcp.Required(), mcp.Description("Month as YYYY-MM")),
)

var diaryDeleteToolDef = mcp.NewTool("diary_delete",
	mcp.WithDescription("Delete a diary entry with its tags, attachments and unreferenced images."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
)

var diarySearchToolDef = mcp.NewTool("diary_search",
	mcp.WithDescription("Search entries. Every keyword term must match; a term naming an archive also matches that archive's name and aliases."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("keyword", mcp.Description("Whitespace-separated terms")),
	mcp.WithString("mood", mcp.Description("Exact mood")),
	mcp.WithArray("tags", mcp.Description("Entries must carry all of these tags"), mcp.WithStringItems()),
	mcp.WithString("date_from", mcp.Description("First day, YYYY-MM-DD")),
	mcp.WithString("date_to", mcp.Description("Last day (inclusive), YYYY-MM-DD")),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 20, max: 100)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
)

var diaryAttachmentsToolDef = mcp.NewTool("diary_attachments",
	mcp.WithDescription("List the files attached to an entry."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Entry id")),
)

var archiveSaveToolDef = mcp.NewTool("archive_save",
	mcp.WithDescription("Create or update an archive (a person, object or other named thing diary text refers to)."),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithString("id", mcp.Description("Archive id to update")),
	mcp.WithString("name", mcp.Required(), mcp.Description("Canonical name")),
	mcp.WithArray("aliases", mcp.Description("Alternate names"), mcp.WithStringItems()),
	mcp.WithString("description", mcp.Description("Free text")),
	mcp.WithString("type", mcp.Description("person (default), object or other")),
	mcp.WithString("main_image", mcp.Description("diary-image:// URL")),
	mcp.WithArray("images", mcp.Description("diary-image:// URLs"), mcp.WithStringItems()),
)

var archiveGetToolDef = mcp.NewTool("archive_get",
	mcp.WithDescription("Get one archive by id."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Archive id")),
)

var archiveListToolDef = mcp.NewTool("archive_list",
	mcp.WithDescription("List archives, most recently updated first."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("type", mcp.Description("Only this type")),
)

var archiveDeleteToolDef = mcp.NewTool("archive_delete",
	mcp.WithDescription("Delete an archive and release its images."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("id", mcp.Required(), mcp.Description("Archive id")),
)

var mentionStatsToolDef = mcp.NewTool("mention_stats",
	mcp.WithDescription("Count how often each person is mentioned across all entries, most mentioned first."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var mentionDetailsToolDef = mcp.NewTool("mention_details",
	mcp.WithDescription("List the entries mentioning one person with per-entry counts and matched names."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("name", mcp.Required(), mcp.Description("Person name or an alias only they use")),
	mcp.WithNumber("limit", mcp.Description("Max results (default: 20, max: 200)")),
	mcp.WithNumber("offset", mcp.Description("Results to skip")),
)

var tagListToolDef = mcp.NewTool("tag_list",
	mcp.WithDescription("List tags with the number of entries using each."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var settingsGetToolDef = mcp.NewTool("settings_get",
	mcp.WithDescription("Get a setting."),
	mcp.WithReadOnlyHintAnnotation(true),
	mcp.WithString("key", mcp.Required(), mcp.Description("Setting key")),
)

var settingsSetToolDef = mcp.NewTool("settings_set",
	mcp.WithDescription("Set a setting. The avatar key holds a diary-image:// URL."),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithString("key", mcp.Required(), mcp.Description("Setting key")),
	mcp.WithString("value", mcp.Required(), mcp.Description("Setting value")),
)

var settingsListToolDef = mcp.NewTool("settings_list",
	mcp.WithDescription("List all settings."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var imageSaveToolDef = mcp.NewTool("image_save",
	mcp.WithDescription("Store an image file and return its diary-image:// URL for use in content or archives."),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithString("path", mcp.Required(), mcp.Description("Path to a png, jpg, gif or webp file")),
)

var imageRebuildRefsToolDef = mcp.NewTool("image_rebuild_refs",
	mcp.WithDescription("Recompute image reference counts from stored content and release unreferenced images."),
	mcp.WithDestructiveHintAnnotation(true),
)

var dataStatsToolDef = mcp.NewTool("data_stats",
	mcp.WithDescription("Count entries, archives, tags and referenced images."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var dataExportToolDef = mcp.NewTool("data_export",
	mcp.WithDescription("Write a zip backup of all data."),
	mcp.WithReadOnlyHintAnnotation(false),
	mcp.WithString("path", mcp.Description("Bundle path (default: exports/daybook-backup-<timestamp>.zip)")),
)

var dataImportToolDef = mcp.NewTool("data_import",
	mcp.WithDescription("Replace all data with a zip backup. The previous data is restored if the backup cannot be opened."),
	mcp.WithDestructiveHintAnnotation(true),
	mcp.WithString("path", mcp.Required(), mcp.Description("Bundle path")),
)
