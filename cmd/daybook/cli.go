package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/daybook/internal/app"
	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/content"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/logging"
	"github.com/hpungsan/daybook/internal/mcp"
	"github.com/hpungsan/daybook/internal/ops"
	"github.com/hpungsan/daybook/internal/search"
	"github.com/hpungsan/daybook/internal/web"
)

// maxStdinBytes bounds entry content read from stdin.
const maxStdinBytes = 10 << 20

// cliEnv holds the application, opened on first use so help and version
// never touch the data directory.
type cliEnv struct {
	app    *app.App
	log    logging.Logger
	opened bool
}

func (e *cliEnv) open(c *cli.Context) (*app.App, error) {
	if e.app != nil {
		return e.app, nil
	}
	baseDir := c.String("data-dir")
	if baseDir == "" {
		dir, err := config.DefaultBaseDir()
		if err != nil {
			return nil, fmt.Errorf("could not determine data directory: %w", err)
		}
		baseDir = dir
	}
	cfg, err := config.LoadWithOverride(baseDir, c.String("config"))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	e.log = logging.New(c.Bool("debug"))
	a, err := app.Open(c.Context, baseDir, cfg, e.log, Version)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	e.app = a
	e.opened = true
	return a, nil
}

// logger returns the logger of an opened env.
func (e *cliEnv) logger() logging.Logger {
	if e.log == nil {
		e.log = logging.New(false)
	}
	return e.log
}

// close closes an application the env opened itself.
func (e *cliEnv) close() error {
	if !e.opened || e.app == nil {
		return nil
	}
	err := e.app.Close()
	e.app = nil
	e.opened = false
	return err
}

// action adapts a command body that needs the application.
func (e *cliEnv) action(fn func(c *cli.Context, a *app.App) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		a, err := e.open(c)
		if err != nil {
			return err
		}
		return fn(c, a)
	}
}

// newCLIApp creates the CLI application with all commands.
func newCLIApp(env *cliEnv) *cli.App {
	cliApp := &cli.App{
		Name:    "daybook",
		Usage:   "Local-first diary",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", Aliases: []string{"d"}, EnvVars: []string{"DAYBOOK_HOME"}, Usage: "Data directory (default: ~/.daybook)"},
			&cli.StringFlag{Name: "config", Usage: "Config file layered over <data-dir>/config.json"},
			&cli.BoolFlag{Name: "debug", Usage: "Enable debug logging"},
		},
		Commands: []*cli.Command{
			writeCmd(env),
			showCmd(env),
			listCmd(env),
			dayCmd(env),
			datesCmd(env),
			deleteCmd(env),
			searchCmd(env),
			attachCmd(env),
			attachmentsCmd(env),
			archiveCmd(env),
			mentionsCmd(env),
			tagsCmd(env),
			settingsCmd(env),
			imageCmd(env),
			statsCmd(env),
			exportCmd(env),
			importCmd(env),
			serveCmd(env),
			mcpCmd(env),
		},
		CommandNotFound: func(c *cli.Context, name string) {
			fmt.Fprintf(c.App.ErrWriter, "error: unknown command %q\nRun 'daybook --help' for usage.\n", name)
			cli.OsExiter(1)
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	cliApp.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return cliApp
}

// writeCmd creates the write command.
func writeCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "write",
		Usage: "Create or update an entry (--content - reads stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "id", Usage: "Entry to update (unknown ids create a new entry)"},
			&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Entry title"},
			&cli.StringFlag{Name: "content", Aliases: []string{"c"}, Usage: "Entry content as HTML, or - for stdin"},
			&cli.BoolFlag{Name: "markdown", Aliases: []string{"m"}, Usage: "Treat content as Markdown"},
			&cli.StringFlag{Name: "mood", Usage: "happy|calm|neutral|sad|angry"},
			&cli.StringFlag{Name: "tags", Usage: "Comma-separated tags"},
			&cli.StringFlag{Name: "weather", Usage: "Weather note"},
			&cli.StringFlag{Name: "date", Usage: "Entry date YYYY-MM-DD (new entries only)"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			text := c.String("content")
			if text == "-" {
				if !stdinHasData() {
					return outputError(errors.NewInvalidRequest("--content - expects content piped via stdin"))
				}
				piped, err := readStdin(maxStdinBytes)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				text = piped
			}
			if c.Bool("markdown") {
				html, err := content.FromMarkdown(text)
				if err != nil {
					return outputError(errors.NewInvalidRequest(fmt.Sprintf("invalid markdown: %v", err)))
				}
				text = html
			}

			input := ops.SaveDiaryInput{
				ID:      c.String("id"),
				Title:   c.String("title"),
				Content: text,
				Mood:    c.String("mood"),
				Tags:    parseTags(c.String("tags")),
			}
			if c.IsSet("weather") {
				weather := c.String("weather")
				input.Weather = &weather
			}
			if day := c.String("date"); day != "" {
				from, _, err := search.DayBounds(day, time.Local)
				if err != nil {
					return outputError(errors.NewInvalidRequest(err.Error()))
				}
				input.CreatedAt = from
			}

			output, err := a.SaveDiary(c.Context, input)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// showCmd creates the show command.
func showCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show an entry by ID",
		ArgsUsage: "<id>",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return err
			}
			entry, err := a.GetDiary(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			if entry == nil {
				return outputError(errors.NewNotFound("diary", id))
			}
			return outputJSON(c, entry)
		}),
	}
}

// listCmd creates the list command.
func listCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List entries, newest first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
			&cli.BoolFlag{Name: "lightweight", Usage: "Omit content from items"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			output, err := a.ListDiaries(c.Context, ops.ListDiariesInput{
				Limit:       c.Int("limit"),
				Offset:      c.Int("offset"),
				Lightweight: c.Bool("lightweight"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// dayCmd creates the day command.
func dayCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "day",
		Usage:     "Show the latest entry of a calendar day",
		ArgsUsage: "<YYYY-MM-DD>",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			day, err := requireArg(c, "date")
			if err != nil {
				return err
			}
			entry, err := a.DiaryByDate(c.Context, day)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"entry": entry})
		}),
	}
}

// datesCmd creates the dates command.
func datesCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "dates",
		Usage:     "List the days of a month that have entries",
		ArgsUsage: "<YYYY-MM>",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			month, err := requireArg(c, "month")
			if err != nil {
				return err
			}
			dates, err := a.DiaryDates(c.Context, month)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"dates": dates})
		}),
	}
}

// deleteCmd creates the delete command.
func deleteCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Delete an entry and its attachments",
		ArgsUsage: "<id>",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			id, err := requireArg(c, "id")
			if err != nil {
				return err
			}
			output, err := a.DeleteDiary(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// searchCmd creates the search command.
func searchCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search entries by keyword and filters",
		ArgsUsage: "[keyword...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "mood", Usage: "Exact mood"},
			&cli.StringSliceFlag{Name: "tag", Usage: "Required tag (repeatable)"},
			&cli.StringFlag{Name: "from", Usage: "First day YYYY-MM-DD"},
			&cli.StringFlag{Name: "to", Usage: "Last day YYYY-MM-DD"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultSearchLimit, Usage: "Maximum items to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			output, err := a.Search(c.Context, ops.SearchInput{
				Keyword:  strings.Join(c.Args().Slice(), " "),
				Mood:     c.String("mood"),
				Tags:     c.StringSlice("tag"),
				DateFrom: c.String("from"),
				DateTo:   c.String("to"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// attachCmd creates the attach command.
func attachCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "attach",
		Usage:     "Attach a file to an entry",
		ArgsUsage: "<entry-id> <file>",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			if c.NArg() < 2 {
				return outputError(errors.NewInvalidRequest("entry id and file path are required"))
			}
			path := c.Args().Get(1)
			data, err := os.ReadFile(path)
			if err != nil {
				if os.IsNotExist(err) {
					return outputError(errors.NewFileNotFound(path))
				}
				return outputError(errors.NewInternal(err))
			}
			output, err := a.AddAttachment(c.Context, ops.AddAttachmentInput{
				DiaryID:  c.Args().First(),
				FileName: path,
				Data:     data,
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// attachmentsCmd creates the attachments command.
func attachmentsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "attachments",
		Usage:     "List the attachments of an entry",
		ArgsUsage: "<entry-id>",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			id, err := requireArg(c, "entry id")
			if err != nil {
				return err
			}
			attachments, err := a.ListAttachments(c.Context, id)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"attachments": attachments})
		}),
	}
}

// archiveCmd creates the archive command group.
func archiveCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "archive",
		Usage: "Manage people, objects and other archives",
		Subcommands: []*cli.Command{
			{
				Name:  "save",
				Usage: "Create or update an archive",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "id", Usage: "Archive to update"},
					&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Required: true, Usage: "Archive name"},
					&cli.StringFlag{Name: "aliases", Usage: "Comma-separated aliases"},
					&cli.StringFlag{Name: "description", Usage: "Free text description"},
					&cli.StringFlag{Name: "type", Value: "person", Usage: "person|object|other"},
					&cli.StringFlag{Name: "main-image", Usage: "Main image reference"},
					&cli.StringSliceFlag{Name: "image", Usage: "Gallery image reference (repeatable)"},
				},
				Action: env.action(func(c *cli.Context, a *app.App) error {
					output, err := a.SaveArchive(c.Context, ops.SaveArchiveInput{
						ID:          c.String("id"),
						Name:        c.String("name"),
						Aliases:     parseTags(c.String("aliases")),
						Description: c.String("description"),
						Type:        c.String("type"),
						MainImage:   c.String("main-image"),
						Images:      c.StringSlice("image"),
					})
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				}),
			},
			{
				Name:      "get",
				Usage:     "Show an archive by ID",
				ArgsUsage: "<id>",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					archive, err := a.GetArchive(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					if archive == nil {
						return outputError(errors.NewNotFound("archive", id))
					}
					return outputJSON(c, archive)
				}),
			},
			{
				Name:  "list",
				Usage: "List archives",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "type", Usage: "Filter by type"},
				},
				Action: env.action(func(c *cli.Context, a *app.App) error {
					archives, err := a.ListArchives(c.Context, c.String("type"))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"archives": archives})
				}),
			},
			{
				Name:      "delete",
				Usage:     "Delete an archive",
				ArgsUsage: "<id>",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					id, err := requireArg(c, "id")
					if err != nil {
						return err
					}
					output, err := a.DeleteArchive(c.Context, id)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				}),
			},
		},
	}
}

// mentionsCmd creates the mentions command.
func mentionsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:      "mentions",
		Usage:     "Mention counts per person, or the entries mentioning one person",
		ArgsUsage: "[name]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultMentionPage, Usage: "Maximum entries to return"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Entries to skip"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			if c.NArg() == 0 {
				stats, err := a.MentionStats(c.Context)
				if err != nil {
					return outputError(err)
				}
				return outputJSON(c, map[string]any{"people": stats})
			}
			output, err := a.MentionDetails(c.Context, ops.MentionDetailsInput{
				Name:   strings.Join(c.Args().Slice(), " "),
				Limit:  c.Int("limit"),
				Offset: c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// tagsCmd creates the tags command.
func tagsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "tags",
		Usage: "List tags with entry counts",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			tags, err := a.ListTags(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, map[string]any{"tags": tags})
		}),
	}
}

// settingsCmd creates the settings command group.
func settingsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Read and write settings",
		Subcommands: []*cli.Command{
			{
				Name:      "get",
				ArgsUsage: "<key>",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					key, err := requireArg(c, "key")
					if err != nil {
						return err
					}
					setting, err := a.GetSetting(c.Context, key)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"setting": setting})
				}),
			},
			{
				Name:      "set",
				ArgsUsage: "<key> <value>",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					if c.NArg() < 2 {
						return outputError(errors.NewInvalidRequest("key and value are required"))
					}
					output, err := a.SetSetting(c.Context, c.Args().Get(0), c.Args().Get(1))
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				}),
			},
			{
				Name: "list",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					settings, err := a.ListSettings(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, map[string]any{"settings": settings})
				}),
			},
		},
	}
}

// imageCmd creates the image command group.
func imageCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "image",
		Usage: "Store images and maintain their reference counts",
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Copy an image file into the store and print its reference",
				ArgsUsage: "<file>",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					path, err := requireArg(c, "file")
					if err != nil {
						return err
					}
					saved, err := a.SaveImageFile(c.Context, path)
					if err != nil {
						return outputError(err)
					}
					a.WaitImages()
					return outputJSON(c, saved)
				}),
			},
			{
				Name:  "rebuild-refs",
				Usage: "Recount image references from every entry, archive and setting",
				Action: env.action(func(c *cli.Context, a *app.App) error {
					output, err := a.RebuildImageRefs(c.Context)
					if err != nil {
						return outputError(err)
					}
					return outputJSON(c, output)
				}),
			},
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Count entries, archives, tags and images",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			stats, err := a.Stats(c.Context)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, stats)
		}),
	}
}

// exportCmd creates the export command.
func exportCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Write a zip bundle of the database and image folders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Bundle path (default: <data-dir>/exports/daybook-<timestamp>.zip)"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			output, err := a.Export(c.Context, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// importCmd creates the import command.
func importCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Replace all data with a zip bundle (current data is restored on failure)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Bundle path"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			output, err := a.Import(c.Context, c.String("path"))
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		}),
	}
}

// serveCmd creates the serve command.
func serveCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the local HTTP API and image files",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind to"},
			&cli.IntFlag{Name: "port", Value: 7745, Usage: "Port to listen on"},
		},
		Action: env.action(func(c *cli.Context, a *app.App) error {
			srv := web.NewServer(a, env.logger(), c.String("bind"), c.Int("port"))
			return web.Run(srv, env.logger())
		}),
	}
}

// mcpCmd creates the mcp command.
func mcpCmd(env *cliEnv) *cli.Command {
	return &cli.Command{
		Name:  "mcp",
		Usage: "Run the MCP server on stdio (default when stdin is piped)",
		Action: env.action(func(c *cli.Context, a *app.App) error {
			return mcp.Run(a, Version)
		}),
	}
}

// Helper functions

// outputJSON writes result to the app's writer as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if dErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", dErr.Code, dErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// requireArg returns the first positional argument.
func requireArg(c *cli.Context, name string) (string, error) {
	if c.NArg() == 0 || strings.TrimSpace(c.Args().First()) == "" {
		return "", outputError(errors.NewInvalidRequest(name + " is required"))
	}
	return c.Args().First(), nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	return !isTerminal()
}

// readStdin reads at most limit bytes from stdin.
func readStdin(limit int64) (string, error) {
	data, err := io.ReadAll(io.LimitReader(os.Stdin, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("stdin exceeds %d bytes", limit)
	}
	return strings.TrimSpace(string(data)), nil
}

// parseTags splits a comma-separated string into a slice of tags.
func parseTags(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
