package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/nocdn/volumes/internal/app"
)

func newRootCmd() *cobra.Command {
	var opts app.Options

	root := &cobra.Command{
		Use:   "volumes",
		Short: "Terminal bookmark manager",
		Long: `volumes keeps a bookmark collection in a terminal UI.

Type to filter, #tag to filter by tag, and paste a URL to save it:
  https://go.dev #go #docs // read later

Run "volumes serve" to host the collection the client talks to.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "config file path (default ~/.config/volumes/config.toml)")
	root.PersistentFlags().StringVar(&opts.PrefsPath, "prefs", "", "prefs file path (default ~/.config/volumes/prefs.toml)")
	root.Flags().DurationVar(&opts.PollInterval, "poll", 0, "refresh interval, e.g. 5s (default client.poll_interval)")

	root.AddCommand(
		newServeCmd(&opts),
		newMCPCmd(&opts),
		newAddCmd(&opts),
		newListCmd(&opts),
		newLogsCmd(&opts),
	)
	return root
}

func newServeCmd(opts *app.Options) *cobra.Command {
	var serve app.ServeOptions
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the bookmark HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			serve.ConfigPath = opts.ConfigPath
			return app.Serve(cmd.Context(), serve)
		},
	}
	cmd.Flags().StringVar(&serve.Listen, "listen", "", "listen address (default server.listen)")
	cmd.Flags().StringVar(&serve.Storage, "storage", "", "storage backend: sqlite, redis or memory (default server.storage)")
	return cmd
}

func newMCPCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Expose the collection as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ServeMCP(cmd.Context(), *opts, version)
		},
	}
}

func newAddCmd(opts *app.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <url> [#tag...] [// comment]",
		Short: "Save a bookmark",
		Long: `Save a bookmark. The title is fetched from the page.

Examples:
  volumes add go.dev/blog #go
  volumes add https://example.com #later // from the newsletter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Add(cmd.Context(), *opts, strings.Join(args, " "), cmd.OutOrStdout())
		},
	}
}

func newListCmd(opts *app.Options) *cobra.Command {
	var list app.ListOptions
	cmd := &cobra.Command{
		Use:   "list [query]",
		Short: "Print the newest bookmarks, optionally filtered",
		Long: `Print the newest bookmarks. Words filter by title, URL, tags and
comment; #words require a tag.

Examples:
  volumes list
  volumes list rust #book
  volumes list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			list.Query = strings.Join(args, " ")
			return app.List(cmd.Context(), *opts, list, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&list.JSON, "json", false, "print JSON instead of lines")
	return cmd
}

func newLogsCmd(opts *app.Options) *cobra.Command {
	var logs app.LogsOptions
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the newest entries of the client log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Logs(*opts, logs, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVarP(&logs.Lines, "lines", "n", 50, "number of entries to print")
	cmd.Flags().StringVar(&logs.Level, "level", "", "minimum level: debug, info, warn or error")
	return cmd
}
