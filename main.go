package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/bszwed/linkmark/internal/addcmd"
	"github.com/bszwed/linkmark/internal/cachecmd"
	"github.com/bszwed/linkmark/internal/dupescmd"
	"github.com/bszwed/linkmark/internal/enrichcmd"
	"github.com/bszwed/linkmark/internal/fetchcmd"
	"github.com/bszwed/linkmark/internal/listcmd"
	"github.com/bszwed/linkmark/internal/statscmd"
	"github.com/bszwed/linkmark/internal/summarycmd"
	"github.com/bszwed/linkmark/internal/synccmd"
)

func main() {
	app := &cli.App{
		Name:  "linkmark",
		Usage: "fetch, enrich, and tidy bookmark-store links",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Value:   "config.yaml",
				Usage:   "path to the config file",
				EnvVars: []string{"LINKMARK_CONFIG"},
			},
			&cli.BoolFlag{
				Name:  "quiet",
				Usage: "only log errors",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "fetch",
				Usage:     "fetch content for ad-hoc URLs and print the records",
				ArgsUsage: "[url...]",
				Action:    fetchcmd.FetchAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "urls", Usage: "comma-separated URLs"},
					&cli.StringFlag{Name: "format", Value: "yaml", Usage: "output format: yaml, json, or raw"},
					&cli.IntFlag{Name: "workers", Usage: "concurrent fetches (default from config)"},
					&cli.BoolFlag{Name: "force", Usage: "bypass the article cache"},
				},
			},
			{
				Name:   "enrich",
				Usage:  "improve titles, descriptions, and tags of stored links",
				Action: enrichcmd.EnrichAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Usage: "only links in this collection"},
					&cli.StringFlag{Name: "url", Usage: "only the link with this exact URL"},
					&cli.IntFlag{Name: "limit", Usage: "stop after N links"},
					&cli.IntFlag{Name: "workers", Usage: "concurrent links (default from config)"},
					&cli.BoolFlag{Name: "dry-run", Usage: "show proposed changes without writing"},
					&cli.BoolFlag{Name: "force", Usage: "re-enrich links that look complete"},
				},
			},
			{
				Name:   "sync",
				Usage:  "apply curated newsletter metadata to matching links",
				Action: synccmd.SyncAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "index", Usage: "JSONL index file (default from config)"},
					&cli.StringFlag{Name: "collection", Usage: "only links in this collection"},
					&cli.IntFlag{Name: "limit", Usage: "stop after N updates"},
					&cli.BoolFlag{Name: "dry-run", Usage: "show proposed changes without writing"},
					&cli.BoolFlag{Name: "show-unmatched", Usage: "list links absent from the index"},
				},
			},
			{
				Name:      "summary",
				Usage:     "print a markdown summary of one URL",
				ArgsUsage: "<url>",
				Action:    summarycmd.SummaryAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "prompt", Usage: "override the summary prompt file"},
					&cli.BoolFlag{Name: "force", Usage: "ignore the cached summary"},
				},
			},
			{
				Name:      "add",
				Usage:     "create bookmarks for pasted URLs",
				ArgsUsage: "<url>...",
				Action:    addcmd.AddAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Usage: "target collection name"},
					&cli.BoolFlag{Name: "unread", Usage: "also tag the new link as unread"},
					&cli.BoolFlag{Name: "dry-run", Usage: "preview without creating"},
				},
			},
			{
				Name:   "dupes",
				Usage:  "find duplicate links, optionally deleting the extras",
				Action: dupescmd.DupesAction,
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "remove", Usage: "delete all but the oldest link in each group"},
					&cli.BoolFlag{Name: "fuzzy", Usage: "also remove near-duplicate groups"},
					&cli.BoolFlag{Name: "dry-run", Usage: "show deletions without performing them"},
				},
			},
			{
				Name:   "list",
				Usage:  "show collections, their links, or failing domains",
				Action: listcmd.ListAction,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "collection", Usage: "list links in this collection"},
					&cli.BoolFlag{Name: "failing", Usage: "show domains by fetch failures"},
					&cli.IntFlag{Name: "limit", Usage: "max rows for --failing"},
				},
			},
			{
				Name:  "stats",
				Usage: "query the local telemetry database",
				Subcommands: []*cli.Command{
					{
						Name:   "runs",
						Usage:  "list recent command runs",
						Action: statscmd.RunsAction,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "max rows"},
						},
					},
					{
						Name:      "url",
						Usage:     "show the fetch history for one URL",
						ArgsUsage: "<url>",
						Action:    statscmd.URLAction,
					},
					{
						Name:   "outcomes",
						Usage:  "aggregate fetch outcomes",
						Action: statscmd.OutcomesAction,
					},
					{
						Name:   "scans",
						Usage:  "list duplicate-scan history",
						Action: statscmd.ScansAction,
						Flags: []cli.Flag{
							&cli.IntFlag{Name: "limit", Value: 20, Usage: "max rows"},
						},
					},
				},
			},
			{
				Name:  "cache",
				Usage: "inspect and prune the content caches",
				Subcommands: []*cli.Command{
					{
						Name:   "stats",
						Usage:  "show entry counts per category",
						Action: cachecmd.StatsAction,
					},
					{
						Name:   "clear",
						Usage:  "drop one category, or everything",
						Action: cachecmd.ClearAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "category", Usage: "articles, videos, llm, summary, or collections"},
						},
					},
					{
						Name:      "remove",
						Usage:     "evict a single URL from one category",
						ArgsUsage: "<url>",
						Action:    cachecmd.RemoveAction,
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "category", Required: true, Usage: "articles, videos, llm, summary, or collections"},
						},
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
