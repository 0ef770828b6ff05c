package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/mraffaele/guida/internal/catalog"
	"github.com/mraffaele/guida/internal/config"
	"github.com/mraffaele/guida/internal/log"
)

// setup parses flags (every command shares -config) and wires the pipeline.
func setup(fs *flag.FlagSet, args []string) (*pipeline, error) {
	configPath := fs.String("config", "", "path to YAML config file")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return nil, err
	}
	log.Configure(log.Config{Level: cfg.LogLevel})
	return buildPipeline(cfg)
}

func cmdRefresh(args []string) int {
	fs := flag.NewFlagSet("refresh", flag.ContinueOnError)
	force := fs.Bool("force", false, "ignore cache and download fresh documents")
	p, err := setup(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if !p.manager.LoadAll(context.Background(), *force) {
		fmt.Fprintln(os.Stderr, "refresh failed: no source contributed")
		return 1
	}
	stats := p.manager.Stats()
	fmt.Printf("loaded %d channels, %d programmes\n", stats.Channels, stats.Programs)
	return 0
}

func cmdNow(args []string) int {
	fs := flag.NewFlagSet("now", flag.ContinueOnError)
	channel := fs.String("channel", "", "channel id (e.g. \"Rai 1.it\")")
	name := fs.String("name", "", "channel display name (normalized lookup)")
	p, err := setup(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *channel == "" && *name == "" {
		fmt.Fprintln(os.Stderr, "now: -channel or -name is required")
		return 2
	}

	if !p.manager.LoadAll(context.Background(), false) {
		fmt.Fprintln(os.Stderr, "no guide data available")
		return 1
	}

	id := *channel
	normName := ""
	if *name != "" {
		if resolved, ok := p.manager.ResolveName(*name); ok {
			id = resolved
		} else {
			normName = *name
		}
	}

	info, known := p.manager.CurrentProgram(id, normName)
	if !known {
		fmt.Fprintf(os.Stderr, "unknown channel %q\n", id)
		return 1
	}
	if info.Start.IsZero() {
		fmt.Println(info.Title)
		return 0
	}
	fmt.Printf("%s (%s - %s)\n", info.Title,
		info.Start.Local().Format("15:04"), info.Stop.Local().Format("15:04"))
	if info.Desc != "" {
		fmt.Println(info.Desc)
	}
	return 0
}

func cmdNext(args []string) int {
	fs := flag.NewFlagSet("next", flag.ContinueOnError)
	channel := fs.String("channel", "", "channel id")
	count := fs.Int("count", 5, "number of upcoming programmes")
	p, err := setup(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if *channel == "" {
		fmt.Fprintln(os.Stderr, "next: -channel is required")
		return 2
	}

	if !p.manager.LoadAll(context.Background(), false) {
		fmt.Fprintln(os.Stderr, "no guide data available")
		return 1
	}

	progs := p.manager.Upcoming(*channel, *count)
	if len(progs) == 0 {
		fmt.Println("no upcoming programmes")
		return 0
	}
	for _, prog := range progs {
		fmt.Printf("%s  %s\n", prog.Start.Local().Format("Mon 15:04"), prog.Title)
	}
	return 0
}

func cmdMerge(args []string) int {
	fs := flag.NewFlagSet("merge", flag.ContinueOnError)
	out := fs.String("out", "epg.xml", "output path for the merged XMLTV document")
	playlist := fs.String("playlist", "", "M3U playlist scoping the output to playable channels")
	p, err := setup(fs, args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	var allowed map[string]struct{}
	if *playlist != "" {
		allowed, err = catalog.AllowedIDs(*playlist)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
	}

	if !p.merger.Merge(context.Background(), *out, p.cfg.MergeSources, allowed) {
		fmt.Fprintln(os.Stderr, "merge failed: every source failed to load")
		return 1
	}
	fmt.Printf("merged guide written to %s\n", *out)
	return 0
}
