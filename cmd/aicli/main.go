package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/dgallion1/aicli/internal/config"
	"github.com/dgallion1/aicli/internal/convert"
	"github.com/dgallion1/aicli/internal/executor"
	"github.com/dgallion1/aicli/internal/parser"
	"github.com/dgallion1/aicli/internal/quiz"
	"github.com/dgallion1/aicli/internal/rename"
	"github.com/dgallion1/aicli/internal/summarize"
	"github.com/dgallion1/aicli/internal/watcher"
	"github.com/dgallion1/aicli/internal/youtube"
)

const usage = `aicli: summarize documents, generate quizzes, convert images, tidy filenames.

Usage:
  aicli summarize <file> [--short|--medium|--long]
  aicli quiz <file> [--count 5|10|20] [--seed N]
  aicli convert <file_or_dir> [--to webp]
  aicli rename <dir> [--dry-run]
  aicli yt <url> [--short|--medium|--long] [--lang en,de]
  aicli watch <dir> [--short|--medium|--long] [--out dir]
`

type app struct {
	cfg     config.Config
	log     *slog.Logger
	stdout  io.Writer
	stderr  io.Writer
	loader  parser.Loader
	youtube youtube.Fetcher
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Results go to stdout; logs stay on stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		cfg:     cfg,
		log:     log,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		loader:  parser.Loader{PDFFallbackPdftotext: cfg.PDFFallbackPdftotext, Exec: executor.New()},
		youtube: youtube.NewClient(cfg.YouTubeBaseURL, cfg.HTTPTimeout, log),
	}
	code := a.run(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}

func (a *app) run(ctx context.Context, args []string) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(a.stderr, usage)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "summarize":
		return a.summarize(ctx, rest)
	case "quiz":
		return a.quiz(ctx, rest)
	case "convert":
		return a.convert(ctx, rest)
	case "rename":
		return a.rename(rest)
	case "yt":
		return a.yt(ctx, rest)
	case "watch":
		return a.watch(ctx, rest)
	default:
		fmt.Fprintf(a.stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}
}

func (a *app) summarize(ctx context.Context, args []string) int {
	fs := a.flagSet("summarize")
	lf := addLengthFlags(fs)
	path, ok := a.parseOne(fs, args, "file")
	if !ok {
		return 2
	}
	length, err := lf.resolve(a.cfg.SummaryLength)
	if err != nil {
		return a.fail("summarizing file", err)
	}

	text, err := a.loader.LoadFile(ctx, path)
	if err != nil {
		return a.fail("summarizing file", err)
	}
	summary, err := summarize.WithLength(text, length)
	if err != nil {
		return a.fail("summarizing file", err)
	}
	fmt.Fprintln(a.stdout, summary)
	return 0
}

func (a *app) quiz(ctx context.Context, args []string) int {
	fs := a.flagSet("quiz")
	count := fs.Int("count", a.cfg.QuizCount, "number of questions (5, 10 or 20)")
	seed := fs.Uint64("seed", 0, "seed for reproducible quizzes (0 = random)")
	path, ok := a.parseOne(fs, args, "file")
	if !ok {
		return 2
	}
	if _, err := quiz.ParseCount(*count); err != nil {
		return a.fail("generating quiz", err)
	}

	text, err := a.loader.LoadFile(ctx, path)
	if err != nil {
		return a.fail("generating quiz", err)
	}
	var rng quiz.Random
	if *seed != 0 {
		rng = quiz.NewSeeded(*seed)
	}
	mcqs := quiz.Generate(text, *count, rng)
	if len(mcqs) == 0 {
		fmt.Fprintln(a.stderr, "Could not generate any questions from the input (text may be too short).")
		return 1
	}
	fmt.Fprint(a.stdout, quiz.Format(mcqs))
	return 0
}

func (a *app) convert(ctx context.Context, args []string) int {
	fs := a.flagSet("convert")
	to := fs.String("to", "webp", "target format (only webp)")
	path, ok := a.parseOne(fs, args, "file_or_dir")
	if !ok {
		return 2
	}

	c := convert.New(a.cfg.ConvertConcurrency, a.log)
	conversions, err := c.Convert(ctx, path, *to)
	if err != nil {
		return a.fail("converting images", err)
	}
	if len(conversions) == 0 {
		fmt.Fprintln(a.stderr, "No PNG files were converted (nothing to do).")
		return 1
	}
	for _, cv := range conversions {
		fmt.Fprintf(a.stdout, "Converted %s -> %s\n", cv.Src, cv.Dst)
	}
	return 0
}

func (a *app) rename(args []string) int {
	fs := a.flagSet("rename")
	dryRun := fs.Bool("dry-run", false, "print planned renames without applying them")
	dir, ok := a.parseOne(fs, args, "dir")
	if !ok {
		return 2
	}

	changes, err := rename.BulkRename(dir, *dryRun)
	if err != nil {
		return a.fail("renaming files", err)
	}
	if len(changes) == 0 {
		fmt.Fprintln(a.stdout, "No files were renamed (directory may be empty or already clean).")
		return 0
	}
	for _, c := range changes {
		fmt.Fprintf(a.stdout, "%s -> %s\n", c.Old, c.New)
	}
	return 0
}

func (a *app) yt(ctx context.Context, args []string) int {
	fs := a.flagSet("yt")
	lf := addLengthFlags(fs)
	lang := fs.String("lang", strings.Join(a.cfg.TranscriptLanguages, ","), "preferred transcript languages, comma separated")
	url, ok := a.parseOne(fs, args, "url")
	if !ok {
		return 2
	}
	length, err := lf.resolve(a.cfg.SummaryLength)
	if err != nil {
		return a.fail("summarizing YouTube video", err)
	}

	summary, err := youtube.SummarizeURL(ctx, a.youtube, url, length, splitList(*lang))
	if err != nil {
		return a.fail("summarizing YouTube video", err)
	}
	fmt.Fprintln(a.stdout, summary)
	return 0
}

func (a *app) watch(ctx context.Context, args []string) int {
	fs := a.flagSet("watch")
	lf := addLengthFlags(fs)
	out := fs.String("out", a.cfg.WatchOutputDir, "directory for .summary.txt files (default: next to the source)")
	dir, ok := a.parseOne(fs, args, "dir")
	if !ok {
		return 2
	}
	length, err := lf.resolve(a.cfg.SummaryLength)
	if err != nil {
		return a.fail("watching directory", err)
	}

	w, err := watcher.New(watcher.Options{
		Dir:    dir,
		OutDir: *out,
		Length: length,
		Loader: a.loader,
		Log:    a.log,
		OnResult: func(r watcher.Result) {
			if r.Err == nil {
				fmt.Fprintf(a.stdout, "Summarized %s -> %s\n", r.Source, r.Output)
			}
		},
	})
	if err != nil {
		return a.fail("watching directory", err)
	}
	if err := w.Run(ctx); err != nil {
		return a.fail("watching directory", err)
	}
	return 0
}

func (a *app) fail(verb string, err error) int {
	fmt.Fprintf(a.stderr, "Error %s: %v\n", verb, err)
	return 1
}

func (a *app) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet("aicli "+name, flag.ContinueOnError)
	fs.SetOutput(a.stderr)
	return fs
}

// parseOne parses flags that may appear before or after a single positional
// argument and returns that argument.
func (a *app) parseOne(fs *flag.FlagSet, args []string, name string) (string, bool) {
	positional, err := parseInterspersed(fs, args)
	if err != nil {
		return "", false
	}
	if len(positional) != 1 {
		fmt.Fprintf(a.stderr, "%s: expected exactly one <%s> argument, got %d\n", fs.Name(), name, len(positional))
		return "", false
	}
	return positional[0], true
}

func parseInterspersed(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() == 0 {
			return positional, nil
		}
		positional = append(positional, fs.Arg(0))
		args = fs.Args()[1:]
	}
}

type lengthFlags struct {
	short, medium, long *bool
}

func addLengthFlags(fs *flag.FlagSet) lengthFlags {
	return lengthFlags{
		short:  fs.Bool("short", false, "short summary (3 sentences)"),
		medium: fs.Bool("medium", false, "medium summary (7 sentences, default)"),
		long:   fs.Bool("long", false, "long summary (12 sentences)"),
	}
}

func (l lengthFlags) resolve(fallback string) (summarize.Length, error) {
	var picked []summarize.Length
	if *l.short {
		picked = append(picked, summarize.Short)
	}
	if *l.medium {
		picked = append(picked, summarize.Medium)
	}
	if *l.long {
		picked = append(picked, summarize.Long)
	}
	switch len(picked) {
	case 0:
		return summarize.ParseLength(fallback)
	case 1:
		return picked[0], nil
	default:
		return "", errors.New("only one of --short, --medium, --long may be set")
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
