package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dgallion1/aicli/internal/parser"
	"github.com/dgallion1/aicli/internal/summarize"
	"github.com/fsnotify/fsnotify"
)

// SummarySuffix marks files written by the watcher. They are never re-summarized.
const SummarySuffix = ".summary.txt"

// Result reports one processed document.
type Result struct {
	Source string
	Output string
	Err    error
}

type Options struct {
	Dir         string
	OutDir      string // empty writes next to the source
	Length      summarize.Length
	Loader      parser.Loader
	Debounce    time.Duration
	Concurrency int
	Log         *slog.Logger
	OnResult    func(Result)
}

// Watcher summarizes documents as they appear in a directory.
type Watcher struct {
	opts Options
	fs   *fsnotify.Watcher
	log  *slog.Logger
	sem  chan struct{}
	wg   sync.WaitGroup

	mu     sync.Mutex
	timers map[string]*time.Timer
}

func New(opts Options) (*Watcher, error) {
	if opts.Length.Sentences() == 0 {
		return nil, fmt.Errorf("%w: %q", summarize.ErrUnsupportedLength, string(opts.Length))
	}
	info, err := os.Stat(opts.Dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", opts.Dir)
	}
	if opts.OutDir != "" {
		if err := os.MkdirAll(opts.OutDir, 0o755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	if opts.Debounce <= 0 {
		opts.Debounce = 500 * time.Millisecond
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 2
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(opts.Dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", opts.Dir, err)
	}

	return &Watcher{
		opts:   opts,
		fs:     fw,
		log:    opts.Log.With("dir", opts.Dir),
		sem:    make(chan struct{}, opts.Concurrency),
		timers: make(map[string]*time.Timer),
	}, nil
}

// Run processes events until ctx is canceled, then waits for in-flight work.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fs.Close()
	w.log.Info("watching for documents", "length", string(w.opts.Length))

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.wg.Wait()
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				w.wg.Wait()
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !Eligible(ev.Name) {
				continue
			}
			w.schedule(ctx, ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				w.wg.Wait()
				return nil
			}
			w.log.Error("watch error", "error", err)
		}
	}
}

// Eligible reports whether a path is a document the watcher should summarize.
func Eligible(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasSuffix(strings.ToLower(name), SummarySuffix) {
		return false
	}
	return parser.IsSupportedExtension(name)
}

// OutputPath returns where the summary for src is written. The source
// extension is kept so notes.md and notes.txt get distinct summaries.
func OutputPath(src, outDir string) string {
	name := filepath.Base(src) + SummarySuffix
	if outDir == "" {
		outDir = filepath.Dir(src)
	}
	return filepath.Join(outDir, name)
}

// schedule debounces bursts of writes to the same file into one run.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[path]; ok && t.Stop() {
		t.Reset(w.opts.Debounce)
		return
	}

	w.wg.Add(1)
	var t *time.Timer
	t = time.AfterFunc(w.opts.Debounce, func() {
		defer w.wg.Done()
		w.mu.Lock()
		if w.timers[path] == t {
			delete(w.timers, path)
		}
		w.mu.Unlock()

		select {
		case w.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		defer func() { <-w.sem }()
		w.process(ctx, path)
	})
	w.timers[path] = t
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.timers {
		if t.Stop() {
			w.wg.Done()
		}
		delete(w.timers, path)
	}
}

func (w *Watcher) process(ctx context.Context, path string) {
	log := w.log.With("file", filepath.Base(path))
	res := Result{Source: path, Output: OutputPath(path, w.opts.OutDir)}

	start := time.Now()
	res.Err = w.summarizeTo(ctx, path, res.Output)
	if res.Err != nil {
		if errors.Is(res.Err, os.ErrNotExist) {
			log.Debug("file vanished before processing")
		} else {
			log.Error("summarize failed", "error", res.Err)
		}
	} else {
		log.Info("wrote summary", "output", res.Output, "duration_ms", time.Since(start).Milliseconds())
	}
	if w.opts.OnResult != nil {
		w.opts.OnResult(res)
	}
}

func (w *Watcher) summarizeTo(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return err
	}
	text, err := w.opts.Loader.LoadFile(ctx, src)
	if err != nil {
		return err
	}
	summary, err := summarize.WithLength(text, w.opts.Length)
	if err != nil {
		return err
	}
	tmp := dst + ".tmp"
	if err := os.WriteFile(tmp, []byte(summary+"\n"), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return os.Rename(tmp, dst)
}
