package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/at-ishikawa/dictcache/internal/dictionary"
	"github.com/fatih/color"
)

// DictionaryPrinter writes dictionaries, labels and reload results for a terminal.
type DictionaryPrinter struct {
	stdoutWriter io.Writer
	bold         *color.Color
	italic       *color.Color
	green        *color.Color
	red          *color.Color
}

// NewDictionaryPrinter creates a DictionaryPrinter writing to w, or stdout when w is nil.
func NewDictionaryPrinter(w io.Writer) *DictionaryPrinter {
	if w == nil {
		w = os.Stdout
	}
	return &DictionaryPrinter{
		stdoutWriter: w,
		bold:         color.New(color.Bold),
		italic:       color.New(color.Italic),
		green:        color.New(color.FgGreen),
		red:          color.New(color.FgRed),
	}
}

// Entries prints the entries of a dictionary ordered for display.
func (p *DictionaryPrinter) Entries(code string, entries []dictionary.Entry) {
	record := dictionary.Record{DictionaryCode: code, Entries: entries}
	_, _ = p.bold.Fprintf(p.stdoutWriter, "%s", code)
	_, _ = fmt.Fprintf(p.stdoutWriter, " (%d entries)\n", len(entries))
	if len(entries) == 0 {
		_, _ = p.italic.Fprintln(p.stdoutWriter, "  no entries")
		return
	}
	for _, entry := range record.Sorted() {
		_, _ = fmt.Fprintf(p.stdoutWriter, "  %s\t%s", entry.Value, entry.Label)
		if entry.Status != "" && entry.Status != "0" {
			_, _ = p.italic.Fprintf(p.stdoutWriter, "\t(status %s)", entry.Status)
		}
		_, _ = fmt.Fprintln(p.stdoutWriter)
	}
}

// Label prints a resolved label.
func (p *DictionaryPrinter) Label(code string, value string, label string) {
	_, _ = fmt.Fprintf(p.stdoutWriter, "%s/%s: ", code, value)
	if label == value {
		_, _ = p.italic.Fprintln(p.stdoutWriter, label)
		return
	}
	_, _ = p.bold.Fprintln(p.stdoutWriter, label)
}

// Batch prints which of the requested codes are cached.
func (p *DictionaryPrinter) Batch(store *dictionary.Store, codes []string) {
	for _, code := range codes {
		record, ok := store.Get(code)
		if !ok {
			_, _ = p.red.Fprintf(p.stdoutWriter, "%s: not available\n", code)
			continue
		}
		_, _ = p.green.Fprintf(p.stdoutWriter, "%s: %d entries\n", code, len(record.Entries))
	}
}

// Synced prints the result of an incremental sync.
func (p *DictionaryPrinter) Synced(count int, checkpoint time.Time, ok bool) {
	_, _ = fmt.Fprintf(p.stdoutWriter, "%d dictionaries updated\n", count)
	if ok {
		_, _ = fmt.Fprintf(p.stdoutWriter, "checkpoint: %s\n", checkpoint.Format(time.RFC3339))
	}
}

// Metrics prints the metrics of a full reload.
func (p *DictionaryPrinter) Metrics(metrics dictionary.LoadMetrics) {
	if !metrics.Done() {
		_, _ = p.italic.Fprintln(p.stdoutWriter, "reload in progress")
		return
	}
	_, _ = fmt.Fprintf(p.stdoutWriter, "loaded %d dictionaries in %s\n", metrics.SuccessCount, metrics.Duration)
	if metrics.ErrorCount == 0 {
		return
	}
	_, _ = p.red.Fprintf(p.stdoutWriter, "%d errors\n", metrics.ErrorCount)
	for _, loadErr := range metrics.Errors {
		dictType := loadErr.DictType
		if dictType == "" {
			dictType = "(catalog)"
		}
		_, _ = p.red.Fprintf(p.stdoutWriter, "  %s: %s\n", dictType, loadErr.Error)
	}
}
