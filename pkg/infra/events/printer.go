package events

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/voidmod/pkg/domain/model"
)

// Printer renders events as one colored line each
type Printer struct {
	mu  sync.Mutex
	out io.Writer

	info    *color.Color
	success *color.Color
	warn    *color.Color
	fail    *color.Color
}

// NewPrinter creates a Printer writing to out. Colors follow color.NoColor.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:     out,
		info:    color.New(color.FgCyan),
		success: color.New(color.FgGreen, color.Bold),
		warn:    color.New(color.FgYellow),
		fail:    color.New(color.FgRed, color.Bold),
	}
}

var messages = map[string]string{
	model.CodeUnsupported: "archive format is not supported",
	model.CodeLayout:      "no mod.txt or main.xml found in archive",
	model.CodeNoDownload:  "mod has no download",
	model.CodeNetwork:     "network error",
	model.CodeFileSystem:  "file system error",
	model.CodeParse:       "unexpected catalog response",
	model.CodeCanceled:    "canceled",
}

// Emit implements interfaces.EventEmitter
func (p *Printer) Emit(ctx context.Context, event model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prefix := fmt.Sprintf("[mod %s]", event.ModID)

	var err error
	switch event.Type {
	case model.EventStarted:
		_, err = p.info.Fprintf(p.out, "%s downloading\n", prefix)
	case model.EventWriting:
		_, err = p.info.Fprintf(p.out, "%s writing archive\n", prefix)
	case model.EventFinishing:
		_, err = p.info.Fprintf(p.out, "%s extracting and installing\n", prefix)
	case model.EventError:
		c := p.warn
		if event.State == model.StateFailed {
			c = p.fail
		}
		_, err = c.Fprintf(p.out, "%s %s (%s)\n", prefix, messages[event.Code], event.Code)
	case model.EventDone:
		_, err = p.success.Fprintf(p.out, "%s done: %s\n", prefix, event.State)
	default:
		_, err = fmt.Fprintf(p.out, "%s %s\n", prefix, event.Type)
	}

	if err != nil {
		return goerr.Wrap(err, "failed to print event", goerr.V("type", event.Type))
	}
	return nil
}
