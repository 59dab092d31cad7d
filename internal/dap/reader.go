// Package dap turns a Debug Adapter Protocol message stream into session
// events. Only what linelog needs is interpreted: session start and end,
// and output events that carry a source location.
package dap

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	godap "github.com/google/go-dap"
	"github.com/google/uuid"

	"github.com/fakeyudi/linelog/internal/document"
	"github.com/fakeyudi/linelog/internal/session"
)

// DefaultCategories are the output categories annotated when none are
// configured.
var DefaultCategories = []string{"stdout"}

// Framing is the wire framing of a stream.
type Framing int

const (
	// Detect picks the framing from the first byte of the stream.
	Detect Framing = iota
	// Headers is the standard Content-Length framing.
	Headers
	// Lines is one JSON message per line.
	Lines
)

// Options configures a Reader.
type Options struct {
	Categories []string
	Framing    Framing
	Logger     *slog.Logger
	// NewID generates session IDs; uuid.NewString when nil.
	NewID func() string
}

// ErrMalformed marks a message whose framing was intact but whose body is
// not a DAP message.
var ErrMalformed = errors.New("malformed dap message")

// Reader reads DAP messages and translates them into events.
type Reader struct {
	r          *bufio.Reader
	framing    Framing
	categories map[string]bool
	log        *slog.Logger
	newID      func() string

	inSession bool
}

// NewReader returns a Reader over r.
func NewReader(r io.Reader, opts Options) *Reader {
	cats := opts.Categories
	if len(cats) == 0 {
		cats = DefaultCategories
	}
	rd := &Reader{
		r:          bufio.NewReader(r),
		framing:    opts.Framing,
		categories: make(map[string]bool, len(cats)),
		log:        opts.Logger,
		newID:      opts.NewID,
	}
	for _, c := range cats {
		rd.categories[c] = true
	}
	if rd.log == nil {
		rd.log = slog.New(slog.DiscardHandler)
	}
	if rd.newID == nil {
		rd.newID = uuid.NewString
	}
	return rd
}

// Run reads the stream until EOF and posts the resulting events to out.
// It returns nil at EOF.
func (rd *Reader) Run(ctx context.Context, out chan<- session.Event) error {
	for {
		msg, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		var unknown *godap.DecodeProtocolMessageFieldError
		if errors.As(err, &unknown) {
			rd.log.Debug("skipping unsupported message", "seq", unknown.Seq, "type", unknown.SubType, "field", unknown.FieldName, "value", unknown.FieldValue)
			continue
		}
		if errors.Is(err, ErrMalformed) {
			rd.log.Warn("skipping malformed message", "err", err)
			continue
		}
		if err != nil {
			return err
		}
		for _, ev := range rd.Translate(msg) {
			select {
			case out <- ev:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

// Next reads one message. Unsupported messages come back as a
// *godap.DecodeProtocolMessageFieldError and undecodable ones wrap
// ErrMalformed; the stream can continue after either.
func (rd *Reader) Next() (godap.Message, error) {
	if rd.framing == Detect {
		f, err := rd.detect()
		if err != nil {
			return nil, err
		}
		rd.framing = f
	}
	if rd.framing == Headers {
		content, err := godap.ReadBaseMessage(rd.r)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, err
			}
			return nil, fmt.Errorf("read dap message: %w", err)
		}
		return decode(content)
	}
	for {
		line, err := rd.r.ReadBytes('\n')
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			if err != nil {
				return nil, err
			}
			continue
		}
		return decode(line)
	}
}

// decode decodes one complete message body.
func decode(data []byte) (godap.Message, error) {
	msg, err := godap.DecodeProtocolMessage(data)
	if err != nil && !isFieldError(err) {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return msg, err
}

// detect skips leading whitespace and picks Lines when the stream starts
// with a JSON object.
func (rd *Reader) detect() (Framing, error) {
	for {
		b, err := rd.r.Peek(1)
		if err != nil {
			return Detect, err
		}
		switch b[0] {
		case ' ', '\t', '\r', '\n':
			rd.r.Discard(1)
		case '{':
			return Lines, nil
		default:
			return Headers, nil
		}
	}
}

func isFieldError(err error) bool {
	var fe *godap.DecodeProtocolMessageFieldError
	return errors.As(err, &fe)
}

// Translate maps one message to the events it implies.
func (rd *Reader) Translate(msg godap.Message) []session.Event {
	rd.log.Debug("dap message", "seq", msg.GetSeq(), "type", fmt.Sprintf("%T", msg))

	switch m := msg.(type) {
	case *godap.InitializeRequest, *godap.InitializedEvent:
		if rd.inSession {
			return nil
		}
		rd.inSession = true
		return []session.Event{session.SessionStarted{ID: rd.newID()}}
	case *godap.TerminatedEvent, *godap.ExitedEvent:
		rd.inSession = false
	case *godap.OutputEvent:
		return rd.output(m)
	}
	return nil
}

func (rd *Reader) output(m *godap.OutputEvent) []session.Event {
	b := m.Body
	cat := b.Category
	if cat == "" {
		cat = "console"
	}
	if !rd.categories[cat] {
		return nil
	}
	if b.Source == nil || b.Source.Path == "" || b.Line <= 0 {
		return nil
	}
	doc := document.IDFromPath(b.Source.Path)
	line := b.Line - 1
	return []session.Event{
		session.Output{Doc: doc, Line: line, Text: b.Output},
		session.Highlight{Doc: doc, Line: line},
	}
}
