package workerproc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/sync/singleflight"

	"pantry-intake/internal/intake"
	"pantry-intake/internal/queue"
	"pantry-intake/internal/sheets"
)

// Processor generates the form for a queued row.
type Processor interface {
	Accepts(ev intake.Event) bool
	Generate(ctx context.Context, row int, force bool) (intake.Result, error)
}

// Coalesced shares one Generate call between concurrent deliveries of the same row,
// so duplicate messages never assign two form ids.
type Coalesced struct {
	Processor
	group singleflight.Group
}

// NewCoalesced wraps proc.
func NewCoalesced(proc Processor) *Coalesced {
	return &Coalesced{Processor: proc}
}

type coalescedResult struct {
	res   intake.Result
	force bool
}

// Generate runs proc.Generate once per in-flight row. A forced call that joined a
// plain one runs again after it, reusing the form id the plain call assigned.
func (c *Coalesced) Generate(ctx context.Context, row int, force bool) (intake.Result, error) {
	v, err, shared := c.group.Do(strconv.Itoa(row), func() (any, error) {
		res, err := c.Processor.Generate(ctx, row, force)
		return coalescedResult{res: res, force: force}, err
	})
	out, _ := v.(coalescedResult)
	if shared && force && !out.force {
		return c.Generate(ctx, row, force)
	}
	return out.res, err
}

// MessageMeta captures details useful for logging and diagnostics.
type MessageMeta struct {
	BodyLen int
	BodySHA string
}

// ComputeMeta returns the body length and SHA-256 hash.
func ComputeMeta(body string) MessageMeta {
	if body == "" {
		return MessageMeta{BodyLen: 0, BodySHA: ""}
	}
	sum := sha256.Sum256([]byte(body))
	return MessageMeta{BodyLen: len(body), BodySHA: hex.EncodeToString(sum[:])}
}

// ErrEmptyBody indicates an empty queue payload.
type ErrEmptyBody struct {
	Meta MessageMeta
}

func (e ErrEmptyBody) Error() string { return "empty message body" }

// ErrDecode indicates a JSON decode failure.
type ErrDecode struct {
	Meta MessageMeta
	Err  error
}

func (e ErrDecode) Error() string {
	if e.Err == nil {
		return "decode message"
	}
	return "decode message: " + e.Err.Error()
}

func (e ErrDecode) Unwrap() error { return e.Err }

// ErrInvalidRow indicates a message for the header row or no row at all.
type ErrInvalidRow struct {
	Meta      MessageMeta
	Row       int
	RequestID string
}

func (e ErrInvalidRow) Error() string { return "message has no data row" }

// ErrIgnored indicates a message for a sheet this worker does not serve.
type ErrIgnored struct {
	Sheet     string
	RequestID string
}

func (e ErrIgnored) Error() string { return "message for another sheet: " + e.Sheet }

// ErrProcess indicates processing failed after successful parsing.
type ErrProcess struct {
	Row       int
	RequestID string
	Err       error
}

func (e ErrProcess) Error() string {
	if e.Err == nil {
		return "process row"
	}
	return "process row: " + e.Err.Error()
}

func (e ErrProcess) Unwrap() error { return e.Err }

// Permanent reports whether retrying cannot succeed.
func (e ErrProcess) Permanent() bool {
	return errors.Is(e.Err, intake.ErrMissingFormIDColumn) || errors.Is(e.Err, sheets.ErrRowOutOfRange)
}

// Retryable reports whether a HandleMessage error may succeed on redelivery.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var procErr ErrProcess
	if errors.As(err, &procErr) {
		return !procErr.Permanent()
	}
	switch err.(type) {
	case ErrEmptyBody, ErrDecode, ErrInvalidRow, ErrIgnored:
		return false
	}
	return true
}

// ParseMessage validates and decodes the queue payload.
func ParseMessage(body string) (queue.Message, MessageMeta, error) {
	meta := ComputeMeta(body)
	if strings.TrimSpace(body) == "" {
		return queue.Message{}, meta, ErrEmptyBody{Meta: meta}
	}

	msg, err := queue.DecodeMessage([]byte(body))
	if err != nil {
		return queue.Message{}, meta, ErrDecode{Meta: meta, Err: err}
	}
	if msg.Row <= 1 {
		return msg, meta, ErrInvalidRow{Meta: meta, Row: msg.Row, RequestID: msg.RequestID}
	}
	return msg, meta, nil
}

type parsedMessageKey struct{}

// WithParsedMessage stores a decoded message in the context for reuse.
func WithParsedMessage(ctx context.Context, msg queue.Message) context.Context {
	return context.WithValue(ctx, parsedMessageKey{}, msg)
}

func parsedMessageFromContext(ctx context.Context) (queue.Message, bool) {
	if ctx == nil {
		return queue.Message{}, false
	}
	msg, ok := ctx.Value(parsedMessageKey{}).(queue.Message)
	return msg, ok
}

// HandleMessage parses, validates, and processes a message payload.
func HandleMessage(ctx context.Context, proc Processor, body string) (intake.Result, error) {
	if proc == nil {
		return intake.Result{}, errors.New("intake service not configured")
	}

	msg, ok := parsedMessageFromContext(ctx)
	if !ok {
		var err error
		msg, _, err = ParseMessage(body)
		if err != nil {
			return intake.Result{}, err
		}
	}
	if msg.Row <= 1 {
		return intake.Result{}, ErrInvalidRow{Meta: ComputeMeta(body), Row: msg.Row, RequestID: msg.RequestID}
	}
	if !proc.Accepts(intake.Event{Sheet: msg.Sheet, Row: msg.Row}) {
		return intake.Result{}, ErrIgnored{Sheet: msg.Sheet, RequestID: msg.RequestID}
	}

	res, err := proc.Generate(intake.WithRequestID(ctx, msg.RequestID), msg.Row, msg.Force)
	if err != nil {
		return res, ErrProcess{Row: msg.Row, RequestID: msg.RequestID, Err: err}
	}
	return res, nil
}
