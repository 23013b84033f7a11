package analysis

import (
	"bytes"
	"context"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/aqlhr/policy-intel-cli/internal/model"
)

// SSE payload lines carry this prefix. Anything else on the channel
// (blank keep-alives, comments) is dropped without error.
const dataPrefix = "data: "

// ProgressFunc receives progress events as they arrive, one at a time, in
// arrival order. A slow callback delays consumption of the next chunk.
type ProgressFunc func(model.ProgressEvent)

// Decoder reassembles AnalysisEvents from an SSE byte stream. One decoder
// reads one stream in one pass; it keeps no event history and never
// re-delivers a progress event. Not safe for concurrent use.
type Decoder struct {
	buf        bytes.Buffer
	onProgress ProgressFunc
	result     *model.PolicyRiskResult
	log        *zap.Logger
}

// NewDecoder creates a decoder that forwards progress events to onProgress
// (which may be nil).
func NewDecoder(onProgress ProgressFunc) *Decoder {
	return &Decoder{
		onProgress: onProgress,
		log:        zap.L(),
	}
}

// Feed accepts the next raw chunk. Chunks may split lines, tokens, or JSON
// payloads at arbitrary byte boundaries; the decoder emits exactly the
// events a single-chunk read would have produced.
func (d *Decoder) Feed(chunk []byte) {
	d.buf.Write(chunk)
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			return
		}
		line := string(raw[:idx])
		d.buf.Next(idx + 1)
		d.handleLine(line)
	}
}

// Finish flushes any trailing unterminated line and returns the last
// result seen on the stream, or ErrNoResult if none arrived before EOF.
func (d *Decoder) Finish() (*model.PolicyRiskResult, error) {
	if d.buf.Len() > 0 {
		d.handleLine(d.buf.String())
		d.buf.Reset()
	}
	if d.result == nil {
		return nil, ErrNoResult
	}
	return d.result, nil
}

func (d *Decoder) handleLine(line string) {
	line = strings.TrimSuffix(line, "\r")
	if !strings.HasPrefix(line, dataPrefix) {
		return
	}
	payload := strings.TrimSpace(line[len(dataPrefix):])
	if payload == "" {
		// keep-alive
		return
	}

	ev, err := model.ParseAnalysisEvent([]byte(payload))
	if err != nil {
		// Line noise shares the channel with events; a bad payload is
		// logged and skipped, never fatal to the stream.
		d.log.Warn("analysis: skipping malformed stream payload", zap.Error(err))
		return
	}

	switch ev := ev.(type) {
	case model.ProgressEvent:
		if d.onProgress != nil {
			d.onProgress(ev)
		}
	case model.ResultEvent:
		data := ev.Data
		d.result = &data
	case nil:
		// unknown event type, ignored for forward compatibility
	}
}

// DecodeStream reads r to exhaustion through a fresh decoder, checking ctx
// between chunks so an abandoned caller stops consuming promptly.
func DecodeStream(ctx context.Context, r io.Reader, onProgress ProgressFunc) (*model.PolicyRiskResult, error) {
	d := NewDecoder(onProgress)
	chunk := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := r.Read(chunk)
		if n > 0 {
			d.Feed(chunk[:n])
		}
		if err == io.EOF {
			return d.Finish()
		}
		if err != nil {
			return nil, err
		}
	}
}
