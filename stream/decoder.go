package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
	"strings"

	"go.uber.org/zap"
)

const (
	// DataPrefix marks the payload field of a frame.
	DataPrefix = "data:"
	// DoneSentinel is the payload that terminates the stream.
	DoneSentinel = "[DONE]"

	defaultChunkSize = 4096
)

var delimiters = [][]byte{[]byte("\n\n"), []byte("\r\n\r\n")}

// Delta is one item of the decoded sequence: either a text fragment or the
// terminal Done marker.
type Delta struct {
	Text string `json:"text,omitempty"`
	Done bool   `json:"done,omitempty"`
}

type (
	completionChunk struct {
		Choices []choice `json:"choices"`
	}

	choice struct {
		Message *content `json:"message,omitempty"`
		Delta   *content `json:"delta,omitempty"`
	}

	content struct {
		Content string `json:"content"`
	}
)

func (c *completionChunk) text() string {
	if len(c.Choices) == 0 {
		return ""
	}
	first := c.Choices[0]
	if first.Message != nil && first.Message.Content != "" {
		return first.Message.Content
	}
	if first.Delta != nil {
		return first.Delta.Content
	}
	return ""
}

// Decoder reads frames from an event stream body. It makes a single pass and
// is not safe for concurrent use.
type Decoder struct {
	reader    io.Reader
	chunk     []byte
	buffer    []byte
	exhausted bool
	finished  bool
	err       error
	logger    *zap.Logger
}

type Option func(*Decoder)

// WithLogger sets logger
func WithLogger(logger *zap.Logger) Option {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithChunkSize sets the read size
func WithChunkSize(size int) Option {
	return func(d *Decoder) {
		if size > 0 {
			d.chunk = make([]byte, size)
		}
	}
}

// NewDecoder creates a decoder over r
func NewDecoder(r io.Reader, options ...Option) *Decoder {
	ret := &Decoder{reader: r, logger: zap.NewNop()}
	for _, opt := range options {
		opt(ret)
	}
	if ret.chunk == nil {
		ret.chunk = make([]byte, defaultChunkSize)
	}
	return ret
}

// Decode returns the delta sequence of r.
func Decode(r io.Reader, options ...Option) iter.Seq[Delta] {
	return NewDecoder(r, options...).All()
}

// Next returns the next delta; ok is false once the Done item was returned.
func (d *Decoder) Next() (Delta, bool) {
	if d.finished {
		return Delta{}, false
	}
	for {
		if frame, ok := d.nextFrame(); ok {
			delta, ok := d.parse(frame)
			if !ok {
				continue
			}
			if delta.Done {
				d.finish()
			}
			return delta, true
		}
		if d.exhausted {
			d.finish()
			return Delta{Done: true}, true
		}
		d.read()
	}
}

// All adapts the decoder to a range-over-func sequence.
func (d *Decoder) All() iter.Seq[Delta] {
	return func(yield func(Delta) bool) {
		for {
			delta, ok := d.Next()
			if !ok || !yield(delta) {
				return
			}
		}
	}
}

// Err returns the read error that ended the stream, if any; io.EOF is not an error.
func (d *Decoder) Err() error {
	return d.err
}

func (d *Decoder) read() {
	n, err := d.reader.Read(d.chunk)
	if n > 0 {
		d.buffer = append(d.buffer, d.chunk[:n]...)
	}
	if err != nil {
		if !errors.Is(err, io.EOF) {
			d.err = err
			d.logger.Debug("stream read failed", zap.Error(err))
		}
		d.exhausted = true
	}
}

// finish discards whatever is still buffered.
func (d *Decoder) finish() {
	d.finished = true
	if len(d.buffer) > 0 {
		d.logger.Debug("discarding trailing stream bytes", zap.Int("bytes", len(d.buffer)))
	}
	d.buffer = nil
}

func (d *Decoder) nextFrame() (string, bool) {
	index, size := -1, 0
	for _, delimiter := range delimiters {
		if i := bytes.Index(d.buffer, delimiter); i != -1 && (index == -1 || i < index) {
			index, size = i, len(delimiter)
		}
	}
	if index == -1 {
		return "", false
	}
	frame := string(d.buffer[:index])
	d.buffer = d.buffer[index+size:]
	if len(d.buffer) == 0 {
		d.buffer = nil
	}
	return strings.ToValidUTF8(frame, "\uFFFD"), true
}

func (d *Decoder) parse(frame string) (Delta, bool) {
	var data []string
	for _, line := range strings.Split(frame, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ":") || !strings.HasPrefix(line, DataPrefix) {
			continue
		}
		data = append(data, strings.TrimSpace(line[len(DataPrefix):]))
	}
	if len(data) == 0 {
		return Delta{}, false
	}
	payload := strings.Join(data, "\n")
	if payload == DoneSentinel {
		return Delta{Done: true}, true
	}
	var chunk completionChunk
	if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
		d.logger.Debug("skipping malformed frame", zap.Error(err))
		return Delta{}, false
	}
	text := chunk.text()
	if text == "" {
		return Delta{}, false
	}
	return Delta{Text: text}, true
}
