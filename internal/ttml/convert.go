package ttml

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antchfx/xmlquery"
	"golang.org/x/text/unicode/norm"

	"github.com/shinji-kodama/ttml2srt/internal/model"
	"github.com/shinji-kodama/ttml2srt/internal/srt"
)

// cueSelector matches every element whose local name is "p", whatever its
// prefix or namespace, in document order.
const cueSelector = "//*[local-name()='p']"

type options struct {
	policy           model.CuePolicy
	normalize        bool
	containerOffsets bool
}

// Option configures a conversion.
type Option func(*options)

// WithPolicy sets how cues without a usable begin/end are handled.
// The default is model.PolicySkip. Invalid policies are ignored.
func WithPolicy(p model.CuePolicy) Option {
	return func(o *options) {
		if p.IsValid() {
			o.policy = p
		}
	}
}

// WithUnicodeNormalization toggles NFC normalization of cue text.
// It is enabled by default.
func WithUnicodeNormalization(enabled bool) Option {
	return func(o *options) {
		o.normalize = enabled
	}
}

// WithContainerOffsets adds the begin attributes of enclosing elements
// (body, div) to cue times, as TTML time containers define. It is disabled
// by default: cue times are read from the <p> element alone.
func WithContainerOffsets(enabled bool) Option {
	return func(o *options) {
		o.containerOffsets = enabled
	}
}

func newOptions(opts []Option) options {
	o := options{policy: model.PolicySkip, normalize: true}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Result is the outcome of converting one document.
type Result struct {
	// SRT is the rendered document. Empty when no cue was emitted.
	SRT string

	// Blocks are the emitted SRT blocks, in order.
	Blocks []srt.Block

	// Cues are the emitted cues, in order. Cue.Index matches the SRT index.
	Cues []model.Cue

	// Skipped lists the <p> elements that were dropped, in source order.
	Skipped []*CueError

	// TimeBase is the timing context read from the document root.
	TimeBase TimeBase
}

// Convert turns a TTML document into SRT text.
//
// It fails with *ParseError when ttml is not well-formed XML. A document
// without any <p> element yields "" and no error.
func Convert(ttml string, opts ...Option) (string, error) {
	res, err := ConvertDocument(ttml, opts...)
	if err != nil {
		return "", err
	}
	return res.SRT, nil
}

// ConvertDocument is Convert returning the full Result, including the cues
// that were dropped. With model.PolicyFail the first *CueError is returned
// as the error.
func ConvertDocument(ttml string, opts ...Option) (*Result, error) {
	o := newOptions(opts)

	doc, err := xmlquery.Parse(strings.NewReader(strings.TrimPrefix(ttml, "\ufeff")))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	nodes, err := xmlquery.QueryAll(doc, cueSelector)
	if err != nil {
		return nil, fmt.Errorf("select cue elements: %w", err)
	}

	tb := timeBaseOf(doc)
	res := &Result{
		Blocks:   make([]srt.Block, 0, len(nodes)),
		Cues:     make([]model.Cue, 0, len(nodes)),
		TimeBase: tb,
	}

	for i, p := range nodes {
		cue, block, cerr := buildCue(p, i+1, tb, o)
		if cerr != nil {
			if o.policy == model.PolicyFail {
				return nil, cerr
			}
			res.Skipped = append(res.Skipped, cerr)
			continue
		}

		// Indices stay contiguous regardless of dropped elements.
		cue.Index = len(res.Blocks) + 1
		block.Index = cue.Index
		res.Cues = append(res.Cues, cue)
		res.Blocks = append(res.Blocks, block)
	}

	res.SRT = srt.Format(res.Blocks)
	return res, nil
}

// Transcode reads a TTML document from src and writes its SRT rendering to
// dst. The whole document is read into memory first.
func Transcode(dst io.Writer, src io.Reader, opts ...Option) (*Result, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("failed to read TTML: %w", err)
	}
	res, err := ConvertDocument(string(data), opts...)
	if err != nil {
		return nil, err
	}
	if _, err := srt.Write(dst, res.Blocks); err != nil {
		return nil, fmt.Errorf("failed to write SRT: %w", err)
	}
	return res, nil
}

// buildCue resolves the times and text of one <p> element.
// position is the element's 1-based rank among all <p> elements.
func buildCue(p *xmlquery.Node, position int, tb TimeBase, o options) (model.Cue, srt.Block, *CueError) {
	beginRaw, _ := attr(p, "begin")
	endRaw, _ := attr(p, "end")
	durRaw, _ := attr(p, "dur")

	cue := model.Cue{BeginRaw: beginRaw, EndRaw: endRaw, DurRaw: durRaw}
	var block srt.Block

	if strings.TrimSpace(beginRaw) == "" {
		return cue, block, &CueError{Position: position, Attr: "begin", Err: ErrMissingBegin}
	}

	var offset time.Duration
	if o.containerOffsets {
		offset = ancestorOffset(p, tb)
	}

	begin, beginErr := ParseTime(beginRaw, tb)
	if beginErr != nil {
		if o.policy != model.PolicyKeep {
			return cue, block, &CueError{Position: position, Attr: "begin", Value: beginRaw, Err: beginErr}
		}
		block.Begin = NormalizeTimestamp(beginRaw)
	} else {
		cue.Begin = begin + offset
		block.Begin = srt.FormatTimestamp(cue.Begin)
	}

	switch {
	case strings.TrimSpace(endRaw) != "":
		end, err := ParseTime(endRaw, tb)
		if err != nil {
			if o.policy != model.PolicyKeep {
				return cue, block, &CueError{Position: position, Attr: "end", Value: endRaw, Err: err}
			}
			block.End = NormalizeTimestamp(endRaw)
		} else {
			cue.End = end + offset
			block.End = srt.FormatTimestamp(cue.End)
		}

	case strings.TrimSpace(durRaw) != "":
		// end = begin + dur; both must be parseable.
		if beginErr != nil {
			return cue, block, &CueError{Position: position, Attr: "begin", Value: beginRaw,
				Err: fmt.Errorf("%w: %w", ErrUnresolvableEnd, beginErr)}
		}
		dur, err := ParseTime(durRaw, tb)
		if err != nil {
			return cue, block, &CueError{Position: position, Attr: "dur", Value: durRaw,
				Err: fmt.Errorf("%w: %w", ErrUnresolvableEnd, err)}
		}
		cue.End = cue.Begin + dur
		block.End = srt.FormatTimestamp(cue.End)

	default:
		return cue, block, &CueError{Position: position, Err: ErrUnresolvableEnd}
	}

	cue.Text = cueText(p)
	if o.normalize {
		cue.Text = norm.NFC.String(cue.Text)
	}
	block.Text = cue.Text
	return cue, block, nil
}

// ancestorOffset sums the begin attributes of the enclosing elements
// (body, div, ...). Cue times in a parallel time container are relative to
// the container's begin. Unparseable ancestor offsets are ignored.
func ancestorOffset(p *xmlquery.Node, tb TimeBase) time.Duration {
	var total time.Duration
	for n := p.Parent; n != nil; n = n.Parent {
		if n.Type != xmlquery.ElementNode {
			continue
		}
		v, ok := attr(n, "begin")
		if !ok {
			continue
		}
		if d, err := ParseTime(v, tb); err == nil {
			total += d
		}
	}
	return total
}
