// Package ttml converts TTML (Timed Text Markup Language) documents into
// SRT subtitles.
//
// The conversion is a pure, synchronous transformation of one document:
//
//	out, err := ttml.Convert(doc)
//
// Every <p> element of the document, wherever it sits in the tree, is one
// cue. Cue times come from the begin, end and dur attributes and are parsed
// as TTML clock-time (00:00:01.500, 00:00:01:12) or offset-time (1.5s,
// 1500ms, 36f, 900t). Cues whose end cannot be resolved are handled by a
// model.CuePolicy.
//
// Parsing is done with github.com/antchfx/xmlquery. Only well-formedness is
// checked; a malformed document fails with *ParseError.
package ttml
