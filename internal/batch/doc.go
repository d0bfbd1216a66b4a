// Package batch converts every TTML file of a source into SRT files of a
// sink.
//
// A Runner lists the source, converts each document independently with
// the ttml package and writes the result under the same base name with a
// .srt extension. A failing file is recorded in the Report and never stops
// the rest of the batch. Progress is reported through a *slog.Logger and
// optional hooks.
package batch
