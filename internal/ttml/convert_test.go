package ttml

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/ttml2srt/internal/model"
)

func TestConvert_SingleCue(t *testing.T) {
	got, err := Convert(`<p begin="00:00:01.000" end="00:00:02.000">Hi</p>`)
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nHi\n\n", got)
}

func TestConvert_Documents(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "broadcast TTML with spans and line breaks",
			text: `<?xml version="1.0" encoding="utf-8"?>
			<tt xmlns="http://www.w3.org/ns/ttml"
				xmlns:ttm="http://www.w3.org/ns/ttml#metadata"
				xmlns:tts="http://www.w3.org/ns/ttml#styling" xml:lang="fr">
				<head>
					<metadata>
						<ttm:title></ttm:title>
					</metadata>
					<styling>
						<style xml:id="captionStyle" tts:textAlign="center" />
					</styling>
				</head>
				<body>
					<div region="region2">
						<p begin="00:04:31.766" end="00:04:34.100" region="region2" xml:id="caption75" ttm:role="caption">
							<span tts:textAlign="center" tts:color="white">Tertio, ne paniquez pas.</span>
							<br></br>
							<span tts:textAlign="center" tts:color="white">Surtout Graham.</span>
						</p>
						<p begin="00:04:34.300" end="00:04:35.600" region="region2" xml:id="caption76" ttm:role="caption">
							<span tts:textAlign="center" tts:color="white">Je panique pas !</span>
						</p>
						<p begin="00:04:36.000" end="00:04:38.533" region="region2" xml:id="caption77" ttm:role="caption">
							<span tts:textAlign="center" tts:color="white">Si. Et j&apos;avais dit</span>
							<br/>
							<span tts:textAlign="center" tts:color="white">de ne pas répondre.</span>
						</p>
					</div>
				</body>
			</tt>`,
			want: `1
00:04:31,766 --> 00:04:34,100
Tertio, ne paniquez pas.
Surtout Graham.

2
00:04:34,300 --> 00:04:35,600
Je panique pas !

3
00:04:36,000 --> 00:04:38,533
Si. Et j'avais dit
de ne pas répondre.

`,
		},
		{
			name: "prefixed cue elements",
			text: `<tt:tt xmlns:tt="http://www.w3.org/ns/ttml"><tt:body><tt:div>
				<tt:p begin="00:00:00.000" end="00:00:01.266">-Précédemment dans &quot;Ninjago&quot;.</tt:p>
			</tt:div></tt:body></tt:tt>`,
			want: "1\n00:00:00,000 --> 00:00:01,266\n-Précédemment dans \"Ninjago\".\n\n",
		},
		{
			name: "duration fallback",
			text: `<tt><body><p begin="00:00:01.000" dur="00:00:02.500">Later</p></body></tt>`,
			want: "1\n00:00:01,000 --> 00:00:03,500\nLater\n\n",
		},
		{
			name: "offset-time expressions",
			text: `<tt><body><p begin="1s" dur="2500ms">A</p><p begin="4.25s" end="5s">B</p></body></tt>`,
			want: "1\n00:00:01,000 --> 00:00:03,500\nA\n\n2\n00:00:04,250 --> 00:00:05,000\nB\n\n",
		},
		{
			name: "frame-based clock-time",
			text: `<tt xmlns:ttp="http://www.w3.org/ns/ttml#parameter" ttp:frameRate="25"><body>
				<p begin="00:00:01:00" end="00:00:01:12">A</p>
			</body></tt>`,
			want: "1\n00:00:01,000 --> 00:00:01,480\nA\n\n",
		},
		{
			name: "container begin offsets ignored by default",
			text: `<tt><body><div begin="00:00:10.000"><p begin="00:00:01.000" end="00:00:02.000">A</p></div></body></tt>`,
			want: "1\n00:00:01,000 --> 00:00:02,000\nA\n\n",
		},
		{
			name: "empty cue text is still emitted",
			text: `<tt><body><p begin="0s" end="1s"></p></body></tt>`,
			want: "1\n00:00:00,000 --> 00:00:01,000\n\n",
		},
		{
			name: "no cue elements",
			text: `<tt xmlns="http://www.w3.org/ns/ttml"><head/><body><div/></body></tt>`,
			want: "",
		},
		{
			name: "empty input",
			text: "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Convert(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestConvert_ContainerOffsets(t *testing.T) {
	doc := `<tt><body begin="1s"><div begin="00:00:10.000">` +
		`<p begin="1s" end="2s">A</p>` +
		`<p begin="3s" dur="1s">B</p>` +
		`</div></body></tt>`

	got, err := Convert(doc, WithContainerOffsets(true))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:12,000 --> 00:00:13,000\nA\n\n2\n00:00:14,000 --> 00:00:15,000\nB\n\n", got)

	got, err = Convert(doc, WithContainerOffsets(false))
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\nA\n\n2\n00:00:03,000 --> 00:00:04,000\nB\n\n", got)
}

func TestConvert_CueText(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"self-closing br", `Hello<br/>World`, "Hello\nWorld"},
		{"br with space", `Hello<br />World`, "Hello\nWorld"},
		{"upper-case br element", `Hello<BR/>World`, "Hello\nWorld"},
		{"escaped br markup", `Hello&lt;br&gt;World`, "Hello\nWorld"},
		{"escaped br markup mixed case", `Hello&lt;Br /&gt;World`, "Hello\nWorld"},
		{"surrounding whitespace trimmed", "  \n\t Hi \n ", "Hi"},
		{"whitespace runs collapse", "a \t  b", "a b"},
		{"source newlines kept", "Line one\nLine two", "Line one\nLine two"},
		{"indented source lines trimmed", "\n    Hello\n    World\n  ", "Hello\nWorld"},
		{"newline between spans", "<span>Hello</span>\n<span>World</span>", "Hello\nWorld"},
		{"spans join", `<span>Hello</span> <span>World</span>`, "Hello World"},
		{"nested spans", `<span>Hel<span>lo</span></span>`, "Hello"},
		{"blank lines dropped", `a<br/><br/>b`, "a\nb"},
		{"metadata skipped", `<metadata>note</metadata>Shown`, "Shown"},
		{"cdata kept", `<![CDATA[1 < 2]]>`, "1 < 2"},
		{"entities decoded", `Tom &amp; Jerry`, "Tom & Jerry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := ConvertDocument(`<p begin="0s" end="1s">` + tt.body + `</p>`)
			require.NoError(t, err)
			require.Len(t, res.Cues, 1)
			assert.Equal(t, tt.want, res.Cues[0].Text)
		})
	}
}

func TestConvert_SpacePreserve(t *testing.T) {
	res, err := ConvertDocument(`<p xml:space="preserve" begin="0s" end="1s">first line
second  line</p>`)
	require.NoError(t, err)
	require.Len(t, res.Cues, 1)
	assert.Equal(t, "first line\nsecond  line", res.Cues[0].Text)
}

func TestConvert_UnicodeNormalization(t *testing.T) {
	doc := "<p begin=\"0s\" end=\"1s\">Cafe\u0301</p>"

	res, err := ConvertDocument(doc)
	require.NoError(t, err)
	assert.Equal(t, "Caf\u00e9", res.Cues[0].Text)

	res, err = ConvertDocument(doc, WithUnicodeNormalization(false))
	require.NoError(t, err)
	assert.Equal(t, "Cafe\u0301", res.Cues[0].Text)
}

func TestConvert_ByteOrderMark(t *testing.T) {
	got, err := Convert("\ufeff<p begin=\"0s\" end=\"1s\">Hi</p>")
	require.NoError(t, err)
	assert.Equal(t, "1\n00:00:00,000 --> 00:00:01,000\nHi\n\n", got)
}

func TestConvert_MalformedXML(t *testing.T) {
	inputs := map[string]string{
		"missing closing tag": `<tt><body><p begin="00:00:01.000" end="00:00:02.000">Hi</body></tt>`,
		"unterminated root":   `<tt><body>`,
		"broken attribute":    `<p begin=00:00:01.000>Hi</p>`,
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			got, err := Convert(input)
			require.Error(t, err)
			assert.Empty(t, got)

			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected *ParseError, got %T", err)
			assert.Equal(t, "Invalid TTML file.", err.Error())
			assert.NotNil(t, perr.Unwrap(), "decoder detail should be kept")
		})
	}
}

// cueDoc builds a document with n resolvable cues, one second apart.
func cueDoc(n int) string {
	var sb strings.Builder
	sb.WriteString(`<tt xmlns="http://www.w3.org/ns/ttml"><body><div>`)
	for i := 0; i < n; i++ {
		fmt.Fprintf(&sb, `<p begin="00:00:%02d.250" end="00:00:%02d.750">cue %d</p>`, i, i, i)
	}
	sb.WriteString(`</div></body></tt>`)
	return sb.String()
}

var indexLine = regexp.MustCompile(`(?m)^(\d+)\n\d{2}:\d{2}:\d{2},\d{3} --> `)

func TestConvert_CountAndContiguity(t *testing.T) {
	for _, n := range []int{1, 2, 7, 42} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			got, err := Convert(cueDoc(n))
			require.NoError(t, err)

			matches := indexLine.FindAllStringSubmatch(got, -1)
			require.Len(t, matches, n)
			for i, m := range matches {
				assert.Equal(t, strconv.Itoa(i+1), m[1])
			}
			assert.Equal(t, n, strings.Count(got, "\n\n"))
		})
	}
}

func TestConvert_SeparatorConversion(t *testing.T) {
	for _, ts := range []string{"00:00:00.000", "00:00:01.5", "00:12:34.567", "01:59:59.999", "10:00:00.100"} {
		t.Run(ts, func(t *testing.T) {
			res, err := ConvertDocument(`<p begin="` + ts + `" end="` + ts + `">x</p>`)
			require.NoError(t, err)
			require.Len(t, res.Blocks, 1)

			for _, out := range []string{res.Blocks[0].Begin, res.Blocks[0].End} {
				assert.NotContains(t, out, ".")
				assert.Equal(t, strings.Index(ts, "."), strings.Index(out, ","))
			}
		})
	}
}

func TestConvert_UnresolvableCues(t *testing.T) {
	doc := `<tt><body>
		<p begin="00:00:01.000" end="00:00:02.000">one</p>
		<p begin="00:00:03.000">no end</p>
		<p end="00:00:05.000">no begin</p>
		<p begin="00:00:06.000" dur="later">bad dur</p>
		<p begin="00:00:07.000" end="00:00:08.000">two</p>
	</body></tt>`

	t.Run("skip drops cues and keeps indices contiguous", func(t *testing.T) {
		res, err := ConvertDocument(doc)
		require.NoError(t, err)

		assert.Equal(t, "1\n00:00:01,000 --> 00:00:02,000\none\n\n"+
			"2\n00:00:07,000 --> 00:00:08,000\ntwo\n\n", res.SRT)
		assert.NotContains(t, res.SRT, "undefined")

		require.Len(t, res.Skipped, 3)
		assert.Equal(t, 2, res.Skipped[0].Position)
		assert.ErrorIs(t, res.Skipped[0], ErrUnresolvableEnd)
		assert.Equal(t, 3, res.Skipped[1].Position)
		assert.ErrorIs(t, res.Skipped[1], ErrMissingBegin)
		assert.Equal(t, 4, res.Skipped[2].Position)
		assert.ErrorIs(t, res.Skipped[2], ErrUnresolvableEnd)
		assert.ErrorIs(t, res.Skipped[2], ErrBadTime)
		assert.Equal(t, "dur", res.Skipped[2].Attr)
	})

	t.Run("fail stops at the first cue error", func(t *testing.T) {
		res, err := ConvertDocument(doc, WithPolicy(model.PolicyFail))
		require.Error(t, err)
		assert.Nil(t, res)

		var cerr *CueError
		require.True(t, errors.As(err, &cerr))
		assert.Equal(t, 2, cerr.Position)
		assert.ErrorIs(t, err, ErrUnresolvableEnd)
	})
}

func TestConvert_KeepPolicy(t *testing.T) {
	doc := `<tt><body>
		<p begin="00:00:75.000" end="00:00:76.000">legacy</p>
		<p begin="00:00:77.000" dur="1s">cannot add</p>
	</body></tt>`

	t.Run("keep passes unknown syntaxes through", func(t *testing.T) {
		res, err := ConvertDocument(doc, WithPolicy(model.PolicyKeep))
		require.NoError(t, err)
		assert.Equal(t, "1\n00:00:75,000 --> 00:00:76,000\nlegacy\n\n", res.SRT)
		require.Len(t, res.Skipped, 1)
		assert.ErrorIs(t, res.Skipped[0], ErrUnresolvableEnd)
	})

	t.Run("skip rejects unknown syntaxes", func(t *testing.T) {
		res, err := ConvertDocument(doc)
		require.NoError(t, err)
		assert.Empty(t, res.SRT)
		require.Len(t, res.Skipped, 2)
		assert.ErrorIs(t, res.Skipped[0], ErrBadTime)
		assert.Equal(t, "begin", res.Skipped[0].Attr)
	})
}

func TestConvert_LegacyTimeForms(t *testing.T) {
	want := "1\n00:00:01,000 --> 00:00:02,000\nHi\n\n"
	tests := []struct {
		name       string
		begin, end string
	}{
		{"trailing Z", "00:00:01.000Z", "00:00:02.000Z"},
		{"leading T", "T00:00:01.000", "T00:00:02.000"},
		{"T and Z", "T00:00:01.000Z", "T00:00:02.000Z"},
		{"comma separator", "00:00:01,000", "00:00:02,000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `<tt><body><div><p begin="` + tt.begin + `" end="` + tt.end + `">Hi</p></div></body></tt>`
			res, err := ConvertDocument(doc)
			require.NoError(t, err)
			assert.Equal(t, want, res.SRT)
			assert.Empty(t, res.Skipped)
		})
	}
}

func TestConvert_ResultCues(t *testing.T) {
	res, err := ConvertDocument(`<tt><body>
		<p begin="00:00:01.000" dur="00:00:02.500">Hello<br/>World</p>
	</body></tt>`)
	require.NoError(t, err)
	require.Len(t, res.Cues, 1)

	cue := res.Cues[0]
	assert.Equal(t, 1, cue.Index)
	assert.Equal(t, "00:00:01.000", cue.BeginRaw)
	assert.Empty(t, cue.EndRaw)
	assert.Equal(t, "00:00:02.500", cue.DurRaw)
	assert.Equal(t, "Hello\nWorld", cue.Text)
	assert.Equal(t, []string{"Hello", "World"}, cue.Lines())
	assert.Equal(t, "00:00:03,500", res.Blocks[0].End)
}

func TestTranscode(t *testing.T) {
	src := cueDoc(3)
	want, err := Convert(src)
	require.NoError(t, err)

	var dst bytes.Buffer
	res, err := Transcode(&dst, strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, want, dst.String())
	assert.Len(t, res.Cues, 3)
}

func TestTranscode_ParseError(t *testing.T) {
	var dst bytes.Buffer
	_, err := Transcode(&dst, strings.NewReader("<tt>"))

	var perr *ParseError
	assert.True(t, errors.As(err, &perr))
	assert.Zero(t, dst.Len())
}

func TestCueError_Error(t *testing.T) {
	e := &CueError{Position: 4, Attr: "dur", Value: "later", Err: ErrBadTime}
	assert.Equal(t, `cue 4: dur="later": unsupported time expression`, e.Error())

	e = &CueError{Position: 2, Err: ErrUnresolvableEnd}
	assert.Equal(t, "cue 2: no resolvable end time", e.Error())
}
