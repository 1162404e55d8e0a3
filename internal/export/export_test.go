package export

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sampleURLs = []string{
	"https://www.instagram.com/reel/A1/",
	"https://www.instagram.com/reel/B2/",
	"https://www.instagram.com/reel/C3/",
}

func TestFormatNumbered(t *testing.T) {
	assert.Equal(t,
		"1. https://www.instagram.com/reel/A1/\n2. https://www.instagram.com/reel/B2/\n3. https://www.instagram.com/reel/C3/",
		FormatNumbered(sampleURLs))
	assert.Equal(t, "", FormatNumbered(nil))
}

func TestFormatStructured(t *testing.T) {
	generated := time.Date(2025, 3, 9, 14, 5, 6, 0, time.UTC)
	content := FormatStructured("someone", sampleURLs[:2], generated)

	expected := "# Instagram Reels URLs for @someone\n" +
		"# Format: number. URL\n" +
		"# Generated: 2025-03-09 14:05:06\n" +
		"# Total URLs: 2\n" +
		"\n" +
		"1. https://www.instagram.com/reel/A1/\n" +
		"2. https://www.instagram.com/reel/B2/\n"
	assert.Equal(t, expected, content)
	assert.Equal(t, "someone_structured_urls_20250309_140506.txt", StructuredFilename("someone", generated))
}

func TestParseNumbered(t *testing.T) {
	input := strings.Join([]string{
		"# Instagram Reels URLs for @someone",
		"# Format: number. URL",
		"",
		"1. https://www.instagram.com/reel/A1/",
		"2.  https://www.instagram.com/reel/B2/",
		"random text",
	}, "\n")

	entries, err := ParseNumbered(strings.NewReader(input), "/reel/")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Index: 1, URL: "https://www.instagram.com/reel/A1/"},
		{Index: 2, URL: "https://www.instagram.com/reel/B2/"},
	}, entries)
}

func TestParseNumbered_BareURLs(t *testing.T) {
	input := "https://www.instagram.com/reel/A1/\n" +
		"https://www.instagram.com/p/POST/\n" +
		"# comment\n" +
		"https://www.instagram.com/reel/B2/?igsh=1\n"

	entries, err := ParseNumbered(strings.NewReader(input), "/reel/")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Index: 1, URL: "https://www.instagram.com/reel/A1/"},
		{Index: 2, URL: "https://www.instagram.com/reel/B2/?igsh=1"},
	}, entries)
}

func TestParseNumbered_MixedIndexes(t *testing.T) {
	input := "1. https://www.instagram.com/reel/A1/\n" +
		"3. https://www.instagram.com/reel/C3/\n" +
		"https://www.instagram.com/reel/D4/\n"

	entries, err := ParseNumbered(strings.NewReader(input), "/reel/")
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Index: 1, URL: "https://www.instagram.com/reel/A1/"},
		{Index: 3, URL: "https://www.instagram.com/reel/C3/"},
		{Index: 4, URL: "https://www.instagram.com/reel/D4/"},
	}, entries)

	selected := SelectEntries(entries, []int{3, 4})
	assert.Len(t, selected, 2)
}

func TestParseNumbered_RoundTrip(t *testing.T) {
	content := FormatStructured("someone", sampleURLs, time.Now())
	entries, err := ParseNumbered(strings.NewReader(content), "/reel/")
	require.NoError(t, err)
	assert.Equal(t, Entries(sampleURLs), entries)
}

func TestParseSelection(t *testing.T) {
	tests := []struct {
		name     string
		expr     string
		max      int
		expected []int
		wantErr  bool
	}{
		{"单个编号", "3", 5, []int{3}, false},
		{"逗号列表", "1,3,5", 5, []int{1, 3, 5}, false},
		{"范围混合", "2-5,8,10-12", 12, []int{2, 3, 4, 5, 8, 10, 11, 12}, false},
		{"去重排序", "5,1-3,2", 5, []int{1, 2, 3, 5}, false},
		{"带空格", " 1 , 2 - 3 ", 5, []int{1, 2, 3}, false},
		{"全部", "all", 3, []int{1, 2, 3}, false},
		{"空表达式", "", 2, []int{1, 2}, false},
		{"超出范围", "1-6", 5, nil, true},
		{"零", "0", 5, nil, true},
		{"反向范围", "5-2", 5, nil, true},
		{"非数字", "a,b", 5, nil, true},
		{"只有逗号", ",,", 5, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelection(tt.expr, tt.max)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSelectEntries(t *testing.T) {
	entries := Entries(sampleURLs)
	selected := SelectEntries(entries, []int{3, 1, 9})
	assert.Equal(t, []Entry{entries[2], entries[0]}, selected)
	assert.Equal(t, 3, MaxIndex(entries))
}

func TestReadStructuredFile(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "urls.txt")
	require.NoError(t, os.WriteFile(path, []byte(FormatStructured("u", sampleURLs, time.Now())), 0644))

	entries, err := ReadStructuredFile(path, "/reel/")
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, []byte("# nothing\n"), 0644))
	_, err = ReadStructuredFile(empty, "/reel/")
	assert.Error(t, err)

	_, err = ReadStructuredFile(filepath.Join(dir, "missing.txt"), "/reel/")
	assert.Error(t, err)
}

func TestClipboardSink(t *testing.T) {
	payload := Payload{URLs: sampleURLs}

	t.Run("剪贴板不受支持", func(t *testing.T) {
		sink := &ClipboardSink{unsupported: true, write: func(string) error { return nil }}
		_, err := sink.Write(context.Background(), payload)
		assert.ErrorIs(t, err, ErrSinkUnavailable)
	})

	t.Run("写入失败", func(t *testing.T) {
		sink := &ClipboardSink{write: func(string) error { return errors.New("no xclip") }}
		_, err := sink.Write(context.Background(), payload)
		assert.ErrorIs(t, err, ErrSinkUnavailable)
	})

	t.Run("写入成功", func(t *testing.T) {
		var got string
		sink := &ClipboardSink{write: func(s string) error { got = s; return nil }}
		location, err := sink.Write(context.Background(), payload)
		require.NoError(t, err)
		assert.Equal(t, "clipboard", location)
		assert.Equal(t, FormatNumbered(sampleURLs), got)
	})
}

func TestFileSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	generated := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

	path, err := NewFileSink(dir, "").Write(context.Background(), Payload{
		Username:    "someone",
		URLs:        sampleURLs,
		GeneratedAt: generated,
	})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "someone_structured_urls_20250102_030405.txt"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, FormatStructured("someone", sampleURLs, generated), string(data))
}

func TestDeliver_FallsBackOnUnavailable(t *testing.T) {
	var manual bytes.Buffer
	clip := &ClipboardSink{unsupported: true}
	file := NewFileSink(t.TempDir(), "out.txt")

	report := Deliver(context.Background(), Payload{Username: "u", URLs: sampleURLs},
		[]Sink{clip, file}, NewConsoleSink(&manual, "请手动复制:"))

	assert.True(t, report.FallbackUsed)
	assert.Contains(t, report.Failures, "clipboard")
	assert.Contains(t, report.Locations, "file")
	assert.Contains(t, report.Locations, "console")
	assert.Equal(t, "请手动复制:\n"+FormatNumbered(sampleURLs)+"\n", manual.String())
}

func TestDeliver_NoFallbackWhenAllSucceed(t *testing.T) {
	var out, manual bytes.Buffer
	report := Deliver(context.Background(), Payload{URLs: sampleURLs},
		[]Sink{NewConsoleSink(&out, "")}, NewConsoleSink(&manual, "manual"))

	assert.False(t, report.FallbackUsed)
	assert.Empty(t, report.Failures)
	assert.Empty(t, manual.String())
	assert.Equal(t, FormatNumbered(sampleURLs)+"\n", out.String())
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Entries(sampleURLs[:2])))

	assert.Equal(t,
		"index,url\n1,https://www.instagram.com/reel/A1/\n2,https://www.instagram.com/reel/B2/\n",
		buf.String())

	entries, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, Entries(sampleURLs[:2]), entries)
}
