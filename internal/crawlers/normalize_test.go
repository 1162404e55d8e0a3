package crawlers

import (
	"testing"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"去掉查询参数", "https://x/item/ABC?src=1", "https://x/item/ABC/"},
		{"已规范化", "https://x/item/ABC/", "https://x/item/ABC/"},
		{"补全斜杠", "https://x/item/DEF", "https://x/item/DEF/"},
		{"斜杠后的查询参数", "https://www.instagram.com/reel/C1/?igsh=abc", "https://www.instagram.com/reel/C1/"},
		{"多个问号从第一个截断", "https://x/item/A?b=1?c=2", "https://x/item/A/"},
		{"片段保留", "https://x/item/A#top", "https://x/item/A#top/"},
		{"空字符串", "", "/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.input)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, got, Normalize(got), "Normalize应当幂等")
		})
	}
}

func TestStripFragment(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://x/item/A#top", "https://x/item/A"},
		{"https://x/item/A/?s=1#c", "https://x/item/A/?s=1"},
		{"https://x/item/A/", "https://x/item/A/"},
		{"#only", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, stripFragment(tt.input), tt.input)
	}
}

func TestCompleteURL(t *testing.T) {
	origin := "https://www.instagram.com"
	marker := "/reel/"

	tests := []struct {
		name     string
		match    string
		expected string
	}{
		{"完整URL", "https://www.instagram.com/reel/A1/", "https://www.instagram.com/reel/A1/"},
		{"带引号的相对路径", `"/reel/A1/`, "https://www.instagram.com/reel/A1/"},
		{"协议相对", "//www.instagram.com/reel/A1", "https://www.instagram.com/reel/A1"},
		{"无协议主机", "instagram.com/reel/A1", "https://www.instagram.com/reel/A1"},
		{"无协议www主机", "www.instagram.com/reel/A1", "https://www.instagram.com/reel/A1"},
		{"只有ID", "A1", "https://www.instagram.com/reel/A1"},
		{"空白", "  ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompleteURL(tt.match, origin, marker))
		})
	}
}

func TestHasMarker(t *testing.T) {
	assert.True(t, HasMarker("https://www.instagram.com/reel/A/", "/reel/"))
	assert.False(t, HasMarker("https://www.instagram.com/p/A/", "/reel/"))
	assert.False(t, HasMarker("https://www.instagram.com/reel/A/", ""))
}

func TestAccumulator_FirstSeenWins(t *testing.T) {
	acc := NewAccumulator()

	assert.True(t, acc.Add(models.Candidate{URL: "https://x/item/A?s=1", PriorityTier: 2, DOMPosition: 9}))
	assert.False(t, acc.Add(models.Candidate{URL: "https://x/item/A/", PriorityTier: 0, DOMPosition: 0}))

	sorted := acc.Sorted()
	assert.Len(t, sorted, 1)
	assert.Equal(t, "https://x/item/A?s=1", sorted[0].URL)
	assert.Equal(t, 2, sorted[0].PriorityTier)
	assert.True(t, acc.Contains("https://x/item/A/"))
	assert.False(t, acc.Contains("https://x/item/A?s=1"))
}

func TestAccumulator_MergeAndSort(t *testing.T) {
	acc := NewAccumulator()

	added := acc.Merge([]models.Candidate{
		{URL: "https://x/item/C", SourceChannel: models.ChannelDirectLink, PriorityTier: 2, DOMPosition: 1},
		{URL: "https://x/item/B", SourceChannel: models.ChannelMainContent, PriorityTier: 1, DOMPosition: 5},
		{URL: "https://x/item/A", SourceChannel: models.ChannelMainContent, PriorityTier: 1, DOMPosition: 5},
		{URL: "https://x/item/D", SourceChannel: models.ChannelViewport, PriorityTier: 0, DOMPosition: 8},
		{URL: "https://x/item/D/", SourceChannel: models.ChannelDirectLink, PriorityTier: 2, DOMPosition: 0},
	})
	assert.Equal(t, 4, added)
	assert.Equal(t, 4, acc.Len())

	keys := make([]string, 0)
	for _, c := range acc.Sorted() {
		keys = append(keys, c.URL)
	}
	// B与A键相同,保持插入顺序
	assert.Equal(t, []string{"https://x/item/D", "https://x/item/B", "https://x/item/A", "https://x/item/C"}, keys)

	assert.Equal(t, map[string]int{
		"viewport":     1,
		"main_content": 2,
		"direct_link":  1,
	}, acc.TierCounts())
}

func TestCanonicalKey(t *testing.T) {
	origin := "https://www.instagram.com"
	assert.Equal(t, "https://www.instagram.com/reel/A1/", CanonicalKey("/reel/A1?x=1", origin, "/reel/"))
	assert.Equal(t, "https://www.instagram.com/reel/A1/", CanonicalKey("https://www.instagram.com/reel/A1", origin, "/reel/"))
	assert.Equal(t,
		CanonicalKey("instagram.com/reel/A1/", origin, "/reel/"),
		CanonicalKey(CanonicalKey("instagram.com/reel/A1/", origin, "/reel/"), origin, "/reel/"),
	)
}
