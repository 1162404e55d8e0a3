package crawlers

import (
	"context"
	"testing"

	"github.com/RecoveryAshes/ReelScroll/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func candidateKeys(candidates []models.Candidate) []string {
	keys := make([]string, 0, len(candidates))
	for _, c := range candidates {
		keys = append(keys, Normalize(c.URL))
	}
	return keys
}

func TestExtractor_ScriptPayloadCompletion(t *testing.T) {
	payload := `{"a":"https:\/\/www.instagram.com\/reel\/FULL1\/?x=1","b":"\/reel\/REL1\/",` +
		`"c":"see instagram.com/reel/HOST1 ok","shortcode":"SC1"}`
	page := newFakePage(snapshot{scripts: []string{payload}})

	extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
	candidates := extractor.Scan(context.Background(), page, NewAccumulator())

	assert.Equal(t, []string{
		"https://www.instagram.com/reel/FULL1/",
		"https://www.instagram.com/reel/REL1/",
		"https://www.instagram.com/reel/HOST1/",
		"https://www.instagram.com/reel/SC1/",
	}, candidateKeys(candidates))

	for _, c := range candidates {
		assert.Equal(t, models.ChannelScriptPayload, c.SourceChannel)
		assert.Equal(t, models.TierScriptPayload, c.PriorityTier)
	}
}

func TestExtractor_LowestTierWins(t *testing.T) {
	page := newFakePage(snapshot{
		viewport: Viewport{Width: 800, Height: 600},
		elements: []Element{
			{Href: "https://www.instagram.com/reel/AAA/?utm=1", Position: 3, InLandmark: true,
				Rect: &Rect{Top: 0, Left: 0, Bottom: 100, Right: 100}},
			{Href: "https://www.instagram.com/reel/BBB/", Position: 4, InLandmark: true},
		},
		scripts: []string{`"/reel/AAA/" "/reel/BBB/" "/reel/CCC/"`},
	})

	extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
	candidates := extractor.Scan(context.Background(), page, NewAccumulator())

	require.Len(t, candidates, 3)
	byKey := make(map[string]models.Candidate)
	for _, c := range candidates {
		byKey[Normalize(c.URL)] = c
	}

	assert.Equal(t, models.TierViewport, byKey["https://www.instagram.com/reel/AAA/"].PriorityTier)
	assert.Equal(t, models.TierMainContent, byKey["https://www.instagram.com/reel/BBB/"].PriorityTier)
	assert.Equal(t, models.TierScriptPayload, byKey["https://www.instagram.com/reel/CCC/"].PriorityTier)
}

func TestExtractor_SkipsSeen(t *testing.T) {
	page := newFakePage(snapshot{elements: links(
		"https://www.instagram.com/reel/OLD/",
		"https://www.instagram.com/reel/NEW/",
	)})

	seen := NewAccumulator()
	seen.Add(models.Candidate{URL: "https://www.instagram.com/reel/OLD?igsh=1"})

	extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
	candidates := extractor.Scan(context.Background(), page, seen)

	assert.Equal(t, []string{"https://www.instagram.com/reel/NEW/"}, candidateKeys(candidates))
}

func TestExtractor_IgnoresLinksWithoutMarker(t *testing.T) {
	page := newFakePage(snapshot{elements: links(
		"https://www.instagram.com/p/POST1/",
		"https://www.instagram.com/reel/R1/",
	)})

	extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
	candidates := extractor.Scan(context.Background(), page, NewAccumulator())

	assert.Equal(t, []string{"https://www.instagram.com/reel/R1/"}, candidateKeys(candidates))
}

func TestExtractor_ScriptChannelGatedByTarget(t *testing.T) {
	page := newFakePage(snapshot{
		elements: links("https://www.instagram.com/reel/R1/"),
		scripts:  []string{`"/reel/R2/"`},
	})

	extractor := NewExtractor(ExtractorOptions{TargetCount: 1})
	candidates := extractor.Scan(context.Background(), page, NewAccumulator())

	assert.Len(t, candidates, 1)
	assert.Equal(t, 0, page.scriptCalls, "达到目标数量后不应查询脚本")
}

func TestExtractor_ChannelFailuresSwallowed(t *testing.T) {
	t.Run("元素查询失败", func(t *testing.T) {
		page := newFakePage(snapshot{scripts: []string{`"/reel/S1/"`}})
		page.elementsErr = errFakeQuery

		extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
		candidates := extractor.Scan(context.Background(), page, NewAccumulator())

		assert.Equal(t, []string{"https://www.instagram.com/reel/S1/"}, candidateKeys(candidates))
	})

	t.Run("脚本查询失败", func(t *testing.T) {
		page := newFakePage(snapshot{elements: links("https://www.instagram.com/reel/D1/")})
		page.scriptsErr = errFakeQuery

		extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
		candidates := extractor.Scan(context.Background(), page, NewAccumulator())

		assert.Equal(t, []string{"https://www.instagram.com/reel/D1/"}, candidateKeys(candidates))
	})

	t.Run("脚本查询panic", func(t *testing.T) {
		page := newFakePage(snapshot{elements: links("https://www.instagram.com/reel/D1/")})
		page.panicScripts = true

		extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
		var candidates []models.Candidate
		require.NotPanics(t, func() {
			candidates = extractor.Scan(context.Background(), page, NewAccumulator())
		})

		assert.Equal(t, []string{"https://www.instagram.com/reel/D1/"}, candidateKeys(candidates))
	})
}

func TestExtractor_ParallelMatchesSequential(t *testing.T) {
	snap := snapshot{
		viewport: Viewport{Width: 800, Height: 600},
		elements: []Element{
			{Href: "https://www.instagram.com/reel/V1/", Position: 2, Rect: &Rect{Top: 1, Left: 1, Bottom: 50, Right: 50}},
			{Href: "https://www.instagram.com/reel/M1/", Position: 7, InLandmark: true},
			{Href: "https://www.instagram.com/reel/L1/", Position: 9},
		},
		scripts: []string{`"/reel/S1/" "shortcode":"S2"`},
	}

	sequential := NewExtractor(ExtractorOptions{TargetCount: 100}).
		Scan(context.Background(), newFakePage(snap), NewAccumulator())
	parallel := NewExtractor(ExtractorOptions{TargetCount: 100, ParallelScan: true}).
		Scan(context.Background(), newFakePage(snap), NewAccumulator())

	assert.Equal(t, sequential, parallel)
	assert.Len(t, parallel, 5)
}

func TestExtractor_SharesElementQueryWithinPass(t *testing.T) {
	page := newFakePage(snapshot{elements: links("https://www.instagram.com/reel/A/")})

	extractor := NewExtractor(ExtractorOptions{TargetCount: 100})
	extractor.Scan(context.Background(), page, NewAccumulator())

	assert.Equal(t, 1, page.elementsCalls)
}

func TestExtractor_Selector(t *testing.T) {
	assert.Equal(t, `a[href*="/reel/"]`, NewExtractor(ExtractorOptions{}).Selector())
	assert.Equal(t, `a[href*="/item/"]`, NewExtractor(ExtractorOptions{ItemMarker: "/item/"}).Selector())
}
