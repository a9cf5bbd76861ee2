package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/langtable/cleaner"
	"github.com/use-agent/langtable/models"
)

func loadedPage(t *testing.T, url, html string) *fakePage {
	t.Helper()
	page := newFakePage(map[string]*fakeSite{url: {html: html}})
	require.NoError(t, page.Navigate(context.Background(), url))
	return page
}

func testExtractor() *Extractor {
	return NewExtractor(cleaner.DetailSelectors{
		Title: cleaner.DefaultTitleSelector,
		Rows:  cleaner.DefaultRowSelector,
	}, time.Second)
}

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		html    string
		want    models.TranslationRecord
		outcome models.ExtractOutcome
	}{
		{
			name: "complete table",
			url:  itemURL,
			html: itemPage("Jueyun Chili", "Jueyun Chili", "絶雲の唐辛子", "Ớt Tuyệt Vân"),
			want: models.TranslationRecord{
				Item:       "Jueyun Chili",
				English:    "Jueyun Chili",
				Japanese:   "絶雲の唐辛子",
				Vietnamese: "Ớt Tuyệt Vân",
			},
			outcome: models.ExtractComplete,
		},
		{
			name:    "title but no table",
			url:     itemURL,
			html:    `<html><body><h1 class="page-header__title">Jueyun Chili</h1></body></html>`,
			want:    models.TranslationRecord{Item: "Jueyun Chili"},
			outcome: models.ExtractPartial,
		},
		{
			name: "no title falls back to the URL",
			url:  "https://wiki.example.com/wiki/Glaze_Lily",
			html: `<html><body><table class="article-table"><tbody>
				<tr><td><b>English</b></td><td>Glaze Lily</td></tr></tbody></table></body></html>`,
			want:    models.TranslationRecord{Item: "Glaze Lily", English: "Glaze Lily"},
			outcome: models.ExtractComplete,
		},
		{
			name:    "vietnamese fallback is normalized",
			url:     itemURL,
			html:    `<html><body><h1 class="page-header__title">Qingxin</h1><table class="article-table"><tbody><tr><td><b>Vietnamese</b></td><td>Hoa Thanh Tâm 清心 hoa</td></tr></tbody></table></body></html>`,
			want:    models.TranslationRecord{Item: "Qingxin", Vietnamese: "Hoa Thanh Tâm"},
			outcome: models.ExtractComplete,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page := loadedPage(t, tt.url, tt.html)
			got, outcome := testExtractor().Extract(context.Background(), page, tt.url)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.outcome, outcome)
		})
	}
}

func TestExtract_SnapshotFailureIsPartial(t *testing.T) {
	page := loadedPage(t, itemURL, itemPage("Jueyun Chili", "a", "b", "c"))
	page.htmlErr = errors.New("target closed")

	got, outcome := testExtractor().Extract(context.Background(), page, itemURL)
	assert.Equal(t, models.ExtractPartial, outcome)
	assert.Equal(t, models.TranslationRecord{Item: "Jueyun Chili"}, got)
}

func TestItemFromURL(t *testing.T) {
	tests := map[string]string{
		"https://wiki.example.com/wiki/Jueyun_Chili":         "Jueyun Chili",
		"https://wiki.example.com/wiki/Naku_Weed#Obtain":     "Naku Weed",
		"https://wiki.example.com/wiki/Sango_Pearl%27s_Tide": "Sango Pearl's Tide",
		"https://wiki.example.com/":                          "",
		"://bad":                                             "",
	}
	for in, want := range tests {
		assert.Equal(t, want, itemFromURL(in), in)
	}
}
