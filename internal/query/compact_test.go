package query

import (
	"encoding/json"
	"testing"

	"github.com/kdsearch/coderetriever/pkg/models"
)

func TestCompactTruncatesToMaxResults(t *testing.T) {
	resp := &models.QueryResponse{}
	for i := 0; i < 5; i++ {
		resp.Results = append(resp.Results, models.SearchResult{ID: string(rune('a' + i)), Content: "x"})
	}
	compact(resp, CompactionOptions{MaxResults: 2, MaxSnippetChars: 1000, MaxJSONBytes: 1 << 20})

	if len(resp.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(resp.Results))
	}
	if resp.TotalResults != 2 {
		t.Errorf("expected totalResults 2, got %d", resp.TotalResults)
	}
}

func TestCompactAllocatesSnippetBudgetByRank(t *testing.T) {
	resp := &models.QueryResponse{Results: []models.SearchResult{
		{ID: "top", Content: stringOfLen(1000)},
		{ID: "bottom", Content: stringOfLen(1000)},
	}}
	compact(resp, CompactionOptions{MaxResults: 10, MaxSnippetChars: 300, MaxJSONBytes: 1 << 20})

	if len(resp.Results[0].Content) <= len(resp.Results[1].Content) {
		t.Errorf("expected top result to get a larger snippet slot: top=%d bottom=%d",
			len(resp.Results[0].Content), len(resp.Results[1].Content))
	}
}

func TestCompactDropsLowestRankedUnderJSONBudget(t *testing.T) {
	resp := &models.QueryResponse{}
	for i := 0; i < 25; i++ {
		resp.Results = append(resp.Results, models.SearchResult{ID: string(rune('a' + i)), Content: stringOfLen(1000)})
	}
	compact(resp, CompactionOptions{MaxResults: 10, MaxSnippetChars: 8000, MaxJSONBytes: 16384})

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(b) > 16384 {
		t.Errorf("expected serialised size <= 16384, got %d", len(b))
	}
	if len(resp.Results) > 10 {
		t.Errorf("expected at most 10 results, got %d", len(resp.Results))
	}
}

func TestCompactTruncatesSingleOversizedResult(t *testing.T) {
	resp := &models.QueryResponse{Results: []models.SearchResult{
		{ID: "solo", Content: stringOfLen(50000)},
	}}
	compact(resp, CompactionOptions{MaxResults: 10, MaxSnippetChars: 100000, MaxJSONBytes: 1024})

	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(b) > 4096 {
		t.Errorf("expected single result truncated well below original size, got %d bytes", len(b))
	}
	if len(resp.Results) != 1 {
		t.Errorf("expected the single result to survive, got %d", len(resp.Results))
	}
}
