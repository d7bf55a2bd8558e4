package query

import (
	"encoding/json"

	"github.com/kdsearch/coderetriever/pkg/models"
)

// CompactionOptions mirrors the core's {MaxResults, MaxSnippetChars,
// MaxJsonBytes} configuration, spec §4.8.5.
type CompactionOptions struct {
	MaxResults      int
	MaxSnippetChars int
	MaxJSONBytes    int
}

// compact shapes a raw result list into the wire response, truncating
// content to a proportional snippet budget and then, if still too large,
// dropping the lowest-ranked results.
func compact(resp *models.QueryResponse, opts CompactionOptions) {
	if opts.MaxResults > 0 && len(resp.Results) > opts.MaxResults {
		resp.Results = resp.Results[:opts.MaxResults]
	}
	resp.TotalResults = len(resp.Results)

	allocateSnippetBudget(resp.Results, opts.MaxSnippetChars)

	if opts.MaxJSONBytes <= 0 {
		return
	}
	for {
		b, err := json.Marshal(resp)
		if err != nil || len(b) <= opts.MaxJSONBytes {
			return
		}
		if len(resp.Results) == 0 {
			return
		}
		if len(resp.Results) == 1 {
			truncateSingle(&resp.Results[0], opts.MaxJSONBytes)
			return
		}
		resp.Results = resp.Results[:len(resp.Results)-1]
		resp.TotalResults = len(resp.Results)
	}
}

// allocateSnippetBudget splits the total snippet char budget across
// results by rank weight: the top result gets the largest share, per
// spec §4.8.5 step 2. Weight is simply (n-i), which is monotonically
// decreasing and sums cleanly.
func allocateSnippetBudget(results []models.SearchResult, totalBudget int) {
	n := len(results)
	if n == 0 || totalBudget <= 0 {
		return
	}

	weightSum := n * (n + 1) / 2
	for i := range results {
		weight := n - i
		slot := totalBudget * weight / weightSum
		if slot <= 0 {
			slot = 1
		}
		if len(results[i].Content) > slot {
			results[i].Content = results[i].Content[:slot]
		}
	}
}

func truncateSingle(r *models.SearchResult, maxBytes int) {
	budget := maxBytes / 2
	if budget <= 0 {
		budget = 1
	}
	for len(r.Content) > budget {
		r.Content = r.Content[:len(r.Content)/2]
	}
}
