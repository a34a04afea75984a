package ui

import (
	"fmt"

	"github.com/sahilm/fuzzy"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// prSource adapts a pull request slice for fuzzy matching over the fields
// a reviewer would type: title, repo reference, and author.
type prSource []model.PullRequest

func (s prSource) String(i int) string {
	p := s[i]
	return fmt.Sprintf("%s %s/%s#%d @%s", p.Title, p.Owner, p.Repo, p.Number, p.Author)
}

func (s prSource) Len() int {
	return len(s)
}

// FilterPullRequests returns the pull requests matching query, best match
// first. An empty query returns the input unchanged.
func FilterPullRequests(prs []model.PullRequest, query string) []model.PullRequest {
	if query == "" {
		return prs
	}
	matches := fuzzy.FindFrom(query, prSource(prs))
	filtered := make([]model.PullRequest, 0, len(matches))
	for _, m := range matches {
		filtered = append(filtered, prs[m.Index])
	}
	return filtered
}
