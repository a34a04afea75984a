package ui

import (
	"fmt"

	"github.com/kraitsura/lazyreview/pkg/model"
)

// PRItem wraps model.PullRequest to implement list.Item
type PRItem struct {
	PR model.PullRequest
}

func (i PRItem) Title() string {
	return i.PR.Title
}

func (i PRItem) Description() string {
	return fmt.Sprintf("%s/%s#%d • @%s", i.PR.Owner, i.PR.Repo, i.PR.Number, i.PR.Author)
}

func (i PRItem) FilterValue() string {
	return fmt.Sprintf("%s %s/%s#%d %s %s", i.PR.Title, i.PR.Owner, i.PR.Repo, i.PR.Number, i.PR.Author, i.PR.State)
}
