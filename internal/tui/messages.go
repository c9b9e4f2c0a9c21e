package tui

import (
	"github.com/matheuskafuri/newsdesk/internal/cache"
	"github.com/matheuskafuri/newsdesk/internal/pager"
)

// pageMsg carries the result of pager.Breaking.Next or pager.Search.Next.
type pageMsg struct {
	tab  tab
	snap pager.Snapshot
	err  error
}

// searchTickMsg fires once the search delay has passed since keystroke seq.
type searchTickMsg struct {
	seq   int
	query string
}

type savedLoadedMsg struct {
	articles []cache.Article
}

type savedMsg struct {
	article cache.Article
	undo    bool
}

type deletedMsg struct {
	article cache.Article
}

type noticeMsg struct {
	text string
}

type errMsg struct {
	err error
}
