package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
)

var (
	_ list.Item = trackItem{}
)

// trackItem wraps a search query built from a Spotify track to implement [list.Item].
type trackItem struct {
	index int
	query string
}

func (i trackItem) FilterValue() string { return i.query }
func (i trackItem) Title() string       { return i.query }
func (i trackItem) Description() string { return fmt.Sprintf("track %d", i.index+1) }

func trackItems(tracks []string) []list.Item {
	items := make([]list.Item, len(tracks))
	for i, q := range tracks {
		items[i] = trackItem{index: i, query: q}
	}
	return items
}
