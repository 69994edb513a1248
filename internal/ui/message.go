package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spyt/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgTracksFetched MsgKind = iota
	MsgProgressUpdate
	MsgConvertComplete
)

type tracksFetched struct {
	tracks []string
	err    error
}

type convertComplete struct {
	result *tasks.RunResult
	err    error
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(tracks []string, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksFetched{tracks, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// convertCompleteMsg is the constructor for [MsgConvertComplete]
func convertCompleteMsg(result *tasks.RunResult, err error) Msg {
	return Msg{kind: MsgConvertComplete, data: convertComplete{result, err}}
}
