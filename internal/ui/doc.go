// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through one conversion:
//  1. [InputView] : Paste a Spotify playlist URL, or resume a saved run
//  2. [TrackListView] : Preview the search queries built from the playlist
//  3. [ConfirmView] : Confirm playlist creation
//  4. [ConvertView] : Spinner, milestone progress bar and a tail of progress messages
//  5. [ResultView] : Added, failed and deferred counts
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the [Msg] union type.
// Progress updates flow through a channel from the converter, providing non-blocking status reporting during a run.
// Quitting during a conversion cancels it; the checkpoint stays on disk.
package ui
