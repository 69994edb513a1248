// Package tasks runs the Spotify → YouTube conversion pipeline with real-time progress reporting.
//
// # Pipeline
//
// [Converter.Run] drives one conversion:
//
//  1. Fetch the source playlist as track queries ([services.Catalog])
//  2. Match queries to video ids in chunks ([Processor], [Matcher])
//  3. Create the destination playlist ([Writer.CreatePlaylist])
//  4. Insert as many videos as today's quota allows ([Writer.AddVideos])
//
// Every stage writes the checkpoint ([progress.Store]) before moving on, so an
// interrupted or quota-limited run continues where it stopped when resumed.
//
// # Matching
//
// [Matcher] memoizes search results in a bounded LRU and optionally in a durable
// [MatchStore]. The [SelectionPolicy] decides which search result is used.
// [MeteredSearcher] adapts the quota-metered YouTube search for matching.
//
// # Progress Reporting
//
// All operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking. Milestone updates mark 25, 50, 75 and 100 percent.
package tasks
