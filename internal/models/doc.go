// Package models defines the records spyt keeps in its SQLite database.
//
//   - [Run] : one conversion attempt with its counts, status and failed video ids
//
// Persistent entities implement [Model] (ID, timestamps, validation) and are
// stored through a [Repository]. Match cache rows are plain key/value pairs and
// have no model type.
package models
