package storage

// Package storage persists the reminder ledger so a restart does not
// re-fire reminders that were already sent in a prior run.
//
// It currently supports:
//   - A dependency-free file backend (snapshot + jsonl journal)
//   - SQLite (build with -tags sqlite)
