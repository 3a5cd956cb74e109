// Package testinfra provides shared fixtures for package tests: SQLite
// databases (in-memory, or file-backed for concurrency tests) carrying the
// same tables as the MySQL schema, and a deterministic clock for ordering
// assertions.
//
// It is imported only from _test.go files.
package testinfra
