// Package integration provides integration tests for the CampusLink directory API server.
// These tests run the complete server against SQLite storage and a mock Places
// web service, covering listing, lookup and open-status freshness.
package integration
