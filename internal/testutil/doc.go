// Package testutil provides deterministic helpers shared by package tests
// and the scenario harness: a fixed session id generator, a controller
// that records notifications, and canned trace chunks.
package testutil
