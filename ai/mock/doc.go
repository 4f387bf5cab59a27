// Package mock provides deterministic in-process test doubles for the ai
// capability interfaces. Default behavior is fully deterministic (hashed
// vectors, canned answers) so pipeline tests are reproducible; every double
// also accepts injected functions for failure-path testing.
package mock
