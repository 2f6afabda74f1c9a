/*
Package models defines the records egress-dispatcher persists. There is a
single table: every fetch finished by a CLI run can be written to it for
later analysis. Nothing in the dispatcher reads these records back.

FetchRecord:

	type FetchRecord struct {
		ID         int64     // Unique identifier
		RunID      string    // Groups the records of one CLI invocation
		Command    string    // CLI command that produced the record (fetch, batch, countries, ...)
		URL        string    // Target URL
		Country    string    // Requested exit country
		SessionID  string    // Sticky session id, empty for rotating fetches
		StatusCode int       // Terminal HTTP status, 0 when the fetch failed
		SizeBytes  int       // Decoded body size
		ErrorMsg   string    // Final error, empty on success
		DurationMs int64     // Wall time including retries
		Time       time.Time // When the fetch finished
	}

Usage Example:

	rec := models.FetchRecord{
		RunID:      runID,
		Command:    "batch",
		URL:        "https://example.com",
		Country:    "DE",
		StatusCode: 200,
		SizeBytes:  5120,
		DurationMs: 840,
		Time:       time.Now(),
	}

Thread Safety:

The model structures themselves are not thread-safe. Records are built after
a batch completes and inserted in one statement.
*/
package models
