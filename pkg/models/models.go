package models

import (
	"time"

	"github.com/uptrace/bun"
)

// FetchRecord is one finished fetch as written to the result sink
type FetchRecord struct {
	bun.BaseModel `bun:"table:fetch_record,alias:fr"`

	ID         int64     `bun:",pk,autoincrement"`
	RunID      string    `bun:",notnull"`
	Command    string    `bun:",notnull"`
	URL        string    `bun:",notnull"`
	Country    string
	SessionID  string
	StatusCode int
	SizeBytes  int
	ErrorMsg   string
	DurationMs int64
	Time       time.Time `bun:",notnull"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}
