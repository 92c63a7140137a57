package dto

import "time"

// RosterImportIssue flags one problem found in an imported CSV row. Row is the
// line number in the file, counting the header as line 1.
type RosterImportIssue struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Value  string `json:"value"`
}

// RosterImportResult summarises a CSV roster import.
type RosterImportResult struct {
	Imported        int                 `json:"imported"`
	Skipped         int                 `json:"skipped"`
	Issues          []RosterImportIssue `json:"issues"`
	IssuesURL       *string             `json:"issues_url,omitempty"`
	IssuesExpiresAt *time.Time          `json:"issues_expires_at,omitempty"`
}
