package domain

// Table is an ordered tabular dataset handed to a TableWriter.
type Table struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// SummaryField is one named aggregate shown in a notification.
type SummaryField struct {
	Name  string
	Value string
}

// Notification is the payload sent to a Notifier at the end of a run.
type Notification struct {
	Recipients []string
	Subject    string
	Summary    []SummaryField
	// Links are report locations returned by table writers.
	Links []string
}
