package outbound

// AuditLog appends entries to the local JSON-lines audit file.
type AuditLog interface {
	// Append writes one entry as a JSON line.
	Append(entry any) error

	// Path returns the location of the backing file.
	Path() string
}
