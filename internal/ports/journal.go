package ports

// Journal is the durable, append-only local sink. Every Append writes exactly
// one newline-terminated line; Write accepts already-terminated lines so the
// journal can back a structured logger.
type Journal interface {
	Append(line []byte) error
	Write(p []byte) (int, error)
	Sync() error
	Close() error
	Stats() JournalStats
}

type JournalStats struct {
	Path        string
	SizeBytes   int64
	Lines       uint64
	Rotations   uint64
	Generations int
}
