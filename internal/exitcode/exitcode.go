package exitcode

const (
	Success         = 0
	UsageError      = 1
	ValidationError = 2
	SourceError     = 3
	StoreError      = 4
	RenderError     = 5
)
