package scanner

// ScanOptions defines the options for scanning a sample folder
type ScanOptions struct {
	FolderPath   string
	SampleID     string
	SessionID    string
	ForceRewrite bool
	DebugMode    bool
	Verbose      bool
	MaxWorkers   int
}

// ProcessImageResult holds the result of extracting one image's metadata
type ProcessImageResult struct {
	Path    string
	Success bool
	Error   error
}

// FileStats tracks information about files to be processed
type FileStats struct {
	totalFiles int
}
