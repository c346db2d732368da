package extract

// CommitRecord is the normalized, filtered per-commit metric unit.
// Immutable once produced; identity key is (Repository, CommitID).
// JSON field names are the search-index document schema.
type CommitRecord struct {
	Repository      string `json:"repository"`
	CommitID        string `json:"commit_id"`
	AuthorEmail     string `json:"author_email"`
	AuthorName      string `json:"author_name"`
	CommitTimestamp string `json:"commit_timestamp"`
	FilesChanged    int    `json:"files_changed"`
	Insertions      int    `json:"insertions"`
	Deletions       int    `json:"deletions"`
	LinesChanged    int    `json:"lines_changed"`
}

// commitInfo is one parsed `git log` line before stats are attached.
type commitInfo struct {
	id        string
	email     string
	name      string
	timestamp string
	message   string
}

// fileStats accumulates per-commit numstat totals after filtering.
type fileStats struct {
	filesChanged int
	insertions   int
	deletions    int
}
