package constants

// JobStatus is the canonical status for rows in extract_jobs.
type JobStatus string

// Stable values (store these exact strings in DB).
const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusTextOK  JobStatus = "TEXT_OK"  // stage 1 completed (annotated text extracted)
	JobStatusLLMOK   JobStatus = "LLM_OK"   // stage 2 completed (transactions analyzed)
	JobStatusFailed  JobStatus = "FAILED"
)

// DocumentStatus tracks a document through processing.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "PENDING"
	DocumentProcessing DocumentStatus = "PROCESSING"
	DocumentCompleted  DocumentStatus = "COMPLETED"
	DocumentError      DocumentStatus = "ERROR"
)
