package types

import "time"

// JobStatus is the lifecycle state of a download
type JobStatus string

const (
	JobPending    JobStatus = "Pending"
	JobInProgress JobStatus = "InProgress"
	JobCompleted  JobStatus = "Completed"
	JobFailed     JobStatus = "Failed"
)

// DownloadJob tracks one download. Only the downloader mutates it.
type DownloadJob struct {
	ID              string    `json:"id"`
	SourceURL       string    `json:"source_url"`
	DestinationPath string    `json:"destination_path"`
	TotalBytes      int64     `json:"total_bytes"`
	DownloadedBytes int64     `json:"downloaded_bytes"`
	Status          JobStatus `json:"status"`
	Error           string    `json:"error,omitempty"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
}

// Percent returns download progress in [0,100], or -1 when the size is unknown
func (j *DownloadJob) Percent() float64 {
	if j.TotalBytes <= 0 {
		return -1
	}
	return float64(j.DownloadedBytes) / float64(j.TotalBytes) * 100
}
