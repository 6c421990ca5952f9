package dto

type FileRequest struct {
	Filename string `json:"filename" binding:"required"`
	MimeType string `json:"mime_type" binding:"required"`
	Bytes    int64  `json:"bytes" binding:"required,gt=0"`
}

type CreateUploadJobRequest struct {
	Files    []FileRequest `json:"files" binding:"required,min=1,dive"`
	Strategy string        `json:"strategy"`
}

type UploadTargetDTO struct {
	PhotoID   string `json:"photo_id"`
	Filename  string `json:"filename"`
	ObjectKey string `json:"object_key"`
	Method    string `json:"method"`
	URL       string `json:"url"`
	ExpiresAt string `json:"expires_at"`
}

type CreateUploadJobResponse struct {
	JobID          string            `json:"job_id"`
	TotalCount     int               `json:"total_count"`
	UploadStrategy string            `json:"upload_strategy"`
	Uploads        []UploadTargetDTO `json:"uploads"`
}

type UpdateProgressRequest struct {
	PhotoID    string  `json:"photo_id" binding:"required"`
	BytesSent  int64   `json:"bytes_sent"`
	BytesTotal int64   `json:"bytes_total"`
	Percent    float64 `json:"percent" binding:"required"`
}

type PhotoDTO struct {
	PhotoID      string `json:"photo_id"`
	Filename     string `json:"filename"`
	Status       string `json:"status"`
	Width        int    `json:"width,omitempty"`
	Height       int    `json:"height,omitempty"`
	Checksum     string `json:"checksum,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type JobStatusResponse struct {
	JobID          string     `json:"job_id"`
	UserID         string     `json:"user_id"`
	Status         string     `json:"status"`
	TotalCount     int        `json:"total_count"`
	CompletedCount int        `json:"completed_count"`
	FailedCount    int        `json:"failed_count"`
	CancelledCount int        `json:"cancelled_count"`
	CreatedAt      string     `json:"created_at"`
	UpdatedAt      string     `json:"updated_at"`
	Photos         []PhotoDTO `json:"photos"`
}

type CancelPhotoResponse struct {
	PhotoID string `json:"photo_id"`
	JobID   string `json:"job_id"`
	Status  string `json:"status"`
}
