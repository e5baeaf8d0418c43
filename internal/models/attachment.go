package models

import "time"

// Attachment: файл, прикреплённый к заметке. Data хранится в базе и
// не попадает в JSON, содержимое отдаётся через /download.
type Attachment struct {
	ID          int64     `json:"id"`
	NoteID      int64     `json:"note_id"`
	FileName    string    `json:"file_name"`
	ContentType string    `json:"content_type"`
	SizeBytes   int64     `json:"size_bytes"`
	UploadedBy  *int64    `json:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Data        []byte    `json:"-"`
}
