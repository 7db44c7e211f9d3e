package internal

import "time"

// Document is one uploaded PDF handed to the pipeline. Data is owned by the
// caller and is never modified.
type Document struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Data      []byte    `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}
