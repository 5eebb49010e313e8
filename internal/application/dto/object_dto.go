package dto

import "github.com/jhoicas/lentefiscal/internal/application/inbox"

// ObjectListResponse contenido de un bucket.
type ObjectListResponse struct {
	Bucket  string        `json:"bucket"`
	Objects []inbox.Entry `json:"objects"`
}

// ReprocessRequest body opcional de POST /api/buckets/error/reprocess.
type ReprocessRequest struct {
	Keys []string `json:"keys"`
}

// ReprocessResponse resultado por clave.
type ReprocessResponse struct {
	Key   string `json:"key"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}
