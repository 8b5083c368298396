package model

import "time"

// Audit action constants, one per request outcome class.
const (
	AuditImageServed  = "IMAGE_SERVED"
	AuditAccessDenied = "ACCESS_DENIED"
	AuditNotFound     = "NOT_FOUND"
	AuditDecodeFailed = "DECODE_FAILED"
)

// AuditRecord is one append-only entry per request decision. PathHash is a
// one-way hash of the physical path; the raw path must never appear here
// because these records may be shipped off-premises.
type AuditRecord struct {
	ID          int64     `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	ConnectorID string    `json:"connector_id"`
	Action      string    `json:"action"`
	Endpoint    string    `json:"endpoint"`
	Allow       bool      `json:"allow"`
	TenantID    string    `json:"tenant_id,omitempty"`
	UserID      string    `json:"user_id,omitempty"`
	PathHash    string    `json:"path_hash,omitempty"`
	BytesSent   int64     `json:"bytes_sent"`
	LatencyMs   int64     `json:"latency_ms"`
}
