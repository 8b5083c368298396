// Package audit appends one privacy-preserving record per request
// decision. A security review of this channel must be able to reconstruct
// every access attempt, denied and failed ones included.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/JMAlloway/Check-sub001/internal/model"
)

var auditDropped = promauto.NewCounter(prometheus.CounterOpts{
	Name: "gateway_audit_records_dropped_total",
	Help: "Audit records dropped because the buffer was full",
})

// Sink persists audit records.
type Sink interface {
	Append(ctx context.Context, rec model.AuditRecord) error
}

// Logger writes records asynchronously so a slow or failing audit sink
// never blocks, or fails, the response path.
type Logger struct {
	logger zerolog.Logger
	sink   Sink
	ch     chan model.AuditRecord
	done   chan struct{}
}

func NewLogger(logger zerolog.Logger, sink Sink, buffer int) *Logger {
	if buffer <= 0 {
		buffer = 1024
	}
	l := &Logger{
		logger: logger.With().Str("component", "audit").Logger(),
		sink:   sink,
		ch:     make(chan model.AuditRecord, buffer),
		done:   make(chan struct{}),
	}
	go l.drain()
	return l
}

func (l *Logger) drain() {
	defer close(l.done)
	for rec := range l.ch {
		// context.Background: the originating request may be long gone.
		if err := l.sink.Append(context.Background(), rec); err != nil {
			l.logger.Error().Err(err).Str("action", rec.Action).Msg("failed to write audit record")
		}
	}
}

// Record enqueues one audit record, dropping (and counting) rather than
// blocking when the buffer is full.
func (l *Logger) Record(rec model.AuditRecord) {
	select {
	case l.ch <- rec:
	default:
		auditDropped.Inc()
		l.logger.Warn().Str("action", rec.Action).Msg("audit buffer full, dropping record")
	}
}

// Close drains remaining records and stops the writer.
func (l *Logger) Close() {
	close(l.ch)
	<-l.done
}

// HashPath one-way hashes a physical path so audit records never leak
// internal storage topology off-premises.
func HashPath(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

// DB is the pgx surface the postgres sink needs.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// PostgresSink appends to the audit_records table.
type PostgresSink struct {
	db DB
}

func NewPostgresSink(db DB) *PostgresSink {
	return &PostgresSink{db: db}
}

func (s *PostgresSink) Append(ctx context.Context, rec model.AuditRecord) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_records (ts, connector_id, action, endpoint, allow, tenant_id, user_id, path_hash, bytes_sent, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.Timestamp, rec.ConnectorID, rec.Action, rec.Endpoint, rec.Allow,
		rec.TenantID, rec.UserID, rec.PathHash, rec.BytesSent, rec.LatencyMs)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}
