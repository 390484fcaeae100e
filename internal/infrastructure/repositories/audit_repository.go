package repositories

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/avatarctic/petportrait/internal/core/domain/audit"
	"github.com/avatarctic/petportrait/internal/core/ports"
	"github.com/avatarctic/petportrait/internal/infrastructure/db"
)

const generationRecordColumns = `id, client_ip, topic, quality, size, mode, outcome,
			latency_ms, cost_usd, model, request_id, created_at`

type generationAuditRepository struct {
	db     *db.Database
	logger *logrus.Logger
}

// NewGenerationAuditRepository stores generation records in the
// generation_records table.
func NewGenerationAuditRepository(database *db.Database, logger *logrus.Logger) ports.GenerationAuditRepository {
	return &generationAuditRepository{
		db:     database,
		logger: logger,
	}
}

func (r *generationAuditRepository) Create(ctx context.Context, rec *audit.GenerationRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO generation_records (
			` + generationRecordColumns + `
		) VALUES (
			:id, :client_ip, :topic, :quality, :size, :mode, :outcome,
			:latency_ms, :cost_usd, :model, :request_id, :created_at
		)`

	if _, err := r.db.DB.NamedExecContext(ctx, query, rec); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"record_id": rec.ID, "outcome": rec.Outcome}).WithError(err).Error("db: failed to insert generation record")
		}
		return err
	}
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"record_id": rec.ID, "outcome": rec.Outcome}).Debug("db: generation record inserted")
	}
	return nil
}

func (r *generationAuditRepository) List(ctx context.Context, filter *audit.RecordFilter) ([]*audit.GenerationRecord, error) {
	query, args := r.buildListQuery(filter, false)
	if r.logger != nil {
		r.logger.WithFields(logrus.Fields{"query": query, "args": args}).Debug("db: executing generation list query")
	}

	records := []*audit.GenerationRecord{}
	if err := r.db.DB.SelectContext(ctx, &records, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute generation list query")
		}
		return nil, err
	}
	return records, nil
}

func (r *generationAuditRepository) Count(ctx context.Context, filter *audit.RecordFilter) (int, error) {
	query, args := r.buildListQuery(filter, true)

	var count int
	if err := r.db.DB.GetContext(ctx, &count, query, args...); err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{"query": query}).WithError(err).Error("db: failed to execute generation count query")
		}
		return 0, err
	}
	return count, nil
}

// buildListQuery shares the WHERE clause between List and Count.
func (r *generationAuditRepository) buildListQuery(filter *audit.RecordFilter, isCount bool) (string, []interface{}) {
	selectClause := "SELECT " + generationRecordColumns
	if isCount {
		selectClause = "SELECT COUNT(*)"
	}

	query := selectClause + " FROM generation_records"
	var conditions []string
	var args []interface{}
	argIndex := 1

	if filter != nil {
		if filter.Outcome != nil {
			conditions = append(conditions, "outcome = $"+strconv.Itoa(argIndex))
			args = append(args, *filter.Outcome)
			argIndex++
		}
		if filter.Since != nil {
			conditions = append(conditions, "created_at >= $"+strconv.Itoa(argIndex))
			args = append(args, *filter.Since)
			argIndex++
		}
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}

	if !isCount {
		query += " ORDER BY created_at DESC"
		if filter != nil {
			if filter.Limit > 0 {
				query += " LIMIT $" + strconv.Itoa(argIndex)
				args = append(args, filter.Limit)
				argIndex++
			}
			if filter.Offset > 0 {
				query += " OFFSET $" + strconv.Itoa(argIndex)
				args = append(args, filter.Offset)
			}
		}
	}

	return query, args
}
