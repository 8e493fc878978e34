package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/turtacn/SDB-Intelligence/internal/domain/record"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/database/postgres"
	"github.com/turtacn/SDB-Intelligence/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/SDB-Intelligence/pkg/errors"
	"github.com/turtacn/SDB-Intelligence/pkg/types/sdb"
)

const recordColumns = `id, job_id, profile, cas, name, producer, source, table_version, reference_version, record, created_at`

type postgresRecordRepo struct {
	conn *postgres.Connection
	tx   *sql.Tx
	log  logging.Logger
}

// NewPostgresRecordRepo returns a record.Repository backed by the
// sdb_records table.
func NewPostgresRecordRepo(conn *postgres.Connection, log logging.Logger) record.Repository {
	return &postgresRecordRepo{conn: conn, log: log}
}

// WithTx returns a repository whose statements run inside tx.
func (r *postgresRecordRepo) WithTx(tx *sql.Tx) record.Repository {
	return &postgresRecordRepo{conn: r.conn, tx: tx, log: r.log}
}

func (r *postgresRecordRepo) executor() queryExecutor {
	if r.tx != nil {
		return r.tx
	}
	return r.conn.DB()
}

func (r *postgresRecordRepo) Save(ctx context.Context, rec *sdb.StoredRecord) error {
	if rec == nil {
		return errors.New(errors.ErrCodeValidation, "record is nil")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	} else if _, err := uuid.Parse(rec.ID); err != nil {
		return errors.New(errors.ErrCodeValidation, "record id is not a uuid").WithDetail(rec.ID)
	}
	payload, err := json.Marshal(rec.Record)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode record")
	}

	query := `
		INSERT INTO sdb_records (
			id, job_id, profile, cas, name, producer, source, table_version, reference_version, record
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10
		) RETURNING created_at
	`
	err = r.executor().QueryRowContext(ctx, query,
		rec.ID, nullString(rec.JobID), rec.Profile, nullString(rec.CAS), nullString(rec.Name),
		nullString(rec.Producer), nullString(rec.Source), nullString(rec.TableVersion),
		nullString(rec.ReferenceVersion), payload,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save record")
	}
	r.log.Debug("Record saved", logging.String("record_id", rec.ID), logging.Profile(rec.Profile))
	return nil
}

func (r *postgresRecordRepo) GetByID(ctx context.Context, id string) (*sdb.StoredRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.New(errors.ErrCodeRecordNotFound, "record not found").WithDetail(id)
	}
	query := `SELECT ` + recordColumns + ` FROM sdb_records WHERE id = $1`
	rec, err := scanRecord(r.executor().QueryRowContext(ctx, query, id))
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.New(errors.ErrCodeRecordNotFound, "record not found").WithDetail(id)
		}
		return nil, err
	}
	return rec, nil
}

func (r *postgresRecordRepo) FindByCAS(ctx context.Context, cas string, opts ...record.QueryOption) ([]*sdb.StoredRecord, error) {
	o := record.ApplyOptions(opts...)
	query := `SELECT ` + recordColumns + ` FROM sdb_records WHERE cas = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := r.executor().QueryContext(ctx, query, strings.TrimSpace(cas), o.Limit, o.Offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to query records by cas")
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (r *postgresRecordRepo) List(ctx context.Context, opts ...record.QueryOption) ([]*sdb.StoredRecord, int64, error) {
	o := record.ApplyOptions(opts...)

	var (
		conds []string
		args  []interface{}
	)
	if o.Profile != "" {
		args = append(args, o.Profile)
		conds = append(conds, fmt.Sprintf("profile = $%d", len(args)))
	}
	if o.JobID != "" {
		args = append(args, o.JobID)
		conds = append(conds, fmt.Sprintf("job_id = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.executor().QueryRowContext(ctx, "SELECT COUNT(*) FROM sdb_records"+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count records")
	}

	dataQuery := fmt.Sprintf("SELECT %s FROM sdb_records%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		recordColumns, where, len(args)+1, len(args)+2)
	args = append(args, o.Limit, o.Offset)
	rows, err := r.executor().QueryContext(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list records")
	}
	defer rows.Close()

	recs, err := collectRecords(rows)
	if err != nil {
		return nil, 0, err
	}
	return recs, total, nil
}

func collectRecords(rows *sql.Rows) ([]*sdb.StoredRecord, error) {
	var out []*sdb.StoredRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate records")
	}
	return out, nil
}

func scanRecord(s scanner) (*sdb.StoredRecord, error) {
	var (
		rec                                sdb.StoredRecord
		jobID, cas, name, producer, source sql.NullString
		tableVersion, referenceVersion     sql.NullString
		payload                            []byte
		createdAt                          time.Time
	)
	err := s.Scan(&rec.ID, &jobID, &rec.Profile, &cas, &name, &producer, &source,
		&tableVersion, &referenceVersion, &payload, &createdAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to scan record")
	}
	if err := json.Unmarshal(payload, &rec.Record); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode record")
	}
	rec.JobID = jobID.String
	rec.CAS = cas.String
	rec.Name = name.String
	rec.Producer = producer.String
	rec.Source = source.String
	rec.TableVersion = tableVersion.String
	rec.ReferenceVersion = referenceVersion.String
	rec.CreatedAt = createdAt.UTC()
	return &rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

//Personal.AI order the ending
