package iocache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/VizGrimoire/GrimoireLib-sub002/internal/contract"
	"github.com/VizGrimoire/GrimoireLib-sub002/schema"
	"github.com/jmoiron/sqlx"
)

// Table names for report history.
const (
	reportRunsTable   = "grimoire_report_runs"
	metricValuesTable = "grimoire_metric_values"
)

// HistoryStoreImpl records report runs and the aggregate values they produced.
type HistoryStoreImpl struct {
	db      *sqlx.DB
	backend schema.DatabaseBackend
}

var _ contract.HistoryStore = &HistoryStoreImpl{} // Compile-time check

// NewHistoryStore connects to the history database and migrates it to the latest schema.
func NewHistoryStore(backend schema.DatabaseBackend, connStr string) (*HistoryStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &HistoryStoreImpl{backend: backend}, nil
	}

	db, err := openStore(backend, connStr, GetHistoryDBFilePath())
	if err != nil {
		return nil, fmt.Errorf("history store: %w", err)
	}
	m, err := newMigrator(db.DB, backend)
	if err == nil {
		err = upgrade(m)
	}
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create history tables: %w", err)
	}
	return &HistoryStoreImpl{db: db, backend: backend}, nil
}

func (hs *HistoryStoreImpl) table(name string) string {
	return quoteTableName(name, hs.backend)
}

// BeginRun creates a new report run and returns its unique ID.
func (hs *HistoryStoreImpl) BeginRun(startTime time.Time, configParams map[string]any) (int64, error) {
	if hs.db == nil {
		return 0, nil
	}
	configJSON, err := json.Marshal(configParams)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal config params: %w", err)
	}

	var runID int64
	if hs.backend == schema.PostgreSQLBackend {
		q := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES ($1, $2) RETURNING run_id`, hs.table(reportRunsTable))
		err = hs.db.Get(&runID, q, startTime, string(configJSON))
	} else {
		q := fmt.Sprintf(`INSERT INTO %s (start_time, config_params) VALUES (?, ?)`, hs.table(reportRunsTable))
		var res sql.Result
		res, err = hs.db.Exec(q, formatTime(startTime, hs.backend), string(configJSON))
		if err == nil {
			runID, err = res.LastInsertId()
		}
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert report run: %w", err)
	}
	return runID, nil
}

// EndRun stores the completion time, the duration and the family outcome of a run.
func (hs *HistoryStoreImpl) EndRun(runID int64, endTime time.Time, familiesOK, familiesError int) error {
	if hs.db == nil {
		return nil
	}
	var raw any
	q := hs.db.Rebind(fmt.Sprintf(`SELECT start_time FROM %s WHERE run_id = ?`, hs.table(reportRunsTable)))
	if err := hs.db.QueryRow(q, runID).Scan(&raw); err != nil {
		return fmt.Errorf("failed to get start_time for run %d: %w", runID, err)
	}
	startTime, err := scanTime(raw)
	if err != nil {
		return fmt.Errorf("failed to parse start_time: %w", err)
	}

	q = hs.db.Rebind(fmt.Sprintf(
		`UPDATE %s SET end_time = ?, run_duration_ms = ?, families_ok = ?, families_error = ? WHERE run_id = ?`,
		hs.table(reportRunsTable)))
	durationMs := endTime.Sub(startTime).Milliseconds()
	if _, err := hs.db.Exec(q, formatTime(endTime, hs.backend), durationMs, familiesOK, familiesError, runID); err != nil {
		return fmt.Errorf("failed to update report run: %w", err)
	}
	return nil
}

// RecordMetricValues stores the values of a run in one transaction.
func (hs *HistoryStoreImpl) RecordMetricValues(runID int64, values []schema.MetricValueRecord) error {
	if hs.db == nil || len(values) == 0 {
		return nil
	}
	tx, err := hs.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := tx.Rebind(fmt.Sprintf(`INSERT INTO %s (run_id, family, filter_kind, filter_name, metric, metric_value, window_from, window_to)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, hs.table(metricValuesTable)))
	stmt, err := tx.Preparex(q)
	if err != nil {
		return fmt.Errorf("failed to prepare metric insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, v := range values {
		if _, err := stmt.Exec(runID, v.Family, v.FilterKind, v.FilterName, v.Metric, v.Value,
			formatTime(v.WindowFrom, hs.backend), formatTime(v.WindowTo, hs.backend)); err != nil {
			return fmt.Errorf("failed to insert %s value %s: %w", v.Family, v.Metric, err)
		}
	}
	return tx.Commit()
}

// Close closes the underlying connection.
func (hs *HistoryStoreImpl) Close() error {
	if hs.db != nil {
		return hs.db.Close()
	}
	return nil
}

// GetStatus returns status information about the history store.
func (hs *HistoryStoreImpl) GetStatus() (schema.HistoryStatus, error) {
	status := schema.HistoryStatus{
		Backend:    string(hs.backend),
		Connected:  hs.db != nil,
		TableSizes: make(map[string]int64),
	}
	if hs.db == nil {
		return status, nil
	}

	for _, table := range []string{reportRunsTable, metricValuesTable} {
		var count int64
		if err := hs.db.Get(&count, fmt.Sprintf("SELECT COUNT(*) FROM %s", hs.table(table))); err != nil {
			return status, fmt.Errorf("failed to get count for table %s: %w", table, err)
		}
		status.TableSizes[table] = count
	}
	status.TotalRuns = int(status.TableSizes[reportRunsTable])
	status.TotalValues = int(status.TableSizes[metricValuesTable])
	if status.TotalRuns == 0 {
		return status, nil
	}

	var raw any
	q := fmt.Sprintf("SELECT run_id, start_time FROM %s ORDER BY run_id DESC LIMIT 1", hs.table(reportRunsTable))
	if err := hs.db.QueryRow(q).Scan(&status.LastRunID, &raw); err != nil {
		return status, fmt.Errorf("failed to get last run info: %w", err)
	}
	last, err := scanTime(raw)
	if err != nil {
		return status, fmt.Errorf("failed to parse last run time: %w", err)
	}
	status.LastRunTime = last

	q = fmt.Sprintf("SELECT start_time FROM %s ORDER BY run_id ASC LIMIT 1", hs.table(reportRunsTable))
	if err := hs.db.QueryRow(q).Scan(&raw); err != nil {
		return status, fmt.Errorf("failed to get oldest run time: %w", err)
	}
	oldest, err := scanTime(raw)
	if err != nil {
		return status, fmt.Errorf("failed to parse oldest run time: %w", err)
	}
	status.OldestRunTime = oldest
	return status, nil
}

// GetAllRuns retrieves every report run.
func (hs *HistoryStoreImpl) GetAllRuns() ([]schema.ReportRunRecord, error) {
	if hs.db == nil {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT run_id, start_time, end_time, run_duration_ms, families_ok, families_error, config_params
		FROM %s ORDER BY run_id`, hs.table(reportRunsTable))
	rows, err := hs.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to query report runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.ReportRunRecord
	for rows.Next() {
		var (
			rec        schema.ReportRunRecord
			start, end any
		)
		if err := rows.Scan(&rec.RunID, &start, &end, &rec.RunDurationMs, &rec.FamiliesOK, &rec.FamiliesError, &rec.ConfigParams); err != nil {
			return nil, fmt.Errorf("failed to scan report run: %w", err)
		}
		if rec.StartTime, err = scanTime(start); err != nil {
			return nil, fmt.Errorf("failed to parse start_time: %w", err)
		}
		if end != nil {
			t, err := scanTime(end)
			if err != nil {
				return nil, fmt.Errorf("failed to parse end_time: %w", err)
			}
			rec.EndTime = &t
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating report runs: %w", err)
	}
	return results, nil
}

// GetAllMetricValues retrieves every recorded metric value.
func (hs *HistoryStoreImpl) GetAllMetricValues() ([]schema.MetricValueRecord, error) {
	if hs.db == nil {
		return nil, nil
	}
	q := fmt.Sprintf(`SELECT run_id, family, filter_kind, filter_name, metric, metric_value, window_from, window_to
		FROM %s ORDER BY run_id, family, filter_kind, filter_name, metric`, hs.table(metricValuesTable))
	rows, err := hs.db.Query(q)
	if err != nil {
		return nil, fmt.Errorf("failed to query metric values: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []schema.MetricValueRecord
	for rows.Next() {
		var (
			rec      schema.MetricValueRecord
			from, to any
		)
		if err := rows.Scan(&rec.RunID, &rec.Family, &rec.FilterKind, &rec.FilterName, &rec.Metric, &rec.Value, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan metric value: %w", err)
		}
		if rec.WindowFrom, err = scanTime(from); err != nil {
			return nil, err
		}
		if rec.WindowTo, err = scanTime(to); err != nil {
			return nil, err
		}
		results = append(results, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating metric values: %w", err)
	}
	return results, nil
}
