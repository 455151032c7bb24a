package sqlstorage

import (
	"time"

	"politefetch/batch"
	"politefetch/collector"
	"politefetch/sqldb"

	"go.uber.org/zap"
)

var _ collector.Storager = (*SqlStore)(nil)

// resultColumns 结果表的固定列
var resultColumns = []sqldb.Field{
	{Title: "Url", Type: "VARCHAR(500)"},
	{Title: "Domain", Type: "VARCHAR(255)"},
	{Title: "Success", Type: "TINYINT(1)"},
	{Title: "Timestamp", Type: "VARCHAR(64)"},
	{Title: "StatusCode", Type: "INT"},
	{Title: "ResponseSize", Type: "INT"},
	{Title: "ResponseTime", Type: "DOUBLE"},
	{Title: "ErrorType", Type: "VARCHAR(64)"},
	{Title: "ErrorMessage", Type: "MEDIUMTEXT"},
	{Title: "Worker", Type: "VARCHAR(32)"},
}

// SqlStore 把结果记录批量写入MySQL
type SqlStore struct {
	// buffer 分批写出的结果缓存
	buffer  []batch.ResultRecord
	db      sqldb.DBer
	created bool
	options
}

func NewSqlStore(opts ...Option) (*SqlStore, error) {
	options := defaultOptions
	for _, opt := range opts {
		opt(&options)
	}
	s := &SqlStore{}
	s.options = options
	db, err := sqldb.NewSqlDB(
		sqldb.WithDSN(s.dsn),
		sqldb.WithLogger(s.logger),
	)
	if err != nil {
		return nil, err
	}
	s.db = db

	return s, nil
}

func (s *SqlStore) Save(results ...batch.ResultRecord) error {
	if !s.created {
		err := s.db.CreateTable(sqldb.TableData{
			TableName:   s.table,
			ColumnNames: resultColumns,
			AutoKey:     true,
		})
		if err != nil {
			s.logger.Error("create table failed", zap.Error(err))
			return err
		}
		s.created = true
	}
	for _, r := range results {
		s.buffer = append(s.buffer, r)
		if len(s.buffer) >= s.BatchCount {
			if err := s.Flush(); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *SqlStore) Flush() error {
	if len(s.buffer) == 0 {
		return nil
	}
	args := make([]any, 0, len(s.buffer)*len(resultColumns))
	for _, r := range s.buffer {
		success := 0
		if r.Success {
			success = 1
		}
		args = append(args,
			r.URL,
			r.Domain,
			success,
			r.Timestamp.Format(time.RFC3339),
			r.StatusCode,
			r.ResponseSize,
			r.ResponseTime,
			r.ErrorKind,
			r.ErrorMessage,
			r.Worker,
		)
	}

	err := s.db.Insert(sqldb.TableData{
		TableName:   s.table,
		ColumnNames: resultColumns,
		Args:        args,
		DataCount:   len(s.buffer),
	})
	if err != nil {
		s.logger.Error("insert results failed", zap.Error(err))
		return err
	}
	s.buffer = nil

	return nil
}
