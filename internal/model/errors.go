package model

import "fmt"

// SchemaError reports a malformed batch; the whole batch is rejected
type SchemaError struct {
	Column string
	Row    int // 1-based data row, 0 when the error concerns the header
	Value  string
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("schema: column %q row %d: %s (value %q)", e.Column, e.Row, e.Reason, e.Value)
	}
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// ReferentialOrderError reports an update load attempted before its static load committed
type ReferentialOrderError struct {
	BatchID string
	Table   string
}

func (e *ReferentialOrderError) Error() string {
	return fmt.Sprintf("load order: static rows of batch %s not committed before loading %s", e.BatchID, e.Table)
}

// StageError names the pipeline stage a batch-level failure came from
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
