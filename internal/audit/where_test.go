package audit

import (
	"reflect"
	"testing"
	"time"
)

func TestWhereBuilder_Empty(t *testing.T) {
	wb := newWhereBuilder(postgresDialect)
	clause, args := wb.Build()
	if clause != "" || args != nil {
		t.Errorf("Build() = %q, %v; want empty", clause, args)
	}
	if wb.NextArgIndex() != 1 {
		t.Errorf("NextArgIndex() = %d, want 1", wb.NextArgIndex())
	}
}

func TestWhereBuilder_Dialects(t *testing.T) {
	since := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	tests := []struct {
		name       string
		d          dialect
		wantClause string
		wantArgs   []any
	}{
		{
			name:       "postgres numbered placeholders",
			d:          postgresDialect,
			wantClause: " WHERE session_id = $1 AND created_at >= $2",
			wantArgs:   []any{"abc", since},
		},
		{
			name:       "sqlite question marks and unix millis",
			d:          sqliteDialect,
			wantClause: " WHERE session_id = ? AND created_at >= ?",
			wantArgs:   []any{"abc", since.UnixMilli()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := newWhereBuilder(tt.d)
			wb.Add("session_id", "abc")
			wb.Add("ignored", "")
			wb.AddSince("created_at", since)
			wb.AddBefore("created_at", time.Time{})

			clause, args := wb.Build()
			if clause != tt.wantClause {
				t.Errorf("clause = %q, want %q", clause, tt.wantClause)
			}
			if !reflect.DeepEqual(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
			if wb.NextArgIndex() != 3 {
				t.Errorf("NextArgIndex() = %d, want 3", wb.NextArgIndex())
			}
		})
	}
}

func TestWhereBuilder_AddBefore(t *testing.T) {
	cutoff := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	wb := newWhereBuilder(postgresDialect)
	wb.AddBefore("created_at", cutoff)

	clause, args := wb.Build()
	if clause != " WHERE created_at < $1" {
		t.Errorf("clause = %q", clause)
	}
	if len(args) != 1 || args[0] != cutoff {
		t.Errorf("args = %v", args)
	}
}
