package audit

import (
	"fmt"
	"strings"
	"time"
)

// dialect captures the SQL differences between the supported databases.
type dialect struct {
	name string

	// numbered placeholders ($1, $2) instead of ?
	numbered bool

	// timestamps stored as unix milliseconds instead of timestamptz
	unixMillis bool
}

var (
	postgresDialect = dialect{name: "postgres", numbered: true}
	sqliteDialect   = dialect{name: "sqlite", unixMillis: true}
)

func (d dialect) placeholder(n int) string {
	if d.numbered {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// timeArg converts t to the value stored in a timestamp column.
func (d dialect) timeArg(t time.Time) any {
	if d.unixMillis {
		return t.UTC().UnixMilli()
	}
	return t.UTC()
}

// whereBuilder constructs a WHERE clause with dialect placeholders.
type whereBuilder struct {
	d          dialect
	conditions []string
	args       []any
	argIndex   int
}

func newWhereBuilder(d dialect) *whereBuilder {
	return &whereBuilder{d: d, argIndex: 1}
}

// Add appends "col = ?" unless value is empty.
func (wb *whereBuilder) Add(column, value string) {
	if value == "" {
		return
	}
	wb.add(column+" = ", value)
}

// AddSince appends "col >= ?" unless t is zero.
func (wb *whereBuilder) AddSince(column string, t time.Time) {
	if t.IsZero() {
		return
	}
	wb.add(column+" >= ", wb.d.timeArg(t))
}

// AddBefore appends "col < ?" unless t is zero.
func (wb *whereBuilder) AddBefore(column string, t time.Time) {
	if t.IsZero() {
		return
	}
	wb.add(column+" < ", wb.d.timeArg(t))
}

func (wb *whereBuilder) add(prefix string, arg any) {
	wb.conditions = append(wb.conditions, prefix+wb.d.placeholder(wb.argIndex))
	wb.args = append(wb.args, arg)
	wb.argIndex++
}

// Build returns the clause (with a leading space) and its arguments.
// With no conditions it returns "" and nil.
func (wb *whereBuilder) Build() (string, []any) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex is the number of the next placeholder, for LIMIT/OFFSET.
func (wb *whereBuilder) NextArgIndex() int {
	return wb.argIndex
}
