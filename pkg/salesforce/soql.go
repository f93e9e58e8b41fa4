package salesforce

import (
	"fmt"
	"strings"
)

// SOQL assembles a query from developer-owned field names and caller-supplied
// values. Values only ever enter the query through QuoteString or Digits, so
// untrusted input is never concatenated raw into the filter text.
type SOQL struct {
	fields []string
	object string
	conds  []string
	order  string
	limit  int
}

func NewSOQL(object string, fields ...string) *SOQL {
	return &SOQL{object: object, fields: fields}
}

// Subquery appends a parenthesized child relationship query to the SELECT list.
func (q *SOQL) Subquery(sub *SOQL) *SOQL {
	q.fields = append(q.fields, "("+sub.String()+")")
	return q
}

// WhereEq adds `field = 'value'`.
func (q *SOQL) WhereEq(field, value string) *SOQL {
	q.conds = append(q.conds, fmt.Sprintf("%s = %s", field, QuoteString(value)))
	return q
}

// WhereNotEq adds `field != 'value'`.
func (q *SOQL) WhereNotEq(field, value string) *SOQL {
	q.conds = append(q.conds, fmt.Sprintf("%s != %s", field, QuoteString(value)))
	return q
}

// WhereContains adds `field LIKE '%value%'`.
func (q *SOQL) WhereContains(field, value string) *SOQL {
	q.conds = append(q.conds, likeContains(field, value))
	return q
}

// WherePrefix adds `field LIKE 'value%'`.
func (q *SOQL) WherePrefix(field, value string) *SOQL {
	q.conds = append(q.conds, fmt.Sprintf("%s LIKE %s", field, QuoteString(value+"%")))
	return q
}

// WhereAnyContains adds an OR group of substring matches over several fields.
func (q *SOQL) WhereAnyContains(value string, fields ...string) *SOQL {
	if len(fields) == 0 {
		return q
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, likeContains(f, value))
	}
	q.conds = append(q.conds, "("+strings.Join(parts, " OR ")+")")
	return q
}

// WhereAnyPrefix adds an OR group of prefix matches over several fields.
func (q *SOQL) WhereAnyPrefix(value string, fields ...string) *SOQL {
	if len(fields) == 0 {
		return q
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s LIKE %s", f, QuoteString(value+"%")))
	}
	q.conds = append(q.conds, "("+strings.Join(parts, " OR ")+")")
	return q
}

func (q *SOQL) OrderByDesc(field string) *SOQL {
	q.order = field + " DESC"
	return q
}

func (q *SOQL) OrderByAsc(field string) *SOQL {
	q.order = field + " ASC"
	return q
}

func (q *SOQL) Limit(n int) *SOQL {
	q.limit = n
	return q
}

func (q *SOQL) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.object)
	if len(q.conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(q.conds, " AND "))
	}
	if q.order != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.order)
	}
	if q.limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", q.limit)
	}
	return b.String()
}

func likeContains(field, value string) string {
	return fmt.Sprintf("%s LIKE %s", field, QuoteString("%"+value+"%"))
}

// QuoteString returns the value as a single-quoted SOQL literal with
// backslashes, quotes, and line breaks escaped.
func QuoteString(value string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		"\n", `\n`,
		"\r", `\r`,
	)
	return "'" + r.Replace(value) + "'"
}

// Digits strips everything but ASCII digits. Phone filters always pass
// through here before matching.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
