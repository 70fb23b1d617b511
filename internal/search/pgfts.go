package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

// Search executes a UNION ALL query across documents and templates using
// plainto_tsquery and ts_rank, with ts_headline for snippets.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultDocument {
		docWhere := "d.fts @@ " + tsQuery
		if q.OrganizationID != "" {
			docWhere += fmt.Sprintf(" AND d.organization_id = $%d", argN)
			args = append(args, q.OrganizationID)
			argN++
		}
		if q.UserID != "" {
			docWhere += fmt.Sprintf(" AND d.user_id = $%d", argN)
			args = append(args, q.UserID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'document'::text AS type, d.id, d.title,
				ts_headline('english', d.content, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				d.organization_id,
				ts_rank(d.fts, %s) AS rank
			FROM documents d
			WHERE %s`, tsQuery, tsQuery, docWhere))
	}

	if q.FilterType == "" || q.FilterType == ResultTemplate {
		tplWhere := "t.fts @@ " + tsQuery + " AND t.status = 'active'"
		if q.OrganizationID != "" {
			tplWhere += fmt.Sprintf(" AND t.organization_id = $%d", argN)
			args = append(args, q.OrganizationID)
			argN++
		}
		if q.RequiredRole != "" {
			tplWhere += fmt.Sprintf(" AND t.required_role = $%d", argN)
			args = append(args, q.RequiredRole)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'template'::text AS type, t.id, t.name AS title,
				ts_headline('english', t.type || ' ' || t.subtype, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.organization_id,
				ts_rank(t.fts, %s) AS rank
			FROM templates t
			WHERE %s`, tsQuery, tsQuery, tplWhere))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, organization_id
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.OrganizationID); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]DocumentRecord, []TemplateRecord, error) {
	docRows, err := p.db.QueryContext(ctx, `
		SELECT id, title, content, organization_id, user_id
		FROM documents
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load documents: %w", err)
	}
	defer docRows.Close()

	documents := make([]DocumentRecord, 0)
	for docRows.Next() {
		var d DocumentRecord
		if err := docRows.Scan(&d.ID, &d.Title, &d.Content, &d.OrganizationID, &d.UserID); err != nil {
			return nil, nil, fmt.Errorf("scan document: %w", err)
		}
		documents = append(documents, d)
	}
	if err := docRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate documents: %w", err)
	}

	tplRows, err := p.db.QueryContext(ctx, `
		SELECT id, name, type, subtype, organization_id, required_role, status
		FROM templates
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load templates: %w", err)
	}
	defer tplRows.Close()

	templates := make([]TemplateRecord, 0)
	for tplRows.Next() {
		var t TemplateRecord
		if err := tplRows.Scan(&t.ID, &t.Name, &t.Type, &t.Subtype, &t.OrganizationID, &t.RequiredRole, &t.Status); err != nil {
			return nil, nil, fmt.Errorf("scan template: %w", err)
		}
		templates = append(templates, t)
	}
	if err := tplRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate templates: %w", err)
	}

	return documents, templates, nil
}
