package mariadb

import (
	"context"
	"fmt"
	"strings"
)

// DirectoryEmployee is a row of the HR directory.
type DirectoryEmployee struct {
	Name       string
	Email      string
	Department string
}

// ListDirectoryEmployees returns active directory entries ordered by email.
// Rows without an email are skipped since email is the matching key.
func (p *Pool) ListDirectoryEmployees(ctx context.Context) ([]DirectoryEmployee, error) {
	query := `
		SELECT full_name, email, COALESCE(department, '')
		FROM directory_employees
		WHERE active = 1 AND email IS NOT NULL AND email <> ''
		ORDER BY email
	`

	rows, err := p.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query directory employees: %w", err)
	}
	defer rows.Close()

	var result []DirectoryEmployee
	for rows.Next() {
		var e DirectoryEmployee
		if err := rows.Scan(&e.Name, &e.Email, &e.Department); err != nil {
			return nil, fmt.Errorf("scan directory employee: %w", err)
		}
		e.Name = strings.TrimSpace(e.Name)
		e.Email = strings.TrimSpace(e.Email)
		e.Department = strings.TrimSpace(e.Department)
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate directory employees: %w", err)
	}
	return result, nil
}
