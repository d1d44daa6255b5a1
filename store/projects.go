package store

import (
	"database/sql"
	"fmt"
	"time"

	"inkwell/errs"
)

// CreateProject persists a new project and sets its ID and timestamps.
func (s *Store) CreateProject(p *Project) (string, error) {
	p.ID = newID()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO projects
			(id, name, author, provider_name, provider_api_key, provider_base_url,
			 provider_model, provider_max_tokens, provider_temperature, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Author,
		p.Provider.Name, p.Provider.APIKey, p.Provider.BaseURL,
		p.Provider.Model, p.Provider.MaxTokens, p.Provider.Temperature,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("insert project: %w", err)
	}
	return p.ID, nil
}

// GetProject retrieves a project by ID.
func (s *Store) GetProject(id string) (*Project, error) {
	row := s.db.QueryRow(`SELECT * FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, errs.Newf(errs.KindNotFound, "project %s not found", id)
	}
	return p, err
}

// ListProjects returns all projects ordered by creation time.
func (s *Store) ListProjects() ([]*Project, error) {
	rows, err := s.db.Query(`SELECT * FROM projects ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// UpdateProject saves changes to an existing project, bumping UpdatedAt.
func (s *Store) UpdateProject(p *Project) error {
	p.UpdatedAt = time.Now().UTC()
	res, err := s.db.Exec(`
		UPDATE projects SET
			name=?, author=?, provider_name=?, provider_api_key=?, provider_base_url=?,
			provider_model=?, provider_max_tokens=?, provider_temperature=?, updated_at=?
		WHERE id=?`,
		p.Name, p.Author,
		p.Provider.Name, p.Provider.APIKey, p.Provider.BaseURL,
		p.Provider.Model, p.Provider.MaxTokens, p.Provider.Temperature,
		p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	return requireRow(res, "project", p.ID)
}

// DeleteProject removes a project along with its docs and tasks.
func (s *Store) DeleteProject(id string) error {
	res, err := s.db.Exec(`DELETE FROM projects WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := requireRow(res, "project", id); err != nil {
		return err
	}
	if _, err := s.db.Exec(`DELETE FROM docs WHERE project_id=?`, id); err != nil {
		return fmt.Errorf("delete project docs: %w", err)
	}
	if _, err := s.db.Exec(`DELETE FROM tasks WHERE project_id=?`, id); err != nil {
		return fmt.Errorf("delete project tasks: %w", err)
	}
	return nil
}

// ProviderConfigFor returns the provider configuration the project
// carries, or a configuration error when none is usable.
func (s *Store) ProviderConfigFor(projectID string) (ProviderConfig, error) {
	p, err := s.GetProject(projectID)
	if err != nil {
		return ProviderConfig{}, err
	}
	if p.Provider.Model == "" || p.Provider.BaseURL == "" {
		return ProviderConfig{}, errs.Newf(errs.KindConfig,
			"project %s has no AI provider configured", projectID)
	}
	return p.Provider, nil
}

func scanProject(sc scanner) (*Project, error) {
	var p Project
	err := sc.Scan(
		&p.ID, &p.Name, &p.Author,
		&p.Provider.Name, &p.Provider.APIKey, &p.Provider.BaseURL,
		&p.Provider.Model, &p.Provider.MaxTokens, &p.Provider.Temperature,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// requireRow converts a zero-row update/delete into a not-found error.
func requireRow(res sql.Result, entity, id string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errs.Newf(errs.KindNotFound, "%s %s not found", entity, id)
	}
	return nil
}
