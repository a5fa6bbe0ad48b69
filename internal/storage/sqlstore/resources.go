package sqlstore

import (
	"errors"
	"fmt"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/models"
)

func (t *tx) AddMachine(m models.Machine) error {
	if _, err := t.GetMachine(m.Name); err == nil {
		return apperr.Invalid("name", "machine %q already exists", m.Name)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	_, err := t.exec(`INSERT INTO machines (name, kind, created_at) VALUES (?, ?, ?)`,
		m.Name, m.Kind, formatTime(m.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add machine: %w", err)
	}
	return nil
}

func (t *tx) GetMachine(name string) (models.Machine, error) {
	var (
		m         models.Machine
		createdAt string
	)
	err := t.queryRow(`SELECT name, kind, created_at FROM machines WHERE name = ?`, name).Scan(&m.Name, &m.Kind, &createdAt)
	if err != nil {
		return models.Machine{}, notFound(err, "machine", name)
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.Machine{}, err
	}
	return m, nil
}

func (t *tx) ListMachines() ([]models.Machine, error) {
	rows, err := t.query(`SELECT name, kind, created_at FROM machines ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list machines: %w", err)
	}
	defer rows.Close()

	var machines []models.Machine
	for rows.Next() {
		var (
			m         models.Machine
			createdAt string
		)
		if err := rows.Scan(&m.Name, &m.Kind, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		if m.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		machines = append(machines, m)
	}
	return machines, rows.Err()
}

func (t *tx) AddPersonnel(p models.Personnel) error {
	if _, err := t.GetPersonnelByName(p.Name); err == nil {
		return apperr.Invalid("name", "%q is already registered", p.Name)
	} else if !errors.Is(err, apperr.ErrNotFound) {
		return err
	}
	_, err := t.exec(`INSERT INTO personnel (id, name, role, created_at) VALUES (?, ?, ?, ?)`,
		p.ID, p.Name, string(p.Role), formatTime(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to add personnel: %w", err)
	}
	return nil
}

func (t *tx) GetPersonnelByName(name string) (models.Personnel, error) {
	p, err := scanPersonnel(t.queryRow(`SELECT id, name, role, created_at FROM personnel WHERE name = ?`, name))
	if err != nil {
		return models.Personnel{}, notFound(err, "personnel", name)
	}
	return p, nil
}

func (t *tx) ListPersonnel() ([]models.Personnel, error) {
	rows, err := t.query(`SELECT id, name, role, created_at FROM personnel ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list personnel: %w", err)
	}
	defer rows.Close()

	var people []models.Personnel
	for rows.Next() {
		p, err := scanPersonnel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan personnel: %w", err)
		}
		people = append(people, p)
	}
	return people, rows.Err()
}

func scanPersonnel(row scanner) (models.Personnel, error) {
	var (
		p               models.Personnel
		role, createdAt string
	)
	if err := row.Scan(&p.ID, &p.Name, &role, &createdAt); err != nil {
		return models.Personnel{}, err
	}
	p.Role = models.Role(role)
	created, err := parseTime(createdAt)
	if err != nil {
		return models.Personnel{}, err
	}
	p.CreatedAt = created
	return p, nil
}
