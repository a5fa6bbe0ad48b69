package service

import (
	"context"
	"strings"

	apperr "github.com/julianstephens/moldtrack/internal/errors"
	"github.com/julianstephens/moldtrack/internal/lifecycle"
	"github.com/julianstephens/moldtrack/internal/logger"
	"github.com/julianstephens/moldtrack/internal/models"
	"github.com/julianstephens/moldtrack/internal/storage"
)

// AddPersonnel registers a person. While the registry is empty anyone may add the first
// entry; after that the actor needs the manage capability.
func (s *Service) AddPersonnel(ctx context.Context, actor lifecycle.Actor, name string, role models.Role) (models.Personnel, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Personnel{}, apperr.Invalid("name", "name cannot be empty")
	}
	role, err := models.ParseRole(string(role))
	if err != nil {
		return models.Personnel{}, err
	}
	p := models.Personnel{ID: s.newID(), Name: name, Role: role, CreatedAt: s.now()}

	err = s.store.Update(ctx, func(tx storage.Tx) error {
		people, err := tx.ListPersonnel()
		if err != nil {
			return err
		}
		if len(people) > 0 {
			if err := actor.Require(lifecycle.CapManageGraph); err != nil {
				return err
			}
		}
		return tx.AddPersonnel(p)
	})
	if err != nil {
		return models.Personnel{}, err
	}

	logger.Info("Personnel added", "name", p.Name, "role", p.Role, "actor", actor.Name)
	return p, nil
}

func (s *Service) AddMachine(ctx context.Context, actor lifecycle.Actor, name, kind string) (models.Machine, error) {
	if err := actor.Require(lifecycle.CapManageGraph); err != nil {
		return models.Machine{}, err
	}
	m := models.Machine{Name: strings.TrimSpace(name), Kind: strings.TrimSpace(kind), CreatedAt: s.now()}
	if m.Name == "" {
		return models.Machine{}, apperr.Invalid("name", "machine name cannot be empty")
	}
	if err := s.store.Update(ctx, func(tx storage.Tx) error { return tx.AddMachine(m) }); err != nil {
		return models.Machine{}, err
	}

	logger.Info("Machine added", "machine", m.Name, "kind", m.Kind, "actor", actor.Name)
	return m, nil
}

func (s *Service) ListPersonnel(ctx context.Context) ([]models.Personnel, error) {
	var people []models.Personnel
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		people, err = tx.ListPersonnel()
		return err
	})
	return people, err
}

func (s *Service) ListMachines(ctx context.Context) ([]models.Machine, error) {
	var machines []models.Machine
	err := s.store.View(ctx, func(tx storage.Tx) error {
		var err error
		machines, err = tx.ListMachines()
		return err
	})
	return machines, err
}
