package service

import (
	"context"

	"envirogram/internal/derived"
	"envirogram/internal/modules/readings/repository"
)

// RepositorySink stores each record in the history database.
type RepositorySink struct {
	repo repository.ReadingsRepository
}

func NewRepositorySink(repo repository.ReadingsRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Name() string { return "sqlite" }

func (s *RepositorySink) Consume(ctx context.Context, rec derived.OutputRecord) error {
	_, err := s.repo.InsertReading(ctx, rec)
	return err
}
