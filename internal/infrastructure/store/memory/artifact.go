package memory

import (
	"context"
	"sync"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
)

type ArtifactRepo struct {
	mu    sync.RWMutex
	byJob map[string][]entity.Artifact
}

var _ repository.ArtifactRepository = (*ArtifactRepo)(nil)

func NewArtifactRepo() *ArtifactRepo {
	return &ArtifactRepo{byJob: make(map[string][]entity.Artifact)}
}

func (r *ArtifactRepo) SaveArtifacts(ctx context.Context, artifacts []*entity.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}
	metrics.IncDBOp("put")

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range artifacts {
		r.byJob[a.JobID] = append(r.byJob[a.JobID], *a)
	}
	return nil
}

func (r *ArtifactRepo) ListByJobID(ctx context.Context, jobID string) ([]*entity.Artifact, error) {
	metrics.IncDBOp("list")

	r.mu.RLock()
	defer r.mu.RUnlock()
	stored := r.byJob[jobID]
	out := make([]*entity.Artifact, len(stored))
	for i := range stored {
		a := stored[i]
		out[i] = &a
	}
	return out, nil
}

func (r *ArtifactRepo) DeleteByJobID(ctx context.Context, jobID string) error {
	metrics.IncDBOp("delete")

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byJob, jobID)
	return nil
}
