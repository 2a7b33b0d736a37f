package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"
)

// JobRepo keeps jobs in process memory. Jobs are copied on the way in and out
// so callers never share a pointer with the store.
type JobRepo struct {
	mu   sync.RWMutex
	jobs map[string]*entity.Job
}

var _ repository.JobRepository = (*JobRepo)(nil)

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[string]*entity.Job)}
}

func cloneJob(j *entity.Job) *entity.Job {
	c := *j
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	return &c
}

func (r *JobRepo) Create(ctx context.Context, job *entity.Job) error {
	metrics.IncJobsCreated()

	job.CreatedAt = time.Now()
	job.UpdatedAt = job.CreatedAt

	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *JobRepo) GetByID(ctx context.Context, id string) (*entity.Job, error) {
	metrics.IncDBOp("get")

	r.mu.RLock()
	defer r.mu.RUnlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, nil
	}
	return cloneJob(j), nil
}

func (r *JobRepo) List(ctx context.Context) ([]*entity.Job, error) {
	metrics.IncDBOp("list")

	jobs := r.filter(func(*entity.Job) bool { return true })
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].CreatedAt.After(jobs[b].CreatedAt) })
	return jobs, nil
}

func (r *JobRepo) ListByStatus(ctx context.Context, status entity.JobStatus) ([]*entity.Job, error) {
	metrics.IncDBOp("list")

	jobs := r.filter(func(j *entity.Job) bool { return j.Status == status })
	sort.SliceStable(jobs, func(a, b int) bool { return jobs[a].CreatedAt.Before(jobs[b].CreatedAt) })
	return jobs, nil
}

func (r *JobRepo) Update(ctx context.Context, job *entity.Job) error {
	metrics.IncDBOp("put")

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return entity.ErrNotFound
	}
	job.UpdatedAt = time.Now()
	r.jobs[job.ID] = cloneJob(job)
	return nil
}

func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status entity.JobStatus) error {
	metrics.IncDBOp("put")

	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return entity.ErrNotFound
	}
	j.UpdateStatus(status)
	return nil
}

func (r *JobRepo) Delete(ctx context.Context, id string) error {
	metrics.IncDBOp("delete")

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[id]; !ok {
		return entity.ErrNotFound
	}
	delete(r.jobs, id)
	return nil
}

func (r *JobRepo) CountByStatus(ctx context.Context, status entity.JobStatus) (int, error) {
	metrics.IncDBOp("count")

	return len(r.filter(func(j *entity.Job) bool { return j.Status == status })), nil
}

func (r *JobRepo) filter(keep func(*entity.Job) bool) []*entity.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		if keep(j) {
			out = append(out, cloneJob(j))
		}
	}
	return out
}
