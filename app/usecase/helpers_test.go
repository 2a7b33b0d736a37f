package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"text2model/app/usecase"
	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/store/filesystem"
	"text2model/internal/logging"
	"text2model/internal/resilience"
)

const (
	sampleImage = "iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNk+P+/HgAFeAJcI9BX2AAAAABJRU5ErkJggg=="

	imageSvc  = "text2img-primary"
	imageSvc2 = "text2img-secondary"
	modelSvc  = "img23d-primary"
	modelSvc2 = "img23d-secondary"
)

func sampleModel() map[string]any {
	return map[string]any{
		"format":  "glb",
		"model":   "base64_data_would_go_here",
		"preview": "base64_preview_image",
	}
}

type enhancerFunc func(ctx context.Context, prompt, correlationID string) (string, error)

func (f enhancerFunc) Enhance(ctx context.Context, prompt, correlationID string) (string, error) {
	return f(ctx, prompt, correlationID)
}

// fakeServices answers generation calls by service id and counts them.
type fakeServices struct {
	mu       sync.Mutex
	handlers map[string]func(payload map[string]any) (map[string]any, error)
	calls    map[string]int
}

func newFakeServices() *fakeServices {
	f := &fakeServices{
		handlers: map[string]func(map[string]any) (map[string]any, error){},
		calls:    map[string]int{},
	}
	f.handlers[imageSvc] = func(map[string]any) (map[string]any, error) {
		return map[string]any{"image": sampleImage}, nil
	}
	f.handlers[modelSvc] = func(map[string]any) (map[string]any, error) {
		return sampleModel(), nil
	}
	return f
}

func (f *fakeServices) Call(ctx context.Context, serviceID string, payload map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls[serviceID]++
	h, ok := f.handlers[serviceID]
	f.mu.Unlock()
	if !ok {
		return nil, errors.New("unknown service " + serviceID)
	}
	return h(payload)
}

func (f *fakeServices) set(serviceID string, h func(map[string]any) (map[string]any, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[serviceID] = h
}

func (f *fakeServices) count(serviceID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[serviceID]
}

// sleepRecorder replaces the backoff wait and records the requested delays.
type sleepRecorder struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *sleepRecorder) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

func (r *sleepRecorder) total() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	var sum time.Duration
	for _, w := range r.waits {
		sum += w
	}
	return sum
}

func testPolicy(sleep resilience.SleepFunc) resilience.Policy {
	p := resilience.DefaultPolicy(logging.NewNop())
	p.Sleep = sleep
	return p
}

func defaultServices() entity.ServiceIDs {
	return entity.ServiceIDs{TextToImage: imageSvc, ImageToModel: modelSvc}
}

func longerEnhancer() enhancerFunc {
	return func(ctx context.Context, prompt, _ string) (string, error) {
		return prompt + ", rendered with glowing neon color, glossy metal texture and sharp architectural detail", nil
	}
}

type pipelineDeps struct {
	enhancer    repository.PromptEnhancer
	services    *fakeServices
	store       repository.ArtifactStore
	userConfigs repository.UserConfigStore
	ids         entity.ServiceIDs
	sleep       *sleepRecorder
	policy      *resilience.Policy
}

func newPipeline(t *testing.T, deps pipelineDeps) *usecase.Pipeline {
	t.Helper()
	if deps.enhancer == nil {
		deps.enhancer = longerEnhancer()
	}
	if deps.services == nil {
		deps.services = newFakeServices()
	}
	if deps.store == nil {
		store, err := filesystem.NewArtifactStore(t.TempDir())
		require.NoError(t, err)
		deps.store = store
	}
	if deps.ids == (entity.ServiceIDs{}) {
		deps.ids = defaultServices()
	}
	if deps.sleep == nil {
		deps.sleep = &sleepRecorder{}
	}
	policy := testPolicy(deps.sleep.Sleep)
	if deps.policy != nil {
		policy = *deps.policy
	}

	logger := logging.NewNop()
	stages := usecase.NewStageAdapters(deps.enhancer, deps.services, policy, logger)
	return usecase.NewPipeline(stages, deps.store, deps.userConfigs, deps.ids, logger)
}

// failingStore fails the configured save and counts calls.
type failingStore struct {
	mu         sync.Mutex
	failImage  bool
	failModel  bool
	imageCalls int
	modelCalls int
}

func (s *failingStore) SaveImage(ctx context.Context, data, prompt, prefix string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.imageCalls++
	if s.failImage {
		return "", "", errors.New("disk full")
	}
	return "/out/images/" + prefix + ".png", prefix + ".png", nil
}

func (s *failingStore) SaveModel(ctx context.Context, data map[string]any, prompt, sourceImage, prefix string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelCalls++
	if s.failModel {
		return "", "", errors.New("disk full")
	}
	return "/out/models/" + prefix + ".json", prefix + ".json", nil
}
