package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"text2model/app/usecase"
	"text2model/internal/domain/entity"
	"text2model/internal/infrastructure/metrics"
	"text2model/internal/logging"
)

func TestStageAdapters_TextToImageRetriesThenSucceeds(t *testing.T) {
	services := newFakeServices()
	attempts := 0
	services.set(imageSvc, func(p map[string]any) (map[string]any, error) {
		attempts++
		assert.Equal(t, "a red chair", p["prompt"])
		if attempts < 3 {
			return nil, errors.New("503")
		}
		return map[string]any{"image": []byte("png-bytes")}, nil
	})
	sleep := &sleepRecorder{}
	stages := usecase.NewStageAdapters(longerEnhancer(), services, testPolicy(sleep.Sleep), logging.NewNop())

	image, err := stages.TextToImage(context.Background(), "a red chair", "cid", defaultServices())

	require.NoError(t, err)
	assert.Equal(t, "cG5nLWJ5dGVz", image)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleep.waits)
}

func TestStageAdapters_ImageToModelPayload(t *testing.T) {
	services := newFakeServices()
	var got map[string]any
	services.set(modelSvc, func(p map[string]any) (map[string]any, error) {
		got = p
		return sampleModel(), nil
	})
	stages := usecase.NewStageAdapters(longerEnhancer(), services, testPolicy((&sleepRecorder{}).Sleep), logging.NewNop())

	model, err := stages.ImageToModel(context.Background(), sampleImage, "cid", defaultServices())

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"image": sampleImage}, got)
	assert.Equal(t, "glb", model["format"])
}

func TestStageAdapters_CanceledContextSkipsSecondary(t *testing.T) {
	services := newFakeServices()
	services.set(imageSvc, func(map[string]any) (map[string]any, error) {
		return nil, errors.New("primary down")
	})
	services.set(imageSvc2, func(map[string]any) (map[string]any, error) {
		return map[string]any{"image": sampleImage}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stages := usecase.NewStageAdapters(longerEnhancer(), services, testPolicy(func(ctx context.Context, d time.Duration) error {
		return ctx.Err()
	}), logging.NewNop())

	_, err := stages.TextToImage(ctx, "a red chair", "cid", entity.ServiceIDs{
		TextToImage:          imageSvc,
		TextToImageSecondary: imageSvc2,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, services.count(imageSvc))
	assert.Zero(t, services.count(imageSvc2))
}

func TestStageAdapters_EnhancePromptPassesCorrelationID(t *testing.T) {
	var gotID string
	enhancer := enhancerFunc(func(ctx context.Context, prompt, correlationID string) (string, error) {
		gotID = correlationID
		return prompt + " in bright detail", nil
	})
	stages := usecase.NewStageAdapters(enhancer, newFakeServices(), testPolicy((&sleepRecorder{}).Sleep), logging.NewNop())

	out := stages.EnhancePrompt(context.Background(), "a lamp", "cid-7")
	assert.Equal(t, "a lamp in bright detail", out)
	assert.Equal(t, "cid-7", gotID)
}

func TestStageAdapters_ServiceRequestsLabelledByCapability(t *testing.T) {
	services := newFakeServices()
	stages := usecase.NewStageAdapters(longerEnhancer(), services, testPolicy((&sleepRecorder{}).Sleep), logging.NewNop())

	imageBefore := testutil.ToFloat64(metrics.ServiceRequests.WithLabelValues("text_to_image"))
	modelBefore := testutil.ToFloat64(metrics.ServiceRequests.WithLabelValues("image_to_3d"))

	image, err := stages.TextToImage(context.Background(), "a red chair", "cid", defaultServices())
	require.NoError(t, err)
	_, err = stages.ImageToModel(context.Background(), image, "cid", defaultServices())
	require.NoError(t, err)

	assert.Equal(t, imageBefore+1, testutil.ToFloat64(metrics.ServiceRequests.WithLabelValues("text_to_image")))
	assert.Equal(t, modelBefore+1, testutil.ToFloat64(metrics.ServiceRequests.WithLabelValues("image_to_3d")))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.ServiceRequests.WithLabelValues(imageSvc)))
}
