package mongodb

import (
	"context"
	"log/slog"

	"text2model/internal/domain/entity"
	"text2model/internal/domain/repository"
	"text2model/internal/infrastructure/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoArtifactRepo indexes saved images and models by job.
type MongoArtifactRepo struct {
	col    *mongo.Collection
	logger *slog.Logger
}

func NewMongoArtifactRepo(db *mongo.Database, logger *slog.Logger) repository.ArtifactRepository {
	col := db.Collection("artifacts")

	_, _ = col.Indexes().CreateMany(context.Background(), []mongo.IndexModel{
		{Keys: bson.D{bson.E{Key: "job_id", Value: 1}}},
		{Keys: bson.D{bson.E{Key: "correlation_id", Value: 1}}},
	})

	return &MongoArtifactRepo{
		col:    col,
		logger: logger,
	}
}

func (r *MongoArtifactRepo) SaveArtifacts(ctx context.Context, artifacts []*entity.Artifact) error {
	if len(artifacts) == 0 {
		return nil
	}

	metrics.IncDBOp("put")

	docs := make([]interface{}, len(artifacts))
	for i, a := range artifacts {
		docs[i] = a
	}

	_, err := r.col.InsertMany(ctx, docs)
	if err != nil {
		metrics.IncError("mongo_artifact_repo", "save_error")
		return err
	}
	return nil
}

func (r *MongoArtifactRepo) ListByJobID(ctx context.Context, jobID string) ([]*entity.Artifact, error) {
	metrics.IncDBOp("list")

	opts := options.Find().SetSort(bson.D{bson.E{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"job_id": jobID}, opts)
	if err != nil {
		metrics.IncError("mongo_artifact_repo", "list_error")
		return nil, err
	}
	defer func() {
		if err := cur.Close(ctx); err != nil {
			r.logger.Warn("close cursor err", "err", err)
		}
	}()

	var result []*entity.Artifact
	for cur.Next(ctx) {
		var doc entity.Artifact
		if err := cur.Decode(&doc); err != nil {
			metrics.IncError("mongo_artifact_repo", "list_decode_error")
			return nil, err
		}
		result = append(result, &doc)
	}
	return result, cur.Err()
}

func (r *MongoArtifactRepo) DeleteByJobID(ctx context.Context, jobID string) error {
	metrics.IncDBOp("delete")

	_, err := r.col.DeleteMany(ctx, bson.M{"job_id": jobID})
	if err != nil {
		metrics.IncError("mongo_artifact_repo", "delete_error")
		return err
	}
	return nil
}
