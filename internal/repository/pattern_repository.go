package repository

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assessment-service/internal/models"
)

type patternMongo struct {
	Col *mongo.Collection
}

func NewPatternRepository(db *mongo.Database) PatternRepository {
	r := &patternMongo{Col: db.Collection("learning_patterns")}
	r.ensureIndexes()
	return r
}

func (r *patternMongo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "student_id", Value: 1}, {Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("Failed to create pattern index: %v", err)
	}
}

func (r *patternMongo) FindByStudent(ctx context.Context, studentID string) ([]models.LearningPattern, error) {
	cur, err := r.Col.Find(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var patterns []models.LearningPattern
	for cur.Next(ctx) {
		var p models.LearningPattern
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		patterns = append(patterns, p)
	}
	return patterns, cur.Err()
}

func (r *patternMongo) Upsert(ctx context.Context, pattern *models.LearningPattern) error {
	filter := bson.M{"student_id": pattern.StudentID, "key": pattern.Key}
	update := bson.M{
		"$set": bson.M{
			"pattern_type":     pattern.PatternType,
			"data":             pattern.Data,
			"confidence_score": pattern.ConfidenceScore,
			"last_updated":     pattern.LastUpdated,
		},
		"$setOnInsert": bson.M{
			"detected_at": pattern.DetectedAt,
		},
	}
	_, err := r.Col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *patternMongo) DeleteStale(ctx context.Context, studentID string, keepKeys []string) error {
	if keepKeys == nil {
		keepKeys = []string{}
	}
	_, err := r.Col.DeleteMany(ctx, bson.M{
		"student_id": studentID,
		"key":        bson.M{"$nin": keepKeys},
	})
	return err
}
