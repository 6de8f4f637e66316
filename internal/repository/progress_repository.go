package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assessment-service/internal/models"
)

type progressMongo struct {
	Col *mongo.Collection
}

func NewProgressRepository(db *mongo.Database) ProgressRepository {
	r := &progressMongo{Col: db.Collection("student_progress")}
	r.ensureIndexes()
	return r
}

func (r *progressMongo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.Col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "student_id", Value: 1},
			{Key: "course_id", Value: 1},
			{Key: "lesson_id", Value: 1},
			{Key: "assessment_id", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		log.Printf("Failed to create progress index: %v", err)
	}
}

func (r *progressMongo) Upsert(ctx context.Context, progress *models.StudentProgress) error {
	if err := progress.Validate(); err != nil {
		return err
	}
	filter := bson.M{
		"student_id":    progress.StudentID,
		"course_id":     progress.CourseID,
		"lesson_id":     progress.LessonID,
		"assessment_id": progress.AssessmentID,
	}
	update := bson.M{"$set": bson.M{
		"status":           progress.Status,
		"best_score":       progress.BestScore,
		"attempts_count":   progress.AttemptsCount,
		"interaction_done": progress.InteractionDone,
		"override":         progress.Override,
		"last_accessed":    progress.LastAccessed,
	}}
	_, err := r.Col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *progressMongo) FindByStudent(ctx context.Context, studentID string) ([]models.StudentProgress, error) {
	cur, err := r.Col.Find(ctx, bson.M{"student_id": studentID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []models.StudentProgress
	for cur.Next(ctx) {
		var p models.StudentProgress
		if err := cur.Decode(&p); err != nil {
			return nil, err
		}
		rows = append(rows, p)
	}
	return rows, cur.Err()
}

func (r *progressMongo) FindLessonRow(ctx context.Context, studentID, lessonID string) (*models.StudentProgress, error) {
	return r.findOne(ctx, bson.M{"student_id": studentID, "lesson_id": lessonID})
}

func (r *progressMongo) FindAssessmentRow(ctx context.Context, studentID, assessmentID string) (*models.StudentProgress, error) {
	return r.findOne(ctx, bson.M{"student_id": studentID, "assessment_id": assessmentID})
}

func (r *progressMongo) findOne(ctx context.Context, filter bson.M) (*models.StudentProgress, error) {
	var p models.StudentProgress
	err := r.Col.FindOne(ctx, filter).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
