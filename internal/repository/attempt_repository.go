package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"assessment-service/internal/models"
)

type attemptMongo struct {
	Col *mongo.Collection
}

func NewAttemptRepository(db *mongo.Database) AttemptRepository {
	r := &attemptMongo{Col: db.Collection("attempts")}
	r.ensureIndexes()
	return r
}

// ensureIndexes creates the uniqueness guards the state machine relies on: at
// most one in-progress attempt per (student, assessment), and gap-free attempt
// numbering per pair.
func (r *attemptMongo) ensureIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := r.Col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "assessment_id", Value: 1}, {Key: "student_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": string(models.AttemptInProgressStatus)}),
		},
		{
			Keys: bson.D{
				{Key: "assessment_id", Value: 1},
				{Key: "student_id", Value: 1},
				{Key: "attempt_number", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "student_id", Value: 1}, {Key: "graded_at", Value: -1}},
		},
	})
	if err != nil {
		log.Printf("Failed to create attempt indexes: %v", err)
	}
}

func (r *attemptMongo) Create(ctx context.Context, attempt *models.AssessmentAttempt) error {
	res, err := r.Col.InsertOne(ctx, attempt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrAttemptInProgress
		}
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		attempt.ID = oid.Hex()
	}
	return nil
}

func (r *attemptMongo) FindByID(ctx context.Context, id string) (*models.AssessmentAttempt, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrAttemptNotFound
	}
	var attempt models.AssessmentAttempt
	err = r.Col.FindOne(ctx, bson.M{"_id": objID}).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrAttemptNotFound
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptMongo) FindActive(ctx context.Context, assessmentID, studentID string) (*models.AssessmentAttempt, error) {
	var attempt models.AssessmentAttempt
	err := r.Col.FindOne(ctx, bson.M{
		"assessment_id": assessmentID,
		"student_id":    studentID,
		"status":        models.AttemptInProgressStatus,
	}).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (r *attemptMongo) MaxAttemptNumber(ctx context.Context, assessmentID, studentID string) (int, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "attempt_number", Value: -1}})
	var attempt models.AssessmentAttempt
	err := r.Col.FindOne(ctx, bson.M{
		"assessment_id": assessmentID,
		"student_id":    studentID,
	}, opts).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return attempt.AttemptNumber, nil
}

func (r *attemptMongo) UpsertAnswer(ctx context.Context, attemptID string, answer models.AttemptAnswer) error {
	objID, err := primitive.ObjectIDFromHex(attemptID)
	if err != nil {
		return models.ErrAttemptNotFound
	}
	res, err := r.Col.UpdateOne(ctx,
		bson.M{"_id": objID, "status": models.AttemptInProgressStatus},
		bson.M{"$set": bson.M{"answers." + answer.QuestionID: answer}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Either the attempt is gone or it already left in_progress.
		if _, findErr := r.FindByID(ctx, attemptID); findErr != nil {
			return findErr
		}
		return models.ErrAttemptNotActive
	}
	return nil
}

func (r *attemptMongo) Save(ctx context.Context, attempt *models.AssessmentAttempt) error {
	objID, err := primitive.ObjectIDFromHex(attempt.ID)
	if err != nil {
		return models.ErrAttemptNotFound
	}
	_, err = r.Col.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": bson.M{
		"answers":            attempt.Answers,
		"status":             attempt.Status,
		"submitted_at":       attempt.SubmittedAt,
		"graded_at":          attempt.GradedAt,
		"time_spent_seconds": attempt.TimeSpentSeconds,
		"late":               attempt.Late,
		"points_earned":      attempt.PointsEarned,
		"total_points":       attempt.TotalPoints,
		"score":              attempt.Score,
		"passed":             attempt.Passed,
	}})
	return err
}

func (r *attemptMongo) FindByAssessmentAndStudent(ctx context.Context, assessmentID, studentID string) ([]models.AssessmentAttempt, error) {
	return r.findAll(ctx, bson.M{"assessment_id": assessmentID, "student_id": studentID})
}

func (r *attemptMongo) FindByStudent(ctx context.Context, studentID string) ([]models.AssessmentAttempt, error) {
	return r.findAll(ctx, bson.M{"student_id": studentID})
}

func (r *attemptMongo) FindOverdue(ctx context.Context, before time.Time) ([]models.AssessmentAttempt, error) {
	return r.findAll(ctx, bson.M{
		"status":      models.AttemptInProgressStatus,
		"deadline_at": bson.M{"$ne": nil, "$lt": before},
	})
}

func (r *attemptMongo) findAll(ctx context.Context, filter bson.M) ([]models.AssessmentAttempt, error) {
	cur, err := r.Col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var attempts []models.AssessmentAttempt
	for cur.Next(ctx) {
		var a models.AssessmentAttempt
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, cur.Err()
}

func (r *attemptMongo) AveragePacePerQuestion(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"status":             models.AttemptGraded,
			"time_spent_seconds": bson.M{"$gt": 0},
			"questions.0":        bson.M{"$exists": true},
		}}},
		{{Key: "$project", Value: bson.M{
			"pace": bson.M{"$divide": bson.A{"$time_spent_seconds", bson.M{"$size": "$questions"}}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":  nil,
			"pace": bson.M{"$avg": "$pace"},
		}}},
	}
	cur, err := r.Col.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)
	var result struct {
		Pace float64 `bson:"pace"`
	}
	if cur.Next(ctx) {
		if err := cur.Decode(&result); err != nil {
			return 0, err
		}
	}
	return result.Pace, cur.Err()
}

func (r *attemptMongo) DistinctStudentsGradedSince(ctx context.Context, since time.Time) ([]string, error) {
	values, err := r.Col.Distinct(ctx, "student_id", bson.M{
		"status":    models.AttemptGraded,
		"graded_at": bson.M{"$gte": since},
	})
	if err != nil {
		return nil, err
	}
	students := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok {
			students = append(students, s)
		}
	}
	return students, nil
}
