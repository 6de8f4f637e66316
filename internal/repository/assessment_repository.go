package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"assessment-service/internal/models"
)

type assessmentMongo struct {
	Col *mongo.Collection
}

func NewAssessmentRepository(db *mongo.Database) AssessmentRepository {
	return &assessmentMongo{Col: db.Collection("assessments")}
}

func (r *assessmentMongo) Create(ctx context.Context, assessment *models.Assessment) error {
	res, err := r.Col.InsertOne(ctx, assessment)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		assessment.ID = oid.Hex()
	}
	return nil
}

func (r *assessmentMongo) FindByID(ctx context.Context, id string) (*models.Assessment, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrAssessmentNotFound
	}
	var assessment models.Assessment
	err = r.Col.FindOne(ctx, bson.M{"_id": objID}).Decode(&assessment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrAssessmentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &assessment, nil
}

func (r *assessmentMongo) FindByCourse(ctx context.Context, courseID string) ([]models.Assessment, error) {
	cur, err := r.Col.Find(ctx, bson.M{"course_id": courseID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var assessments []models.Assessment
	for cur.Next(ctx) {
		var a models.Assessment
		if err := cur.Decode(&a); err != nil {
			return nil, err
		}
		assessments = append(assessments, a)
	}
	return assessments, cur.Err()
}

func (r *assessmentMongo) Update(ctx context.Context, id string, update map[string]interface{}) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrAssessmentNotFound
	}
	_, err = r.Col.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": update})
	return err
}

func (r *assessmentMongo) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrAssessmentNotFound
	}
	_, err = r.Col.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}
