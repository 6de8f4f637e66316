package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"assessment-service/internal/models"
)

type courseMongo struct {
	Col *mongo.Collection
}

func NewCourseRepository(db *mongo.Database) CourseRepository {
	return &courseMongo{Col: db.Collection("courses")}
}

func (r *courseMongo) Create(ctx context.Context, course *models.Course) error {
	res, err := r.Col.InsertOne(ctx, course)
	if err != nil {
		return err
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		course.ID = oid.Hex()
	}
	return nil
}

func (r *courseMongo) FindByID(ctx context.Context, id string) (*models.Course, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, models.ErrCourseNotFound
	}
	var course models.Course
	err = r.Col.FindOne(ctx, bson.M{"_id": objID}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseMongo) FindAll(ctx context.Context) ([]models.Course, error) {
	cur, err := r.Col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var courses []models.Course
	for cur.Next(ctx) {
		var c models.Course
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, cur.Err()
}

func (r *courseMongo) FindByLessonID(ctx context.Context, lessonID string) (*models.Course, error) {
	var course models.Course
	err := r.Col.FindOne(ctx, bson.M{"lessons.id": lessonID}).Decode(&course)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrCourseNotFound
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseMongo) Update(ctx context.Context, id string, update map[string]interface{}) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrCourseNotFound
	}
	_, err = r.Col.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{"$set": update})
	return err
}

func (r *courseMongo) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return models.ErrCourseNotFound
	}
	_, err = r.Col.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}
