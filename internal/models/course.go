package models

import (
	"fmt"
	"time"
)

type ContentType string

const (
	ContentRichText ContentType = "rich_text"
	ContentImage    ContentType = "image"
	ContentVideo    ContentType = "video"
	ContentFile     ContentType = "file"
	ContentYouTube  ContentType = "youtube"
)

type RichTextContent struct {
	HTML string `bson:"html" json:"html"`
}

type ImageContent struct {
	URL     string `bson:"url" json:"url"`
	AltText string `bson:"alt_text,omitempty" json:"alt_text,omitempty"`
}

type VideoContent struct {
	URL             string `bson:"url" json:"url"`
	DurationSeconds int    `bson:"duration_seconds,omitempty" json:"duration_seconds,omitempty"`
}

type FileContent struct {
	URL      string `bson:"url" json:"url"`
	FileName string `bson:"file_name" json:"file_name"`
	Size     int64  `bson:"size,omitempty" json:"size,omitempty"`
}

type YouTubeContent struct {
	VideoID      string `bson:"video_id" json:"video_id"`
	StartSeconds int    `bson:"start_seconds,omitempty" json:"start_seconds,omitempty"`
}

// ContentBlock is a tagged variant: Type names the variant and exactly one
// payload field is set. Keeping the union closed lets the pattern analyzer
// switch over content types exhaustively.
type ContentBlock struct {
	ID       string      `bson:"id" json:"id"`
	Type     ContentType `bson:"type" json:"type"`
	Position int         `bson:"position" json:"position"`

	RichText *RichTextContent `bson:"rich_text,omitempty" json:"rich_text,omitempty"`
	Image    *ImageContent    `bson:"image,omitempty" json:"image,omitempty"`
	Video    *VideoContent    `bson:"video,omitempty" json:"video,omitempty"`
	File     *FileContent     `bson:"file,omitempty" json:"file,omitempty"`
	YouTube  *YouTubeContent  `bson:"youtube,omitempty" json:"youtube,omitempty"`
}

func (b *ContentBlock) Validate() error {
	set := 0
	var want bool
	for _, p := range []struct {
		t  ContentType
		ok bool
	}{
		{ContentRichText, b.RichText != nil},
		{ContentImage, b.Image != nil},
		{ContentVideo, b.Video != nil},
		{ContentFile, b.File != nil},
		{ContentYouTube, b.YouTube != nil},
	} {
		if p.ok {
			set++
		}
		if p.t == b.Type {
			want = p.ok
		}
	}
	if set != 1 || !want {
		return fmt.Errorf("content block %q must carry exactly the %q payload", b.ID, b.Type)
	}
	return nil
}

// Lesson is one unit of course content. Lessons unlock in Position order: a
// lesson is blocked while the previous lesson's mandatory assessment has no
// passing attempt.
type Lesson struct {
	ID           string         `bson:"id" json:"id"`
	Title        string         `bson:"title" json:"title"`
	Position     int            `bson:"position" json:"position"`
	Blocks       []ContentBlock `bson:"blocks,omitempty" json:"blocks,omitempty"`
	AssessmentID string         `bson:"assessment_id,omitempty" json:"assessment_id,omitempty"`
}

type Course struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Title     string    `bson:"title" json:"title" validate:"required"`
	Lessons   []Lesson  `bson:"lessons" json:"lessons"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// LessonByID returns the lesson with the given id, or nil.
func (c *Course) LessonByID(id string) *Lesson {
	for i := range c.Lessons {
		if c.Lessons[i].ID == id {
			return &c.Lessons[i]
		}
	}
	return nil
}
