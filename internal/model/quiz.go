package model

import (
	"time"

	"gorm.io/datatypes"
)

// QuizProgress is the in-flight state of a quiz. Every save replaces
// the whole row.
type QuizProgress struct {
	UserID          uint                        `gorm:"primaryKey;autoIncrement:false" json:"-"`
	CurrentQuestion int                         `gorm:"default:0" json:"current_question"`
	Answers         datatypes.JSONMap           `gorm:"not null" json:"answers"`
	Results         *datatypes.JSONType[Scores] `json:"results"`
	UpdatedAt       time.Time                   `json:"updated_at"`
}

func (QuizProgress) TableName() string {
	return "quiz_progress"
}

// QuizResult is an immutable record of a finished quiz.
type QuizResult struct {
	ID          uint                       `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint                       `gorm:"not null;index" json:"-"`
	Answers     Scores                     `gorm:"type:text;not null" json:"answers"`
	Results     datatypes.JSONType[Scores] `gorm:"not null" json:"results"`
	CompletedAt time.Time                  `gorm:"autoCreateTime;index" json:"completed_at"`
}

func (QuizResult) TableName() string {
	return "user_answers"
}
