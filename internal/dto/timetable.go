package dto

import (
	"github.com/adenafil/campus-timetable-api/internal/engine"
	"github.com/adenafil/campus-timetable-api/internal/models"
)

// RoomInput describes one room record in a generation request.
type RoomInput struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Capacity int    `json:"capacity" validate:"required,min=1"`
}

// LecturerInput describes one lecturer record in a generation request.
type LecturerInput struct {
	Code          string `json:"code" validate:"required"`
	Name          string `json:"name"`
	Program       string `json:"program"`
	PreferredTime string `json:"preferredTime" validate:"omitempty,oneof=morning midday evening night"`
	ResearchDay   string `json:"researchDay" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	MinTransitGap int    `json:"minTransitGap" validate:"omitempty,min=0"`
	MaxDailySKS   int    `json:"maxDailySks" validate:"omitempty,min=1"`
	PreferredRoom string `json:"preferredRoom"`
}

// ClassInput describes one course section to place. Classes without
// lecturers are dropped by the solver rather than rejected here.
type ClassInput struct {
	CourseCode     string   `json:"courseCode" validate:"required"`
	CourseName     string   `json:"courseName"`
	Program        string   `json:"program" validate:"required"`
	SKS            int      `json:"sks" validate:"required,min=1,max=6"`
	Participants   int      `json:"participants" validate:"required,min=1"`
	Lecturers      []string `json:"lecturers" validate:"max=4"`
	NeedsLab       bool     `json:"needsLab"`
	Shift          string   `json:"shift" validate:"omitempty,oneof=morning evening"`
	CandidateRooms []string `json:"candidateRooms"`
}

// SolverTuning overrides the annealing defaults. Nil fields keep defaults.
type SolverTuning struct {
	InitialTemperature *float64      `json:"initialTemperature" validate:"omitempty,gt=0"`
	MinTemperature     *float64      `json:"minTemperature" validate:"omitempty,gt=0"`
	CoolingRate        *float64      `json:"coolingRate" validate:"omitempty,gt=0,lt=1"`
	MaxIterations      *int          `json:"maxIterations" validate:"omitempty,min=1"`
	ReheatAfter        *int          `json:"reheatAfter" validate:"omitempty,min=1"`
	ReheatFactor       *float64      `json:"reheatFactor" validate:"omitempty,gt=1"`
	MaxReheats         *int          `json:"maxReheats" validate:"omitempty,min=0"`
	Chains             *int          `json:"chains" validate:"omitempty,min=1,max=16"`
	Seed               *int64        `json:"seed"`
	Weights            *WeightTuning `json:"weights"`
}

// WeightTuning overrides individual constraint weights.
type WeightTuning struct {
	Hard          *float64 `json:"hard" validate:"omitempty,gt=0"`
	PreferredTime *float64 `json:"preferredTime" validate:"omitempty,min=0"`
	PreferredRoom *float64 `json:"preferredRoom" validate:"omitempty,min=0"`
	Transit       *float64 `json:"transit" validate:"omitempty,min=0"`
	Compactness   *float64 `json:"compactness" validate:"omitempty,min=0"`
	Prayer        *float64 `json:"prayer" validate:"omitempty,min=0"`
	Evening       *float64 `json:"evening" validate:"omitempty,min=0"`
	Lab           *float64 `json:"lab" validate:"omitempty,min=0"`
}

// GenerateTimetableRequest carries the full dataset and tuning for one run.
type GenerateTimetableRequest struct {
	Name      string             `json:"name"`
	Rooms     []RoomInput        `json:"rooms" validate:"required,min=1,dive"`
	Lecturers []LecturerInput    `json:"lecturers" validate:"required,min=1,dive"`
	Classes   []ClassInput       `json:"classes" validate:"required,min=1,dive"`
	TimeSlots *engine.SlotConfig `json:"timeSlots"`
	Solver    *SolverTuning      `json:"solver" validate:"omitempty"`
}

// SolverStats summarises the completed search.
type SolverStats struct {
	Iterations     int   `json:"iterations"`
	Reheats        int   `json:"reheats"`
	Chains         int   `json:"chains"`
	DroppedClasses int   `json:"droppedClasses"`
	DurationMs     int64 `json:"durationMs"`
}

// GenerateTimetableResponse returns the best-found schedule.
type GenerateTimetableResponse struct {
	TimetableID string                  `json:"timetableId"`
	Name        string                  `json:"name"`
	Fitness     float64                 `json:"fitness"`
	Entries     []models.ScheduleEntry  `json:"entries"`
	Report      *models.ViolationReport `json:"report"`
	Stats       SolverStats             `json:"stats"`
}

// SaveTimetableRequest persists a generated timetable.
type SaveTimetableRequest struct {
	TimetableID string `json:"timetableId" validate:"required"`
	Publish     bool   `json:"publish"`
}

// TimetableQuery filters saved timetable listings.
type TimetableQuery struct {
	Status string `form:"status" json:"status"`
}
