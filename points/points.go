// Package points computes the XP value of a task at creation time.
package points

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/cppla/paperroom/models"
)

const (
	// MinPoints is the floor applied to every computed value.
	MinPoints  = 5
	basePoints = 10
	day        = 24 * time.Hour
)

// Weights are the tunable bonuses added to the base value before the priority multiplier.
type Weights struct {
	TitleLengthThreshold       int
	TitleBonus                 int
	DescriptionLengthThreshold int
	DescriptionBonus           int
	SubtaskBonus               int
	DailyBonus                 int
}

// DefaultWeights returns the title-length scheme with the subtask bonus disabled.
func DefaultWeights() Weights {
	return Weights{
		TitleLengthThreshold:       30,
		TitleBonus:                 2,
		DescriptionLengthThreshold: 100,
		DescriptionBonus:           5,
		SubtaskBonus:               0,
		DailyBonus:                 15,
	}
}

// Input carries the task attributes that affect its value.
type Input struct {
	Title       string
	Description string
	Subtasks    int
	Tag         string
	Priority    models.Priority
	Daily       bool
	Deadline    *time.Time
}

// InputFromTask extracts the calculator input from a task.
func InputFromTask(t *models.Task) Input {
	return Input{
		Title:       t.Title,
		Description: t.Description,
		Subtasks:    t.Subtasks,
		Tag:         t.Tag,
		Priority:    t.Priority,
		Daily:       t.Daily,
		Deadline:    t.Deadline,
	}
}

// Calculator is a pure points function parameterised by Weights.
type Calculator struct {
	weights Weights
}

// NewCalculator builds a Calculator.
func NewCalculator(w Weights) *Calculator {
	return &Calculator{weights: w}
}

// Compute returns the XP value of a task created at now. The result is never below MinPoints.
func (c *Calculator) Compute(in Input, now time.Time) int {
	w := c.weights
	sum := basePoints

	if utf8.RuneCountInString(in.Title) > w.TitleLengthThreshold {
		sum += w.TitleBonus
	}
	if utf8.RuneCountInString(in.Description) > w.DescriptionLengthThreshold {
		sum += w.DescriptionBonus
	}
	if in.Subtasks > 0 {
		sum += in.Subtasks * w.SubtaskBonus
	}
	if in.Daily {
		sum += w.DailyBonus
	} else if in.Deadline != nil {
		sum += DeadlineBonus(*in.Deadline, now)
	}

	total := int(math.Round(float64(sum) * Multiplier(in.Priority)))
	if total < MinPoints {
		return MinPoints
	}
	return total
}

// DeadlineBonus grades how close a deadline is. Deadlines already due count as the closest tier.
func DeadlineBonus(deadline, now time.Time) int {
	days := int(math.Ceil(float64(deadline.Sub(now)) / float64(day)))
	switch {
	case days <= 1:
		return 20
	case days <= 3:
		return 15
	case days <= 7:
		return 10
	default:
		return 5
	}
}

// Multiplier maps a priority to its XP multiplier. Unknown priorities count as low.
func Multiplier(p models.Priority) float64 {
	switch p {
	case models.PriorityMedium:
		return 1.5
	case models.PriorityHigh:
		return 2.0
	case models.PriorityUrgent:
		return 3.0
	default:
		return 1.0
	}
}

// LevelForXP derives the level shown for an XP total.
func LevelForXP(xp int) int {
	if xp < 0 {
		xp = 0
	}
	return xp/100 + 1
}
