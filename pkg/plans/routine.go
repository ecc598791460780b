package plans

import (
	"context"
	"errors"
	"fmt"
	"github.com/Alcereo/fitlife/pkg/auth"
	"github.com/Alcereo/fitlife/pkg/common"
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

const minExerciseNameLength = 3

type RoutineExercise struct {
	Name     string
	Category string
}

type RoutineInput struct {
	Days      []time.Weekday
	Exercises []RoutineExercise
}

type RoutineResult struct {
	Plans           []common.ExercisePlan
	ExercisesAdded  int
	ExercisesFailed int
}

// CreateRoutine creates one plan per selected weekday, then adds every
// selected exercise to every created plan. Requests go out one at a time.
// A failed exercise is counted and skipped; a failed plan stops the routine.
func (synchronizer *PlanSynchronizer) CreateRoutine(ctx context.Context, input RoutineInput) (*RoutineResult, error) {
	days := uniqueDays(input.Days)
	if len(days) == 0 || len(input.Exercises) == 0 {
		return nil, &auth.UserError{
			Message: synchronizer.messages.Get("routine.invalid"),
			Cause:   errors.New("routine needs days and exercises"),
		}
	}

	today := synchronizer.now()
	names := make([]string, 0, len(input.Exercises))
	for _, exercise := range input.Exercises {
		names = append(names, exercise.Name)
	}

	result := &RoutineResult{}
	for _, day := range days {
		dayName := day.String()
		marker := fmt.Sprintf("plan-%v-%v", strings.ToLower(dayName), today.UnixMilli())
		plan, err := synchronizer.CreatePlan(ctx, PlanInput{
			Name: synchronizer.messages.Format("routine.name", map[string]string{"day": dayName}),
			Description: synchronizer.messages.Format("routine.description", map[string]string{
				"marker":    marker,
				"day":       dayName,
				"exercises": strings.Join(names, ", "),
			}),
			TrainingDay: NextTrainingDay(today, day),
		})
		if err != nil {
			return result, err
		}
		result.Plans = append(result.Plans, *plan)
	}

	for index := range result.Plans {
		plan := &result.Plans[index]
		for _, exercise := range input.Exercises {
			added, err := synchronizer.AddExercise(ctx, plan.Id, ExerciseInput{
				Name: exercise.Name,
				Description: synchronizer.messages.Format("routine.exercise_description", map[string]string{
					"category": exercise.Category,
					"name":     exercise.Name,
				}),
				StartTime: synchronizer.timestamp(),
			})
			if err != nil {
				synchronizer.log.WithError(err).
					WithField("planId", plan.Id).
					Warnf("Exercise %v was not added", exercise.Name)
				result.ExercisesFailed++
				continue
			}
			plan.Exercises = append(plan.Exercises, *added)
			result.ExercisesAdded++
		}
	}
	return result, nil
}

// NextTrainingDay returns the next date strictly after today that falls on
// weekday.
func NextTrainingDay(today time.Time, weekday time.Weekday) string {
	days := int(weekday) - int(today.Weekday())
	if days <= 0 {
		days += 7
	}
	return today.AddDate(0, 0, days).Format(DayLayout)
}

func WeeklySchedule(plans []common.ExercisePlan) map[time.Weekday][]common.Exercise {
	schedule := make(map[time.Weekday][]common.Exercise)
	for _, plan := range plans {
		day, err := time.Parse(DayLayout, plan.TrainingDay)
		if err != nil {
			continue
		}
		weekday := day.Weekday()
		for _, exercise := range plan.Exercises {
			if len([]rune(strings.TrimSpace(exercise.Name))) < minExerciseNameLength {
				continue
			}
			if containsExercise(schedule[weekday], exercise) {
				continue
			}
			schedule[weekday] = append(schedule[weekday], exercise)
		}
	}
	return schedule
}

func containsExercise(exercises []common.Exercise, candidate common.Exercise) bool {
	for _, exercise := range exercises {
		if (exercise.Id != "" && exercise.Id == candidate.Id) || strings.EqualFold(exercise.Name, candidate.Name) {
			return true
		}
	}
	return false
}

func uniqueDays(days []time.Weekday) []time.Weekday {
	seen := make(map[time.Weekday]bool)
	var unique []time.Weekday
	for _, day := range days {
		if !seen[day] {
			seen[day] = true
			unique = append(unique, day)
		}
	}
	return unique
}

// ParseWeekday accepts English weekday names and their three letter forms.
func ParseWeekday(value string) (time.Weekday, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for day := time.Sunday; day <= time.Saturday; day++ {
		name := strings.ToLower(day.String())
		if normalized == name || normalized == name[:3] {
			return day, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday: %v", value)
}
