package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"github.com/Alcereo/fitlife/pkg/api"
	"github.com/Alcereo/fitlife/pkg/auth"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/messages"
	log "github.com/sirupsen/logrus"
	"gopkg.in/go-playground/validator.v9"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

var ErrPlanNotFound = errors.New("exercise plan not found")

var DefaultFallbackStatuses = []int{400, 403, 404, 500}

type PlanApiPort interface {
	ExercisePlans(ctx context.Context, userId string) ([]common.ExercisePlan, error)
	CreateExercisePlan(ctx context.Context, request *common.CreateExercisePlanRequest) (*common.ExercisePlan, error)
	UpdateExercisePlan(ctx context.Context, id string, request *common.UpdateExercisePlanRequest) (*common.ExercisePlan, error)
	DeleteExercisePlan(ctx context.Context, id string) error
	CreateExercise(ctx context.Context, request *common.CreateExerciseRequest) (*common.Exercise, error)
	DeleteExercise(ctx context.Context, id string) error
}

type CurrentUserPort interface {
	CurrentUser() *common.UserProfile
}

type PlanInput struct {
	Name        string `validate:"required"`
	Description string
	TrainingDay string `validate:"required"`
}

type ExerciseInput struct {
	Name        string `validate:"required"`
	Description string
	StartTime   string
}

// PlanSynchronizer keeps the plan list of the signed-in user in step with
// the server and the per-user cache. When the server refuses, plans and
// exercises are kept locally under "local-" ids and never sent upstream.
type PlanSynchronizer struct {
	mutex            sync.Mutex
	api              PlanApiPort
	users            CurrentUserPort
	store            common.LocalStoragePort
	messages         *messages.Catalog
	fallbackStatuses map[int]bool
	log              *log.Entry
	validate         *validator.Validate
	now              func() time.Time
	random           *rand.Rand

	userId string
	plans  []common.ExercisePlan
	loaded bool
}

func NewPlanSynchronizer(
	planApi PlanApiPort,
	users CurrentUserPort,
	store common.LocalStoragePort,
	catalog *messages.Catalog,
	fallbackStatuses []int,
	logger *log.Entry,
) *PlanSynchronizer {
	if len(fallbackStatuses) == 0 {
		fallbackStatuses = DefaultFallbackStatuses
	}
	statuses := make(map[int]bool)
	for _, status := range fallbackStatuses {
		statuses[status] = true
	}
	if catalog == nil {
		catalog = messages.NewDefaultCatalog()
	}
	if logger == nil {
		logger = log.WithField("component", "plans")
	}
	return &PlanSynchronizer{
		api:              planApi,
		users:            users,
		store:            store,
		messages:         catalog,
		fallbackStatuses: statuses,
		log:              logger,
		validate:         validator.New(),
		now:              time.Now,
		random:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func IsLocalPlan(id string) bool {
	return strings.HasPrefix(id, common.LocalPlanPrefix)
}

func IsLocalExercise(id string) bool {
	return strings.HasPrefix(id, common.LocalExercisePrefix)
}

// Plans returns a copy of the current list.
func (synchronizer *PlanSynchronizer) Plans() []common.ExercisePlan {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()
	return clonePlans(synchronizer.plans)
}

// Refresh reloads the list from the server. Statuses configured as fallback
// statuses degrade to the cached list without an error.
func (synchronizer *PlanSynchronizer) Refresh(ctx context.Context) ([]common.ExercisePlan, error) {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()

	user := synchronizer.users.CurrentUser()
	if user == nil || user.Id == "" {
		synchronizer.reset("")
		return nil, synchronizer.unauthenticated()
	}
	userId := user.Id
	logger := synchronizer.log.WithField("userId", userId)

	synchronizer.purgeOtherUsers(userId)

	fetched, err := synchronizer.api.ExercisePlans(ctx, userId)
	if err == nil {
		synchronizer.setPlans(userId, fetched)
		if err := synchronizer.commit(synchronizer.plans); err != nil {
			return clonePlans(synchronizer.plans), err
		}
		logger.Debugf("Loaded %v plans from server", len(synchronizer.plans))
		return clonePlans(synchronizer.plans), nil
	}

	status := api.StatusOf(err)
	if api.IsAPIError(err) && synchronizer.fallbackStatuses[status] {
		cached := synchronizer.readCache(userId)
		synchronizer.setPlans(userId, cached)
		logger.WithField("status", status).
			Infof("Server refused plan listing. Using %v cached plans", len(cached))
		return clonePlans(synchronizer.plans), nil
	}

	logger.WithError(err).Error("Loading exercise plans error")
	synchronizer.reset(userId)
	return nil, synchronizer.userError(err, "plans.load")
}

func (synchronizer *PlanSynchronizer) CreatePlan(ctx context.Context, input PlanInput) (*common.ExercisePlan, error) {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()

	if err := synchronizer.validatePlan(input.Name, input.TrainingDay); err != nil {
		return nil, err
	}
	userId, err := synchronizer.ensureLoaded()
	if err != nil {
		return nil, err
	}
	logger := synchronizer.log.WithField("userId", userId)

	created, err := synchronizer.api.CreateExercisePlan(ctx, &common.CreateExercisePlanRequest{
		Name:        input.Name,
		Description: input.Description,
		TrainingDay: input.TrainingDay,
		UserId:      userId,
	})
	if err != nil {
		status := api.StatusOf(err)
		if status != http.StatusForbidden {
			logger.WithError(err).Error("Creating exercise plan error")
			switch status {
			case 401, 405:
				return nil, &auth.UserError{Message: synchronizer.messages.ForStatus("plans.create", status), Cause: err}
			default:
				return nil, synchronizer.userError(err, "plans.create.default")
			}
		}
		logger.Info("Server refused plan creation. Creating plan locally")
		timestamp := synchronizer.timestamp()
		created = &common.ExercisePlan{
			Id:          synchronizer.localId(common.LocalPlanPrefix),
			Name:        input.Name,
			Description: input.Description,
			TrainingDay: input.TrainingDay,
			UserId:      userId,
			Exercises:   []common.Exercise{},
			CreatedAt:   timestamp,
			UpdatedAt:   timestamp,
		}
	}

	plan := normalizePlan(*created)
	if err := synchronizer.commit(append(clonePlans(synchronizer.plans), plan)); err != nil {
		return nil, err
	}
	return clonePlan(plan), nil
}

// UpdatePlan applies the non-nil fields of changes. Local plans are updated
// in place without a request.
func (synchronizer *PlanSynchronizer) UpdatePlan(ctx context.Context, id string, changes common.UpdateExercisePlanRequest) (*common.ExercisePlan, error) {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()

	if err := synchronizer.validateChanges(changes); err != nil {
		return nil, err
	}
	if _, err := synchronizer.ensureLoaded(); err != nil {
		return nil, err
	}
	index := synchronizer.indexOf(id)

	var updated common.ExercisePlan
	if IsLocalPlan(id) {
		if index < 0 {
			return nil, synchronizer.notFound(id, "plans.update.default")
		}
		updated = synchronizer.plans[index]
		applyChanges(&updated, changes)
		updated.UpdatedAt = synchronizer.timestamp()
	} else {
		response, err := synchronizer.api.UpdateExercisePlan(ctx, id, &changes)
		if err != nil {
			synchronizer.log.WithError(err).WithField("planId", id).Error("Updating exercise plan error")
			return nil, synchronizer.userError(err, "plans.update.default")
		}
		updated = normalizePlan(*response)
		if response.Exercises == nil && index >= 0 {
			updated.Exercises = synchronizer.plans[index].Exercises
		}
	}

	plans := clonePlans(synchronizer.plans)
	if index >= 0 {
		plans[index] = updated
	}
	if err := synchronizer.commit(plans); err != nil {
		return nil, err
	}
	return clonePlan(updated), nil
}

func (synchronizer *PlanSynchronizer) DeletePlan(ctx context.Context, id string) error {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()

	if _, err := synchronizer.ensureLoaded(); err != nil {
		return err
	}
	index := synchronizer.indexOf(id)

	if IsLocalPlan(id) {
		if index < 0 {
			return synchronizer.notFound(id, "plans.delete.default")
		}
	} else if err := synchronizer.api.DeleteExercisePlan(ctx, id); err != nil {
		synchronizer.log.WithError(err).WithField("planId", id).Error("Deleting exercise plan error")
		return synchronizer.userError(err, "plans.delete.default")
	}

	plans := clonePlans(synchronizer.plans)
	if index >= 0 {
		plans = append(plans[:index], plans[index+1:]...)
	}
	return synchronizer.commit(plans)
}

// AddExercise appends an exercise to a plan. Exercises of local plans get a
// local id and stay on this device.
func (synchronizer *PlanSynchronizer) AddExercise(ctx context.Context, planId string, input ExerciseInput) (*common.Exercise, error) {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()

	if err := synchronizer.validate.Struct(input); err != nil {
		return nil, &auth.UserError{Message: synchronizer.messages.Get("exercise.add.default"), Cause: err}
	}
	if _, err := synchronizer.ensureLoaded(); err != nil {
		return nil, err
	}
	index := synchronizer.indexOf(planId)

	var exercise *common.Exercise
	if IsLocalPlan(planId) {
		if index < 0 {
			return nil, synchronizer.notFound(planId, "exercise.add.default")
		}
		timestamp := synchronizer.timestamp()
		exercise = &common.Exercise{
			Id:             synchronizer.localId(common.LocalExercisePrefix),
			Name:           input.Name,
			Description:    input.Description,
			StartTime:      input.StartTime,
			ExercisePlanId: planId,
			CreatedAt:      timestamp,
			UpdatedAt:      timestamp,
		}
	} else {
		created, err := synchronizer.api.CreateExercise(ctx, &common.CreateExerciseRequest{
			Name:           input.Name,
			Description:    input.Description,
			StartTime:      input.StartTime,
			ExercisePlanId: planId,
		})
		if err != nil {
			synchronizer.log.WithError(err).WithField("planId", planId).Error("Adding exercise error")
			return nil, synchronizer.userError(err, "exercise.add.default")
		}
		exercise = created
	}

	plans := clonePlans(synchronizer.plans)
	if index >= 0 {
		plans[index].Exercises = append(plans[index].Exercises, *exercise)
	}
	if err := synchronizer.commit(plans); err != nil {
		return nil, err
	}
	result := *exercise
	return &result, nil
}

func (synchronizer *PlanSynchronizer) RemoveExercise(ctx context.Context, exerciseId string, planId string) error {
	synchronizer.mutex.Lock()
	defer synchronizer.mutex.Unlock()

	if _, err := synchronizer.ensureLoaded(); err != nil {
		return err
	}

	if !IsLocalPlan(planId) && !IsLocalExercise(exerciseId) {
		if err := synchronizer.api.DeleteExercise(ctx, exerciseId); err != nil {
			synchronizer.log.WithError(err).WithField("exerciseId", exerciseId).Error("Removing exercise error")
			return synchronizer.userError(err, "exercise.remove.default")
		}
	}

	index := synchronizer.indexOf(planId)
	if index < 0 {
		return nil
	}
	plans := clonePlans(synchronizer.plans)
	remaining := make([]common.Exercise, 0, len(plans[index].Exercises))
	for _, exercise := range plans[index].Exercises {
		if exercise.Id != exerciseId {
			remaining = append(remaining, exercise)
		}
	}
	plans[index].Exercises = remaining
	return synchronizer.commit(plans)
}

// State helpers. Callers hold the mutex.

func (synchronizer *PlanSynchronizer) ensureLoaded() (string, error) {
	user := synchronizer.users.CurrentUser()
	if user == nil || user.Id == "" {
		return "", synchronizer.unauthenticated()
	}
	if synchronizer.userId != user.Id {
		synchronizer.purgeOtherUsers(user.Id)
	}
	if !synchronizer.loaded || synchronizer.userId != user.Id {
		synchronizer.setPlans(user.Id, synchronizer.readCache(user.Id))
	}
	return user.Id, nil
}

func (synchronizer *PlanSynchronizer) setPlans(userId string, plans []common.ExercisePlan) {
	normalized := make([]common.ExercisePlan, 0, len(plans))
	for _, plan := range plans {
		normalized = append(normalized, normalizePlan(plan))
	}
	synchronizer.userId = userId
	synchronizer.plans = normalized
	synchronizer.loaded = true
}

// reset empties the list and forces the next mutation to start from the
// cache, so a failed refresh never overwrites cached plans.
func (synchronizer *PlanSynchronizer) reset(userId string) {
	synchronizer.userId = userId
	synchronizer.plans = []common.ExercisePlan{}
	synchronizer.loaded = false
}

func (synchronizer *PlanSynchronizer) indexOf(id string) int {
	for index, plan := range synchronizer.plans {
		if plan.Id == id {
			return index
		}
	}
	return -1
}

func (synchronizer *PlanSynchronizer) purgeOtherUsers(userId string) {
	removed, err := common.PurgeForeignPlans(synchronizer.store, userId)
	if err != nil {
		synchronizer.log.WithError(err).Warn("Removing plans of other users error")
	}
	if len(removed) > 0 {
		synchronizer.log.Debugf("Removed plans of other users: %v", removed)
	}
}

func (synchronizer *PlanSynchronizer) readCache(userId string) []common.ExercisePlan {
	value, found := synchronizer.store.Get(common.PlansKey(userId))
	if !found || value == "" {
		return []common.ExercisePlan{}
	}
	var plans []common.ExercisePlan
	if err := json.Unmarshal([]byte(value), &plans); err != nil {
		synchronizer.log.WithError(err).Warn("Cached plans are corrupt. Starting with an empty list")
		return []common.ExercisePlan{}
	}
	return plans
}

// commit writes plans to the cache and makes them the current list. The
// current list is left untouched when the write fails.
func (synchronizer *PlanSynchronizer) commit(plans []common.ExercisePlan) error {
	const stage = "Writing plans cache error."
	bytesValue, err := json.Marshal(plans)
	if err != nil {
		return newErr(stage, err)
	}
	if err := synchronizer.store.Set(common.PlansKey(synchronizer.userId), string(bytesValue)); err != nil {
		return newErr(stage, err)
	}
	synchronizer.plans = plans
	return nil
}

// Validation and errors

func (synchronizer *PlanSynchronizer) validatePlan(name string, trainingDay string) error {
	if err := synchronizer.validate.Struct(PlanInput{Name: name, TrainingDay: trainingDay}); err != nil {
		return &auth.UserError{Message: synchronizer.messages.Get("plans.invalid"), Cause: err}
	}
	if _, err := time.Parse(DayLayout, trainingDay); err != nil {
		return &auth.UserError{Message: synchronizer.messages.Get("plans.invalid_day"), Cause: err}
	}
	return nil
}

func (synchronizer *PlanSynchronizer) validateChanges(changes common.UpdateExercisePlanRequest) error {
	if changes.Name != nil && strings.TrimSpace(*changes.Name) == "" {
		return &auth.UserError{Message: synchronizer.messages.Get("plans.invalid"), Cause: errors.New("empty name")}
	}
	if changes.TrainingDay != nil {
		if _, err := time.Parse(DayLayout, *changes.TrainingDay); err != nil {
			return &auth.UserError{Message: synchronizer.messages.Get("plans.invalid_day"), Cause: err}
		}
	}
	return nil
}

func (synchronizer *PlanSynchronizer) unauthenticated() error {
	return &auth.UserError{Message: synchronizer.messages.Get("session.unauthenticated"), Cause: auth.ErrNotAuthenticated}
}

func (synchronizer *PlanSynchronizer) notFound(id string, messageKey string) error {
	return &auth.UserError{
		Message: synchronizer.messages.Get(messageKey),
		Cause:   fmt.Errorf("%w: %v", ErrPlanNotFound, id),
	}
}

// userError prefers the server's message and falls back to the catalog.
func (synchronizer *PlanSynchronizer) userError(err error, messageKey string) error {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &auth.UserError{Message: apiErr.Message, Cause: err}
	}
	return &auth.UserError{Message: synchronizer.messages.Get(messageKey), Cause: err}
}

// Identifiers

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func (synchronizer *PlanSynchronizer) localId(prefix string) string {
	suffix := make([]byte, 9)
	for index := range suffix {
		suffix[index] = base36[synchronizer.random.Intn(len(base36))]
	}
	return fmt.Sprintf("%v%v-%v", prefix, synchronizer.now().UnixMilli(), string(suffix))
}

func (synchronizer *PlanSynchronizer) timestamp() string {
	return synchronizer.now().UTC().Format(time.RFC3339)
}

// Plan values

func applyChanges(plan *common.ExercisePlan, changes common.UpdateExercisePlanRequest) {
	if changes.Name != nil {
		plan.Name = *changes.Name
	}
	if changes.Description != nil {
		plan.Description = *changes.Description
	}
	if changes.TrainingDay != nil {
		plan.TrainingDay = *changes.TrainingDay
	}
}

func normalizePlan(plan common.ExercisePlan) common.ExercisePlan {
	if plan.Exercises == nil {
		plan.Exercises = []common.Exercise{}
	}
	return plan
}

func clonePlan(plan common.ExercisePlan) *common.ExercisePlan {
	clone := plan
	clone.Exercises = append([]common.Exercise{}, plan.Exercises...)
	return &clone
}

func clonePlans(plans []common.ExercisePlan) []common.ExercisePlan {
	clones := make([]common.ExercisePlan, 0, len(plans))
	for _, plan := range plans {
		clones = append(clones, *clonePlan(plan))
	}
	return clones
}

func newErr(stage string, reason interface{}) error {
	if err, ok := reason.(error); ok {
		return fmt.Errorf("%v Reason: %w", stage, err)
	}
	return fmt.Errorf("%v Reason: %v", stage, reason)
}
