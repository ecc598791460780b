package plans

import (
	"context"
	"errors"
	"fmt"
	"github.com/Alcereo/fitlife/pkg/api"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"time"
)

type fakePlanApi struct {
	plans       []common.ExercisePlan
	listErr     error
	createErr   error
	updateErr   error
	deleteErr   error
	exerciseErr error
	calls       []string
	sequence    int
}

func (fake *fakePlanApi) record(call string) {
	fake.calls = append(fake.calls, call)
}

func (fake *fakePlanApi) ExercisePlans(ctx context.Context, userId string) ([]common.ExercisePlan, error) {
	fake.record("list " + userId)
	if fake.listErr != nil {
		return nil, fake.listErr
	}
	return fake.plans, nil
}

func (fake *fakePlanApi) CreateExercisePlan(ctx context.Context, request *common.CreateExercisePlanRequest) (*common.ExercisePlan, error) {
	fake.record("create " + request.Name)
	if fake.createErr != nil {
		return nil, fake.createErr
	}
	fake.sequence++
	return &common.ExercisePlan{
		Id:          fmt.Sprintf("srv-%v", fake.sequence),
		Name:        request.Name,
		Description: request.Description,
		TrainingDay: request.TrainingDay,
		UserId:      request.UserId,
	}, nil
}

func (fake *fakePlanApi) UpdateExercisePlan(ctx context.Context, id string, request *common.UpdateExercisePlanRequest) (*common.ExercisePlan, error) {
	fake.record("update " + id)
	if fake.updateErr != nil {
		return nil, fake.updateErr
	}
	return &common.ExercisePlan{Id: id, Name: *request.Name, TrainingDay: "2024-05-10"}, nil
}

func (fake *fakePlanApi) DeleteExercisePlan(ctx context.Context, id string) error {
	fake.record("delete " + id)
	return fake.deleteErr
}

func (fake *fakePlanApi) CreateExercise(ctx context.Context, request *common.CreateExerciseRequest) (*common.Exercise, error) {
	fake.record("add " + request.ExercisePlanId + " " + request.Name)
	if fake.exerciseErr != nil {
		return nil, fake.exerciseErr
	}
	fake.sequence++
	return &common.Exercise{
		Id:             fmt.Sprintf("ex-%v", fake.sequence),
		Name:           request.Name,
		ExercisePlanId: request.ExercisePlanId,
	}, nil
}

func (fake *fakePlanApi) DeleteExercise(ctx context.Context, id string) error {
	fake.record("remove " + id)
	return fake.exerciseErr
}

type fixedUser struct {
	user *common.UserProfile
}

func (users *fixedUser) CurrentUser() *common.UserProfile {
	return users.user
}

type planFixture struct {
	api          *fakePlanApi
	users        *fixedUser
	store        common.LocalStoragePort
	synchronizer *PlanSynchronizer
	hook         *test.Hook
}

func newPlanFixture() *planFixture {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	fake := &fakePlanApi{}
	users := &fixedUser{user: &common.UserProfile{Id: "u1", Email: "ana@fit.life"}}
	store := storage.NewGoCacheLocalStorage(0, 0)
	synchronizer := NewPlanSynchronizer(fake, users, store, nil, nil, logger.WithField("component", "plans"))
	synchronizer.now = func() time.Time {
		// Wednesday
		return time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)
	}
	return &planFixture{api: fake, users: users, store: store, synchronizer: synchronizer, hook: hook}
}

func apiError(status int) error {
	return &api.APIError{Message: fmt.Sprintf("server said %v", status), Status: status}
}

type flakyStore struct {
	common.LocalStoragePort
	failWrites bool
}

func (store *flakyStore) Set(key string, value string) error {
	if store.failWrites {
		return errors.New("disk full")
	}
	return store.LocalStoragePort.Set(key, value)
}

func newFlakyPlanFixture() (*planFixture, *flakyStore) {
	fixture := newPlanFixture()
	flaky := &flakyStore{LocalStoragePort: fixture.store}
	fixture.synchronizer.store = flaky
	return fixture, flaky
}
