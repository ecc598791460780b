package api

import (
	"context"
	"errors"
	"github.com/Alcereo/fitlife/pkg/common"
	"net/http"
	"net/url"
)

var ErrNoCurrentUser = errors.New("current user list is empty")

// User

func (client *Client) Login(ctx context.Context, request *common.LoginRequest) (*common.LoginResponse, error) {
	response := &common.LoginResponse{}
	if err := client.perform(ctx, http.MethodPost, client.endpoints.Login, request, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (client *Client) VerifyOTP(ctx context.Context, request *common.OTPRequest) (*common.LoginResponse, error) {
	response := &common.LoginResponse{}
	if err := client.perform(ctx, http.MethodPost, client.endpoints.VerifyOtp, request, response); err != nil {
		return nil, err
	}
	return response, nil
}

func (client *Client) Register(ctx context.Context, request *common.RegisterRequest) (*common.ApiUser, error) {
	user := &common.ApiUser{}
	if err := client.perform(ctx, http.MethodPost, client.endpoints.Register, request, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (client *Client) RefreshToken(ctx context.Context) (*common.LoginResponse, error) {
	response := &common.LoginResponse{}
	if err := client.perform(ctx, http.MethodPost, client.endpoints.Refresh, nil, response); err != nil {
		return nil, err
	}
	return response, nil
}

// CurrentUser returns the first element of the user list, which the API
// scopes to the bearer of the token.
func (client *Client) CurrentUser(ctx context.Context) (*common.ApiUser, error) {
	var users []common.ApiUser
	if err := client.perform(ctx, http.MethodGet, client.endpoints.CurrentUser, nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, ErrNoCurrentUser
	}
	return &users[0], nil
}

// Exercise plans

func (client *Client) ExercisePlans(ctx context.Context, userId string) ([]common.ExercisePlan, error) {
	var plans []common.ExercisePlan
	endpoint := client.endpoints.ExercisePlans + "?userId=" + url.QueryEscape(userId)
	if err := client.perform(ctx, http.MethodGet, endpoint, nil, &plans); err != nil {
		return nil, err
	}
	return plans, nil
}

func (client *Client) CreateExercisePlan(ctx context.Context, request *common.CreateExercisePlanRequest) (*common.ExercisePlan, error) {
	plan := &common.ExercisePlan{}
	if err := client.perform(ctx, http.MethodPost, client.endpoints.ExercisePlans, request, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (client *Client) UpdateExercisePlan(ctx context.Context, id string, request *common.UpdateExercisePlanRequest) (*common.ExercisePlan, error) {
	plan := &common.ExercisePlan{}
	if err := client.perform(ctx, http.MethodPut, client.resource(client.endpoints.ExercisePlans, id), request, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (client *Client) DeleteExercisePlan(ctx context.Context, id string) error {
	return client.perform(ctx, http.MethodDelete, client.resource(client.endpoints.ExercisePlans, id), nil, nil)
}

// Exercises

func (client *Client) ExercisesByPlan(ctx context.Context, planId string) ([]common.Exercise, error) {
	var exercises []common.Exercise
	endpoint := client.endpoints.Exercises + "?planId=" + url.QueryEscape(planId)
	if err := client.perform(ctx, http.MethodGet, endpoint, nil, &exercises); err != nil {
		return nil, err
	}
	return exercises, nil
}

func (client *Client) CreateExercise(ctx context.Context, request *common.CreateExerciseRequest) (*common.Exercise, error) {
	exercise := &common.Exercise{}
	if err := client.perform(ctx, http.MethodPost, client.endpoints.Exercises, request, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (client *Client) UpdateExercise(ctx context.Context, id string, request *common.UpdateExerciseRequest) (*common.Exercise, error) {
	exercise := &common.Exercise{}
	if err := client.perform(ctx, http.MethodPut, client.resource(client.endpoints.Exercises, id), request, exercise); err != nil {
		return nil, err
	}
	return exercise, nil
}

func (client *Client) DeleteExercise(ctx context.Context, id string) error {
	return client.perform(ctx, http.MethodDelete, client.resource(client.endpoints.Exercises, id), nil, nil)
}

func (client *Client) resource(collection string, id string) string {
	return collection + "/" + url.PathEscape(id)
}
