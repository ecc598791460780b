package stubapi

import (
	"errors"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/gorilla/mux"
	uuid "github.com/satori/go.uuid"
	"net/http"
	"strings"
	"time"
)

var (
	errMissingBearer = errors.New("missing bearer token")
	errUnknownUser   = errors.New("token subject is not a registered user")

	ErrEmailTaken = errors.New("email already registered")
)

// User

func (server *Server) handleLogin(writer http.ResponseWriter, request *http.Request) {
	credentials := &common.LoginRequest{}
	if err := readJSON(request, credentials); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Invalid login data")
		return
	}

	server.mutex.Lock()
	stored := server.findByEmail(credentials.Email)
	valid := stored != nil && stored.password == credentials.Password
	requireOtp := server.options.RequireOTP
	if valid && requireOtp {
		server.pendingOtp[credentials.Email] = true
	}
	server.mutex.Unlock()

	if !valid {
		writeMessage(writer, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if requireOtp {
		writeJSON(writer, http.StatusOK, &common.LoginResponse{
			RequiresOTP: true,
			Message:     "A verification code was sent to your email",
		})
		return
	}

	token, expires, err := server.tokens.Serialize(profileOf(&stored.user))
	if err != nil {
		writeMessage(writer, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(writer, http.StatusOK, &common.LoginResponse{
		Token:   token,
		Expires: expires.UTC().Format(time.RFC3339),
	})
}

func (server *Server) handleVerifyOtp(writer http.ResponseWriter, request *http.Request) {
	otp := &common.OTPRequest{}
	if err := readJSON(request, otp); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Invalid verification data")
		return
	}

	server.mutex.Lock()
	stored := server.findByEmail(otp.Email)
	pending := server.pendingOtp[otp.Email]
	valid := stored != nil && pending && otp.OtpCode == server.options.OTPCode
	if valid {
		delete(server.pendingOtp, otp.Email)
	}
	server.mutex.Unlock()

	if !valid {
		writeJSON(writer, http.StatusOK, &common.LoginResponse{
			Success: false,
			Message: "Invalid verification code",
		})
		return
	}

	profile := profileOf(&stored.user)
	token, expires, err := server.tokens.Serialize(profile)
	if err != nil {
		writeMessage(writer, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(writer, http.StatusOK, &common.LoginResponse{
		Success: true,
		Token:   token,
		Expires: expires.UTC().Format(time.RFC3339),
		User:    profile,
	})
}

func (server *Server) handleRegister(writer http.ResponseWriter, request *http.Request) {
	registration := &common.RegisterRequest{}
	if err := readJSON(request, registration); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Invalid registration data")
		return
	}
	if registration.Email == "" || registration.Password == "" {
		writeMessage(writer, http.StatusBadRequest, "Email and password are required")
		return
	}

	user, err := server.AddUser(registration.FirstName, registration.LastName, registration.Email, registration.Password)
	if err != nil {
		writeMessage(writer, http.StatusConflict, "Email already registered")
		return
	}
	writeJSON(writer, http.StatusCreated, user)
}

func (server *Server) handleRefresh(writer http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	stored := server.users[callerId(request)]
	profile := profileOf(&stored.user)
	server.mutex.Unlock()

	token, expires, err := server.tokens.Serialize(profile)
	if err != nil {
		writeMessage(writer, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(writer, http.StatusOK, &common.LoginResponse{
		Token:   token,
		Expires: expires.UTC().Format(time.RFC3339),
	})
}

func (server *Server) handleCurrentUser(writer http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	user := server.users[callerId(request)].user
	if server.override != "" {
		if other := server.findByEmail(server.override); other != nil {
			user = other.user
		} else {
			user.Email = server.override
		}
	}
	user.ExercisePlans = server.plansOf(user.Id)
	writeJSON(writer, http.StatusOK, []common.ApiUser{user})
}

// Exercise plans

func (server *Server) handleListPlans(writer http.ResponseWriter, request *http.Request) {
	userId := request.URL.Query().Get("userId")
	if userId == "" {
		userId = callerId(request)
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	writeJSON(writer, http.StatusOK, server.plansOf(userId))
}

func (server *Server) handleCreatePlan(writer http.ResponseWriter, request *http.Request) {
	input := &common.CreateExercisePlanRequest{}
	if err := readJSON(request, input); err != nil || strings.TrimSpace(input.Name) == "" {
		writeMessage(writer, http.StatusBadRequest, "Plan name is required")
		return
	}
	if input.UserId == "" {
		input.UserId = callerId(request)
	}

	now := timestamp()
	plan := &common.ExercisePlan{
		Id:          uuid.NewV4().String(),
		Name:        input.Name,
		Description: input.Description,
		TrainingDay: input.TrainingDay,
		UserId:      input.UserId,
		Exercises:   []common.Exercise{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	server.mutex.Lock()
	server.plans = append(server.plans, plan)
	created := *plan
	server.mutex.Unlock()

	writeJSON(writer, http.StatusCreated, &created)
}

func (server *Server) handleUpdatePlan(writer http.ResponseWriter, request *http.Request) {
	changes := &common.UpdateExercisePlanRequest{}
	if err := readJSON(request, changes); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Invalid plan data")
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	plan := server.findPlan(mux.Vars(request)["id"])
	if plan == nil {
		writeMessage(writer, http.StatusNotFound, "Plan not found")
		return
	}
	if changes.Name != nil {
		plan.Name = *changes.Name
	}
	if changes.Description != nil {
		plan.Description = *changes.Description
	}
	if changes.TrainingDay != nil {
		plan.TrainingDay = *changes.TrainingDay
	}
	plan.UpdatedAt = timestamp()
	writeJSON(writer, http.StatusOK, copyPlan(plan))
}

func (server *Server) handleDeletePlan(writer http.ResponseWriter, request *http.Request) {
	id := mux.Vars(request)["id"]

	server.mutex.Lock()
	defer server.mutex.Unlock()
	for index, plan := range server.plans {
		if plan.Id == id {
			server.plans = append(server.plans[:index], server.plans[index+1:]...)
			writer.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeMessage(writer, http.StatusNotFound, "Plan not found")
}

// Exercises

func (server *Server) handleListExercises(writer http.ResponseWriter, request *http.Request) {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	plan := server.findPlan(request.URL.Query().Get("planId"))
	if plan == nil {
		writeJSON(writer, http.StatusOK, []common.Exercise{})
		return
	}
	writeJSON(writer, http.StatusOK, copyPlan(plan).Exercises)
}

func (server *Server) handleCreateExercise(writer http.ResponseWriter, request *http.Request) {
	input := &common.CreateExerciseRequest{}
	if err := readJSON(request, input); err != nil || strings.TrimSpace(input.Name) == "" {
		writeMessage(writer, http.StatusBadRequest, "Exercise name is required")
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	plan := server.findPlan(input.ExercisePlanId)
	if plan == nil {
		writeMessage(writer, http.StatusNotFound, "Plan not found")
		return
	}
	now := timestamp()
	exercise := common.Exercise{
		Id:             uuid.NewV4().String(),
		Name:           input.Name,
		Description:    input.Description,
		StartTime:      input.StartTime,
		ExercisePlanId: plan.Id,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	plan.Exercises = append(plan.Exercises, exercise)
	writeJSON(writer, http.StatusCreated, &exercise)
}

func (server *Server) handleUpdateExercise(writer http.ResponseWriter, request *http.Request) {
	changes := &common.UpdateExerciseRequest{}
	if err := readJSON(request, changes); err != nil {
		writeMessage(writer, http.StatusBadRequest, "Invalid exercise data")
		return
	}

	server.mutex.Lock()
	defer server.mutex.Unlock()
	exercise := server.findExercise(mux.Vars(request)["id"])
	if exercise == nil {
		writeMessage(writer, http.StatusNotFound, "Exercise not found")
		return
	}
	if changes.Name != nil {
		exercise.Name = *changes.Name
	}
	if changes.Description != nil {
		exercise.Description = *changes.Description
	}
	if changes.StartTime != nil {
		exercise.StartTime = *changes.StartTime
	}
	exercise.UpdatedAt = timestamp()
	updated := *exercise
	writeJSON(writer, http.StatusOK, &updated)
}

func (server *Server) handleDeleteExercise(writer http.ResponseWriter, request *http.Request) {
	id := mux.Vars(request)["id"]

	server.mutex.Lock()
	defer server.mutex.Unlock()
	for _, plan := range server.plans {
		for index, exercise := range plan.Exercises {
			if exercise.Id == id {
				plan.Exercises = append(plan.Exercises[:index], plan.Exercises[index+1:]...)
				writer.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	writeMessage(writer, http.StatusNotFound, "Exercise not found")
}

// Store

// AddUser registers an account. It fails when the email is taken.
func (server *Server) AddUser(firstName, lastName, email, password string) (*common.ApiUser, error) {
	server.mutex.Lock()
	defer server.mutex.Unlock()

	if server.findByEmail(email) != nil {
		return nil, ErrEmailTaken
	}
	now := timestamp()
	stored := &storedUser{
		user: common.ApiUser{
			Id:        uuid.NewV4().String(),
			FirstName: firstName,
			LastName:  lastName,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		},
		password: password,
	}
	server.users[stored.user.Id] = stored
	user := stored.user
	return &user, nil
}

// PlansOf returns a copy of the plans the server holds for userId.
func (server *Server) PlansOf(userId string) []common.ExercisePlan {
	server.mutex.Lock()
	defer server.mutex.Unlock()
	return server.plansOf(userId)
}

func (server *Server) plansOf(userId string) []common.ExercisePlan {
	plans := make([]common.ExercisePlan, 0)
	for _, plan := range server.plans {
		if plan.UserId == userId {
			plans = append(plans, *copyPlan(plan))
		}
	}
	return plans
}

func (server *Server) findByEmail(email string) *storedUser {
	for _, stored := range server.users {
		if strings.EqualFold(stored.user.Email, email) {
			return stored
		}
	}
	return nil
}

func (server *Server) findPlan(id string) *common.ExercisePlan {
	for _, plan := range server.plans {
		if plan.Id == id {
			return plan
		}
	}
	return nil
}

func (server *Server) findExercise(id string) *common.Exercise {
	for _, plan := range server.plans {
		for index := range plan.Exercises {
			if plan.Exercises[index].Id == id {
				return &plan.Exercises[index]
			}
		}
	}
	return nil
}

func copyPlan(plan *common.ExercisePlan) *common.ExercisePlan {
	result := *plan
	result.Exercises = append([]common.Exercise{}, plan.Exercises...)
	return &result
}

func profileOf(user *common.ApiUser) *common.UserProfile {
	return &common.UserProfile{
		Id:        user.Id,
		Email:     user.Email,
		Name:      strings.TrimSpace(user.FirstName + " " + user.LastName),
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Username:  user.Username,
		Weight:    user.Weight,
		Height:    user.Height,
		Age:       user.Age,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

func writeMessage(writer http.ResponseWriter, status int, message string) {
	writeJSON(writer, status, map[string]string{"message": message})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
