package common

// User profile

type UserProfile struct {
	Id        string   `json:"id"`
	Email     string   `json:"email"`
	Name      string   `json:"name"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Username  *string  `json:"username"`
	Weight    *float64 `json:"weight"`
	Height    *float64 `json:"height"`
	Age       *int     `json:"age"`
	CreatedAt string   `json:"createdAt"`
	UpdatedAt string   `json:"updatedAt"`
}

// ApiUser is the user record as the FitLife API returns it.
type ApiUser struct {
	Id            string         `json:"id"`
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	Username      *string        `json:"username"`
	Email         string         `json:"email"`
	Password      string         `json:"password,omitempty"`
	Weight        *float64       `json:"weight"`
	Height        *float64       `json:"height"`
	Age           *int           `json:"age"`
	CreatedAt     string         `json:"createdAt"`
	UpdatedAt     string         `json:"updatedAt"`
	ExercisePlans []ExercisePlan `json:"exercisePlans"`
}

// Exercise plans

type ExercisePlan struct {
	Id          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	TrainingDay string     `json:"trainingDay"`
	UserId      string     `json:"userId,omitempty"`
	Exercises   []Exercise `json:"exercises"`
	CreatedAt   string     `json:"createdAt,omitempty"`
	UpdatedAt   string     `json:"updatedAt,omitempty"`
}

type Exercise struct {
	Id             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartTime      string `json:"startTime"`
	ExercisePlanId string `json:"exercisePlanId"`
	CreatedAt      string `json:"createdAt,omitempty"`
	UpdatedAt      string `json:"updatedAt,omitempty"`
}

// Requests

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token       string       `json:"token,omitempty"`
	Expires     string       `json:"expires,omitempty"`
	Success     bool         `json:"success,omitempty"`
	User        *UserProfile `json:"user,omitempty"`
	Message     string       `json:"message,omitempty"`
	RequiresOTP bool         `json:"requiresOTP,omitempty"`
}

type OTPRequest struct {
	Email   string `json:"email" validate:"required,email"`
	OtpCode string `json:"otpCode" validate:"required"`
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName" validate:"required"`
	Password  string `json:"password" validate:"required,min=6"`
}

type CreateExercisePlanRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	TrainingDay string `json:"trainingDay"`
	UserId      string `json:"userId"`
}

type UpdateExercisePlanRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	TrainingDay *string `json:"trainingDay,omitempty"`
}

type CreateExerciseRequest struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	StartTime      string `json:"startTime"`
	ExercisePlanId string `json:"exercisePlanId"`
}

type UpdateExerciseRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	StartTime   *string `json:"startTime,omitempty"`
}
