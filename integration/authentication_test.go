package integration_test

import (
	"context"
	"errors"
	. "github.com/Alcereo/fitlife/integration/utils"
	"github.com/Alcereo/fitlife/pkg/auth"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/serializers"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"time"
)

var _ = Describe("Session reconciliation", func() {
	var device *client
	ctx := context.Background()

	BeforeEach(func() {
		device = newClient(backendServer.URL)
		_, err := backend.AddUser("Ana", "Lopez", "ana@fit.life", "secret1")
		Expect(err).NotTo(HaveOccurred())
	})

	It("login stores the API profile", func() {
		result, err := device.auth.Login(ctx, common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})
		Expect(err).NotTo(HaveOccurred())

		Expect(result.Source).To(Equal(auth.ProfileFromApi))
		Expect(result.User.Email).To(Equal("ana@fit.life"))
		Expect(result.User.Name).To(Equal("Ana Lopez"))
		Expect(device.sessions.CurrentUser().Email).To(Equal("ana@fit.life"))

		state, err := device.auth.CheckStatus(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(state.Authenticated).To(BeTrue())
		Expect(state.User.Email).To(Equal("ana@fit.life"))
	})

	It("prefers token data and warns when the API profile has another email", func() {
		_, err := device.auth.Login(ctx, common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})
		Expect(err).NotTo(HaveOccurred())
		backend.SetProfileOverride("someone@else.com")

		state, err := device.auth.CheckStatus(ctx)

		Expect(err).NotTo(HaveOccurred())
		Expect(state.Authenticated).To(BeTrue())
		Expect(state.Source).To(Equal(auth.ProfileFromToken))
		Expect(state.User.Email).To(Equal("ana@fit.life"))
		Expect(state.User.Name).To(Equal("ana"))
		Expect(warnings()).To(ContainElement("Token and API profile emails differ. Using token data"))
	})

	It("rejects a login answered with another account", func() {
		_, err := backend.AddUser("Bob", "Stone", "bob@fit.life", "secret2")
		Expect(err).NotTo(HaveOccurred())
		backend.SetProfileOverride("bob@fit.life")

		_, err = device.auth.Login(ctx, common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})

		Expect(errors.Is(err, auth.ErrAccountMismatch)).To(BeTrue())
		Expect(err.Error()).To(ContainSubstring("bob@fit.life"))
		Expect(device.sessions.IsAuthenticated()).To(BeFalse())
	})

	It("requires the verification code when the backend asks for it", func() {
		backend.SetRequireOTP(true)

		result, err := device.auth.Login(ctx, common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.RequiresOTP).To(BeTrue())
		Expect(device.sessions.IsAuthenticated()).To(BeFalse())

		_, err = device.auth.VerifyOTP(ctx, "ana@fit.life", "999999")
		Expect(errors.Is(err, auth.ErrInvalidOTP)).To(BeTrue())

		result, err = device.auth.VerifyOTP(ctx, "ana@fit.life", "123456")
		Expect(err).NotTo(HaveOccurred())
		Expect(result.User.Email).To(Equal("ana@fit.life"))
		Expect(device.sessions.IsAuthenticated()).To(BeTrue())
	})

	It("reports an already registered email", func() {
		_, err := device.auth.Register(ctx, common.RegisterRequest{
			Email: "ana@fit.life", FirstName: "Ana", LastName: "Lopez", Password: "secret1",
		})

		var userErr *auth.UserError
		Expect(errors.As(err, &userErr)).To(BeTrue())
		Expect(userErr.Message).To(Equal("This email is already registered. Do you already have an account?"))
	})
})

var _ = Describe("Login against a misbehaving API", func() {

	It("fails and keeps no session when the token names another email", func() {
		foreignToken, _, err := serializers.NewJwtTokenSerializer("other-secret", time.Hour).
			Serialize(&common.UserProfile{Id: "u-9", Email: "intruder@fit.life"})
		Expect(err).NotTo(HaveOccurred())

		apiStub := CreateServiceStub([]RequestMock{
			{
				Request: Request{
					Method: "POST",
					Url:    "/api/User/login",
					Headers: []Header{
						{
							Name:   "Content-Type",
							Regexp: "^application/json$",
						},
					},
					Body: []BodyCheck{
						JsonPropsBody{
							Props: map[string]string{
								"email":    "ana@fit.life",
								"password": "secret1",
							},
						},
					},
				},
				Response: Response{
					Status: 200,
					Body: JsonMap{
						"token":   foreignToken,
						"expires": "2030-01-01T00:00:00Z",
					},
				},
			},
		})
		defer apiStub.Close()
		device := newClient(apiStub.URL)

		_, err = device.auth.Login(context.Background(), common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})

		Expect(errors.Is(err, auth.ErrTokenEmailMismatch)).To(BeTrue())
		Expect(device.sessions.IsAuthenticated()).To(BeFalse())
		_, found := device.storage.Get(common.UserKey)
		Expect(found).To(BeFalse())
	})

	It("falls back to token data when the profile request fails", func() {
		token, _, err := serializers.NewJwtTokenSerializer("other-secret", time.Hour).
			Serialize(&common.UserProfile{Id: "u-1", Email: "ana@fit.life"})
		Expect(err).NotTo(HaveOccurred())

		apiStub := CreateServiceStub([]RequestMock{
			{
				Request:  Request{Method: "POST", Url: "/api/User/login"},
				Response: Response{Status: 200, Body: JsonMap{"token": token}},
			},
			{
				Request: Request{
					Method: "GET",
					Url:    "/api/User",
					Headers: []Header{
						{
							Name:   "Authorization",
							Regexp: "^Bearer " + token + "$",
						},
					},
				},
				Response: Response{Status: 500, Body: JsonMap{"message": "database down"}},
			},
		})
		defer apiStub.Close()
		device := newClient(apiStub.URL)

		result, err := device.auth.Login(context.Background(), common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})

		Expect(err).NotTo(HaveOccurred())
		Expect(result.Source).To(Equal(auth.ProfileFromToken))
		Expect(result.User.Id).To(Equal("u-1"))
		Expect(result.User.Email).To(Equal("ana@fit.life"))
	})
})
