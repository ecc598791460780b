package integration_test

import (
	"context"
	"github.com/Alcereo/fitlife/pkg/common"
	"github.com/Alcereo/fitlife/pkg/plans"
	"github.com/Alcereo/fitlife/pkg/stubapi"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"net/http"
	"strings"
)

var _ = Describe("Exercise plan synchronization", func() {
	var device *client
	var userId string
	ctx := context.Background()

	BeforeEach(func() {
		device = newClient(backendServer.URL)
		user, err := backend.AddUser("Ana", "Lopez", "ana@fit.life", "secret1")
		Expect(err).NotTo(HaveOccurred())
		userId = user.Id
		_, err = device.auth.Login(ctx, common.LoginRequest{Email: "ana@fit.life", Password: "secret1"})
		Expect(err).NotTo(HaveOccurred())
	})

	It("stores server plans in the user's cache", func() {
		created, err := device.plans.CreatePlan(ctx, plans.PlanInput{Name: "Leg day", TrainingDay: "2024-05-10"})
		Expect(err).NotTo(HaveOccurred())
		Expect(plans.IsLocalPlan(created.Id)).To(BeFalse())

		loaded, err := device.plans.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(1))

		cached, found := device.storage.Get(common.PlansKey(userId))
		Expect(found).To(BeTrue())
		Expect(cached).To(ContainSubstring(created.Id))
	})

	It("keeps a local plan when the server forbids creation", func() {
		backend.SetFault(stubapi.CreatePlan, http.StatusForbidden)

		created, err := device.plans.CreatePlan(ctx, plans.PlanInput{Name: "Leg day", TrainingDay: "2024-05-10"})

		Expect(err).NotTo(HaveOccurred())
		Expect(created.Id).To(HavePrefix("local-"))
		Expect(device.plans.Plans()).To(HaveLen(1))
		cached, _ := device.storage.Get(common.PlansKey(userId))
		Expect(cached).To(ContainSubstring(created.Id))
		Expect(backend.PlansOf(userId)).To(BeEmpty())
	})

	It("serves the cache when listing fails with a fallback status", func() {
		backend.SetFault(stubapi.ListPlans, http.StatusInternalServerError)

		loaded, err := device.plans.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(BeEmpty())

		backend.SetFault(stubapi.CreatePlan, http.StatusForbidden)
		created, err := device.plans.CreatePlan(ctx, plans.PlanInput{Name: "Leg day", TrainingDay: "2024-05-10"})
		Expect(err).NotTo(HaveOccurred())

		loaded, err = device.plans.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded).To(HaveLen(1))
		Expect(loaded[0].Id).To(Equal(created.Id))
	})

	It("never sends exercises of a local plan to the server", func() {
		backend.SetFault(stubapi.CreatePlan, http.StatusForbidden)
		created, err := device.plans.CreatePlan(ctx, plans.PlanInput{Name: "Leg day", TrainingDay: "2024-05-10"})
		Expect(err).NotTo(HaveOccurred())
		backend.SetFault(stubapi.CreateExercise, http.StatusInternalServerError)

		exercise, err := device.plans.AddExercise(ctx, created.Id, plans.ExerciseInput{Name: "Squat"})

		Expect(err).NotTo(HaveOccurred())
		Expect(exercise.Id).To(HavePrefix("local-exercise-"))
		Expect(device.plans.Plans()[0].Exercises).To(HaveLen(1))
		Expect(device.plans.RemoveExercise(ctx, exercise.Id, created.Id)).To(Succeed())
		Expect(device.plans.Plans()[0].Exercises).To(BeEmpty())
	})

	It("purges other users' caches on refresh", func() {
		Expect(device.storage.Set(common.PlansKey("someone-else"), "[]")).To(Succeed())
		Expect(device.storage.Set(common.LegacyPlansKey, "[]")).To(Succeed())

		_, err := device.plans.Refresh(ctx)
		Expect(err).NotTo(HaveOccurred())

		keys, err := device.storage.Keys()
		Expect(err).NotTo(HaveOccurred())
		Expect(keys).NotTo(ContainElement(common.PlansKey("someone-else")))
		Expect(keys).NotTo(ContainElement(common.LegacyPlansKey))
	})

	It("keeps plans and the reminder on logout", func() {
		_, err := device.plans.CreatePlan(ctx, plans.PlanInput{Name: "Leg day", TrainingDay: "2024-05-10"})
		Expect(err).NotTo(HaveOccurred())
		_, err = device.reminder.Schedule("07:30")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = device.reminder.Cancel() }()
		Expect(device.storage.Set("fitlife-dayExercises", "{}")).To(Succeed())

		removed, err := device.auth.Logout()
		Expect(err).NotTo(HaveOccurred())

		Expect(removed).To(ContainElement(common.TokenKey))
		Expect(removed).To(ContainElement("fitlife-dayExercises"))
		keys, _ := device.storage.Keys()
		Expect(keys).To(ContainElement(common.PlansKey(userId)))
		Expect(keys).To(ContainElement(common.ReminderKey))
		for _, key := range keys {
			Expect(strings.HasPrefix(key, "auth")).To(BeFalse())
		}
		Expect(device.sessions.IsAuthenticated()).To(BeFalse())
	})
})
