package main

import (
	"context"
	"fmt"
	"github.com/Alcereo/fitlife/pkg/auth"
	"github.com/Alcereo/fitlife/pkg/common"
	ctx "github.com/Alcereo/fitlife/pkg/context"
	"github.com/Alcereo/fitlife/pkg/plans"
	"github.com/Alcereo/fitlife/pkg/reminder"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"
)

type application struct {
	configFile string
	config     *ctx.ClientConfiguration
	auth       *auth.AuthService
	plans      *plans.PlanSynchronizer
	reminder   *reminder.Scheduler
	close      func() error
	out        io.Writer
}

func newRootCommand() *cobra.Command {
	app := &application{}

	root := &cobra.Command{
		Use:           "fitlife",
		Short:         "FitLife client: session, exercise plans and reminders",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			app.setup(cmd.OutOrStdout())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.close != nil {
				return app.close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&app.configFile, "config", "", "config file (default ./config.yaml or ~/.fitlife/config.yaml)")

	root.AddCommand(
		app.statusCommand(),
		app.loginCommand(),
		app.verifyOtpCommand(),
		app.registerCommand(),
		app.logoutCommand(),
		app.profileCommand(),
		app.plansCommand(),
		app.exerciseCommand(),
		app.routineCommand(),
		app.reminderCommand(),
		app.configCommand(),
	)
	return root
}

func (app *application) setup(out io.Writer) {
	configInit(app.configFile)
	app.config = loadConfig()
	setupLogging(app.config.LogLevel)
	log.Tracef("Resolved config:\n%+v", dumpConfig(app.config))

	context := ctx.NewContext(app.config)
	context.SetupMessages()
	context.SetupStorage(app.config.Storage)
	context.SetupClient()

	app.out = out
	app.auth = context.BuildAuthService()
	app.plans = context.BuildPlanSynchronizer()
	app.reminder = context.BuildReminder(func(notification reminder.Notification) {
		_, _ = fmt.Fprintf(app.out, "[%v] %v: %v\n", notification.Time, notification.Title, notification.Message)
	})
	app.close = context.Close
}

func (app *application) printf(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(app.out, format, args...)
}

// Session

func (app *application) statusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Reconcile the stored session with the API profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			state, err := app.auth.CheckStatus(cmd.Context())
			if err != nil {
				return err
			}
			if !state.Authenticated {
				app.printf("Not authenticated\n")
				return nil
			}
			app.printUser(state.User, state.Source)
			return nil
		},
	}
}

func (app *application) loginCommand() *cobra.Command {
	var credentials common.LoginRequest
	command := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if credentials.Password == "" {
				credentials.Password = os.Getenv("FITLIFE_PASSWORD")
			}
			result, err := app.auth.Login(cmd.Context(), credentials)
			if err != nil {
				return err
			}
			if result.RequiresOTP {
				app.printf("A verification code was sent. Run: fitlife verify-otp --email %v --code <code>\n", credentials.Email)
				return nil
			}
			app.printUser(result.User, result.Source)
			return nil
		},
	}
	command.Flags().StringVar(&credentials.Email, "email", "", "account email")
	command.Flags().StringVar(&credentials.Password, "password", "", "account password (or FITLIFE_PASSWORD)")
	_ = command.MarkFlagRequired("email")
	return command
}

func (app *application) verifyOtpCommand() *cobra.Command {
	var email, code string
	command := &cobra.Command{
		Use:   "verify-otp",
		Short: "Complete a sign in that requires a verification code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := app.auth.VerifyOTP(cmd.Context(), email, code)
			if err != nil {
				return err
			}
			app.printUser(result.User, result.Source)
			return nil
		},
	}
	command.Flags().StringVar(&email, "email", "", "account email")
	command.Flags().StringVar(&code, "code", "", "verification code")
	_ = command.MarkFlagRequired("email")
	_ = command.MarkFlagRequired("code")
	return command
}

func (app *application) registerCommand() *cobra.Command {
	var request common.RegisterRequest
	command := &cobra.Command{
		Use:   "register",
		Short: "Create an account. Sign in afterwards with login",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if request.Password == "" {
				request.Password = os.Getenv("FITLIFE_PASSWORD")
			}
			user, err := app.auth.Register(cmd.Context(), request)
			if err != nil {
				return err
			}
			app.printf("Account created for %v (%v)\n", user.Email, user.Id)
			return nil
		},
	}
	command.Flags().StringVar(&request.Email, "email", "", "account email")
	command.Flags().StringVar(&request.FirstName, "first-name", "", "first name")
	command.Flags().StringVar(&request.LastName, "last-name", "", "last name")
	command.Flags().StringVar(&request.Password, "password", "", "account password (or FITLIFE_PASSWORD)")
	return command
}

func (app *application) logoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the session. Plans and the reminder are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := app.auth.Logout()
			if err != nil {
				return err
			}
			log.WithField("keys", removed).Debug("Session keys removed")
			app.printf("Signed out\n")
			return nil
		},
	}
}

func (app *application) profileCommand() *cobra.Command {
	profile := &cobra.Command{
		Use:   "profile",
		Short: "Profile operations",
	}
	profile.AddCommand(&cobra.Command{
		Use:   "refresh",
		Short: "Fetch the profile from the API and store it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := app.auth.RefreshUserData(cmd.Context())
			if err != nil {
				return err
			}
			app.printUser(user, auth.ProfileFromApi)
			return nil
		},
	})
	return profile
}

func (app *application) printUser(user *common.UserProfile, source auth.ProfileSource) {
	if user == nil {
		app.printf("Authenticated\n")
		return
	}
	app.printf("Authenticated as %v <%v> (id %v, profile from %v)\n", user.Name, user.Email, user.Id, source)
}

// Plans

func (app *application) plansCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "plans",
		Short: "Exercise plan operations",
	}

	var asYaml bool
	list := &cobra.Command{
		Use:   "list",
		Short: "Load the plans from the API, or the local cache when it is unavailable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.plans.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			if asYaml {
				bytes, err := yaml.Marshal(loaded)
				if err != nil {
					return err
				}
				app.printf("%s", bytes)
				return nil
			}
			app.printPlans(loaded)
			return nil
		},
	}
	list.Flags().BoolVar(&asYaml, "yaml", false, "print plans as YAML")

	var input plans.PlanInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a plan. Stored locally when the server refuses it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			plan, err := app.plans.CreatePlan(cmd.Context(), input)
			if err != nil {
				return err
			}
			app.printf("Created plan %v\n", plan.Id)
			return nil
		},
	}
	create.Flags().StringVar(&input.Name, "name", "", "plan name")
	create.Flags().StringVar(&input.Description, "description", "", "plan description")
	create.Flags().StringVar(&input.TrainingDay, "day", "", "training day, YYYY-MM-DD")

	var name, description, day string
	update := &cobra.Command{
		Use:   "update <plan-id>",
		Short: "Change a plan's name, description or day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			changes := common.UpdateExercisePlanRequest{}
			if cmd.Flags().Changed("name") {
				changes.Name = &name
			}
			if cmd.Flags().Changed("description") {
				changes.Description = &description
			}
			if cmd.Flags().Changed("day") {
				changes.TrainingDay = &day
			}
			plan, err := app.plans.UpdatePlan(cmd.Context(), args[0], changes)
			if err != nil {
				return err
			}
			app.printf("Updated plan %v\n", plan.Id)
			return nil
		},
	}
	update.Flags().StringVar(&name, "name", "", "new plan name")
	update.Flags().StringVar(&description, "description", "", "new plan description")
	update.Flags().StringVar(&day, "day", "", "new training day, YYYY-MM-DD")

	remove := &cobra.Command{
		Use:   "delete <plan-id>",
		Short: "Delete a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.plans.DeletePlan(cmd.Context(), args[0]); err != nil {
				return err
			}
			app.printf("Deleted plan %v\n", args[0])
			return nil
		},
	}

	week := &cobra.Command{
		Use:   "week",
		Short: "Show the exercises scheduled for each weekday",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := app.plans.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			app.printWeek(plans.WeeklySchedule(loaded))
			return nil
		},
	}

	command.AddCommand(list, create, update, remove, week)
	return command
}

func (app *application) printPlans(loaded []common.ExercisePlan) {
	if len(loaded) == 0 {
		app.printf("No exercise plans\n")
		return
	}
	writer := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(writer, "ID\tNAME\tDAY\tEXERCISES\tLOCAL")
	for _, plan := range loaded {
		_, _ = fmt.Fprintf(writer, "%v\t%v\t%v\t%v\t%v\n",
			plan.Id, plan.Name, plan.TrainingDay, len(plan.Exercises), plans.IsLocalPlan(plan.Id))
	}
	_ = writer.Flush()
}

func (app *application) printWeek(schedule map[time.Weekday][]common.Exercise) {
	days := make([]time.Weekday, 0, len(schedule))
	for day := range schedule {
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })

	if len(days) == 0 {
		app.printf("Nothing scheduled this week\n")
		return
	}
	for _, day := range days {
		names := make([]string, 0, len(schedule[day]))
		for _, exercise := range schedule[day] {
			names = append(names, exercise.Name)
		}
		app.printf("%-10v %v\n", day, strings.Join(names, ", "))
	}
}

// Exercises

func (app *application) exerciseCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "exercise",
		Short: "Exercise operations",
	}

	var input plans.ExerciseInput
	add := &cobra.Command{
		Use:   "add <plan-id>",
		Short: "Add an exercise to a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exercise, err := app.plans.AddExercise(cmd.Context(), args[0], input)
			if err != nil {
				return err
			}
			app.printf("Added exercise %v\n", exercise.Id)
			return nil
		},
	}
	add.Flags().StringVar(&input.Name, "name", "", "exercise name")
	add.Flags().StringVar(&input.Description, "description", "", "exercise description")
	add.Flags().StringVar(&input.StartTime, "start-time", "", "start time")

	var planId string
	remove := &cobra.Command{
		Use:   "remove <exercise-id>",
		Short: "Remove an exercise from a plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.plans.RemoveExercise(cmd.Context(), args[0], planId); err != nil {
				return err
			}
			app.printf("Removed exercise %v\n", args[0])
			return nil
		},
	}
	remove.Flags().StringVar(&planId, "plan", "", "plan holding the exercise")
	_ = remove.MarkFlagRequired("plan")

	command.AddCommand(add, remove)
	return command
}

// Routines

func (app *application) routineCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "routine",
		Short: "Weekly routine operations",
	}

	var days []string
	var exercises []string
	create := &cobra.Command{
		Use:   "create",
		Short: "Create one plan per weekday holding every given exercise",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := parseRoutine(days, exercises)
			if err != nil {
				return err
			}
			result, err := app.plans.CreateRoutine(cmd.Context(), *input)
			if err != nil {
				return err
			}
			app.printf("Created %v plans, %v exercises added, %v failed\n",
				len(result.Plans), result.ExercisesAdded, result.ExercisesFailed)
			return nil
		},
	}
	create.Flags().StringSliceVar(&days, "days", nil, "weekdays, e.g. mon,wed,fri")
	create.Flags().StringArrayVar(&exercises, "exercise", nil, "exercise as name[:category], repeatable")

	command.AddCommand(create)
	return command
}

func parseRoutine(days []string, exercises []string) (*plans.RoutineInput, error) {
	input := &plans.RoutineInput{}
	for _, value := range days {
		day, err := plans.ParseWeekday(value)
		if err != nil {
			return nil, err
		}
		input.Days = append(input.Days, day)
	}
	for _, value := range exercises {
		name, category := value, "General"
		if index := strings.LastIndex(value, ":"); index > 0 {
			name, category = value[:index], value[index+1:]
		}
		input.Exercises = append(input.Exercises, plans.RoutineExercise{
			Name:     strings.TrimSpace(name),
			Category: strings.TrimSpace(category),
		})
	}
	return input, nil
}

// Reminder

func (app *application) reminderCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "reminder",
		Short: "Daily exercise reminder",
	}

	var wait bool
	schedule := &cobra.Command{
		Use:   "schedule <HH:MM>",
		Short: "Schedule the reminder at the next occurrence of the time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := app.reminder.Schedule(args[0])
			if err != nil {
				return err
			}
			app.printf("Reminder set for %v (in %v)\n", target.Format("2006-01-02 15:04"), app.reminder.TimeUntil())
			if wait {
				return app.waitForReminder(cmd.Context(), target)
			}
			return nil
		},
	}
	schedule.Flags().BoolVar(&wait, "wait", false, "stay running until the reminder fires")

	cancel := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.reminder.Cancel(); err != nil {
				return err
			}
			app.printf("Reminder canceled\n")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the stored reminder",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := app.reminder.Restore(); err != nil {
				return err
			}
			current := app.reminder.Status()
			if !current.Scheduled {
				app.printf("No reminder scheduled\n")
				return nil
			}
			app.printf("Reminder at %v (in %v)\n", current.Time, app.reminder.TimeUntil())
			return nil
		},
	}

	command.AddCommand(schedule, cancel, status)
	return command
}

func (app *application) waitForReminder(parent context.Context, target time.Time) error {
	waitCtx, stop := signal.NotifyContext(parent, os.Interrupt)
	defer stop()

	select {
	case <-waitCtx.Done():
		return nil
	case <-time.After(time.Until(target) + time.Second):
		return nil
	}
}

// Config

func (app *application) configCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			app.printf("%s", dumpConfig(app.config))
		},
	}
}
