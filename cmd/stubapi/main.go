package main

import (
	"fmt"
	"github.com/Alcereo/fitlife/pkg/stubapi"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"net/http"
	"os"
	"strings"
	"time"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Tracef("No .env file loaded: %v", err)
	}

	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var config *viper.Viper
	root := &cobra.Command{
		Use:          "stubapi",
		Short:        "In-memory FitLife backend for local runs",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(config.GetBool("debug"))

			server := stubapi.NewServer(serverOptions(config))
			if err := seedUser(server, config.GetString("seed")); err != nil {
				return err
			}
			return serve(server, config.GetInt("port"))
		},
	}
	config = bindConfig(root)
	return root
}

// bindConfig declares the stub flags and binds each to a STUBAPI_* variable.
// A flag set on the command line wins over the environment.
func bindConfig(command *cobra.Command) *viper.Viper {
	config := viper.New()
	config.SetEnvPrefix("stubapi")
	config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	config.AutomaticEnv()

	defaults := stubapi.DefaultOptions()
	flags := command.Flags()
	flags.Int("port", 5188, "listen port")
	flags.Bool("otp", false, "require an OTP step after login")
	flags.String("seed", "", "seed account as email:password")
	flags.String("token-secret", "", "token signing secret")
	flags.String("allowed-origins", strings.Join(defaults.AllowedOrigins, ","), "comma separated CORS origins")
	flags.Bool("debug", false, "debug logging")

	for _, name := range []string{"port", "otp", "seed", "token-secret", "allowed-origins", "debug"} {
		if err := config.BindPFlag(name, flags.Lookup(name)); err != nil {
			panic(fmt.Errorf("Flag binding error: %s \n", err))
		}
	}
	return config
}

func serverOptions(config *viper.Viper) stubapi.Options {
	options := stubapi.DefaultOptions()
	options.RequireOTP = config.GetBool("otp")
	if secret := config.GetString("token-secret"); secret != "" {
		options.Secret = secret
	}
	var origins []string
	for _, origin := range strings.Split(config.GetString("allowed-origins"), ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) > 0 {
		options.AllowedOrigins = origins
	}
	return options
}

func seedUser(server *stubapi.Server, seed string) error {
	if seed == "" {
		return nil
	}
	parts := strings.SplitN(seed, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return fmt.Errorf("seed user must be email:password. Got: %v", seed)
	}
	user, err := server.AddUser("Demo", "User", parts[0], parts[1])
	if err != nil {
		return err
	}
	log.Infof("Seeded user %v (%v)", user.Email, user.Id)
	return nil
}

func setupLogging(debug bool) {
	log.SetFormatter(&log.TextFormatter{
		ForceColors: true,
	})
	log.SetLevel(log.InfoLevel)
	if debug {
		log.SetLevel(log.DebugLevel)
	}
}

func serve(server *stubapi.Server, port int) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%v", port),
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Stub API starting on port %v", port)
	return httpServer.ListenAndServe()
}
