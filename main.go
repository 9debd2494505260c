// Command coverctl estimates the position of garage doors and roller shutters and moves them on
// request, from MQTT, HTTP or a local command pipe.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"coverctl/internal/logger"
	"coverctl/scheduler"
)

var myBuild = "dev"

var (
	rootCmd = &cobra.Command{
		Use:          "coverctl",
		Short:        "controls motorized covers that report no position",
		SilenceUsage: true,
	}
	runCmd = &cobra.Command{
		Use:   "run",
		Short: "run the cover controller",
		RunE:  runMain,
	}
	checkCmd = &cobra.Command{
		Use:   "check",
		Short: "validate the configuration and list the covers",
		RunE:  checkMain,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.Version = myBuild
	rootCmd.AddCommand(runCmd, checkCmd)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "/etc/coverctl/coverctl.yaml", "Configuration file")
	flags.Bool("debug", false, "Log debug messages")
	flags.String("log-level", logger.InfoLevel, "Log level (debug, info, warn, error)")
	runCmd.Flags().String("http-addr", ":8080", "Address of the HTTP API, empty to disable")
	runCmd.Flags().String("metrics-addr", ":9090", "Address of the Prometheus endpoint, empty to disable")
	runCmd.Flags().Duration("tick", scheduler.DefaultTick, "Interval between two position updates")

	_ = viper.BindPFlag("config", flags.Lookup("config"))
	_ = viper.BindPFlag("debug", flags.Lookup("debug"))
	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("http.addr", runCmd.Flags().Lookup("http-addr"))
	_ = viper.BindPFlag("metrics.addr", runCmd.Flags().Lookup("metrics-addr"))
	_ = viper.BindPFlag("tick", runCmd.Flags().Lookup("tick"))

	viper.SetEnvPrefix("COVERCTL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
}

func loadConfig() (*Config, error) {
	cfg, err := LoadConfig(viper.GetString("config"))
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration:\n%w", err)
	}
	return cfg, nil
}

func runMain(_ *cobra.Command, _ []string) error {
	level := viper.GetString("log.level")
	if viper.GetBool("debug") {
		level = logger.DebugLevel
	}
	log := logger.New(level)
	defer func() { _ = log.Sync() }()

	log.Infow("coverctl starting", "build", myBuild)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := NewApp(cfg, Settings{
		HTTPAddr:    viper.GetString("http.addr"),
		MetricsAddr: viper.GetString("metrics.addr"),
		Tick:        viper.GetDuration("tick"),
	}, log)
	if err != nil {
		log.Errorw("failed to start", "err", err)
		return err
	}
	defer app.Release()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	err = app.Run(ctx)
	log.Infow("shutting down")
	return err
}

func checkMain(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tOPEN\tCLOSE\tMAX\tINTERVAL\tWATCHDOG\tENDSTOPS")
	for _, cc := range cfg.Covers {
		c := cc.coverConfig().Effective()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n", cc.Name, cc.Type,
			c.OpenDuration, c.CloseDuration, c.MaxDuration, c.ActivationInterval, c.Watchdog, endstopSource(cc.Endstops))
	}
	return w.Flush()
}
