package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Corphon/InfraAdvisor/cmd/console/commands"
	"github.com/Corphon/InfraAdvisor/internal/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "infraadvisor",
	Short: "Console for the InfraAdvisor assessment service",
	Long: `A terminal console for InfraAdvisor: run the multi-step
infrastructure assessment wizard with auto-saved drafts, and manage
saved drafts and submitted assessments.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := utils.ERROR
		if verbose {
			level = utils.DEBUG
		}
		utils.GetLogger().SetLogLevel(level)
	},
}

func main() {
	rootCmd.AddCommand(commands.AssessCmd)
	rootCmd.AddCommand(commands.DraftsCmd)
	rootCmd.AddCommand(commands.AssessmentsCmd)
	rootCmd.AddCommand(commands.TokenCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.infraadvisor/console.yaml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
	flags.String("server", "http://localhost:8080", "InfraAdvisor server URL")
	flags.String("token", "", "bearer token (empty = guest user)")
	flags.Duration("timeout", 10*time.Second, "timeout for each remote call")
	flags.Int("retries", 2, "retries for idempotent remote calls")
	flags.Duration("autosave-interval", 30*time.Second, "auto-save interval while the wizard runs")
	flags.Bool("offline", false, "keep drafts in the local store only")
	flags.String("local-driver", "file", "local draft store: file | sqlite | memory")
	flags.String("local-path", "", "local draft store location (default $HOME/.infraadvisor/drafts)")

	viper.BindPFlag("server", flags.Lookup("server"))
	viper.BindPFlag("token", flags.Lookup("token"))
	viper.BindPFlag("timeout", flags.Lookup("timeout"))
	viper.BindPFlag("retries", flags.Lookup("retries"))
	viper.BindPFlag("autosave-interval", flags.Lookup("autosave-interval"))
	viper.BindPFlag("offline", flags.Lookup("offline"))
	viper.BindPFlag("local.driver", flags.Lookup("local-driver"))
	viper.BindPFlag("local.path", flags.Lookup("local-path"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}

		viper.AddConfigPath(filepath.Join(home, ".infraadvisor"))
		viper.SetConfigName("console")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("infraadvisor")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}
