package main

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"campus-store/internal/poller"
)

type settings struct {
	APIURL   string        `mapstructure:"api_url"`
	Token    string        `mapstructure:"token"`
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var cfgFile string

	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "storectl - cliente de consola del campus store",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadSettings(v, cfgFile)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "archivo YAML de configuración")
	flags.String("api-url", "http://localhost:8080", "URL base del backend")
	flags.String("token", "", "bearer token del usuario")
	_ = v.BindPFlag("api_url", flags.Lookup("api-url"))
	_ = v.BindPFlag("token", flags.Lookup("token"))

	rootCmd.AddCommand(pollCmd(v))
	rootCmd.AddCommand(statusCmd(v))

	return rootCmd
}

// Prioridad: flags, variables STORECTL_*, archivo de config, defaults.
func loadSettings(v *viper.Viper, cfgFile string) error {
	v.SetEnvPrefix("STORECTL")
	v.AutomaticEnv()
	v.SetDefault("interval", poller.DefaultInterval)
	v.SetDefault("timeout", poller.DefaultTimeout)

	if cfgFile == "" {
		return nil
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")
	return v.ReadInConfig()
}

func readSettings(v *viper.Viper) (settings, error) {
	var s settings
	if err := v.Unmarshal(&s); err != nil {
		return s, err
	}
	if s.APIURL == "" {
		return s, errors.New("api url is required")
	}
	return s, nil
}
