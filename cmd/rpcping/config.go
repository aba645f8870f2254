package main

import (
	"fmt"

	"github.com/marmos91/dittorpc/pkg/config"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "write a sample configuration file",
	RunE:  doConfigInit,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "test if the configuration file can be loaded",
	RunE:  doConfigCheck,
}

var configInitArgs struct {
	force bool
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configCheckCmd)
	configInitCmd.Flags().BoolVarP(&configInitArgs.force, "force", "f", false, "overwrite an existing file")
}

func doConfigInit(cmd *cobra.Command, args []string) error {
	if rootArgs.configFile != "" {
		if err := config.InitConfigToPath(rootArgs.configFile, configInitArgs.force); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", rootArgs.configFile)
		return nil
	}

	path, err := config.InitConfig(configInitArgs.force)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Configuration written to %s\n", path)
	return nil
}

func doConfigCheck(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(rootArgs.configFile); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "config ok")
	return nil
}
