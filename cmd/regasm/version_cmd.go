package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch strings.ToLower(viper.GetString("output")) {
		case "json":
			data, err := json.Marshal(map[string]string{
				"version": version,
				"commit":  commit,
				"date":    date,
			})
			if err != nil {
				return err
			}
			data, err = formatJSON(data, shouldColorize(cmd))
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
		case "", "text":
			fmt.Fprintf(out, "regasm %s (commit %s, built %s)\n", version, commit, date)
		default:
			return fmt.Errorf("unknown output format: %s", viper.GetString("output"))
		}
		return nil
	},
}

func init() {
	versionCmd.Flags().StringP("output", "o", "text", "Output format: text or json")
}
