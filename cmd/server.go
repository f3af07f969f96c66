package cmd

import (
	"github.com/spf13/cobra"
	"worker-translate/config"
	server2 "worker-translate/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start http server and notification consumer",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
