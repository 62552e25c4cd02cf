package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"campus-store/internal/poller"
)

func pollCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "poll [orderId]",
		Short: "Espera a que el pago de la orden se confirme",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSettings(v)
			if err != nil {
				return err
			}

			client := poller.NewHTTPStatusClient(s.APIURL, s.Token)
			res, err := poller.New(client, s.Interval, s.Timeout).Wait(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			switch res.Outcome {
			case poller.Paid:
				fmt.Fprintln(out, "payment confirmed")
			case poller.Failed:
				fmt.Fprintln(out, "payment failed, please try again")
			case poller.TimedOut:
				fmt.Fprintln(out, "payment timed out, please try again")
			}
			return nil
		},
	}

	cmd.Flags().Duration("interval", poller.DefaultInterval, "intervalo entre consultas")
	cmd.Flags().Duration("timeout", poller.DefaultTimeout, "tiempo máximo de espera")
	_ = v.BindPFlag("interval", cmd.Flags().Lookup("interval"))
	_ = v.BindPFlag("timeout", cmd.Flags().Lookup("timeout"))

	return cmd
}
