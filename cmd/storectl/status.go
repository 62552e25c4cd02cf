package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"campus-store/internal/poller"
)

func statusCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "status [orderId]",
		Short: "Muestra el estado de pago de la orden",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := readSettings(v)
			if err != nil {
				return err
			}

			st, err := poller.NewHTTPStatusClient(s.APIURL, s.Token).FetchStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "paid: %t\ndelivered: %t\npayment status: %s\n", st.IsPaid, st.IsDelivered, st.PaymentStatus)
			return nil
		},
	}
}
