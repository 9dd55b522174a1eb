package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kengeo/libra/crypto"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen [destination]",
	Short: "Generate private and public keys for a cluster of validators.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			scheme, _  = cmd.Flags().GetString("crypto")
			num, _     = cmd.Flags().GetInt("num")
			startID, _ = cmd.Flags().GetInt("start-id")
			pattern, _ = cmd.Flags().GetString("pattern")
		)
		if err := crypto.GenerateConfiguration(args[0], scheme, startID, num, pattern); err != nil {
			return err
		}
		fmt.Printf("generated %d %s key pairs in %s\n", num, scheme, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)

	keygenCmd.Flags().String("crypto", crypto.NameECDSA, "signature scheme (ecdsa, bls12)")
	keygenCmd.Flags().IntP("num", "n", 4, "number of key pairs to generate")
	keygenCmd.Flags().IntP("start-id", "i", 1, "the id of the first validator")
	keygenCmd.Flags().StringP("pattern", "p", "*", "pattern for key file naming, '*' is replaced by the validator id")
}
