package main

import (
	"github.com/spf13/cobra"
)

var (
	cartNameFlag  string
	cartPriceFlag float64
	cartImageFlag string

	categoryFlag string
	brandFlag    string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <photo>",
	Short: "Upload a photo and start a try-on",
	Args:  cobra.ExactArgs(1),
	RunE:  lineCommand("upload"),
}

var processCmd = &cobra.Command{
	Use:   "process <photo> <productId>",
	Short: "Upload a photo and render a product onto it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLines(cmd, [][]string{{"upload", args[0]}, {"process", args[1]}})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past try-ons, newest first",
	Args:  cobra.NoArgs,
	RunE:  lineCommand("history"),
}

var productsCmd = &cobra.Command{
	Use:   "products",
	Short: "List the product catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		line := []string{"products"}
		if categoryFlag != "" {
			line = append(line, "category="+categoryFlag)
		}
		if brandFlag != "" {
			line = append(line, "brand="+brandFlag)
		}
		return runLines(cmd, [][]string{line})
	},
}

var cartCmd = &cobra.Command{
	Use:   "cart",
	Short: "Manage the cart",
}

var cartAddCmd = &cobra.Command{
	Use:   "add <productId> <size> [quantity]",
	Short: "Add a product in a size; repeated adds merge into one line",
	Long: `Without --price or --name the product's name, price and image are read
from the catalog and the size is checked against the sizes it is offered in.`,
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		qty := "1"
		if len(args) == 3 {
			qty = args[2]
		}
		line := []string{"cart", "add", args[0], args[1], qty}
		if cmd.Flags().Changed("price") || cartNameFlag != "" {
			line = append(line, formatPrice(cartPriceFlag))
			if cartNameFlag != "" {
				line = append(line, cartNameFlag)
			}
		}
		return runLines(cmd, [][]string{line})
	},
}

var cartListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the cart",
	Args:  cobra.NoArgs,
	RunE:  lineCommand("cart", "list"),
}

var cartRemoveCmd = &cobra.Command{
	Use:   "remove <lineId>",
	Short: "Remove a cart line",
	Args:  cobra.ExactArgs(1),
	RunE:  lineCommand("cart", "remove"),
}

var cartQtyCmd = &cobra.Command{
	Use:   "qty <lineId> <quantity>",
	Short: "Set the quantity of a cart line",
	Args:  cobra.ExactArgs(2),
	RunE:  lineCommand("cart", "qty"),
}

var cartClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Empty the cart",
	Args:  cobra.NoArgs,
	RunE:  lineCommand("cart", "clear"),
}

var runCmd = &cobra.Command{
	Use:   "run <script>",
	Short: "Run a script of commands in one session",
	Long: `Each non-empty line of the script is one command without the "tryon"
prefix, e.g.:

  upload ./me.jpg
  process 1
  products category=shirts
  cart add 1 M 2 19.99 Classic Tee
  cart add 2 L
  cart list

Lines starting with # are comments. The run stops at the first failing line.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := readScript(args[0])
		if err != nil {
			return err
		}
		return runLines(cmd, lines)
	},
}

func init() {
	cartAddCmd.Flags().StringVar(&cartNameFlag, "name", "", "Product name shown in the cart")
	cartAddCmd.Flags().Float64Var(&cartPriceFlag, "price", 0, "Unit price")
	cartAddCmd.Flags().StringVar(&cartImageFlag, "image", "", "Product image URL")
	productsCmd.Flags().StringVar(&categoryFlag, "category", "", "Only products in this category")
	productsCmd.Flags().StringVar(&brandFlag, "brand", "", "Only products of this brand")

	cartCmd.AddCommand(cartAddCmd, cartListCmd, cartRemoveCmd, cartQtyCmd, cartClearCmd)
}

// lineCommand runs prefix followed by the command's args as one script line.
func lineCommand(prefix ...string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		line := append(append([]string{}, prefix...), args...)
		return runLines(cmd, [][]string{line})
	}
}

func runLines(cmd *cobra.Command, lines [][]string) error {
	ctx, cancel := commandContext(cmd)
	defer cancel()

	r := &runner{shop: newShop(), out: cmd.OutOrStdout(), imageURL: cartImageFlag}
	return r.run(ctx, lines)
}
