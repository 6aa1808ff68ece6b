package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/menuscan/menuscan/internal/model"
)

var (
	scanDate      string
	scanMaxPrice  float64
	scanAllergens []int
)

var scanCmd = &cobra.Command{
	Use:   "scan <url>",
	Short: "Resolve one restaurant's daily menu and print it as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetURL := args[0]
		if err := validateURL(targetURL); err != nil {
			return err
		}

		date := scanDate
		if date == "" {
			date = time.Now().Format(model.DateLayout)
		} else if _, err := time.Parse(model.DateLayout, date); err != nil {
			return eris.New("date must be YYYY-MM-DD")
		}

		var prefs *model.Preferences
		if scanMaxPrice > 0 || len(scanAllergens) > 0 {
			prefs = &model.Preferences{Allergens: scanAllergens}
			if scanMaxPrice > 0 {
				prefs.Price = &scanMaxPrice
			}
		}

		env, err := initService(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.Service.GetMenu(cmd.Context(), targetURL, date, prefs)
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanDate, "date", "", "menu date (YYYY-MM-DD, default today)")
	scanCmd.Flags().Float64Var(&scanMaxPrice, "max-price", 0, "price ceiling in Kč")
	scanCmd.Flags().IntSliceVar(&scanAllergens, "exclude-allergens", nil, "allergen codes to exclude")
	rootCmd.AddCommand(scanCmd)
}
