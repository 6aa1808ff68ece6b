package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/menuscan/menuscan/internal/cache"
	"github.com/menuscan/menuscan/internal/model"
)

var cacheGetDate string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and maintain the menu cache",
}

var cacheSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete cache entries dated before today",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := cache.New(cfg.Cache.Path)
		if err := c.Open(cmd.Context()); err != nil {
			return err
		}
		defer c.Close()

		n, err := c.InvalidateOld(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("removed %d stale entries\n", n)
		return nil
	},
}

var cacheGetCmd = &cobra.Command{
	Use:   "get <url>",
	Short: "Print the cached menu for a URL, if any",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date := cacheGetDate
		if date == "" {
			date = time.Now().Format(model.DateLayout)
		}

		c := cache.New(cfg.Cache.Path)
		if err := c.Open(cmd.Context()); err != nil {
			return err
		}
		defer c.Close()

		menu, err := c.Get(cmd.Context(), args[0], date)
		if err != nil {
			return err
		}
		if menu == nil {
			fmt.Println("not cached")
			return nil
		}

		out, err := json.MarshalIndent(menu, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	cacheGetCmd.Flags().StringVar(&cacheGetDate, "date", "", "menu date (YYYY-MM-DD, default today)")
	cacheCmd.AddCommand(cacheSweepCmd)
	cacheCmd.AddCommand(cacheGetCmd)
	rootCmd.AddCommand(cacheCmd)
}
