package main

import (
	"context"
	"fmt"
	"log"

	"github.com/chromedp/chromedp"
	"github.com/spf13/cobra"

	browseropts "postpilot/internal/browser"
)

// newBrowserCheckCmd creates the "postpilot browser-check" subcommand.
func newBrowserCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "browser-check",
		Short: "Open bot.sannysoft.com to audit the browser fingerprint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log.Println("Opening bot.sannysoft.com with stealth browser options...")

			opts := browseropts.Options(false) // non-headless so you can see it

			allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)
			defer cancel()

			ctx, cancel := chromedp.NewContext(allocCtx)
			defer cancel()

			go func() {
				err := chromedp.Run(ctx,
					chromedp.Navigate("https://bot.sannysoft.com"),
				)
				if err != nil {
					log.Printf("Failed to navigate: %v", err)
				}
			}()

			fmt.Println("Press Enter to end program...")
			fmt.Scanln()
			return nil
		},
	}
}
