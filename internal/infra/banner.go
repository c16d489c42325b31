package infra

import (
	"fmt"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner displays the startup banner.
// Market operations move real wallet funds, so the banner states the
// target app id loudly instead of hiding it in the log stream.
func PrintBanner(cfg *Config) {
	fmt.Println()
	fmt.Printf("%s###########################################################%s\n", ColorCyan, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", ColorCyan, ColorReset)
	fmt.Printf("%s#              Steam Work - Market Client                 #%s\n", ColorCyan, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", ColorCyan, ColorReset)
	fmt.Printf("%s#   APPID:   %-36d #%s\n", ColorCyan, cfg.Steam.AppID, ColorReset)
	fmt.Printf("%s#   TARGET:  %-36s #%s\n", ColorCyan, cfg.Steam.CommunityURL, ColorReset)
	fmt.Printf("%s#   VERSION: %-36s #%s\n", ColorCyan, cfg.App.Version, ColorReset)
	fmt.Printf("%s#                                                         #%s\n", ColorCyan, ColorReset)
	fmt.Printf("%s#   SELL / CANCEL / TRADE CALLS AFFECT A REAL WALLET      #%s\n", ColorYellow, ColorReset)
	fmt.Printf("%s###########################################################%s\n", ColorCyan, ColorReset)
	fmt.Println()
}
