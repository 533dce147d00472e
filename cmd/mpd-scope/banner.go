package main

const banner = `
 ███╗   ███╗██████╗ ██████╗       ███████╗ ██████╗ ██████╗ ██████╗ ███████╗
 ████╗ ████║██╔══██╗██╔══██╗      ██╔════╝██╔════╝██╔═══██╗██╔══██╗██╔════╝
 ██╔████╔██║██████╔╝██║  ██║█████╗███████╗██║     ██║   ██║██████╔╝█████╗
 ██║╚██╔╝██║██╔═══╝ ██║  ██║╚════╝╚════██║██║     ██║   ██║██╔═══╝ ██╔══╝
 ██║ ╚═╝ ██║██║     ██████╔╝      ███████║╚██████╗╚██████╔╝██║     ███████╗
 ╚═╝     ╚═╝╚═╝     ╚═════╝       ╚══════╝ ╚═════╝ ╚═════╝ ╚═╝     ╚══════╝`

// GetBanner returns the ASCII banner shown in the root command help
func GetBanner() string {
	return banner
}
