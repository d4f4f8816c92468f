package cmd

// CLI is the daemon's full command surface. Running it with no subcommand
// starts the daemon (RunCmd is the kong default); "config init" scaffolds a
// config file for it without starting anything.
type CLI struct {
	Run       RunCmd        `cmd:"" default:"withargs" help:"Run the daemon (default)"`
	Config    ConfigCommand `cmd:"" help:"Generate a configuration file template"`
	Install   InstallCmd    `cmd:"" help:"Install btkeyd as a systemd service"`
	Uninstall UninstallCmd  `cmd:"" help:"Remove the systemd service installed by 'install'"`
}
