package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for Hastings
var RootCmd = &cobra.Command{
	Use:              "hastings",
	Short:            "hastings peer discovery",
	TraverseChildren: true,
}
