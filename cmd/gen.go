package cmd

import (
	"io"
	"log"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/sparkify/lake"
	"github.com/sparkify/lake/usecase/gen"
	"github.com/spf13/cobra"
)

// GenMain is wrapped by NewGenCommand and only exported for testing purposes.
var GenMain *gen.Main

// NewGenCommand returns a new cobra command wrapping GenMain.
func NewGenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	GenMain = gen.NewMain()
	genCommand := &cobra.Command{
		Use:   "gen",
		Short: "Write a fake data lake of song metadata and event logs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			l := log.New(stderr, "", log.LstdFlags)
			if GenMain.Verbose {
				GenMain.Logger = lake.VerboseLogger{Logger: l}
			} else {
				GenMain.Logger = lake.StdLogger{Logger: l}
			}
			err = GenMain.Run()
			if err != nil {
				return err
			}
			l.Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := genCommand.Flags()
	err = commandeer.Flags(flags, GenMain)
	if err != nil {
		panic(err)
	}
	return genCommand
}

func init() {
	subcommandFns["gen"] = NewGenCommand
}
