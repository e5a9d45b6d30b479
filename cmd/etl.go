package cmd

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/sparkify/lake/usecase/sparkify"
	"github.com/spf13/cobra"
)

// ETLMain is wrapped by NewETLCommand and only exported for testing purposes.
var ETLMain *sparkify.Main

// NewETLCommand returns a new cobra command wrapping ETLMain.
func NewETLCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	var err error
	ETLMain = sparkify.NewMain()
	ETLMain.Stderr = stderr
	etlCommand := &cobra.Command{
		Use:   "etl",
		Short: "Build the star schema tables from the data lake.",
		Long: `Builds songs and artists from song_data, then users, time and
songplays from log_data. Tables already present under the output root are
replaced.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			start := time.Now()
			err = ETLMain.Run(ctx)
			if err != nil {
				return err
			}
			log.New(stderr, "", log.LstdFlags).Println("Done: ", time.Since(start))
			return nil
		},
	}
	flags := etlCommand.Flags()
	err = commandeer.Flags(flags, ETLMain)
	if err != nil {
		panic(err)
	}
	return etlCommand
}

func init() {
	subcommandFns["etl"] = NewETLCommand
}
