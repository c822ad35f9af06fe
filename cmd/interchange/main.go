package main

import (
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/bookcase/pkg/config"
	"github.com/shishobooks/bookcase/pkg/database"
	"github.com/shishobooks/bookcase/pkg/interchange"
	"github.com/shishobooks/bookcase/pkg/migrations"
	"github.com/urfave/cli/v2"
)

func main() {
	log := logger.New()

	// Export and import never reach Google Books.
	cfg, err := config.NewOffline()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	svc := interchange.NewService(db)

	app := &cli.App{
		Name:  "interchange",
		Usage: "export and import libraries as CSV",
		Before: func(c *cli.Context) error {
			_, err := migrations.BringUpToDate(c.Context, db)
			return err
		},
		Commands: []*cli.Command{
			{
				Name:  "export",
				Usage: "write every library and book as CSV",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "file to write, stdout when empty",
					},
				},
				Action: func(c *cli.Context) error {
					out := os.Stdout
					if path := c.String("output"); path != "" {
						f, err := os.Create(path)
						if err != nil {
							return errors.WithStack(err)
						}
						defer f.Close()
						out = f
					}
					return svc.Export(c.Context, out)
				},
			},
			{
				Name:      "import",
				Usage:     "add the books of a CSV export",
				ArgsUsage: "<file>",
				Action: func(c *cli.Context) error {
					if c.NArg() != 1 {
						return cli.Exit("import takes exactly one CSV file", 1)
					}

					f, err := os.Open(c.Args().First())
					if err != nil {
						return errors.WithStack(err)
					}
					defer f.Close()

					report, err := svc.Import(c.Context, f)
					if err != nil {
						return err
					}

					fmt.Printf("Read %d rows: %d books imported, %d rows skipped, %d libraries created\n",
						report.RowsRead, report.BooksImported, report.RowsSkipped, report.LibrariesCreated)
					return nil
				},
			},
		},
	}
	err = app.Run(os.Args)
	if cerr := db.Close(); cerr != nil {
		log.Err(cerr).Error("database close error")
	}
	if err != nil {
		log.Err(err).Fatal("app run error")
	}
}
