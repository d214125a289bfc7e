package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/urfave/cli/v2"
	matchexport "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/export"
	matchdb "github.com/wukrit/fightrise-bot-sub001/app/modules/match/infrastructure/repositories"
	"github.com/wukrit/fightrise-bot-sub001/config"
)

func main() {
	_ = godotenv.Load()

	cliApp := &cli.App{
		Name:  "export",
		Usage: "write a tournament's completed matches to an xlsx file",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Value: "config.yaml", Usage: "path to the configuration file"},
			&cli.StringFlag{Name: "tournament", Required: true, Usage: "local tournament id"},
			&cli.StringFlag{Name: "out", Value: "matches.xlsx", Usage: "output file"},
		},
		Action: run,
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	tournamentID, err := uuid.Parse(c.String("tournament"))
	if err != nil {
		return fmt.Errorf("invalid tournament id: %w", err)
	}

	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	pgdb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.DSN)))
	db := bun.NewDB(pgdb, pgdialect.New())
	defer db.Close()

	out, err := os.Create(c.String("out"))
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	exporter := matchexport.NewExporter(matchdb.NewRepository(db), db)
	n, err := exporter.Export(c.Context, tournamentID, out)
	if err != nil {
		_ = os.Remove(c.String("out"))
		return err
	}
	fmt.Printf("Exported %d matches to %s\n", n, c.String("out"))
	return nil
}
