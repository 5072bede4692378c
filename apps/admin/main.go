package main

import (
	"log"
	"os"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/school"
	logsvc "github.com/trezcool/shule/services/logger"
	pgstore "github.com/trezcool/shule/storage/document/postgres"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()

	// set up DB
	db, err := pgstore.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	store := pgstore.NewStore(db, logsvc.NewConsoleLogger(logger))
	svc := school.NewService(store, logsvc.NewConsoleLogger(logger), nil, conf)

	// start CLI
	cli := commandLine{
		db:    db,
		store: store,
		svc:   svc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
