package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/core"
	"github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	cli := commandLine{conf: conf}

	if conf.Database.Engine == database.EnginePostgres {
		db, err := database.Open(conf) // lazy: createdb may run before the database exists
		errAndDie(err)
		defer db.Close()
		cli.db = db.DB
	}

	if len(os.Args) > 1 && (os.Args[1] == "adduser" || os.Args[1] == "resetpassword") {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		store, err := database.NewStore(ctx, conf)
		cancel()
		errAndDie(err)
		defer func() { _ = store.Close(context.Background()) }()
		cli.usrRepo = store.Users
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
