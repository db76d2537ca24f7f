package main

import (
	"context"
	"time"

	"github.com/PalomaresAndrea/gestion-planeacion-sub000/storage/database"
)

var (
	migrateFunc  = database.Migrate          // mockable
	createDBFunc = database.CreateIfNotExist // mockable
)

func (cli *commandLine) migrate(args []string) error {
	if cli.db == nil {
		return errNoSQL
	}
	return migrateFunc(cli.db, args[0], args[1:]...)
}

func (cli *commandLine) createDB() error {
	if cli.conf.Database.Engine != database.EnginePostgres {
		return errNoSQL
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	return createDBFunc(ctx, cli.conf)
}
